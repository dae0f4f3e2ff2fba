package pml

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/vortex/ooxml-diff/pkg/ooxml/digest"
	"github.com/vortex/ooxml-diff/pkg/ooxml/opc"
	"github.com/vortex/ooxml-diff/pkg/ooxml/oxml"
)

// Transform is a shape's placement.
type Transform struct {
	X, Y, CX, CY int64
	Rot          int64
	FlipH, FlipV bool
}

// RunSignature is one text run. It implements lcs.Unit.
type RunSignature struct {
	Text      string
	PropsHash string

	el   *etree.Element // source a:r, for emission; nil for synthetic runs
	hash string
}

// Hash covers text and, when captured, run formatting.
func (r *RunSignature) Hash() string {
	if r.hash == "" {
		r.hash = digest.HashString(r.Text + "\x1f" + r.PropsHash)
	}
	return r.hash
}

// ParagraphSignature is one text-body paragraph.
type ParagraphSignature struct {
	Runs      []*RunSignature
	PropsHash string
}

// Text joins the paragraph's run texts.
func (p *ParagraphSignature) Text() string {
	var sb strings.Builder
	for _, r := range p.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// TextBodySignature is the recursive text content of a shape.
type TextBodySignature struct {
	Paragraphs []*ParagraphSignature
}

// Text joins all paragraph texts with newlines.
func (tb *TextBodySignature) Text() string {
	if tb == nil {
		return ""
	}
	parts := make([]string, len(tb.Paragraphs))
	for i, p := range tb.Paragraphs {
		parts[i] = p.Text()
	}
	return strings.Join(parts, "\n")
}

// hashInto folds the body into a signature hash.
func (tb *TextBodySignature) hashInto(sb *strings.Builder) {
	if tb == nil {
		return
	}
	for _, p := range tb.Paragraphs {
		sb.WriteString("¶")
		sb.WriteString(p.PropsHash)
		for _, r := range p.Runs {
			sb.WriteString("|")
			sb.WriteString(r.Hash())
		}
	}
}

// ShapeSignature fingerprints one shape (recursively for groups).
type ShapeSignature struct {
	ID             string
	Name           string
	Type           string // sp, pic, graphicFrame, grpSp, cxnSp
	Placeholder    string // ph type, e.g. "title"; empty for none
	PlaceholderIdx string
	Transform      Transform
	GeometryHash   string
	TextBody       *TextBodySignature
	// ContentHash fingerprints payload: image bytes, table XML, or chart
	// part content.
	ContentHash string
	FillHash    string
	LineHash    string
	EffectHash  string
	ZOrder      int
	Children    []*ShapeSignature

	el   *etree.Element
	hash string
}

// Hash is the full content hash of the shape, transform included.
func (s *ShapeSignature) Hash() string {
	if s.hash == "" {
		var sb strings.Builder
		fmt.Fprintf(&sb, "%s|%s|%s|%s|%d,%d,%d,%d,%d,%t,%t|%s|%s|%s|%s|%s",
			s.Type, s.Placeholder, s.PlaceholderIdx, s.Name,
			s.Transform.X, s.Transform.Y, s.Transform.CX, s.Transform.CY,
			s.Transform.Rot, s.Transform.FlipH, s.Transform.FlipV,
			s.GeometryHash, s.ContentHash, s.FillHash, s.LineHash, s.EffectHash)
		s.TextBody.hashInto(&sb)
		for _, child := range s.Children {
			sb.WriteString("{")
			sb.WriteString(child.Hash())
			sb.WriteString("}")
		}
		s.hash = digest.HashString(sb.String())
	}
	return s.hash
}

// SlideSignature fingerprints one slide. It implements lcs.Unit.
type SlideSignature struct {
	PartName opc.PackURI
	// Index is the 0-based position in the slide order.
	Index          int
	LayoutRef      string
	Shapes         []*ShapeSignature
	NotesHash      string
	NotesText      string
	BackgroundHash string
	TransitionHash string

	root *etree.Element
	part *opc.Part
	hash string
}

// Hash is the slide content hash: ordered shape signatures plus notes,
// layout, and background.
func (s *SlideSignature) Hash() string {
	if s.hash == "" {
		var sb strings.Builder
		sb.WriteString(s.LayoutRef)
		sb.WriteByte('\x1f')
		sb.WriteString(s.NotesHash)
		sb.WriteByte('\x1f')
		sb.WriteString(s.BackgroundHash)
		for _, shape := range s.Shapes {
			sb.WriteByte('\x1e')
			sb.WriteString(shape.Hash())
		}
		s.hash = digest.HashString(sb.String())
	}
	return s.hash
}

// Title returns the text of the title-placeholder shape, if any.
func (s *SlideSignature) Title() string {
	for _, shape := range s.Shapes {
		if shape.Placeholder == "title" || shape.Placeholder == "ctrTitle" {
			return shape.TextBody.Text()
		}
	}
	return ""
}

// deck is one canonicalized presentation.
type deck struct {
	pkg    *opc.Package
	Slides []*SlideSignature
}

// openDeck canonicalizes presentation bytes into slide signatures,
// ordered by the sldIdLst.
func openDeck(data []byte) (*deck, error) {
	pkg, err := opc.OpenBytes(data)
	if err != nil {
		return nil, err
	}
	presPart, err := pkg.MainDocumentPart()
	if err != nil {
		return nil, err
	}
	presRoot, err := presPart.XML()
	if err != nil {
		return nil, err
	}

	d := &deck{pkg: pkg}
	sldIdLst := oxml.FirstChild(presRoot, "p:sldIdLst")
	if sldIdLst == nil {
		return d, nil
	}
	for _, sldID := range oxml.Children(sldIdLst, "p:sldId") {
		rID := oxml.Attr(sldID, "r:id", "")
		rel, ok := presPart.Rels().ByID(rID)
		if !ok || rel.IsExternal() {
			continue
		}
		partName := rel.TargetPartName(presPart.PartName().BaseURI())
		slidePart, ok := pkg.Part(partName)
		if !ok {
			continue
		}
		sig, err := signSlide(pkg, slidePart, len(d.Slides))
		if err != nil {
			return nil, err
		}
		d.Slides = append(d.Slides, sig)
	}
	return d, nil
}

// signSlide builds the signature for one slide part.
func signSlide(pkg *opc.Package, part *opc.Part, index int) (*SlideSignature, error) {
	root, err := part.XML()
	if err != nil {
		return nil, err
	}

	sig := &SlideSignature{
		PartName: part.PartName(),
		Index:    index,
		root:     root,
		part:     part,
	}

	if rel, ok := part.Rels().ByRelType(opc.RTSlideLayout); ok {
		sig.LayoutRef = rel.TargetPartName(part.PartName().BaseURI()).Filename()
	}
	if rel, ok := part.Rels().ByRelType(opc.RTNotesSlide); ok {
		if notesPart, found := pkg.Part(rel.TargetPartName(part.PartName().BaseURI())); found {
			if notesRoot, err := notesPart.XML(); err == nil {
				sig.NotesText = visibleText(notesRoot)
				sig.NotesHash = digest.ContentID(sig.NotesText)
			}
		}
	}

	cSld := oxml.FirstChild(root, "p:cSld")
	if cSld == nil {
		return sig, nil
	}
	if bg := oxml.FirstChild(cSld, "p:bg"); bg != nil {
		sig.BackgroundHash = digest.ContentID(oxml.Canonical(bg))
	}
	if transition := oxml.FirstChild(root, "p:transition"); transition != nil {
		sig.TransitionHash = digest.ContentID(oxml.Canonical(transition))
	}
	if spTree := oxml.FirstChild(cSld, "p:spTree"); spTree != nil {
		sig.Shapes = signShapes(pkg, part, spTree)
	}
	return sig, nil
}

// signShapes fingerprints the drawable children of a container in
// z-order.
func signShapes(pkg *opc.Package, part *opc.Part, container *etree.Element) []*ShapeSignature {
	var shapes []*ShapeSignature
	for _, child := range container.ChildElements() {
		if child.Space != "p" {
			continue
		}
		switch child.Tag {
		case "sp", "pic", "graphicFrame", "grpSp", "cxnSp":
			shapes = append(shapes, signShape(pkg, part, child, len(shapes)))
		}
	}
	return shapes
}

func signShape(pkg *opc.Package, part *opc.Part, el *etree.Element, zOrder int) *ShapeSignature {
	sig := &ShapeSignature{
		Type:   el.Tag,
		ZOrder: zOrder,
		el:     el,
	}

	if cNvPr := oxml.FindFirst(el, "p:cNvPr"); cNvPr != nil {
		sig.ID = cNvPr.SelectAttrValue("id", "")
		sig.Name = cNvPr.SelectAttrValue("name", "")
	}
	if ph := oxml.FindFirst(el, "p:ph"); ph != nil {
		sig.Placeholder = ph.SelectAttrValue("type", "body")
		sig.PlaceholderIdx = ph.SelectAttrValue("idx", "")
	}

	spPr := oxml.FirstChild(el, "p:spPr")
	if el.Tag == "grpSp" {
		spPr = oxml.FirstChild(el, "p:grpSpPr")
	}
	if spPr != nil {
		sig.Transform = readTransform(oxml.FirstChild(spPr, "a:xfrm"))
		if geom := oxml.FirstChild(spPr, "a:prstGeom"); geom != nil {
			sig.GeometryHash = digest.ContentID(oxml.Canonical(geom))
		} else if geom := oxml.FirstChild(spPr, "a:custGeom"); geom != nil {
			sig.GeometryHash = digest.ContentID(oxml.Canonical(geom))
		}
		sig.FillHash = firstChildHash(spPr, "a:solidFill", "a:gradFill", "a:blipFill", "a:pattFill", "a:noFill")
		if ln := oxml.FirstChild(spPr, "a:ln"); ln != nil {
			sig.LineHash = digest.ContentID(oxml.Canonical(ln))
		}
		if effects := oxml.FirstChild(spPr, "a:effectLst"); effects != nil {
			sig.EffectHash = digest.ContentID(oxml.Canonical(effects))
		}
	}

	if txBody := oxml.FindFirst(el, "p:txBody"); txBody != nil {
		sig.TextBody = signTextBody(txBody)
	}

	switch el.Tag {
	case "pic":
		sig.ContentHash = imageContentHash(pkg, part, el)
	case "graphicFrame":
		sig.ContentHash = graphicContentHash(pkg, part, el)
	case "grpSp":
		sig.Children = signShapes(pkg, part, el)
	}
	return sig
}

func readTransform(xfrm *etree.Element) Transform {
	var t Transform
	if xfrm == nil {
		return t
	}
	t.Rot = parseEMU(xfrm.SelectAttrValue("rot", "0"))
	t.FlipH = xfrm.SelectAttrValue("flipH", "0") == "1"
	t.FlipV = xfrm.SelectAttrValue("flipV", "0") == "1"
	if off := oxml.FirstChild(xfrm, "a:off"); off != nil {
		t.X = parseEMU(off.SelectAttrValue("x", "0"))
		t.Y = parseEMU(off.SelectAttrValue("y", "0"))
	}
	if ext := oxml.FirstChild(xfrm, "a:ext"); ext != nil {
		t.CX = parseEMU(ext.SelectAttrValue("cx", "0"))
		t.CY = parseEMU(ext.SelectAttrValue("cy", "0"))
	}
	return t
}

func parseEMU(s string) int64 {
	var n int64
	neg := false
	for i, r := range s {
		if i == 0 && r == '-' {
			neg = true
			continue
		}
		if r < '0' || r > '9' {
			return n
		}
		n = n*10 + int64(r-'0')
	}
	if neg {
		return -n
	}
	return n
}

func firstChildHash(el *etree.Element, tags ...string) string {
	for _, tag := range tags {
		if child := oxml.FirstChild(el, tag); child != nil {
			return digest.ContentID(oxml.Canonical(child))
		}
	}
	return ""
}

// signTextBody captures paragraphs and runs.
func signTextBody(txBody *etree.Element) *TextBodySignature {
	tb := &TextBodySignature{}
	for _, p := range oxml.Children(txBody, "a:p") {
		para := &ParagraphSignature{}
		if pPr := oxml.FirstChild(p, "a:pPr"); pPr != nil {
			para.PropsHash = digest.ContentID(oxml.Canonical(pPr))
		}
		for _, r := range oxml.Children(p, "a:r") {
			run := &RunSignature{el: r}
			if t := oxml.FirstChild(r, "a:t"); t != nil {
				run.Text = t.Text()
			}
			if rPr := oxml.FirstChild(r, "a:rPr"); rPr != nil {
				run.PropsHash = digest.ContentID(oxml.Canonical(rPr))
			}
			para.Runs = append(para.Runs, run)
		}
		tb.Paragraphs = append(tb.Paragraphs, para)
	}
	return tb
}

// imageContentHash resolves a picture's blip relationship to the image
// part bytes, so equal images hash equally regardless of rId allocation.
func imageContentHash(pkg *opc.Package, part *opc.Part, pic *etree.Element) string {
	blip := oxml.FindFirst(pic, "a:blip")
	if blip == nil {
		return ""
	}
	rID := oxml.Attr(blip, "r:embed", "")
	if rID == "" {
		rID = oxml.Attr(blip, "r:link", "")
	}
	return relContentHash(pkg, part, rID)
}

// graphicContentHash fingerprints a graphicFrame payload: tables hash
// their XML, charts hash the chart part.
func graphicContentHash(pkg *opc.Package, part *opc.Part, frame *etree.Element) string {
	if tbl := oxml.FindFirst(frame, "a:tbl"); tbl != nil {
		return digest.ContentID(oxml.Canonical(tbl))
	}
	if chart := oxml.FindFirst(frame, "c:chart"); chart != nil {
		return relContentHash(pkg, part, oxml.Attr(chart, "r:id", ""))
	}
	if data := oxml.FindFirst(frame, "a:graphicData"); data != nil {
		return digest.ContentID(oxml.Canonical(data))
	}
	return ""
}

func relContentHash(pkg *opc.Package, part *opc.Part, rID string) string {
	if rID == "" {
		return ""
	}
	rel, ok := part.Rels().ByID(rID)
	if !ok {
		return rID
	}
	if rel.IsExternal() {
		return digest.ContentID(rel.TargetRef)
	}
	target, ok := pkg.Part(rel.TargetPartName(part.PartName().BaseURI()))
	if !ok {
		return rID
	}
	blob, err := target.Blob()
	if err != nil {
		return rID
	}
	return digest.ContentID(string(blob))
}

// visibleText flattens a:t text under any root, joined by spaces.
func visibleText(root *etree.Element) string {
	var parts []string
	for _, t := range oxml.FindAll(root, "a:t") {
		if text := strings.TrimSpace(t.Text()); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// wordSet builds the word set of a string for similarity measures.
func wordSet(s string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		words[w] = true
	}
	return words
}

// textJaccard is word-set similarity; both empty → 1.
func textJaccard(a, b string) float64 {
	wa, wb := wordSet(a), wordSet(b)
	if len(wa) == 0 && len(wb) == 0 {
		return 1
	}
	inter := 0
	for w := range wa {
		if wb[w] {
			inter++
		}
	}
	union := len(wa) + len(wb) - inter
	return float64(inter) / float64(union)
}
