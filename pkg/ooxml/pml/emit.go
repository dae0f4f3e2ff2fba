package pml

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/vortex/ooxml-diff/pkg/ooxml/lcs"
	"github.com/vortex/ooxml-diff/pkg/ooxml/opc"
	"github.com/vortex/ooxml-diff/pkg/ooxml/oxml"
)

const ctSlide = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"

// emitter marks up the output presentation (a clone of the new side).
type emitter struct {
	settings Settings
	outPkg   *opc.Package
	nextSpID int
}

func newPmlEmitter(settings Settings, outPkg *opc.Package) *emitter {
	return &emitter{settings: settings, outPkg: outPkg, nextSpID: 9000}
}

// newEl creates a detached element in the given OOXML namespace prefix.
func newEl(prefix, tag string) *etree.Element {
	el := etree.NewElement(tag)
	el.Space = prefix
	return el
}

// slideTree resolves the spTree of a slide part in the output package.
func (e *emitter) slideTree(partName opc.PackURI) (*opc.Part, *etree.Element, error) {
	part, ok := e.outPkg.Part(partName)
	if !ok {
		return nil, nil, opc.NewMissingPartError(partName)
	}
	root, err := part.XML()
	if err != nil {
		return nil, nil, err
	}
	cSld := oxml.FirstChild(root, "p:cSld")
	if cSld == nil {
		return nil, nil, opc.NewMalformedXmlError(partName, errNoCSld)
	}
	spTree := oxml.FirstChild(cSld, "p:spTree")
	if spTree == nil {
		return nil, nil, opc.NewMalformedXmlError(partName, errNoCSld)
	}
	return part, spTree, nil
}

var errNoCSld = fmt.Errorf("slide has no p:cSld/p:spTree")

// Banner adds a colored label shape across the top of a slide.
func (e *emitter) Banner(partName opc.PackURI, text, color string) error {
	part, spTree, err := e.slideTree(partName)
	if err != nil {
		return err
	}
	spTree.AddChild(e.labelShape(text, color, 0, 0, 12192000, 370000))
	part.MarkDirty()
	return nil
}

// Overlay adds a transparent outline rectangle over a shape's new
// position, flagging a move or resize.
func (e *emitter) Overlay(partName opc.PackURI, sh *ShapeSignature, color string) error {
	part, spTree, err := e.slideTree(partName)
	if err != nil {
		return err
	}
	t := sh.Transform
	sp := e.emptyShape("overlay " + shapeLabel(sh))
	spPr := oxml.SubElement(sp, "p:spPr")
	addXfrm(spPr, t.X, t.Y, t.CX, t.CY)
	geom := oxml.SubElement(spPr, "a:prstGeom")
	geom.CreateAttr("prst", "rect")
	oxml.SubElement(geom, "a:avLst")
	oxml.SubElement(spPr, "a:noFill")
	ln := oxml.SubElement(spPr, "a:ln")
	ln.CreateAttr("w", "28575")
	lnFill := oxml.SubElement(ln, "a:solidFill")
	srgb := oxml.SubElement(lnFill, "a:srgbClr")
	srgb.CreateAttr("val", color)
	spTree.AddChild(sp)
	part.MarkDirty()
	return nil
}

// MarkTextEdits rewrites a shape's text body showing the run-level diff
// inline: deletions struck through in the deleted color, insertions in
// the inserted color.
func (e *emitter) MarkTextEdits(partName opc.PackURI, sh *ShapeSignature, edits []textEdit) error {
	part, spTree, err := e.slideTree(partName)
	if err != nil {
		return err
	}
	target := shapeByID(spTree, sh.ID)
	if target == nil {
		return nil
	}
	txBody := oxml.FindFirst(target, "p:txBody")
	if txBody == nil {
		return nil
	}

	// Keep bodyPr and lstStyle; regenerate the paragraphs.
	for _, p := range oxml.Children(txBody, "a:p") {
		txBody.RemoveChild(p)
	}

	para := oxml.SubElement(txBody, "a:p")
	appendRun := func(run *RunSignature, color string, strike bool) {
		if run.Text == "\n" {
			para = oxml.SubElement(txBody, "a:p")
			return
		}
		var r *etree.Element
		if run.el != nil && color == "" {
			r = run.el.Copy()
		} else {
			r = newEl("a", "r")
			rPr := newEl("a", "rPr")
			if strike {
				rPr.CreateAttr("strike", "sngStrike")
			}
			if color != "" {
				fill := newEl("a", "solidFill")
				srgb := newEl("a", "srgbClr")
				srgb.CreateAttr("val", color)
				fill.AddChild(srgb)
				rPr.AddChild(fill)
			}
			r.AddChild(rPr)
			t := newEl("a", "t")
			t.SetText(run.Text)
			r.AddChild(t)
		}
		para.AddChild(r)
	}

	for _, edit := range edits {
		for _, run := range edit.runs {
			switch edit.status {
			case lcs.StatusDeleted:
				appendRun(run, e.settings.DeletedColor, true)
			case lcs.StatusInserted:
				appendRun(run, e.settings.InsertedColor, false)
			default:
				appendRun(run, "", false)
			}
		}
	}
	part.MarkDirty()
	return nil
}

// AnnotateNotes appends a change log to a slide's notes, when the slide
// has a notes part.
func (e *emitter) AnnotateNotes(slide *SlideSignature, lines []string) error {
	if len(lines) == 0 || slide.part == nil {
		return nil
	}
	rel, ok := slide.part.Rels().ByRelType(opc.RTNotesSlide)
	if !ok {
		return nil
	}
	notesName := rel.TargetPartName(slide.part.PartName().BaseURI())
	notesPart, ok := e.outPkg.Part(notesName)
	if !ok {
		return nil
	}
	root, err := notesPart.XML()
	if err != nil {
		return err
	}
	txBody := oxml.FindFirst(root, "p:txBody")
	if txBody == nil {
		return nil
	}
	for _, line := range lines {
		p := oxml.SubElement(txBody, "a:p")
		r := oxml.SubElement(p, "a:r")
		t := oxml.SubElement(r, "a:t")
		t.SetText(line)
	}
	notesPart.MarkDirty()
	return nil
}

// SummarySlide appends a slide aggregating the change counts.
func (e *emitter) SummarySlide(result *Result) error {
	presPart, err := e.outPkg.MainDocumentPart()
	if err != nil {
		return err
	}
	presRoot, err := presPart.XML()
	if err != nil {
		return err
	}
	sldIdLst := oxml.FirstChild(presRoot, "p:sldIdLst")
	if sldIdLst == nil {
		return nil
	}

	partName := e.freeSlideName()
	lines := []string{
		"Comparison summary",
		fmt.Sprintf("Insertions: %d", result.Counters.Insertions),
		fmt.Sprintf("Deletions: %d", result.Counters.Deletions),
		fmt.Sprintf("Modifications: %d", result.Counters.Modifications),
	}
	blob, err := summarySlideXml(lines)
	if err != nil {
		return err
	}
	slidePart := e.outPkg.CreatePart(partName, ctSlide, blob)

	// Reuse the first slide's layout so the deck stays self-consistent.
	if first, ok := e.firstSlidePart(presPart); ok {
		if layoutRel, found := first.Rels().ByRelType(opc.RTSlideLayout); found {
			layoutName := layoutRel.TargetPartName(first.PartName().BaseURI())
			slidePart.Rels().Add(opc.RTSlideLayout, layoutName)
		}
	}

	rel := presPart.Rels().Add(opc.RTSlide, partName)
	maxID := 255
	for _, sldID := range oxml.Children(sldIdLst, "p:sldId") {
		if id, err := strconv.Atoi(sldID.SelectAttrValue("id", "0")); err == nil && id > maxID {
			maxID = id
		}
	}
	entry := oxml.SubElement(sldIdLst, "p:sldId")
	entry.CreateAttr("id", strconv.Itoa(maxID+1))
	entry.CreateAttr("r:id", rel.RID)
	presPart.MarkDirty()
	return nil
}

func (e *emitter) firstSlidePart(presPart *opc.Part) (*opc.Part, bool) {
	for _, rel := range presPart.Rels().AllOfType(opc.RTSlide) {
		if part, ok := e.outPkg.Part(rel.TargetPartName(presPart.PartName().BaseURI())); ok {
			return part, true
		}
	}
	return nil, false
}

func (e *emitter) freeSlideName() opc.PackURI {
	for n := 1; ; n++ {
		candidate := opc.PackURI("/ppt/slides/slide" + strconv.Itoa(n) + ".xml")
		if !e.outPkg.Exists(candidate) {
			return candidate
		}
	}
}

// summarySlideXml renders a minimal slide part holding the given lines.
func summarySlideXml(lines []string) ([]byte, error) {
	root := oxml.Element("p:sld", "a", "r")
	cSld := oxml.SubElement(root, "p:cSld")
	spTree := oxml.SubElement(cSld, "p:spTree")
	nv := oxml.SubElement(spTree, "p:nvGrpSpPr")
	cNvPr := oxml.SubElement(nv, "p:cNvPr")
	cNvPr.CreateAttr("id", "1")
	cNvPr.CreateAttr("name", "")
	oxml.SubElement(nv, "p:cNvGrpSpPr")
	oxml.SubElement(nv, "p:nvPr")
	oxml.SubElement(spTree, "p:grpSpPr")

	sp := oxml.SubElement(spTree, "p:sp")
	nvSp := oxml.SubElement(sp, "p:nvSpPr")
	spCNvPr := oxml.SubElement(nvSp, "p:cNvPr")
	spCNvPr.CreateAttr("id", "2")
	spCNvPr.CreateAttr("name", "Summary")
	oxml.SubElement(nvSp, "p:cNvSpPr")
	oxml.SubElement(nvSp, "p:nvPr")
	spPr := oxml.SubElement(sp, "p:spPr")
	addXfrm(spPr, 457200, 457200, 11277600, 5943600)
	geom := oxml.SubElement(spPr, "a:prstGeom")
	geom.CreateAttr("prst", "rect")
	oxml.SubElement(geom, "a:avLst")
	txBody := oxml.SubElement(sp, "p:txBody")
	oxml.SubElement(txBody, "a:bodyPr")
	for _, line := range lines {
		p := oxml.SubElement(txBody, "a:p")
		r := oxml.SubElement(p, "a:r")
		t := oxml.SubElement(r, "a:t")
		t.SetText(line)
	}
	return oxml.SerializeXml(root)
}

// labelShape builds a filled text rectangle.
func (e *emitter) labelShape(text, color string, x, y, cx, cy int64) *etree.Element {
	e.nextSpID++
	sp := e.emptyShape("marker " + strconv.Itoa(e.nextSpID))
	spPr := oxml.SubElement(sp, "p:spPr")
	addXfrm(spPr, x, y, cx, cy)
	geom := oxml.SubElement(spPr, "a:prstGeom")
	geom.CreateAttr("prst", "rect")
	oxml.SubElement(geom, "a:avLst")
	fill := oxml.SubElement(spPr, "a:solidFill")
	srgb := oxml.SubElement(fill, "a:srgbClr")
	srgb.CreateAttr("val", color)

	txBody := oxml.SubElement(sp, "p:txBody")
	oxml.SubElement(txBody, "a:bodyPr")
	p := oxml.SubElement(txBody, "a:p")
	r := oxml.SubElement(p, "a:r")
	rPr := oxml.SubElement(r, "a:rPr")
	colorFill := oxml.SubElement(rPr, "a:solidFill")
	white := oxml.SubElement(colorFill, "a:srgbClr")
	white.CreateAttr("val", "FFFFFF")
	t := oxml.SubElement(r, "a:t")
	t.SetText(text)
	return sp
}

// emptyShape builds the nvSpPr scaffolding of a new shape.
func (e *emitter) emptyShape(name string) *etree.Element {
	e.nextSpID++
	sp := newEl("p", "sp")
	nvSpPr := oxml.SubElement(sp, "p:nvSpPr")
	cNvPr := oxml.SubElement(nvSpPr, "p:cNvPr")
	cNvPr.CreateAttr("id", strconv.Itoa(e.nextSpID))
	cNvPr.CreateAttr("name", name)
	oxml.SubElement(nvSpPr, "p:cNvSpPr")
	oxml.SubElement(nvSpPr, "p:nvPr")
	return sp
}

func addXfrm(spPr *etree.Element, x, y, cx, cy int64) {
	xfrm := oxml.SubElement(spPr, "a:xfrm")
	off := oxml.SubElement(xfrm, "a:off")
	off.CreateAttr("x", strconv.FormatInt(x, 10))
	off.CreateAttr("y", strconv.FormatInt(y, 10))
	ext := oxml.SubElement(xfrm, "a:ext")
	ext.CreateAttr("cx", strconv.FormatInt(cx, 10))
	ext.CreateAttr("cy", strconv.FormatInt(cy, 10))
}

// shapeByID finds a shape by its cNvPr id anywhere under the tree.
func shapeByID(spTree *etree.Element, id string) *etree.Element {
	for _, tag := range []string{"p:sp", "p:pic", "p:graphicFrame", "p:grpSp", "p:cxnSp"} {
		for _, sh := range oxml.FindAll(spTree, tag) {
			if cNvPr := oxml.FindFirst(sh, "p:cNvPr"); cNvPr != nil {
				if cNvPr.SelectAttrValue("id", "") == id {
					return sh
				}
			}
		}
	}
	return nil
}

// changeLogLines renders a slide's changes as notes annotation lines.
func changeLogLines(changes []Change, slideNo int) []string {
	var lines []string
	for _, c := range changes {
		if c.Slide != slideNo {
			continue
		}
		line := string(c.Kind)
		if c.Shape != "" {
			line += " — " + c.Shape
		}
		if c.NewText != "" {
			line += ": " + truncate(c.NewText, 80)
		}
		lines = append(lines, line)
	}
	return lines
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}
