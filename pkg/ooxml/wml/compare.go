package wml

import (
	"errors"

	"github.com/beevik/etree"

	"github.com/vortex/ooxml-diff/pkg/ooxml/opc"
	"github.com/vortex/ooxml-diff/pkg/ooxml/oxml"
)

// storyFlags mark where a story lives, for change records.
type storyFlags struct {
	inFootnote bool
	inEndnote  bool
}

// Compare diffs two WordprocessingML documents and returns the marked
// result plus the change list. Inputs are not modified.
func Compare(doc1, doc2 []byte, settings Settings) (*Result, error) {
	pkg1, err := opc.OpenBytes(doc1)
	if err != nil {
		return nil, err
	}
	pkg2, err := opc.OpenBytes(doc2)
	if err != nil {
		return nil, err
	}

	part1, err := pkg1.MainDocumentPart()
	if err != nil {
		return nil, err
	}
	part2, err := pkg2.MainDocumentPart()
	if err != nil {
		return nil, err
	}

	if err := normalizeDocument(pkg1); err != nil {
		return nil, err
	}
	if err := normalizeDocument(pkg2); err != nil {
		return nil, err
	}

	// The output starts as the normalized new side; stories are then
	// rewritten in place. Parts the diff never touches keep their bytes.
	outPkg, err := pkg2.Clone()
	if err != nil {
		return nil, err
	}
	outPart, err := outPkg.MainDocumentPart()
	if err != nil {
		return nil, err
	}

	result := &Result{}
	em := newEmitter(settings, &result.Counters, pkg1, part1, outPkg, outPart)

	// Main body.
	root1, err := part1.XML()
	if err != nil {
		return nil, err
	}
	root2, err := part2.XML()
	if err != nil {
		return nil, err
	}
	outRoot, err := outPart.XML()
	if err != nil {
		return nil, err
	}
	body1 := oxml.FirstChild(root1, "w:body")
	body2 := oxml.FirstChild(root2, "w:body")
	outBody := oxml.FirstChild(outRoot, "w:body")
	if body1 == nil || body2 == nil || outBody == nil {
		return nil, opc.NewMalformedXmlError(part2.PartName(), errMissingBody)
	}

	ops := compareStory(pkg1, part1, body1, pkg2, part2, body2, settings)
	result.Changes = append(result.Changes, collectChanges(ops, settings, storyFlags{})...)
	em.Story(outBody, ops)

	if settings.CompareSectionProperties {
		compareSectionProperties(em, body1, outBody, result)
	}

	// Footnotes and endnotes.
	if err := compareNotes(em, pkg1, part1, pkg2, part2, outPkg, outPart, "footnotes", settings, result); err != nil {
		return nil, err
	}
	if err := compareNotes(em, pkg1, part1, pkg2, part2, outPkg, outPart, "endnotes", settings, result); err != nil {
		return nil, err
	}

	outPart.MarkDirty()
	if err := StripTrackChangesFlag(outPkg); err != nil {
		return nil, err
	}

	result.Document, err = outPkg.SaveToBytes()
	if err != nil {
		return nil, err
	}
	return result, nil
}

var errMissingBody = errors.New("document has no w:body")

// normalizeDocument accepts tracked revisions and strips save artifacts
// in the main document and its note parts.
func normalizeDocument(pkg *opc.Package) error {
	doc, err := pkg.MainDocumentPart()
	if err != nil {
		return err
	}
	parts := []*opc.Part{doc}
	for _, relType := range []string{opc.RTFootnotes, opc.RTEndnotes} {
		if p, err := pkg.RelatedPart(doc, relType); err == nil {
			parts = append(parts, p)
		}
	}
	for _, p := range parts {
		root, err := p.XML()
		if err != nil {
			return err
		}
		AcceptRevisions(root)
		stripRsids(root)
		p.MarkDirty()
	}
	return nil
}

// compareStory tokenizes both sides of one story and correlates them.
func compareStory(pkg1 *opc.Package, part1 *opc.Part, container1 *etree.Element,
	pkg2 *opc.Package, part2 *opc.Part, container2 *etree.Element, settings Settings) []blockOp {

	tk1 := newTokenizer(pkg1, part1, settings)
	tk2 := newTokenizer(pkg2, part2, settings)
	return correlateBlocks(tk1.Story(container1), tk2.Story(container2), settings)
}

// compareSectionProperties diffs the body-level sectPr and, when it
// changed, records a w:sectPrChange carrying the old properties.
func compareSectionProperties(em *emitter, body1, outBody *etree.Element, result *Result) {
	old := oxml.FirstChild(body1, "w:sectPr")
	current := oxml.FirstChild(outBody, "w:sectPr")
	if old == nil || current == nil {
		return
	}
	if elementHash(old) == elementHash(current) {
		return
	}
	change := newWEl("sectPrChange")
	em.revisionAttrs(change)
	inner := old.Copy()
	// Header/footer references inside the old sectPr point at old-side
	// parts; the change record keeps only the layout attributes.
	for _, ref := range append(oxml.Children(inner, "w:headerReference"), oxml.Children(inner, "w:footerReference")...) {
		inner.RemoveChild(ref)
	}
	change.AddChild(inner)
	current.AddChild(change)
	em.counters.FormatChanges++

	result.Changes = append(result.Changes, Change{
		Kind:      ChangeFormat,
		Summary:   "Section properties changed",
		TableRow:  -1,
		TableCell: -1,
		Author:    em.settings.AuthorForRevisions,
		Date:      em.settings.DateForRevisions,
	})
}

// compareNotes diffs footnotes or endnotes. Notes are matched by id;
// matched pairs are diffed as stories and rewritten in the output part.
func compareNotes(em *emitter, pkg1 *opc.Package, docPart1 *opc.Part,
	pkg2 *opc.Package, docPart2 *opc.Part, outPkg *opc.Package, outDocPart *opc.Part,
	kind string, settings Settings, result *Result) error {

	relType := opc.RTFootnotes
	noteTag := "w:footnote"
	flags := storyFlags{inFootnote: true}
	if kind == "endnotes" {
		relType = opc.RTEndnotes
		noteTag = "w:endnote"
		flags = storyFlags{inEndnote: true}
	}

	part1, err1 := pkg1.RelatedPart(docPart1, relType)
	part2, err2 := pkg2.RelatedPart(docPart2, relType)
	if err1 != nil || err2 != nil {
		return nil // notes on at most one side: nothing to pair
	}
	outPart, err := outPkg.RelatedPart(outDocPart, relType)
	if err != nil {
		return nil
	}

	root1, err := part1.XML()
	if err != nil {
		return err
	}
	root2, err := part2.XML()
	if err != nil {
		return err
	}
	outRoot, err := outPart.XML()
	if err != nil {
		return err
	}

	byID := func(root *etree.Element) map[string]*etree.Element {
		m := make(map[string]*etree.Element)
		for _, note := range oxml.Children(root, noteTag) {
			// Separator and continuation notes carry no user content.
			if oxml.Attr(note, "w:type", "") != "" {
				continue
			}
			m[oxml.Attr(note, "w:id", "")] = note
		}
		return m
	}
	notes1 := byID(root1)

	noteEmitter := newEmitter(settings, em.counters, pkg1, part1, outPkg, outPart)
	noteEmitter.revID = em.revID
	defer func() { em.revID = noteEmitter.revID }()

	changed := false
	for _, outNote := range oxml.Children(outRoot, noteTag) {
		if oxml.Attr(outNote, "w:type", "") != "" {
			continue
		}
		id := oxml.Attr(outNote, "w:id", "")
		old, ok := notes1[id]
		if !ok {
			continue // note only in the new side: its reference is already inside w:ins
		}
		new2 := byID(root2)[id]
		if new2 == nil {
			continue
		}
		ops := compareStory(pkg1, part1, old, pkg2, part2, new2, settings)
		if allEqual(ops) {
			continue
		}
		changes := collectChanges(ops, settings, flags)
		result.Changes = append(result.Changes, changes...)
		noteEmitter.Story(outNote, ops)
		changed = true
	}
	if changed {
		outPart.MarkDirty()
	}
	return nil
}

// allEqual reports whether every operation is opEqual.
func allEqual(ops []blockOp) bool {
	for _, op := range ops {
		if op.kind != opEqual {
			return false
		}
	}
	return true
}
