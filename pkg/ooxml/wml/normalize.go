package wml

import (
	"github.com/beevik/etree"

	"github.com/vortex/ooxml-diff/pkg/ooxml/opc"
	"github.com/vortex/ooxml-diff/pkg/ooxml/oxml"
)

// AcceptRevisions commits every tracked revision under root in place:
// insertions are kept (unwrapped), deletions removed, property-change
// records dropped. Running it on a clean tree is a no-op.
func AcceptRevisions(root *etree.Element) {
	acceptRevisions(root)
}

func acceptRevisions(el *etree.Element) {
	// Children are re-read after each structural mutation; a snapshot
	// would go stale as elements are unwrapped.
	for changed := true; changed; {
		changed = false
		for _, child := range el.ChildElements() {
			if child.Space != "w" {
				continue
			}
			switch child.Tag {
			case "del", "moveFrom":
				el.RemoveChild(child)
				changed = true
			case "ins", "moveTo":
				unwrap(el, child)
				changed = true
			case "rPrChange", "pPrChange", "sectPrChange", "tblPrChange", "trPrChange", "tcPrChange":
				el.RemoveChild(child)
				changed = true
			case "moveFromRangeStart", "moveFromRangeEnd", "moveToRangeStart", "moveToRangeEnd":
				el.RemoveChild(child)
				changed = true
			}
			if changed {
				break
			}
		}
	}
	for _, child := range el.ChildElements() {
		acceptRevisions(child)
	}
}

// unwrap replaces child with its own children, preserving order.
func unwrap(parent, child *etree.Element) {
	idx := oxml.ChildIndex(parent, child)
	parent.RemoveChild(child)
	grandchildren := child.ChildElements()
	for i := len(grandchildren) - 1; i >= 0; i-- {
		gc := grandchildren[i]
		child.RemoveChild(gc)
		parent.InsertChildAt(idx, gc)
	}
}

// StripTrackChangesFlag removes w:trackChanges from a settings part, if
// present. The emitted result shows revisions; it must not keep
// recording new ones.
func StripTrackChangesFlag(pkg *opc.Package) error {
	doc, err := pkg.MainDocumentPart()
	if err != nil {
		return nil // no main part: nothing to strip
	}
	settingsPart, err := pkg.RelatedPart(doc, opc.RTSettings)
	if err != nil {
		return nil // optional part
	}
	root, err := settingsPart.XML()
	if err != nil {
		return err
	}
	if tc := oxml.FirstChild(root, "w:trackChanges"); tc != nil {
		root.RemoveChild(tc)
		settingsPart.MarkDirty()
	}
	return nil
}

// normalizeDrawingForHash returns the canonical form of a drawing with
// non-semantic identifiers removed and relationship ids replaced by the
// content id of the target part, so identical drawings hash equally
// across documents.
func normalizeDrawingForHash(drawing *etree.Element, resolve func(rID string) string) string {
	clone := drawing.Copy()

	for _, docPr := range oxml.FindAll(clone, "wp:docPr") {
		docPr.RemoveAttr("id")
		docPr.RemoveAttr("name")
	}
	// Relationship ids are allocation artifacts: substitute the target
	// part's content id so equal images compare equal.
	var fixRefs func(el *etree.Element)
	fixRefs = func(el *etree.Element) {
		for _, attr := range el.Attr {
			if attr.Space == "r" && (attr.Key == "embed" || attr.Key == "link" || attr.Key == "id") {
				el.CreateAttr("r:"+attr.Key, resolve(attr.Value))
			}
		}
		for _, child := range el.ChildElements() {
			fixRefs(child)
		}
	}
	fixRefs(clone)

	return oxml.Canonical(clone)
}

// relTargetResolver builds the rID → content-id resolver for a part's
// relationships. Unresolvable ids map to themselves.
func relTargetResolver(part *opc.Part, pkg *opc.Package) func(string) string {
	return func(rID string) string {
		rel, ok := part.Rels().ByID(rID)
		if !ok || rel.IsExternal() {
			return rID
		}
		target, ok := pkg.Part(rel.TargetPartName(part.PartName().BaseURI()))
		if !ok {
			return rID
		}
		blob, err := target.Blob()
		if err != nil {
			return rID
		}
		return contentID(blob)
	}
}
