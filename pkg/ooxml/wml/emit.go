package wml

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/vortex/ooxml-diff/pkg/ooxml/opc"
	"github.com/vortex/ooxml-diff/pkg/ooxml/oxml"
)

// emitter rebuilds a story's XML from correlated block operations,
// wrapping changed content in tracked-revision markup. Revision ids are
// assigned monotonically from 1, unique across the whole document.
type emitter struct {
	settings Settings
	counters *Counters
	revID    int

	// Old-side package and part, for carrying deleted media into the
	// output. outPart/outPkg receive the rewritten story.
	oldPkg  *opc.Package
	oldPart *opc.Part
	outPkg  *opc.Package
	outPart *opc.Part

	// mediaMap caches old-side rId → out-side rId for copied media.
	mediaMap map[string]string
}

func newEmitter(settings Settings, counters *Counters, oldPkg *opc.Package, oldPart *opc.Part, outPkg *opc.Package, outPart *opc.Part) *emitter {
	return &emitter{
		settings: settings,
		counters: counters,
		oldPkg:   oldPkg,
		oldPart:  oldPart,
		outPkg:   outPkg,
		outPart:  outPart,
		mediaMap: make(map[string]string),
	}
}

func (e *emitter) nextID() string {
	e.revID++
	e.counters.RevisionCount++
	return strconv.Itoa(e.revID)
}

// newWEl creates a detached w-namespace element. Story roots declare the
// prefix; no per-element declaration is needed.
func newWEl(tag string) *etree.Element {
	el := etree.NewElement(tag)
	el.Space = "w"
	return el
}

// revisionAttrs stamps id, author, and date on a revision marker.
func (e *emitter) revisionAttrs(el *etree.Element) {
	el.CreateAttr("w:id", e.nextID())
	el.CreateAttr("w:author", e.settings.AuthorForRevisions)
	el.CreateAttr("w:date", e.settings.DateForRevisions)
}

// Story replaces the block-level children of container with the emitted
// operations. A trailing body-level sectPr is preserved (the new side's).
func (e *emitter) Story(container *etree.Element, ops []blockOp) {
	sectPr := oxml.FirstChild(container, "w:sectPr")
	for _, child := range container.ChildElements() {
		if child == sectPr {
			continue
		}
		container.RemoveChild(child)
	}
	if sectPr != nil {
		container.RemoveChild(sectPr)
	}

	for i := 0; i < len(ops); {
		if isRowOp(ops[i]) {
			j := i
			for j < len(ops) && isRowOp(ops[j]) {
				j++
			}
			container.AddChild(e.table(ops[i:j]))
			i = j
			continue
		}
		container.AddChild(e.paragraph(ops[i]))
		i++
	}

	if sectPr != nil {
		container.AddChild(sectPr)
	}
}

func isRowOp(op blockOp) bool {
	if op.new != nil {
		return op.new.Kind == BlockTableRow
	}
	return op.old != nil && op.old.Kind == BlockTableRow
}

// --------------------------------------------------------------------------
// Paragraph emission
// --------------------------------------------------------------------------

func (e *emitter) paragraph(op blockOp) *etree.Element {
	switch op.kind {
	case opEqual:
		return op.new.El.Copy()
	case opInsert:
		return e.insertedParagraph(op.new)
	case opDelete:
		return e.deletedParagraph(op.old)
	default:
		return e.modifiedParagraph(op)
	}
}

// insertedParagraph clones the new-side paragraph and wraps its runs in
// w:ins. The paragraph mark is inserted too.
func (e *emitter) insertedParagraph(b *Block) *etree.Element {
	p := newWEl("p")
	if b.PPr != nil {
		pPr := b.PPr.Copy()
		e.markParagraphMark(pPr, "ins")
		p.AddChild(pPr)
	} else {
		pPr := newWEl("pPr")
		e.markParagraphMark(pPr, "ins")
		p.AddChild(pPr)
	}
	e.appendWrapped(p, b.Tokens, "ins")
	return p
}

// deletedParagraph clones the old-side paragraph with all content
// converted to deletion markup. Section properties are stripped first:
// their relationship ids would dangle in the output package.
func (e *emitter) deletedParagraph(b *Block) *etree.Element {
	p := newWEl("p")
	if b.PPr != nil {
		pPr := b.PPr.Copy()
		if sectPr := oxml.FirstChild(pPr, "w:sectPr"); sectPr != nil {
			pPr.RemoveChild(sectPr)
		}
		e.markParagraphMark(pPr, "del")
		p.AddChild(pPr)
	} else {
		pPr := newWEl("pPr")
		e.markParagraphMark(pPr, "del")
		p.AddChild(pPr)
	}
	e.appendWrapped(p, b.Tokens, "del")
	return p
}

// modifiedParagraph rebuilds a paragraph pair from its word operations.
func (e *emitter) modifiedParagraph(op blockOp) *etree.Element {
	p := newWEl("p")
	if op.new.PPr != nil || op.pprChanged {
		var pPr *etree.Element
		if op.new.PPr != nil {
			pPr = op.new.PPr.Copy()
		} else {
			pPr = newWEl("pPr")
		}
		if op.pprChanged && e.settings.CompareParagraphProperties {
			pPr.AddChild(e.pPrChange(op.old.PPr))
			e.counters.FormatChanges++
		}
		p.AddChild(pPr)
	}
	e.appendWordOps(p, op.words)
	return p
}

// pPrChange builds a w:pPrChange carrying the old paragraph properties.
func (e *emitter) pPrChange(oldPPr *etree.Element) *etree.Element {
	change := newWEl("pPrChange")
	e.revisionAttrs(change)
	if oldPPr != nil {
		inner := oldPPr.Copy()
		if sectPr := oxml.FirstChild(inner, "w:sectPr"); sectPr != nil {
			inner.RemoveChild(sectPr)
		}
		if rPr := oxml.FirstChild(inner, "w:rPr"); rPr != nil {
			inner.RemoveChild(rPr)
		}
		change.AddChild(inner)
	} else {
		change.AddChild(newWEl("pPr"))
	}
	return change
}

// markParagraphMark records a revision on the paragraph mark itself:
// pPr/rPr/<w:ins> or pPr/rPr/<w:del>.
func (e *emitter) markParagraphMark(pPr *etree.Element, tag string) {
	rPr := oxml.FirstChild(pPr, "w:rPr")
	if rPr == nil {
		rPr = newWEl("rPr")
		pPr.InsertChildAt(len(pPr.Child), rPr)
	}
	marker := newWEl(tag)
	e.revisionAttrs(marker)
	e.countRevision(tag)
	rPr.InsertChildAt(0, marker)
}

// countRevision attributes one revision marker to its counter so that
// RevisionCount always equals Insertions + Deletions + FormatChanges.
func (e *emitter) countRevision(tag string) {
	if tag == "ins" {
		e.counters.Insertions++
	} else {
		e.counters.Deletions++
	}
}

// appendWordOps emits word operations into a paragraph element.
func (e *emitter) appendWordOps(p *etree.Element, ops []wordOp) {
	for _, op := range ops {
		switch op.kind {
		case wordEqual:
			for _, run := range e.buildRuns(op.tokens, false) {
				p.AddChild(run)
			}
		case wordInserted:
			e.appendWrapped(p, op.tokens, "ins")
		case wordDeleted:
			e.appendWrapped(p, op.tokens, "del")
		case wordFormat:
			e.appendFormatChanged(p, op)
		}
	}
}

// appendWrapped emits tokens wrapped in a single w:ins or w:del element.
func (e *emitter) appendWrapped(p *etree.Element, tokens []*Token, tag string) {
	if len(tokens) == 0 {
		return
	}
	if tag == "del" {
		tokens = e.prepareDeleted(tokens)
		if len(tokens) == 0 {
			return
		}
	}
	wrapper := newWEl(tag)
	e.revisionAttrs(wrapper)
	for _, run := range e.buildRuns(tokens, tag == "del") {
		wrapper.AddChild(run)
	}
	p.AddChild(wrapper)
	e.countRevision(tag)
}

// prepareDeleted filters old-side tokens that cannot survive in the
// output: note references point at notes the new side does not carry.
// Drawings are kept — their media is copied into the output package.
func (e *emitter) prepareDeleted(tokens []*Token) []*Token {
	kept := tokens[:0:0]
	for _, t := range tokens {
		if t.IsNoteRef() {
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

// appendFormatChanged emits runs whose text is unchanged but whose
// formatting differs: the new formatting applies, with a w:rPrChange
// recording the old.
func (e *emitter) appendFormatChanged(p *etree.Element, op wordOp) {
	runs := e.buildRuns(op.tokens, false)
	var oldRPr *etree.Element
	for _, t := range op.oldTokens {
		if t.RPr != nil {
			oldRPr = t.RPr
			break
		}
	}
	for _, run := range runs {
		rPr := oxml.FirstChild(run, "w:rPr")
		if rPr == nil {
			rPr = newWEl("rPr")
			run.InsertChildAt(0, rPr)
		}
		change := newWEl("rPrChange")
		e.revisionAttrs(change)
		e.counters.FormatChanges++
		if oldRPr != nil {
			inner := oldRPr.Copy()
			if nested := oxml.FirstChild(inner, "w:rPrChange"); nested != nil {
				inner.RemoveChild(nested)
			}
			change.AddChild(inner)
		} else {
			change.AddChild(newWEl("rPr"))
		}
		rPr.AddChild(change)
	}
	for _, run := range runs {
		p.AddChild(run)
	}
}

// --------------------------------------------------------------------------
// Run building
// --------------------------------------------------------------------------

// buildRuns groups tokens into w:r elements. A new run starts whenever
// the run formatting changes or a structural token interrupts the text.
// asDeleted selects w:delText over w:t.
func (e *emitter) buildRuns(tokens []*Token, asDeleted bool) []*etree.Element {
	var runs []*etree.Element
	var current *etree.Element
	var currentRPr *etree.Element

	ensureRun := func(t *Token) *etree.Element {
		if current != nil && currentRPr == t.RPr {
			return current
		}
		current = newWEl("r")
		currentRPr = t.RPr
		if t.RPr != nil {
			current.AddChild(t.RPr.Copy())
		}
		runs = append(runs, current)
		return current
	}

	var textBuf strings.Builder
	var textRun *etree.Element
	flushText := func() {
		if textBuf.Len() == 0 {
			return
		}
		tag := "t"
		if asDeleted {
			tag = "delText"
		}
		tEl := newWEl(tag)
		tEl.SetText(textBuf.String())
		if strings.TrimSpace(textBuf.String()) != textBuf.String() ||
			strings.Contains(textBuf.String(), "  ") {
			tEl.CreateAttr("xml:space", "preserve")
		}
		textRun.AddChild(tEl)
		textBuf.Reset()
	}

	for _, t := range tokens {
		switch t.Kind {
		case TokenWord, TokenSpace:
			run := ensureRun(t)
			if run != textRun {
				if textRun != nil {
					flushText()
				}
				textRun = run
			}
			textBuf.WriteString(t.Text)
		case TokenTab:
			run := ensureRun(t)
			if textRun != nil {
				flushText()
			}
			textRun = run
			run.AddChild(newWEl("tab"))
		case TokenBreak:
			run := ensureRun(t)
			if textRun != nil {
				flushText()
			}
			textRun = run
			run.AddChild(newWEl("br"))
		case TokenDrawing, TokenFootnoteRef, TokenEndnoteRef, TokenFieldMark:
			if textRun != nil {
				flushText()
			}
			if t.El == nil {
				continue
			}
			current = nil // structural content closes the run group
			run := newWEl("r")
			if t.RPr != nil {
				run.AddChild(t.RPr.Copy())
			}
			el := t.El.Copy()
			if asDeleted && t.Kind == TokenDrawing {
				e.remapDeletedMedia(el)
				// The clone came from the old-side tree; its prefixes may
				// not all be declared on the output document root.
				oxml.EnsureNamespaceDecls(el)
			}
			run.AddChild(el)
			runs = append(runs, run)
			textRun = nil
		}
	}
	if textRun != nil {
		flushText()
	}
	return runs
}

// remapDeletedMedia rewires relationship references inside a deleted
// drawing so they resolve in the output package, copying the referenced
// old-side media parts across as needed.
func (e *emitter) remapDeletedMedia(el *etree.Element) {
	var walk func(*etree.Element)
	walk = func(node *etree.Element) {
		for _, attr := range node.Attr {
			if attr.Space != "r" || (attr.Key != "embed" && attr.Key != "link" && attr.Key != "id") {
				continue
			}
			if newID, ok := e.copiedMediaID(attr.Value); ok {
				node.CreateAttr("r:"+attr.Key, newID)
			}
		}
		for _, child := range node.ChildElements() {
			walk(child)
		}
	}
	walk(el)
}

// copiedMediaID resolves an old-side rId to an out-side rId, copying the
// target part into the output package on first use.
func (e *emitter) copiedMediaID(oldRID string) (string, bool) {
	if newID, ok := e.mediaMap[oldRID]; ok {
		return newID, true
	}
	rel, ok := e.oldPart.Rels().ByID(oldRID)
	if !ok {
		return "", false
	}
	if rel.IsExternal() {
		newRel := e.outPart.Rels().AddExternal(rel.RelType, rel.TargetRef)
		e.mediaMap[oldRID] = newRel.RID
		return newRel.RID, true
	}
	srcName := rel.TargetPartName(e.oldPart.PartName().BaseURI())
	src, ok := e.oldPkg.Part(srcName)
	if !ok {
		return "", false
	}
	blob, err := src.Blob()
	if err != nil {
		return "", false
	}

	destName := srcName
	if e.outPkg.Exists(destName) {
		dest, _ := e.outPkg.Part(destName)
		destBlob, err := dest.Blob()
		if err == nil && contentID(destBlob) == contentID(blob) {
			// Same bytes already present: just relate to it.
			newRel := e.outPart.Rels().GetOrAdd(rel.RelType, destName)
			e.mediaMap[oldRID] = newRel.RID
			return newRel.RID, true
		}
		destName = e.freeMediaName(srcName)
	}
	e.outPkg.CreatePart(destName, src.ContentType(), blob)
	newRel := e.outPart.Rels().GetOrAdd(rel.RelType, destName)
	e.mediaMap[oldRID] = newRel.RID
	return newRel.RID, true
}

// freeMediaName derives an unused part name near the original.
func (e *emitter) freeMediaName(src opc.PackURI) opc.PackURI {
	base := strings.TrimSuffix(string(src), "."+src.Ext())
	for n := 1; ; n++ {
		candidate := opc.PackURI(base + "-del" + strconv.Itoa(n) + "." + src.Ext())
		if !e.outPkg.Exists(candidate) {
			return candidate
		}
	}
}

// --------------------------------------------------------------------------
// Table emission
// --------------------------------------------------------------------------

// table rebuilds one table from a maximal run of row operations. Table
// properties come from the new side when any row survives there, else
// from the old side.
func (e *emitter) table(ops []blockOp) *etree.Element {
	tbl := newWEl("tbl")

	var sourceTbl *etree.Element
	for _, op := range ops {
		if op.new != nil {
			sourceTbl = ancestorTable(op.new.El)
			break
		}
	}
	if sourceTbl == nil {
		for _, op := range ops {
			if op.old != nil {
				sourceTbl = ancestorTable(op.old.El)
				break
			}
		}
	}
	if sourceTbl != nil {
		if tblPr := oxml.FirstChild(sourceTbl, "w:tblPr"); tblPr != nil {
			tbl.AddChild(tblPr.Copy())
		}
		if grid := oxml.FirstChild(sourceTbl, "w:tblGrid"); grid != nil {
			tbl.AddChild(grid.Copy())
		}
	}

	for _, op := range ops {
		switch op.kind {
		case opEqual:
			tbl.AddChild(op.new.El.Copy())
		case opInsert:
			tbl.AddChild(e.revisedRow(op.new, "ins"))
		case opDelete:
			tbl.AddChild(e.revisedRow(op.old, "del"))
		case opModify:
			tbl.AddChild(e.modifiedRow(op))
		}
	}
	return tbl
}

func ancestorTable(el *etree.Element) *etree.Element {
	for p := el.Parent(); p != nil; p = p.Parent() {
		if p.Space == "w" && p.Tag == "tbl" {
			return p
		}
	}
	return nil
}

// revisedRow clones a row with every cell's content wrapped as inserted
// or deleted, and the row itself marked in trPr.
func (e *emitter) revisedRow(b *Block, tag string) *etree.Element {
	tr := newWEl("tr")
	if trPr := oxml.FirstChild(b.El, "w:trPr"); trPr != nil {
		tr.AddChild(trPr.Copy())
	} else {
		tr.AddChild(newWEl("trPr"))
	}
	marker := newWEl(tag)
	e.revisionAttrs(marker)
	e.countRevision(tag)
	oxml.FirstChild(tr, "w:trPr").AddChild(marker)

	for c, tc := range oxml.Children(b.El, "w:tc") {
		cell := newWEl("tc")
		if tcPr := oxml.FirstChild(tc, "w:tcPr"); tcPr != nil {
			cell.AddChild(tcPr.Copy())
		}
		p := newWEl("p")
		var cellTokens []*Token
		if c < len(b.Cells) {
			cellTokens = b.Cells[c]
		}
		e.appendWrapped(p, cellTokens, tag)
		cell.AddChild(p)
		tr.AddChild(cell)
	}
	return tr
}

// modifiedRow emits a matched row pair with per-cell word diffs.
func (e *emitter) modifiedRow(op blockOp) *etree.Element {
	tr := newWEl("tr")
	if trPr := oxml.FirstChild(op.new.El, "w:trPr"); trPr != nil {
		tr.AddChild(trPr.Copy())
	}
	for c, tc := range oxml.Children(op.new.El, "w:tc") {
		cell := newWEl("tc")
		if tcPr := oxml.FirstChild(tc, "w:tcPr"); tcPr != nil {
			cell.AddChild(tcPr.Copy())
		}
		p := newWEl("p")
		if c < len(op.cellWords) {
			e.appendWordOps(p, op.cellWords[c])
		}
		cell.AddChild(p)
		tr.AddChild(cell)
	}
	return tr
}
