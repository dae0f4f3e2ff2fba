package wml

import (
	"github.com/vortex/ooxml-diff/pkg/ooxml/lcs"
)

// opKind classifies a correlated block operation.
type opKind int

const (
	opEqual opKind = iota
	opInsert
	opDelete
	opModify
)

// blockOp is one block-level operation in story order. opModify carries
// the word-level operations for the paired paragraphs (or per cell for
// paired table rows).
type blockOp struct {
	kind opKind
	old  *Block // set for opEqual, opDelete, opModify
	new  *Block // set for opEqual, opInsert, opModify

	words     []wordOp   // opModify, paragraphs
	cellWords [][]wordOp // opModify, table rows: per cell index

	pprChanged bool // paragraph properties differ between old and new
}

// wordOpKind classifies word-level operations.
type wordOpKind int

const (
	wordEqual wordOpKind = iota
	wordInserted
	wordDeleted
	wordFormat // same text, different run formatting
)

// wordOp is one word-level operation inside a modified paragraph.
type wordOp struct {
	kind      wordOpKind
	tokens    []*Token // the relevant side: new for Equal/Inserted/Format, old for Deleted
	oldTokens []*Token // wordFormat only: the old-side tokens carrying prior formatting
}

// correlateBlocks aligns two block streams and refines modification
// regions into word-level operations.
func correlateBlocks(oldBlocks, newBlocks []*Block, settings Settings) []blockOp {
	a := make([]lcs.Unit, len(oldBlocks))
	for i, b := range oldBlocks {
		a[i] = b
	}
	b := make([]lcs.Unit, len(newBlocks))
	for i, blk := range newBlocks {
		b[i] = blk
	}

	segs := lcs.Correlate(a, b, lcs.Options{MinMatchLength: 1})

	var ops []blockOp
	for i := 0; i < len(segs); i++ {
		seg := segs[i]
		switch seg.Status {
		case lcs.StatusEqual:
			for k := range seg.Items1 {
				ops = append(ops, blockOp{
					kind: opEqual,
					old:  seg.Items1[k].(*Block),
					new:  seg.Items2[k].(*Block),
				})
			}
		case lcs.StatusDeleted:
			// A Deleted segment immediately followed by an Inserted one
			// is a modification region: pair blocks in order.
			if i+1 < len(segs) && segs[i+1].Status == lcs.StatusInserted {
				ops = append(ops, pairBlocks(seg.Items1, segs[i+1].Items2, settings)...)
				i++
				continue
			}
			for _, u := range seg.Items1 {
				ops = append(ops, blockOp{kind: opDelete, old: u.(*Block)})
			}
		case lcs.StatusInserted:
			for _, u := range seg.Items2 {
				ops = append(ops, blockOp{kind: opInsert, new: u.(*Block)})
			}
		}
	}
	return ops
}

// pairBlocks pairs old and new blocks of a modification region in order
// and decides, per pair, between an inline word diff and a full
// replacement.
func pairBlocks(olds, news []lcs.Unit, settings Settings) []blockOp {
	var ops []blockOp
	n := len(olds)
	if len(news) < n {
		n = len(news)
	}
	for k := 0; k < n; k++ {
		oldB, newB := olds[k].(*Block), news[k].(*Block)
		if op, ok := tryModify(oldB, newB, settings); ok {
			ops = append(ops, op)
			continue
		}
		ops = append(ops, blockOp{kind: opDelete, old: oldB})
		ops = append(ops, blockOp{kind: opInsert, new: newB})
	}
	for _, u := range olds[n:] {
		ops = append(ops, blockOp{kind: opDelete, old: u.(*Block)})
	}
	for _, u := range news[n:] {
		ops = append(ops, blockOp{kind: opInsert, new: u.(*Block)})
	}
	return ops
}

// tryModify builds an opModify for a block pair when the pair is similar
// enough to diff inline.
func tryModify(oldB, newB *Block, settings Settings) (blockOp, bool) {
	if oldB.Kind != newB.Kind {
		return blockOp{}, false
	}
	if sim := jaccard(oldB.Tokens, newB.Tokens); sim < settings.MatchThreshold {
		return blockOp{}, false
	}

	op := blockOp{
		kind:       opModify,
		old:        oldB,
		new:        newB,
		pprChanged: oldB.PPrHash != newB.PPrHash,
	}
	if oldB.Kind == BlockTableRow {
		// Cells align positionally: scrambling cell content across
		// columns reads worse than reporting per-column edits.
		nCells := len(newB.Cells)
		if len(oldB.Cells) > nCells {
			nCells = len(oldB.Cells)
		}
		for c := 0; c < nCells; c++ {
			var oldCell, newCell []*Token
			if c < len(oldB.Cells) {
				oldCell = oldB.Cells[c]
			}
			if c < len(newB.Cells) {
				newCell = newB.Cells[c]
			}
			op.cellWords = append(op.cellWords, diffWords(oldCell, newCell, settings))
		}
	} else {
		op.words = diffWords(oldB.Tokens, newB.Tokens, settings)
	}
	return op, true
}

// diffWords runs the kernel over two token sequences and applies the
// word-level refinements: split-reference rejoining and format-only
// detection.
func diffWords(oldTokens, newTokens []*Token, settings Settings) []wordOp {
	a := make([]lcs.Unit, len(oldTokens))
	for i, t := range oldTokens {
		a[i] = t
	}
	b := make([]lcs.Unit, len(newTokens))
	for i, t := range newTokens {
		b[i] = t
	}

	segs := lcs.Correlate(a, b, lcs.Options{
		MinMatchLength:  1,
		DetailThreshold: settings.DetailThreshold,
		SkipAsAnchor: func(u lcs.Unit) bool {
			return !u.(*Token).IsAnchorable()
		},
	})

	var ops []wordOp
	for i := 0; i < len(segs); i++ {
		seg := segs[i]
		switch seg.Status {
		case lcs.StatusEqual:
			ops = append(ops, wordOp{kind: wordEqual, tokens: tokensOf(seg.Items2)})
		case lcs.StatusDeleted:
			if i+1 < len(segs) && segs[i+1].Status == lcs.StatusInserted {
				refined, ok := refinePair(tokensOf(seg.Items1), tokensOf(segs[i+1].Items2))
				if ok {
					ops = append(ops, refined...)
					i++
					continue
				}
			}
			ops = append(ops, wordOp{kind: wordDeleted, tokens: tokensOf(seg.Items1)})
		case lcs.StatusInserted:
			ops = append(ops, wordOp{kind: wordInserted, tokens: tokensOf(seg.Items2)})
		}
	}
	return ops
}

// refinePair inspects an adjacent delete/insert pair and rewrites it
// when it is not a real text change:
//
//   - equal text, different formatting → one wordFormat op
//   - equal text once inserted note references are set aside → the
//     surrounding fragments are unchanged; only the references insert
//     ("split-reference rejoining")
func refinePair(oldT, newT []*Token) ([]wordOp, bool) {
	if tokensText(oldT) == tokensText(newT) && len(oldT) > 0 {
		return []wordOp{{kind: wordFormat, tokens: newT, oldTokens: oldT}}, true
	}

	var refs, nonRef []*Token
	for _, t := range newT {
		if t.IsNoteRef() {
			refs = append(refs, t)
		} else {
			nonRef = append(nonRef, t)
		}
	}
	if len(refs) == 0 || tokensText(oldT) != tokensText(nonRef) {
		return nil, false
	}
	// Emit in new-side order: fragments unchanged, references inserted.
	var ops []wordOp
	var chunk []*Token
	flush := func() {
		if len(chunk) > 0 {
			ops = append(ops, wordOp{kind: wordEqual, tokens: chunk})
			chunk = nil
		}
	}
	for _, t := range newT {
		if t.IsNoteRef() {
			flush()
			ops = append(ops, wordOp{kind: wordInserted, tokens: []*Token{t}})
			continue
		}
		chunk = append(chunk, t)
	}
	flush()
	return ops, true
}

func tokensOf(units []lcs.Unit) []*Token {
	tokens := make([]*Token, len(units))
	for i, u := range units {
		tokens[i] = u.(*Token)
	}
	return tokens
}
