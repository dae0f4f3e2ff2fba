package wml

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/vortex/ooxml-diff/pkg/ooxml/oxml"
)

// collectChanges turns correlated block operations into change records.
// An adjacent word-level delete/insert pair reports as one Modification,
// though it emits as separate w:del and w:ins in the markup.
func collectChanges(ops []blockOp, settings Settings, flags storyFlags) []Change {
	var changes []Change
	for _, op := range ops {
		switch op.kind {
		case opEqual:
			continue
		case opInsert:
			changes = append(changes, newChange(ChangeInsertion, "", tokensText(op.new.Tokens), op.new, settings, flags))
		case opDelete:
			changes = append(changes, newChange(ChangeDeletion, tokensText(op.old.Tokens), "", op.old, settings, flags))
		case opModify:
			if op.new.Kind == BlockTableRow {
				for c, words := range op.cellWords {
					cellChanges := wordChanges(words, op.new, settings, flags)
					for i := range cellChanges {
						cellChanges[i].TableCell = c
					}
					changes = append(changes, cellChanges...)
				}
			} else {
				changes = append(changes, wordChanges(op.words, op.new, settings, flags)...)
			}
			if op.pprChanged && settings.CompareParagraphProperties {
				c := newChange(ChangeFormat, "", "", op.new, settings, flags)
				c.Summary = "Paragraph formatting changed"
				changes = append(changes, c)
			}
		}
	}
	return changes
}

// wordChanges reports the word-level operations of one modified block.
func wordChanges(words []wordOp, block *Block, settings Settings, flags storyFlags) []Change {
	var changes []Change
	for i := 0; i < len(words); i++ {
		op := words[i]
		switch op.kind {
		case wordEqual:
			continue
		case wordDeleted:
			if i+1 < len(words) && words[i+1].kind == wordInserted {
				c := newChange(ChangeModification, tokensText(op.tokens), tokensText(words[i+1].tokens), block, settings, flags)
				if tb, old, new := textboxPair(op.tokens, words[i+1].tokens); tb {
					c.InTextbox = true
					c.OldText, c.NewText = old, new
					c.Summary = summarize(ChangeModification, new)
				}
				changes = append(changes, c)
				i++
				continue
			}
			changes = append(changes, newChange(ChangeDeletion, tokensText(op.tokens), "", block, settings, flags))
		case wordInserted:
			changes = append(changes, newChange(ChangeInsertion, "", tokensText(op.tokens), block, settings, flags))
		case wordFormat:
			c := newChange(ChangeFormat, "", tokensText(op.tokens), block, settings, flags)
			c.Summary = summarize(ChangeFormat, tokensText(op.tokens))
			changes = append(changes, c)
		}
	}
	return changes
}

// newChange fills the common change-record fields from a block.
func newChange(kind ChangeKind, oldText, newText string, block *Block, settings Settings, flags storyFlags) Change {
	text := newText
	if text == "" {
		text = oldText
	}
	c := Change{
		Kind:           kind,
		Summary:        summarize(kind, text),
		OldText:        strings.TrimSpace(oldText),
		NewText:        strings.TrimSpace(newText),
		ParagraphIndex: block.Index,
		TableRow:       -1,
		TableCell:      -1,
		InFootnote:     flags.inFootnote,
		InEndnote:      flags.inEndnote,
		Author:         settings.AuthorForRevisions,
		Date:           settings.DateForRevisions,
		WordCount:      countWords(oldText) + countWords(newText),
	}
	if block.Kind == BlockTableRow {
		c.InTable = true
		c.TableRow = block.Row
	}
	return c
}

// textboxPair detects a drawing-for-drawing replacement where both
// drawings carry textbox content, and extracts the old and new texts.
func textboxPair(oldTokens, newTokens []*Token) (bool, string, string) {
	oldText, ok1 := soleTextboxText(oldTokens)
	newText, ok2 := soleTextboxText(newTokens)
	if !ok1 || !ok2 || oldText == newText {
		return false, "", ""
	}
	return true, oldText, newText
}

func soleTextboxText(tokens []*Token) (string, bool) {
	if len(tokens) != 1 || tokens[0].Kind != TokenDrawing || tokens[0].El == nil {
		return "", false
	}
	content := oxml.FindFirst(tokens[0].El, "w:txbxContent")
	if content == nil {
		return "", false
	}
	return storyText(content), true
}

// storyText flattens the visible text under a story container.
func storyText(el *etree.Element) string {
	var sb strings.Builder
	for i, t := range oxml.FindAll(el, "w:t") {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(t.Text())
	}
	return strings.TrimSpace(sb.String())
}
