package wml

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/vortex/ooxml-diff/pkg/ooxml/digest"
	"github.com/vortex/ooxml-diff/pkg/ooxml/opc"
	"github.com/vortex/ooxml-diff/pkg/ooxml/oxml"
)

// BlockKind discriminates block-level comparison units.
type BlockKind int

const (
	// BlockParagraph is one <w:p> at story level.
	BlockParagraph BlockKind = iota
	// BlockTableRow is one <w:tr>; rows are the block unit for tables so
	// row insertions and deletions report cleanly.
	BlockTableRow
)

// Block is a block-level comparison unit: a paragraph or a table row.
// It implements lcs.Unit.
type Block struct {
	Kind BlockKind
	// El is the source <w:p> or <w:tr>.
	El *etree.Element
	// Tokens is the word-level token stream (all cells flattened for rows).
	Tokens []*Token
	// Cells holds per-cell token slices for rows; nil for paragraphs.
	Cells [][]*Token
	// CellEls are the source <w:tc> elements for rows.
	CellEls []*etree.Element
	// PPr is the paragraph-properties element, nil if absent.
	PPr *etree.Element
	// PPrHash is the canonical hash of PPr minus any embedded sectPr.
	PPrHash string
	// Table locates a row: zero-based table ordinal in the story.
	Table int
	// Row is the zero-based row ordinal within its table; -1 for paragraphs.
	Row int
	// Index is the zero-based block ordinal within the story.
	Index int

	hash string
}

// Hash implements lcs.Unit: block identity is the token-hash sequence
// plus paragraph formatting (when compared).
func (b *Block) Hash() string {
	if b.hash == "" {
		var sb strings.Builder
		if b.Kind == BlockTableRow {
			sb.WriteString("tr|")
		} else {
			sb.WriteString("p|")
		}
		sb.WriteString(b.PPrHash)
		for _, t := range b.Tokens {
			sb.WriteByte('|')
			sb.WriteString(t.Hash())
		}
		b.hash = digest.HashString(sb.String())
	}
	return b.hash
}

// IsEmpty reports whether the block carries no tokens.
func (b *Block) IsEmpty() bool { return len(b.Tokens) == 0 }

// tokenizer walks a story and produces blocks.
type tokenizer struct {
	pkg      *opc.Package
	part     *opc.Part
	resolve  func(rID string) string
	settings Settings
}

func newTokenizer(pkg *opc.Package, part *opc.Part, settings Settings) *tokenizer {
	return &tokenizer{
		pkg:      pkg,
		part:     part,
		resolve:  relTargetResolver(part, pkg),
		settings: settings,
	}
}

// Story tokenizes the children of a story container (w:body, w:footnote,
// w:endnote, w:txbxContent) into blocks. A trailing body-level sectPr is
// not a block; the caller compares it separately.
func (tk *tokenizer) Story(container *etree.Element) []*Block {
	var blocks []*Block
	tableOrdinal := -1
	tk.storyInto(container, &tableOrdinal, &blocks)
	for i, b := range blocks {
		b.Index = i
	}
	return blocks
}

func (tk *tokenizer) storyInto(container *etree.Element, tableOrdinal *int, blocks *[]*Block) {
	for _, child := range container.ChildElements() {
		if child.Space != "w" {
			continue
		}
		switch child.Tag {
		case "p":
			*blocks = append(*blocks, tk.paragraph(child, len(*blocks)))
		case "tbl":
			*tableOrdinal++
			for rowIdx, tr := range oxml.Children(child, "w:tr") {
				*blocks = append(*blocks, tk.tableRow(tr, *tableOrdinal, rowIdx, len(*blocks)))
			}
		case "sdt":
			if content := oxml.FirstChild(child, "w:sdtContent"); content != nil {
				tk.storyInto(content, tableOrdinal, blocks)
			}
		}
	}
}

// paragraph builds a paragraph block.
func (tk *tokenizer) paragraph(p *etree.Element, index int) *Block {
	b := &Block{
		Kind:  BlockParagraph,
		El:    p,
		Row:   -1,
		Index: index,
	}
	if pPr := oxml.FirstChild(p, "w:pPr"); pPr != nil {
		b.PPr = pPr
		if tk.settings.CompareParagraphProperties {
			b.PPrHash = pPrHashWithoutSectPr(pPr)
		}
	}
	b.Tokens = tk.content(p)
	return b
}

// tableRow builds a row block with per-cell token slices.
func (tk *tokenizer) tableRow(tr *etree.Element, table, row, index int) *Block {
	b := &Block{
		Kind:  BlockTableRow,
		El:    tr,
		Table: table,
		Row:   row,
		Index: index,
	}
	for _, tc := range oxml.Children(tr, "w:tc") {
		cellTokens := trimCellBreaks(tk.content(tc))
		b.CellEls = append(b.CellEls, tc)
		b.Cells = append(b.Cells, cellTokens)
		b.Tokens = append(b.Tokens, cellTokens...)
		// Cell boundary marker: keeps content of adjacent cells from
		// fusing in the row's flattened stream. Its kind, not its text,
		// makes it distinct from an ordinary space.
		b.Tokens = append(b.Tokens, &Token{Kind: TokenFieldMark, Text: " "})
	}
	return b
}

// content flattens the token stream of a paragraph or cell, descending
// through hyperlinks, smart tags, and content controls.
func (tk *tokenizer) content(el *etree.Element) []*Token {
	var tokens []*Token
	for _, child := range el.ChildElements() {
		switch {
		case child.Space == "w" && child.Tag == "r":
			tokens = append(tokens, tk.run(child)...)
		case child.Space == "w" && (child.Tag == "hyperlink" || child.Tag == "smartTag" || child.Tag == "fldSimple"):
			tokens = append(tokens, tk.content(child)...)
		case child.Space == "w" && child.Tag == "sdt":
			if content := oxml.FirstChild(child, "w:sdtContent"); content != nil {
				tokens = append(tokens, tk.content(content)...)
			}
		case child.Space == "w" && child.Tag == "p":
			// Paragraph inside a cell: include its tokens plus a break.
			tokens = append(tokens, tk.content(child)...)
			tokens = append(tokens, &Token{Kind: TokenBreak, Text: "\n"})
		case child.Space == "m" && (child.Tag == "oMath" || child.Tag == "oMathPara"):
			tokens = append(tokens, tk.structural(child))
		}
	}
	return tokens
}

// run tokenizes one <w:r>.
func (tk *tokenizer) run(r *etree.Element) []*Token {
	rpr := oxml.FirstChild(r, "w:rPr")
	var rprHash string
	if tk.settings.CompareRunProperties && rpr != nil {
		rprHash = elementHash(rpr)
	}

	var tokens []*Token
	for _, child := range r.ChildElements() {
		switch {
		case child.Space == "w" && child.Tag == "t":
			tokens = append(tokens, splitWords(child.Text(), rprHash, rpr)...)
		case child.Space == "w" && (child.Tag == "br" || child.Tag == "cr"):
			tokens = append(tokens, &Token{Kind: TokenBreak, Text: "\n", RPrHash: rprHash, RPr: rpr})
		case child.Space == "w" && child.Tag == "tab":
			tokens = append(tokens, &Token{Kind: TokenTab, Text: "\t", RPrHash: rprHash, RPr: rpr})
		case child.Space == "w" && child.Tag == "noBreakHyphen":
			tokens = append(tokens, &Token{Kind: TokenWord, Text: "-", RPrHash: rprHash, RPr: rpr})
		case child.Space == "w" && (child.Tag == "drawing" || child.Tag == "pict" || child.Tag == "object"):
			tokens = append(tokens, tk.structural(child))
		case child.Space == "w" && child.Tag == "footnoteReference":
			tokens = append(tokens, &Token{
				Kind:   TokenFootnoteRef,
				NoteID: oxml.Attr(child, "w:id", ""),
				El:     child,
				RPr:    rpr,
			})
		case child.Space == "w" && child.Tag == "endnoteReference":
			tokens = append(tokens, &Token{
				Kind:   TokenEndnoteRef,
				NoteID: oxml.Attr(child, "w:id", ""),
				El:     child,
				RPr:    rpr,
			})
		case child.Space == "w" && child.Tag == "fldChar":
			tokens = append(tokens, &Token{
				Kind: TokenFieldMark,
				Text: oxml.Attr(child, "w:fldCharType", ""),
				El:   child,
				RPr:  rpr,
			})
		case child.Space == "w" && child.Tag == "instrText":
			tokens = append(tokens, &Token{
				Kind: TokenFieldMark,
				Text: child.Text(),
				El:   child,
				RPr:  rpr,
			})
		case child.Space == "w" && child.Tag == "sym":
			tokens = append(tokens, &Token{
				Kind:    TokenWord,
				Text:    "￼" + oxml.Attr(child, "w:char", ""),
				El:      child,
				RPrHash: rprHash,
				RPr:     rpr,
			})
		}
	}
	return tokens
}

// structural builds an opaque token for a drawing-like element.
func (tk *tokenizer) structural(el *etree.Element) *Token {
	return &Token{
		Kind:        TokenDrawing,
		El:          el,
		ContentHash: digest.ContentID(normalizeDrawingForHash(el, tk.resolve)),
	}
}

// pPrHashWithoutSectPr hashes paragraph properties with any embedded
// section properties excluded; section changes are compared separately
// and must not make the paragraphs containing them unequal.
func pPrHashWithoutSectPr(pPr *etree.Element) string {
	if oxml.FirstChild(pPr, "w:sectPr") == nil {
		return elementHash(pPr)
	}
	clone := pPr.Copy()
	if sectPr := oxml.FirstChild(clone, "w:sectPr"); sectPr != nil {
		clone.RemoveChild(sectPr)
	}
	return elementHash(clone)
}

// trimCellBreaks drops a cell's trailing paragraph-boundary break so a
// single-paragraph cell tokenizes without a stray line break.
func trimCellBreaks(tokens []*Token) []*Token {
	for len(tokens) > 0 && tokens[len(tokens)-1].Kind == TokenBreak {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

// stripRsids removes revision-save-id attributes everywhere under root.
// They are save artifacts: two semantically identical documents almost
// never agree on them.
func stripRsids(root *etree.Element) {
	rsidAttrs := []string{"rsidR", "rsidRDefault", "rsidP", "rsidRPr", "rsidDel", "rsidTr", "rsidSect"}
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		for _, name := range rsidAttrs {
			el.RemoveAttr("w:" + name)
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	walk(root)
}
