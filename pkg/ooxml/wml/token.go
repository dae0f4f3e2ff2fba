package wml

import (
	"strings"
	"unicode"

	"github.com/beevik/etree"

	"github.com/vortex/ooxml-diff/pkg/ooxml/digest"
	"github.com/vortex/ooxml-diff/pkg/ooxml/oxml"
)

// TokenKind discriminates comparison units inside a paragraph.
type TokenKind int

const (
	// TokenWord is a maximal run of non-whitespace characters.
	TokenWord TokenKind = iota
	// TokenSpace is a maximal run of whitespace.
	TokenSpace
	// TokenBreak is an explicit line or page break inside a run.
	TokenBreak
	// TokenTab is a tab character.
	TokenTab
	// TokenDrawing is an opaque structural token: drawing, picture,
	// math, or legacy VML object. It traverses the diff atomically.
	TokenDrawing
	// TokenFootnoteRef and TokenEndnoteRef are note references.
	TokenFootnoteRef
	TokenEndnoteRef
	// TokenFieldMark covers fldChar / instrText field plumbing.
	TokenFieldMark
)

// Token is one word-level comparison unit. It implements lcs.Unit.
type Token struct {
	Kind TokenKind
	Text string

	// RPrHash identifies the run formatting the token was read under;
	// empty for unformatted runs.
	RPrHash string
	// RPr points at the source w:rPr element (not a copy) for emission.
	RPr *etree.Element
	// El is the source element for structural tokens (drawing, note
	// reference, field mark) so emission can clone it intact.
	El *etree.Element
	// ContentHash is the normalized content hash for structural tokens.
	ContentHash string
	// NoteID is the w:id of a footnote/endnote reference token.
	NoteID string

	hash string
}

// Hash implements lcs.Unit. Identity covers kind and text, structural
// content for opaque tokens, and run formatting when the tokenizer was
// configured to include it.
func (t *Token) Hash() string {
	if t.hash == "" {
		var sb strings.Builder
		sb.WriteString(kindTag(t.Kind))
		sb.WriteByte('|')
		sb.WriteString(t.Text)
		sb.WriteByte('|')
		sb.WriteString(t.ContentHash)
		sb.WriteByte('|')
		sb.WriteString(t.RPrHash)
		t.hash = digest.HashString(sb.String())
	}
	return t.hash
}

// IsAnchorable reports whether the token may open an LCS anchor.
// Whitespace and opaque structural tokens anchor poorly: they are
// ubiquitous (spaces) or must move with their surroundings (drawings).
func (t *Token) IsAnchorable() bool {
	switch t.Kind {
	case TokenSpace, TokenDrawing, TokenFieldMark:
		return false
	}
	return true
}

// IsNoteRef reports whether the token is a footnote or endnote reference.
func (t *Token) IsNoteRef() bool {
	return t.Kind == TokenFootnoteRef || t.Kind == TokenEndnoteRef
}

func kindTag(k TokenKind) string {
	switch k {
	case TokenWord:
		return "w"
	case TokenSpace:
		return "s"
	case TokenBreak:
		return "br"
	case TokenTab:
		return "tab"
	case TokenDrawing:
		return "drw"
	case TokenFootnoteRef:
		return "fn"
	case TokenEndnoteRef:
		return "en"
	case TokenFieldMark:
		return "fld"
	}
	return "?"
}

// splitWords cuts text into alternating word and whitespace tokens.
// Punctuation stays attached to its word.
func splitWords(text string, rprHash string, rpr *etree.Element) []*Token {
	var tokens []*Token
	var buf strings.Builder
	var bufIsSpace bool

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		kind := TokenWord
		if bufIsSpace {
			kind = TokenSpace
		}
		tokens = append(tokens, &Token{Kind: kind, Text: buf.String(), RPrHash: rprHash, RPr: rpr})
		buf.Reset()
	}

	for _, r := range text {
		isSpace := unicode.IsSpace(r)
		if buf.Len() > 0 && isSpace != bufIsSpace {
			flush()
		}
		bufIsSpace = isSpace
		buf.WriteRune(r)
	}
	flush()
	return tokens
}

// tokensText concatenates the Text of every token. Drawings and note
// references carry no text; field marks and cell-boundary markers
// contribute theirs.
func tokensText(tokens []*Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteString(t.Text)
	}
	return sb.String()
}

// tokenWords returns the set of word-token texts, for similarity.
func tokenWords(tokens []*Token) map[string]bool {
	words := make(map[string]bool)
	for _, t := range tokens {
		if t.Kind == TokenWord {
			words[t.Text] = true
		}
	}
	return words
}

// jaccard computes word-set similarity of two token sequences.
// Two empty paragraphs are fully similar.
func jaccard(a, b []*Token) float64 {
	wa, wb := tokenWords(a), tokenWords(b)
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

// elementHash hashes an element's canonical form; nil hashes empty.
func elementHash(el *etree.Element) string {
	if el == nil {
		return ""
	}
	return digest.HashString(oxml.Canonical(el))
}

// contentID returns a short content id for raw bytes.
func contentID(b []byte) string {
	return digest.ContentID(string(b))
}
