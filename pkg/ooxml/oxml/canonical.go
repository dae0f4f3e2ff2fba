package oxml

import (
	"sort"
	"strings"

	"github.com/beevik/etree"
)

// Canonical returns a normal form of the subtree rooted at el, for use as
// content-hash input only — it is not valid XML output. Semantically
// equivalent subtrees produce equal strings:
//
//   - attributes are sorted by name, namespace declarations dropped
//     (prefix bindings are conventional in OOXML and carry no content)
//   - element names use prefix:local as parsed
//   - text is concatenated child text with surrounding whitespace kept
//     (whitespace is significant inside w:t and a:t)
//   - comments and processing instructions are ignored
func Canonical(el *etree.Element) string {
	var sb strings.Builder
	writeCanonical(&sb, el)
	return sb.String()
}

func writeCanonical(sb *strings.Builder, el *etree.Element) {
	sb.WriteByte('<')
	writeName(sb, el.Space, el.Tag)

	attrs := make([]etree.Attr, 0, len(el.Attr))
	for _, a := range el.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		attrs = append(attrs, a)
	}
	sort.Slice(attrs, func(i, j int) bool {
		if attrs[i].Space != attrs[j].Space {
			return attrs[i].Space < attrs[j].Space
		}
		return attrs[i].Key < attrs[j].Key
	})
	for _, a := range attrs {
		sb.WriteByte(' ')
		writeName(sb, a.Space, a.Key)
		sb.WriteByte('=')
		sb.WriteString(a.Value)
	}
	sb.WriteByte('>')

	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.Element:
			writeCanonical(sb, t)
		case *etree.CharData:
			sb.WriteString(t.Data)
		}
	}

	sb.WriteString("</")
	writeName(sb, el.Space, el.Tag)
	sb.WriteByte('>')
}

func writeName(sb *strings.Builder, space, local string) {
	if space != "" {
		sb.WriteString(space)
		sb.WriteByte(':')
	}
	sb.WriteString(local)
}
