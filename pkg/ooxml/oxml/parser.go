package oxml

import (
	"bytes"
	"fmt"

	"github.com/beevik/etree"
)

// xmlProcInst is the standard XML declaration for OOXML parts.
const xmlProcInst = `version="1.0" encoding="UTF-8" standalone="yes"`

// ParseXml parses XML bytes into an *etree.Element.
func ParseXml(xmlBytes []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("oxml: parsing XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("oxml: no root element found")
	}
	return root, nil
}

// SerializeXml serializes an element to bytes with the standard OOXML
// declaration. Output is compact: no insignificant whitespace is added,
// end tags are canonical, and literal whitespace inside attribute values
// is re-escaped to character references so a re-parse does not collapse
// it to spaces.
func SerializeXml(el *etree.Element) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", xmlProcInst)
	doc.SetRoot(el.Copy())
	doc.WriteSettings.CanonicalEndTags = true

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("oxml: serializing XML: %w", err)
	}
	return EscapeAttrWhitespace(buf.Bytes()), nil
}

// SerializeForReading serializes an element for test and debug output:
// no declaration, two-space indentation.
func SerializeForReading(el *etree.Element) string {
	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())
	doc.Indent(2)

	var buf bytes.Buffer
	_, _ = doc.WriteTo(&buf)
	return buf.String()
}

// Element creates a new element from a namespace-prefixed tag like "w:p".
// Namespace declarations are added for the tag's prefix and any extra
// prefixes given. Panics on an unknown prefix — use only with
// compile-time known tags.
func Element(nspTag string, nsDecls ...string) *etree.Element {
	prefix, local := SplitTag(nspTag)
	if _, ok := Nsmap[prefix]; !ok {
		panic(fmt.Sprintf("oxml: unknown namespace prefix %q in tag %q", prefix, nspTag))
	}

	el := etree.NewElement(local)
	el.Space = prefix

	prefixes := append([]string{prefix}, nsDecls...)
	for _, pfx := range prefixes {
		if uri, ok := Nsmap[pfx]; ok {
			el.CreateAttr("xmlns:"+pfx, uri)
		}
	}
	return el
}

// SubElement creates a new element from a namespace-prefixed tag and
// appends it to parent. No namespace declaration is added: the ancestor
// chain is expected to declare the prefix.
func SubElement(parent *etree.Element, nspTag string) *etree.Element {
	prefix, local := SplitTag(nspTag)
	if _, ok := Nsmap[prefix]; !ok {
		panic(fmt.Sprintf("oxml: unknown namespace prefix %q in tag %q", prefix, nspTag))
	}
	el := etree.NewElement(local)
	el.Space = prefix
	parent.AddChild(el)
	return el
}

// EnsureNamespaceDecls adds xmlns declarations on el for every known
// prefix its subtree uses, unless already declared on el. Needed when a
// subtree is transplanted between documents whose roots may declare
// different prefix sets.
func EnsureNamespaceDecls(el *etree.Element) {
	prefixes := make(map[string]bool)
	var collect func(*etree.Element)
	collect = func(e *etree.Element) {
		if e.Space != "" {
			prefixes[e.Space] = true
		}
		for _, a := range e.Attr {
			if a.Space != "" && a.Space != "xmlns" && a.Space != "xml" {
				prefixes[a.Space] = true
			}
		}
		for _, child := range e.ChildElements() {
			collect(child)
		}
	}
	collect(el)

	declared := make(map[string]bool)
	for _, a := range el.Attr {
		if a.Space == "xmlns" {
			declared[a.Key] = true
		}
	}
	for pfx := range prefixes {
		if declared[pfx] {
			continue
		}
		if uri, ok := Nsmap[pfx]; ok {
			el.CreateAttr("xmlns:"+pfx, uri)
		}
	}
}

// EscapeAttrWhitespace re-encodes literal \n, \r, and \t inside XML
// attribute values to their character-reference forms (&#10; &#13; &#9;).
//
// etree decodes these references during parsing (per XML spec) but writes
// them back as literal characters; the XML attribute-value normalization
// rules would collapse them to spaces on the next parse, corrupting data
// such as VML textpath multiline strings.
//
// The function is a simple state machine over the serialized bytes; it
// only modifies bytes between quote characters inside tags.
func EscapeAttrWhitespace(b []byte) []byte {
	hasSpecial := false
	for _, c := range b {
		if c == '\n' || c == '\r' || c == '\t' {
			hasSpecial = true
			break
		}
	}
	if !hasSpecial {
		return b
	}

	out := make([]byte, 0, len(b)+64)
	inTag := false // inside < ... >
	var quote byte // 0 = not in attr value, '"' or '\'' = inside

	for _, c := range b {
		if !inTag {
			if c == '<' {
				inTag = true
				quote = 0
			}
			out = append(out, c)
			continue
		}

		if quote == 0 {
			switch c {
			case '>':
				inTag = false
				out = append(out, c)
			case '"', '\'':
				quote = c
				out = append(out, c)
			default:
				out = append(out, c)
			}
			continue
		}

		if c == quote {
			quote = 0
			out = append(out, c)
			continue
		}

		switch c {
		case '\n':
			out = append(out, []byte("&#10;")...)
		case '\r':
			out = append(out, []byte("&#13;")...)
		case '\t':
			out = append(out, []byte("&#9;")...)
		default:
			out = append(out, c)
		}
	}
	return out
}
