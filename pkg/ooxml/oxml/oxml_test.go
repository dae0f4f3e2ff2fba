package oxml

import (
	"bytes"
	"strings"
	"testing"
)

func TestQn(t *testing.T) {
	t.Parallel()
	want := "{http://schemas.openxmlformats.org/wordprocessingml/2006/main}p"
	if got := Qn("w:p"); got != want {
		t.Errorf("Qn(w:p) = %q, want %q", got, want)
	}
	if got := Qn("unprefixed"); got != "unprefixed" {
		t.Errorf("Qn(unprefixed) = %q", got)
	}
}

func TestTryQn_UnknownPrefix(t *testing.T) {
	t.Parallel()
	if _, err := TryQn("zz:p"); err == nil {
		t.Error("expected error for unknown prefix")
	}
}

func TestParseSerialize_RoundTrip(t *testing.T) {
	t.Parallel()
	src := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body><w:p><w:r><w:t xml:space="preserve"> spaced </w:t></w:r></w:p></w:body></w:document>`
	el, err := ParseXml([]byte(src))
	if err != nil {
		t.Fatalf("ParseXml: %v", err)
	}
	out, err := SerializeXml(el)
	if err != nil {
		t.Fatalf("SerializeXml: %v", err)
	}
	if !bytes.Contains(out, []byte(`standalone="yes"`)) {
		t.Error("missing standalone declaration")
	}
	if !bytes.Contains(out, []byte(` spaced `)) {
		t.Error("significant whitespace lost")
	}
	// Re-parse: still the same structure.
	again, err := ParseXml(out)
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if again.Tag != "document" || again.Space != "w" {
		t.Errorf("re-parsed root <%s:%s>", again.Space, again.Tag)
	}
}

func TestEscapeAttrWhitespace(t *testing.T) {
	t.Parallel()
	in := []byte("<v:textpath string=\"line one\nline two\"/>")
	out := EscapeAttrWhitespace(in)
	if !bytes.Contains(out, []byte("&#10;")) {
		t.Error("newline in attribute value not escaped")
	}
	// Text content outside attributes is untouched.
	in = []byte("<w:t>line one\nline two</w:t>")
	out = EscapeAttrWhitespace(in)
	if !bytes.Equal(in, out) {
		t.Error("element text content must not be rewritten")
	}
}

func TestElement_AddsNamespaceDecls(t *testing.T) {
	t.Parallel()
	el := Element("w:p", "r")
	out, err := SerializeXml(el)
	if err != nil {
		t.Fatalf("SerializeXml: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, `xmlns:w=`) || !strings.Contains(s, `xmlns:r=`) {
		t.Errorf("missing namespace declarations in %s", s)
	}
}

func TestFindHelpers(t *testing.T) {
	t.Parallel()
	src := `<w:body xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:p><w:r><w:t>one</w:t></w:r><w:r><w:t>two</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>three</w:t></w:r></w:p></w:body>`
	body, err := ParseXml([]byte(src))
	if err != nil {
		t.Fatalf("ParseXml: %v", err)
	}

	if got := len(Children(body, "w:p")); got != 2 {
		t.Errorf("Children(w:p) = %d, want 2", got)
	}
	if got := len(FindAll(body, "w:t")); got != 3 {
		t.Errorf("FindAll(w:t) = %d, want 3", got)
	}
	first := FindFirst(body, "w:t")
	if first == nil || first.Text() != "one" {
		t.Errorf("FindFirst(w:t) = %v", first)
	}
	if FirstChild(body, "w:tbl") != nil {
		t.Error("FirstChild for absent tag should be nil")
	}
}

func TestInsertBeforeAfter(t *testing.T) {
	t.Parallel()
	body, _ := ParseXml([]byte(
		`<w:body xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:p/></w:body>`))
	ref := FirstChild(body, "w:p")

	before := Element("w:ins")
	InsertBefore(before, ref)
	after := Element("w:del")
	InsertAfter(after, ref)

	children := body.ChildElements()
	if len(children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(children))
	}
	if children[0].Tag != "ins" || children[1].Tag != "p" || children[2].Tag != "del" {
		t.Errorf("order = %s, %s, %s", children[0].Tag, children[1].Tag, children[2].Tag)
	}
}

func TestAttrHelpers(t *testing.T) {
	t.Parallel()
	p, _ := ParseXml([]byte(
		`<w:p xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" w:rsidR="00AB12CD"/>`))
	if got := Attr(p, "w:rsidR", ""); got != "00AB12CD" {
		t.Errorf("Attr = %q", got)
	}
	if got := Attr(p, "w:missing", "dflt"); got != "dflt" {
		t.Errorf("Attr default = %q", got)
	}
	RemoveAttrNS(p, "w:rsidR")
	if got := Attr(p, "w:rsidR", ""); got != "" {
		t.Errorf("attribute not removed: %q", got)
	}
}

// Canonical must ignore attribute order and namespace declarations but
// preserve text and element order.
func TestCanonical(t *testing.T) {
	t.Parallel()
	a, _ := ParseXml([]byte(`<w:r xmlns:w="http://x" w:b="1" w:a="2"><w:t>hi</w:t></w:r>`))
	b, _ := ParseXml([]byte(`<w:r w:a="2" w:b="1" xmlns:w="http://x"><w:t>hi</w:t></w:r>`))
	if Canonical(a) != Canonical(b) {
		t.Error("attribute order changed canonical form")
	}

	c, _ := ParseXml([]byte(`<w:r xmlns:w="http://x" w:a="2" w:b="1"><w:t>bye</w:t></w:r>`))
	if Canonical(a) == Canonical(c) {
		t.Error("different text produced equal canonical forms")
	}
}
