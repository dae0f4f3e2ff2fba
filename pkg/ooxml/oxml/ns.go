// Package oxml provides low-level XML element handling for Office Open XML
// parts: namespace-aware tag resolution, parse/serialize with round-trip
// fidelity, traversal helpers, and a canonical form for content hashing.
package oxml

import (
	"fmt"
	"strings"
)

// Nsmap maps namespace prefixes to their URIs, covering the prefixes the
// three document families use in practice.
var Nsmap = map[string]string{
	"a":        "http://schemas.openxmlformats.org/drawingml/2006/main",
	"c":        "http://schemas.openxmlformats.org/drawingml/2006/chart",
	"cp":       "http://schemas.openxmlformats.org/package/2006/metadata/core-properties",
	"ct":       "http://schemas.openxmlformats.org/package/2006/content-types",
	"dc":       "http://purl.org/dc/elements/1.1/",
	"dcmitype": "http://purl.org/dc/dcmitype/",
	"dcterms":  "http://purl.org/dc/terms/",
	"dgm":      "http://schemas.openxmlformats.org/drawingml/2006/diagram",
	"m":        "http://schemas.openxmlformats.org/officeDocument/2006/math",
	"mc":       "http://schemas.openxmlformats.org/markup-compatibility/2006",
	"p":        "http://schemas.openxmlformats.org/presentationml/2006/main",
	"pic":      "http://schemas.openxmlformats.org/drawingml/2006/picture",
	"pr":       "http://schemas.openxmlformats.org/package/2006/relationships",
	"r":        "http://schemas.openxmlformats.org/officeDocument/2006/relationships",
	"v":        "urn:schemas-microsoft-com:vml",
	"w":        "http://schemas.openxmlformats.org/wordprocessingml/2006/main",
	"w14":      "http://schemas.microsoft.com/office/word/2010/wordml",
	"wp":       "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing",
	"wps":      "http://schemas.microsoft.com/office/word/2010/wordprocessingShape",
	"x":        "http://schemas.openxmlformats.org/spreadsheetml/2006/main",
	"xml":      "http://www.w3.org/XML/1998/namespace",
	"xsi":      "http://www.w3.org/2001/XMLSchema-instance",
}

// Pfxmap is the reverse mapping of URI → prefix.
var Pfxmap map[string]string

func init() {
	Pfxmap = make(map[string]string, len(Nsmap))
	for pfx, uri := range Nsmap {
		Pfxmap[uri] = pfx
	}
}

// TryQn converts a namespace-prefixed tag to Clark notation.
// Returns an error if the prefix is not in Nsmap.
// For example, TryQn("w:p") returns
// "{http://schemas.openxmlformats.org/wordprocessingml/2006/main}p".
func TryQn(tag string) (string, error) {
	prefix, local, ok := strings.Cut(tag, ":")
	if !ok {
		return tag, nil
	}
	uri, exists := Nsmap[prefix]
	if !exists {
		return "", fmt.Errorf("oxml: unknown namespace prefix %q in tag %q", prefix, tag)
	}
	return "{" + uri + "}" + local, nil
}

// Qn converts a namespace-prefixed tag to Clark notation.
// Panics on unknown prefix — use only with compile-time known tags.
// For user-supplied input, use [TryQn].
func Qn(tag string) string {
	s, err := TryQn(tag)
	if err != nil {
		panic(err)
	}
	return s
}

// SplitTag splits a prefixed tag like "w:p" into prefix and local part.
// A tag without a prefix returns an empty prefix.
func SplitTag(tag string) (prefix, local string) {
	prefix, local, ok := strings.Cut(tag, ":")
	if !ok {
		return "", tag
	}
	return prefix, local
}
