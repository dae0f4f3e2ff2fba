package opc

import (
	"sort"
	"strings"

	"github.com/beevik/etree"

	"github.com/vortex/ooxml-diff/pkg/ooxml/oxml"
)

// ContentTypeMap holds the [Content_Types].xml index: extension defaults
// plus per-part overrides. Extension lookup is case-insensitive.
type ContentTypeMap struct {
	defaults  map[string]string  // lowercase extension (no dot) → content type
	overrides map[PackURI]string // part name → content type
}

// NewContentTypeMap creates an empty ContentTypeMap.
func NewContentTypeMap() *ContentTypeMap {
	return &ContentTypeMap{
		defaults:  make(map[string]string),
		overrides: make(map[PackURI]string),
	}
}

// ParseContentTypes parses a [Content_Types].xml blob.
func ParseContentTypes(blob []byte) (*ContentTypeMap, error) {
	root, err := oxml.ParseXml(blob)
	if err != nil {
		return nil, NewInvalidPackageError(err, "opc: parsing [Content_Types].xml")
	}
	ct := NewContentTypeMap()
	for _, child := range root.ChildElements() {
		switch child.Tag {
		case "Default":
			ext := strings.ToLower(child.SelectAttrValue("Extension", ""))
			ct.defaults[ext] = child.SelectAttrValue("ContentType", "")
		case "Override":
			pn := PackURI(child.SelectAttrValue("PartName", ""))
			ct.overrides[pn] = child.SelectAttrValue("ContentType", "")
		}
	}
	return ct, nil
}

// ContentType resolves the content type for a part name. Overrides win
// over extension defaults.
func (ct *ContentTypeMap) ContentType(partName PackURI) (string, bool) {
	if t, ok := ct.overrides[partName]; ok {
		return t, true
	}
	t, ok := ct.defaults[partName.Ext()]
	return t, ok
}

// AddDefault registers an extension default.
func (ct *ContentTypeMap) AddDefault(ext, contentType string) {
	ct.defaults[strings.ToLower(ext)] = contentType
}

// AddOverride registers a part-name override.
func (ct *ContentTypeMap) AddOverride(partName PackURI, contentType string) {
	ct.overrides[partName] = contentType
}

// Ensure guarantees the map covers partName with the given content type,
// adding an override when the extension default does not already match.
func (ct *ContentTypeMap) Ensure(partName PackURI, contentType string) {
	if t, ok := ct.ContentType(partName); ok && t == contentType {
		return
	}
	ct.overrides[partName] = contentType
}

// Blob serializes the map back to [Content_Types].xml. Defaults come
// first, then overrides, each sorted for deterministic output.
func (ct *ContentTypeMap) Blob() ([]byte, error) {
	root := etree.NewElement("Types")
	root.CreateAttr("xmlns", oxml.Nsmap["ct"])

	exts := make([]string, 0, len(ct.defaults))
	for ext := range ct.defaults {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		d := root.CreateElement("Default")
		d.CreateAttr("Extension", ext)
		d.CreateAttr("ContentType", ct.defaults[ext])
	}

	names := make([]PackURI, 0, len(ct.overrides))
	for pn := range ct.overrides {
		names = append(names, pn)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	for _, pn := range names {
		o := root.CreateElement("Override")
		o.CreateAttr("PartName", string(pn))
		o.CreateAttr("ContentType", ct.overrides[pn])
	}

	return oxml.SerializeXml(root)
}
