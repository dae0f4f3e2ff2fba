package opc

import (
	"unicode/utf8"

	"github.com/beevik/etree"

	"github.com/vortex/ooxml-diff/pkg/ooxml/oxml"
)

// Part is one named byte stream in a package, with its content type and
// relationships. XML parts parse lazily: untouched parts round-trip
// byte-for-byte because their original blob is written back unchanged.
type Part struct {
	partName    PackURI
	contentType string
	blob        []byte
	rels        *Relationships

	doc   *etree.Document // non-nil once XML() has parsed or SetXML was called
	dirty bool            // XML tree modified; Blob() must reserialize
}

// NewPart creates a part from raw bytes.
func NewPart(partName PackURI, contentType string, blob []byte) *Part {
	return &Part{
		partName:    partName,
		contentType: contentType,
		blob:        blob,
		rels:        NewRelationships(partName.BaseURI()),
	}
}

// PartName returns the part's pack URI.
func (p *Part) PartName() PackURI { return p.partName }

// ContentType returns the part's content type.
func (p *Part) ContentType() string { return p.contentType }

// Rels returns the part's relationship collection.
func (p *Part) Rels() *Relationships { return p.rels }

// SetRels replaces the part's relationship collection.
func (p *Part) SetRels(rels *Relationships) { p.rels = rels }

// Blob returns the part bytes: the original blob for untouched parts,
// or the reserialized XML tree once the part has been modified.
func (p *Part) Blob() ([]byte, error) {
	if !p.dirty {
		return p.blob, nil
	}
	root := p.doc.Root()
	if root == nil {
		return nil, NewMalformedXmlError(p.partName, errNoRoot)
	}
	b, err := oxml.SerializeXml(root)
	if err != nil {
		return nil, NewMalformedXmlError(p.partName, err)
	}
	return b, nil
}

// SetBlob replaces the part bytes and discards any parsed XML tree.
func (p *Part) SetBlob(blob []byte) {
	p.blob = blob
	p.doc = nil
	p.dirty = false
}

// XML returns the part's root element, parsing the blob on first use.
// The returned element is live: mutations are reflected in Blob() after
// MarkDirty (or SetXML) is called.
func (p *Part) XML() (*etree.Element, error) {
	if p.doc != nil {
		return p.doc.Root(), nil
	}
	if !utf8.Valid(p.blob) {
		return nil, NewMalformedXmlError(p.partName, errNotUTF8)
	}
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	doc.WriteSettings.CanonicalEndTags = true
	if err := doc.ReadFromBytes(p.blob); err != nil {
		return nil, NewMalformedXmlError(p.partName, err)
	}
	if doc.Root() == nil {
		return nil, NewMalformedXmlError(p.partName, errNoRoot)
	}
	p.doc = doc
	return doc.Root(), nil
}

// SetXML replaces the part's content with the given root element and
// marks the part dirty.
func (p *Part) SetXML(root *etree.Element) {
	doc := etree.NewDocument()
	doc.WriteSettings.CanonicalEndTags = true
	doc.SetRoot(root)
	p.doc = doc
	p.dirty = true
}

// MarkDirty records that the parsed XML tree has been mutated in place,
// so Blob() reserializes instead of returning the original bytes.
func (p *Part) MarkDirty() { p.dirty = true }
