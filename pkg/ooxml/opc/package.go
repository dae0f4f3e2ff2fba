package opc

import (
	"bytes"
	"strings"
)

// Package is an open OOXML package: its parts, their relationships, and
// the content-type index. It lives for the duration of one comparison
// call and is fully materialized in memory.
type Package struct {
	rels         *Relationships
	contentTypes *ContentTypeMap
	parts        map[PackURI]*Part
	order        []PackURI // part load/creation order, pinned for deterministic save
}

// NewPackage creates an empty package.
func NewPackage() *Package {
	return &Package{
		rels:         NewRelationships("/"),
		contentTypes: NewContentTypeMap(),
		parts:        make(map[PackURI]*Part),
	}
}

// OpenBytes opens a package from in-memory bytes.
//
// Every ZIP member becomes a part — including members no relationship
// reaches — so that parts the diff never rewrites appear byte-for-byte
// in the saved output. Missing .rels streams yield empty collections,
// never errors.
func OpenBytes(data []byte) (*Package, error) {
	reader, err := NewPhysPkgReaderFromBytes(data)
	if err != nil {
		return nil, NewInvalidPackageError(err, "opc: opening package: %v", err)
	}
	defer reader.Close()

	ctBlob, err := reader.ContentTypesXml()
	if err != nil {
		return nil, err
	}
	contentTypes, err := ParseContentTypes(ctBlob)
	if err != nil {
		return nil, err
	}

	pkg := &Package{
		rels:         NewRelationships("/"),
		contentTypes: contentTypes,
		parts:        make(map[PackURI]*Part),
	}

	if relsBlob, err := reader.RelsXmlFor(PackageURI); err != nil {
		return nil, err
	} else if relsBlob != nil {
		rels, err := ParseRelationships(relsBlob, "/")
		if err != nil {
			return nil, NewInvalidPackageError(err, "opc: parsing package relationships")
		}
		pkg.rels = rels
	}

	for _, uri := range reader.URIs() {
		if uri == ContentTypesURI || isRelsURI(uri) {
			continue
		}
		ct, ok := contentTypes.ContentType(uri)
		if !ok {
			// Member present in the ZIP but not covered by
			// [Content_Types].xml. Word tolerates this; skip the part
			// rather than failing the whole package.
			continue
		}
		blob, err := reader.BlobFor(uri)
		if err != nil {
			return nil, NewInvalidPackageError(err, "opc: reading part %q", uri)
		}
		part := NewPart(uri, ct, blob)

		if relsBlob, err := reader.RelsXmlFor(uri); err != nil {
			return nil, err
		} else if relsBlob != nil {
			rels, err := ParseRelationships(relsBlob, uri.BaseURI())
			if err != nil {
				return nil, NewInvalidPackageError(err, "opc: parsing relationships of %q", uri)
			}
			part.SetRels(rels)
		}

		pkg.parts[uri] = part
		pkg.order = append(pkg.order, uri)
	}

	return pkg, nil
}

// isRelsURI reports whether uri names a relationships stream.
func isRelsURI(uri PackURI) bool {
	return strings.HasSuffix(string(uri), ".rels") &&
		strings.Contains(string(uri), "_rels/")
}

// Rels returns the package-level relationships.
func (p *Package) Rels() *Relationships { return p.rels }

// ContentTypes returns the content-type index.
func (p *Package) ContentTypes() *ContentTypeMap { return p.contentTypes }

// Part returns the part with the given name.
func (p *Package) Part(uri PackURI) (*Part, bool) {
	part, ok := p.parts[uri]
	return part, ok
}

// Exists reports whether a part with the given name is present.
func (p *Package) Exists(uri PackURI) bool {
	_, ok := p.parts[uri]
	return ok
}

// Parts returns all parts in load/creation order.
func (p *Package) Parts() []*Part {
	result := make([]*Part, 0, len(p.order))
	for _, uri := range p.order {
		result = append(result, p.parts[uri])
	}
	return result
}

// CreatePart adds a new part with the given content type and returns it.
// An existing part with the same name is replaced in place.
func (p *Package) CreatePart(uri PackURI, contentType string, blob []byte) *Part {
	part := NewPart(uri, contentType, blob)
	if _, exists := p.parts[uri]; !exists {
		p.order = append(p.order, uri)
	}
	p.parts[uri] = part
	p.contentTypes.Ensure(uri, contentType)
	return part
}

// RemovePart deletes a part. Relationships pointing at it are left to
// the caller: dangling relationships are preserved on save just as they
// are tolerated on open.
func (p *Package) RemovePart(uri PackURI) {
	if _, exists := p.parts[uri]; !exists {
		return
	}
	delete(p.parts, uri)
	for i, u := range p.order {
		if u == uri {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// RelatedPart resolves the target of the first relationship of relType
// from the given source part (nil source means the package itself).
func (p *Package) RelatedPart(source *Part, relType string) (*Part, error) {
	rels := p.rels
	baseURI := "/"
	if source != nil {
		rels = source.Rels()
		baseURI = source.PartName().BaseURI()
	}
	rel, ok := rels.ByRelType(relType)
	if !ok || rel.IsExternal() {
		return nil, NewMissingPartError(PackURI(relType))
	}
	target, ok := p.parts[rel.TargetPartName(baseURI)]
	if !ok {
		return nil, NewMissingPartError(rel.TargetPartName(baseURI))
	}
	return target, nil
}

// MainDocumentPart returns the part targeted by the officeDocument
// relationship — /word/document.xml, /xl/workbook.xml, or
// /ppt/presentation.xml depending on family.
func (p *Package) MainDocumentPart() (*Part, error) {
	return p.RelatedPart(nil, RTOfficeDocument)
}

// SaveToBytes serializes the package to ZIP bytes: content types first,
// then the package .rels, then each part followed by its .rels, in part
// order. Member timestamps are pinned, so identical packages produce
// identical bytes.
func (p *Package) SaveToBytes() ([]byte, error) {
	// Every part must be covered before the content-type stream is
	// written.
	for _, part := range p.Parts() {
		p.contentTypes.Ensure(part.PartName(), part.ContentType())
	}

	var buf bytes.Buffer
	w := NewPhysPkgWriter(&buf)

	ctBlob, err := p.contentTypes.Blob()
	if err != nil {
		return nil, err
	}
	if err := w.Write(ContentTypesURI, ctBlob); err != nil {
		return nil, err
	}

	if p.rels.Len() > 0 {
		relsBlob, err := p.rels.Blob()
		if err != nil {
			return nil, err
		}
		if err := w.Write(PackageURI.RelsURI(), relsBlob); err != nil {
			return nil, err
		}
	}

	for _, part := range p.Parts() {
		blob, err := part.Blob()
		if err != nil {
			return nil, err
		}
		if err := w.Write(part.PartName(), blob); err != nil {
			return nil, err
		}
		if part.Rels().Len() > 0 {
			relsBlob, err := part.Rels().Blob()
			if err != nil {
				return nil, err
			}
			if err := w.Write(part.PartName().RelsURI(), relsBlob); err != nil {
				return nil, err
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Clone returns an independent copy of the package via a save/reopen
// round-trip. Cheap relative to a deep tree copy, and guarantees the
// clone shares no mutable state with the original.
func (p *Package) Clone() (*Package, error) {
	data, err := p.SaveToBytes()
	if err != nil {
		return nil, err
	}
	return OpenBytes(data)
}
