package opc

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/vortex/ooxml-diff/pkg/ooxml/oxml"
)

// Target modes.
const (
	TargetModeInternal = "Internal"
	TargetModeExternal = "External"
)

// Well-known relationship type URIs.
const (
	RTOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	RTFootnotes      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/footnotes"
	RTEndnotes       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/endnotes"
	RTStyles         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	RTSettings       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/settings"
	RTImage          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	RTSlide          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	RTSlideLayout    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout"
	RTNotesSlide     = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/notesSlide"
)

// Relationship is one typed link from a source (package or part) to a
// target part or external URI.
type Relationship struct {
	RID        string
	RelType    string
	TargetRef  string
	TargetMode string
}

// IsExternal reports whether the target is external to the package.
func (r *Relationship) IsExternal() bool {
	return r.TargetMode == TargetModeExternal
}

// TargetPartName resolves the target as a PackURI. Only meaningful for
// internal relationships.
func (r *Relationship) TargetPartName(baseURI string) PackURI {
	return FromRelRef(baseURI, r.TargetRef)
}

// Relationships is the ordered collection of relationships sourced from
// one package or part.
type Relationships struct {
	baseURI string
	rels    []*Relationship
	byID    map[string]*Relationship
}

// NewRelationships creates an empty collection for the given source base URI.
func NewRelationships(baseURI string) *Relationships {
	return &Relationships{
		baseURI: baseURI,
		byID:    make(map[string]*Relationship),
	}
}

// ParseRelationships parses a .rels blob into a collection.
func ParseRelationships(blob []byte, baseURI string) (*Relationships, error) {
	root, err := oxml.ParseXml(blob)
	if err != nil {
		return nil, fmt.Errorf("opc: parsing relationships for %q: %w", baseURI, err)
	}
	rels := NewRelationships(baseURI)
	for _, child := range root.ChildElements() {
		if child.Tag != "Relationship" {
			continue
		}
		mode := child.SelectAttrValue("TargetMode", TargetModeInternal)
		rels.Load(
			child.SelectAttrValue("Id", ""),
			child.SelectAttrValue("Type", ""),
			child.SelectAttrValue("Target", ""),
			mode,
		)
	}
	return rels, nil
}

// BaseURI returns the source base URI of this collection.
func (rs *Relationships) BaseURI() string { return rs.baseURI }

// Len returns the number of relationships.
func (rs *Relationships) Len() int { return len(rs.rels) }

// All returns the relationships in document order.
func (rs *Relationships) All() []*Relationship { return rs.rels }

// ByID returns the relationship with the given Id.
func (rs *Relationships) ByID(rID string) (*Relationship, bool) {
	r, ok := rs.byID[rID]
	return r, ok
}

// ByRelType returns the first relationship of the given type.
func (rs *Relationships) ByRelType(relType string) (*Relationship, bool) {
	for _, r := range rs.rels {
		if r.RelType == relType {
			return r, true
		}
	}
	return nil, false
}

// AllOfType returns every relationship of the given type in order.
func (rs *Relationships) AllOfType(relType string) []*Relationship {
	var result []*Relationship
	for _, r := range rs.rels {
		if r.RelType == relType {
			result = append(result, r)
		}
	}
	return result
}

// Load appends a relationship read from a .rels stream, keeping its
// original Id.
func (rs *Relationships) Load(rID, relType, targetRef, targetMode string) {
	r := &Relationship{RID: rID, RelType: relType, TargetRef: targetRef, TargetMode: targetMode}
	rs.rels = append(rs.rels, r)
	rs.byID[rID] = r
}

// Add creates a new internal relationship to target with the next free
// rId. Allocation is dense and deterministic: the smallest unused rIdN.
func (rs *Relationships) Add(relType string, target PackURI) *Relationship {
	return rs.add(relType, target.RelRefFrom(rs.baseURI), TargetModeInternal)
}

// AddExternal creates a new external relationship to the given URI.
func (rs *Relationships) AddExternal(relType, targetRef string) *Relationship {
	return rs.add(relType, targetRef, TargetModeExternal)
}

func (rs *Relationships) add(relType, targetRef, mode string) *Relationship {
	r := &Relationship{
		RID:        rs.nextRID(),
		RelType:    relType,
		TargetRef:  targetRef,
		TargetMode: mode,
	}
	rs.rels = append(rs.rels, r)
	rs.byID[r.RID] = r
	return r
}

// GetOrAdd returns an existing internal relationship of relType to
// target, creating one if absent.
func (rs *Relationships) GetOrAdd(relType string, target PackURI) *Relationship {
	ref := target.RelRefFrom(rs.baseURI)
	for _, r := range rs.rels {
		if r.RelType == relType && r.TargetRef == ref && !r.IsExternal() {
			return r
		}
	}
	return rs.add(relType, ref, TargetModeInternal)
}

// nextRID returns the smallest unused "rIdN" identifier.
func (rs *Relationships) nextRID() string {
	for n := 1; n <= len(rs.rels)+1; n++ {
		candidate := "rId" + strconv.Itoa(n)
		if _, taken := rs.byID[candidate]; !taken {
			return candidate
		}
	}
	// Unreachable: the loop covers len+1 candidates.
	return "rId" + strconv.Itoa(len(rs.rels)+1)
}

// Blob serializes the collection to .rels XML in document order.
func (rs *Relationships) Blob() ([]byte, error) {
	root := etree.NewElement("Relationships")
	root.CreateAttr("xmlns", oxml.Nsmap["pr"])
	for _, r := range rs.rels {
		el := root.CreateElement("Relationship")
		el.CreateAttr("Id", r.RID)
		el.CreateAttr("Type", r.RelType)
		el.CreateAttr("Target", r.TargetRef)
		if r.IsExternal() {
			el.CreateAttr("TargetMode", TargetModeExternal)
		}
	}
	return oxml.SerializeXml(root)
}
