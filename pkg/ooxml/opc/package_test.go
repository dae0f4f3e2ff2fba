package opc

import (
	"bytes"
	"errors"
	"testing"

	"github.com/vortex/ooxml-diff/internal/fixture"
)

func openFixtureDocx(t *testing.T) *Package {
	t.Helper()
	pkg, err := OpenBytes(fixture.Docx("Hello world"))
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	return pkg
}

func TestOpenBytes_EnumeratesParts(t *testing.T) {
	t.Parallel()
	pkg := openFixtureDocx(t)

	if !pkg.Exists("/word/document.xml") {
		t.Error("expected /word/document.xml part")
	}
	part, ok := pkg.Part("/word/document.xml")
	if !ok {
		t.Fatal("Part lookup failed")
	}
	if part.ContentType() == "" {
		t.Error("part should carry a content type")
	}
}

func TestOpenBytes_PackageRels(t *testing.T) {
	t.Parallel()
	pkg := openFixtureDocx(t)

	rel, ok := pkg.Rels().ByRelType(RTOfficeDocument)
	if !ok {
		t.Fatal("expected officeDocument relationship")
	}
	if rel.TargetPartName("/") != "/word/document.xml" {
		t.Errorf("target = %q", rel.TargetPartName("/"))
	}
}

func TestMainDocumentPart(t *testing.T) {
	t.Parallel()
	pkg := openFixtureDocx(t)
	part, err := pkg.MainDocumentPart()
	if err != nil {
		t.Fatalf("MainDocumentPart: %v", err)
	}
	if part.PartName() != "/word/document.xml" {
		t.Errorf("got %q", part.PartName())
	}
}

func TestOpenBytes_NotZip(t *testing.T) {
	t.Parallel()
	_, err := OpenBytes([]byte("this is not a zip file at all"))
	if err == nil {
		t.Fatal("expected error")
	}
	var ipe *InvalidPackageError
	if !errors.As(err, &ipe) {
		t.Errorf("expected InvalidPackageError, got %T", err)
	}
	if !errors.Is(err, ErrNotZipPackage) {
		t.Errorf("expected ErrNotZipPackage in chain, got %v", err)
	}
}

func TestOpenBytes_OLE2IsEncrypted(t *testing.T) {
	t.Parallel()
	header := make([]byte, 512)
	copy(header, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})

	_, err := OpenBytes(header)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrEncryptedPackage) {
		t.Errorf("expected ErrEncryptedPackage, got %v", err)
	}
	if errors.Is(err, ErrNotZipPackage) {
		t.Error("OLE2 error should not also match ErrNotZipPackage")
	}
}

func TestOpenBytes_MissingContentTypes(t *testing.T) {
	t.Parallel()
	data := fixture.Zip([]string{"word/document.xml"}, map[string]string{
		"word/document.xml": "<w:document/>",
	})
	_, err := OpenBytes(data)
	var ipe *InvalidPackageError
	if !errors.As(err, &ipe) {
		t.Errorf("expected InvalidPackageError, got %v", err)
	}
}

func TestSaveToBytes_RoundTrip(t *testing.T) {
	t.Parallel()
	pkg := openFixtureDocx(t)

	data, err := pkg.SaveToBytes()
	if err != nil {
		t.Fatalf("SaveToBytes: %v", err)
	}
	reopened, err := OpenBytes(data)
	if err != nil {
		t.Fatalf("reopening saved package: %v", err)
	}
	if !reopened.Exists("/word/document.xml") {
		t.Error("saved package lost /word/document.xml")
	}
}

// Untouched parts must round-trip byte-for-byte.
func TestSaveToBytes_UntouchedPartBytesPreserved(t *testing.T) {
	t.Parallel()
	pkg := openFixtureDocx(t)

	original, _ := pkg.Part("/word/document.xml")
	origBlob, err := original.Blob()
	if err != nil {
		t.Fatalf("Blob: %v", err)
	}

	data, err := pkg.SaveToBytes()
	if err != nil {
		t.Fatalf("SaveToBytes: %v", err)
	}
	reopened, err := OpenBytes(data)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	part, _ := reopened.Part("/word/document.xml")
	blob, err := part.Blob()
	if err != nil {
		t.Fatalf("Blob: %v", err)
	}
	if !bytes.Equal(origBlob, blob) {
		t.Error("untouched part bytes changed across save/open")
	}
}

// Two saves of the same package must produce identical bytes (pinned
// ZIP timestamps).
func TestSaveToBytes_Deterministic(t *testing.T) {
	t.Parallel()
	pkg := openFixtureDocx(t)

	first, err := pkg.SaveToBytes()
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	second, err := pkg.SaveToBytes()
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("saves are not byte-identical")
	}
}

func TestPartXML_LazyParseAndDirty(t *testing.T) {
	t.Parallel()
	pkg := openFixtureDocx(t)
	part, _ := pkg.Part("/word/document.xml")

	root, err := part.XML()
	if err != nil {
		t.Fatalf("XML: %v", err)
	}
	if root.Tag != "document" || root.Space != "w" {
		t.Errorf("unexpected root <%s:%s>", root.Space, root.Tag)
	}

	// Parsing alone must not change Blob output.
	blob, _ := part.Blob()
	fresh, _ := OpenBytes(fixture.Docx("Hello world"))
	freshPart, _ := fresh.Part("/word/document.xml")
	freshBlob, _ := freshPart.Blob()
	if !bytes.Equal(blob, freshBlob) {
		t.Error("lazy parse changed blob bytes")
	}

	// After MarkDirty, mutations appear in the blob.
	root.CreateAttr("w:rsidRoot", "00000000")
	part.MarkDirty()
	blob, err = part.Blob()
	if err != nil {
		t.Fatalf("Blob after MarkDirty: %v", err)
	}
	if !bytes.Contains(blob, []byte("rsidRoot")) {
		t.Error("dirty part blob missing mutation")
	}
}

func TestRelationships_DenseAllocation(t *testing.T) {
	t.Parallel()
	rels := NewRelationships("/word")
	r1 := rels.Add(RTImage, "/word/media/image1.png")
	r2 := rels.Add(RTImage, "/word/media/image2.png")
	if r1.RID != "rId1" || r2.RID != "rId2" {
		t.Errorf("got %q, %q; want rId1, rId2", r1.RID, r2.RID)
	}
}

func TestRelationships_GetOrAddReusesExisting(t *testing.T) {
	t.Parallel()
	rels := NewRelationships("/word")
	first := rels.GetOrAdd(RTImage, "/word/media/image1.png")
	second := rels.GetOrAdd(RTImage, "/word/media/image1.png")
	if first != second {
		t.Error("GetOrAdd created a duplicate relationship")
	}
	if rels.Len() != 1 {
		t.Errorf("Len = %d, want 1", rels.Len())
	}
}

func TestPackURI(t *testing.T) {
	t.Parallel()
	u := PackURI("/word/document.xml")
	if u.BaseURI() != "/word" {
		t.Errorf("BaseURI = %q", u.BaseURI())
	}
	if u.Filename() != "document.xml" {
		t.Errorf("Filename = %q", u.Filename())
	}
	if u.Ext() != "xml" {
		t.Errorf("Ext = %q", u.Ext())
	}
	if u.RelsURI() != "/word/_rels/document.xml.rels" {
		t.Errorf("RelsURI = %q", u.RelsURI())
	}
	if PackageURI.RelsURI() != "/_rels/.rels" {
		t.Errorf("package RelsURI = %q", PackageURI.RelsURI())
	}
}

func TestFromRelRef(t *testing.T) {
	t.Parallel()
	cases := []struct {
		baseURI, ref string
		want         PackURI
	}{
		{"/", "word/document.xml", "/word/document.xml"},
		{"/word", "media/image1.png", "/word/media/image1.png"},
		{"/word", "../customXml/item1.xml", "/customXml/item1.xml"},
		{"/ppt/slides", "../slideLayouts/slideLayout1.xml", "/ppt/slideLayouts/slideLayout1.xml"},
		{"/word", "/word/styles.xml", "/word/styles.xml"},
	}
	for _, tc := range cases {
		if got := FromRelRef(tc.baseURI, tc.ref); got != tc.want {
			t.Errorf("FromRelRef(%q, %q) = %q, want %q", tc.baseURI, tc.ref, got, tc.want)
		}
	}
}

func TestRelRefFrom(t *testing.T) {
	t.Parallel()
	cases := []struct {
		uri     PackURI
		baseURI string
		want    string
	}{
		{"/word/document.xml", "/", "word/document.xml"},
		{"/word/media/image1.png", "/word", "media/image1.png"},
		{"/customXml/item1.xml", "/word", "../customXml/item1.xml"},
	}
	for _, tc := range cases {
		if got := tc.uri.RelRefFrom(tc.baseURI); got != tc.want {
			t.Errorf("%q.RelRefFrom(%q) = %q, want %q", tc.uri, tc.baseURI, got, tc.want)
		}
	}
}

func TestContentTypeMap_DefaultAndOverride(t *testing.T) {
	t.Parallel()
	ct := NewContentTypeMap()
	ct.AddDefault("xml", "application/xml")
	ct.AddOverride("/word/document.xml", "application/custom+xml")

	if got, _ := ct.ContentType("/word/styles.xml"); got != "application/xml" {
		t.Errorf("default lookup = %q", got)
	}
	if got, _ := ct.ContentType("/word/document.xml"); got != "application/custom+xml" {
		t.Errorf("override lookup = %q", got)
	}
	// Case-insensitive extension match.
	if got, _ := ct.ContentType("/word/IMAGE.XML"); got != "application/xml" {
		t.Errorf("case-insensitive lookup = %q", got)
	}
}

func TestClone_Independent(t *testing.T) {
	t.Parallel()
	pkg := openFixtureDocx(t)
	clone, err := pkg.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}

	part, _ := clone.Part("/word/document.xml")
	part.SetBlob([]byte("<w:document/>"))

	origPart, _ := pkg.Part("/word/document.xml")
	blob, _ := origPart.Blob()
	if bytes.Equal(blob, []byte("<w:document/>")) {
		t.Error("mutating the clone changed the original")
	}
}
