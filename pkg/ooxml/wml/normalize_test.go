package wml

import (
	"strings"
	"testing"

	"github.com/vortex/ooxml-diff/pkg/ooxml/oxml"
)

const drawingTemplate = `<w:drawing xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
	`<wp:inline><wp:docPr id="{ID}" name="{NAME}"/>` +
	`<a:graphic><a:graphicData><a:blip r:embed="{RID}"/></a:graphicData></a:graphic>` +
	`</wp:inline></w:drawing>`

func buildDrawing(t *testing.T, id, name, rID string) string {
	t.Helper()
	r := strings.NewReplacer("{ID}", id, "{NAME}", name, "{RID}", rID)
	return r.Replace(drawingTemplate)
}

// Identical drawings must hash equally even when their docPr ids, docPr
// names, and relationship ids differ — those are allocation artifacts,
// not content.
func TestNormalizeDrawingForHash_IgnoresAllocationArtifacts(t *testing.T) {
	t.Parallel()
	resolve := func(rID string) string {
		// Both rIds point at the same image bytes.
		return "imagehash0001"
	}

	a, err := oxml.ParseXml([]byte(buildDrawing(t, "1", "Picture 1", "rId4")))
	if err != nil {
		t.Fatalf("ParseXml: %v", err)
	}
	b, err := oxml.ParseXml([]byte(buildDrawing(t, "7", "Picture 9", "rId2")))
	if err != nil {
		t.Fatalf("ParseXml: %v", err)
	}

	if normalizeDrawingForHash(a, resolve) != normalizeDrawingForHash(b, resolve) {
		t.Error("docPr id/name or rId differences changed the drawing hash")
	}
}

func TestNormalizeDrawingForHash_DistinguishesContent(t *testing.T) {
	t.Parallel()
	a, _ := oxml.ParseXml([]byte(buildDrawing(t, "1", "Picture 1", "rId4")))
	b, _ := oxml.ParseXml([]byte(buildDrawing(t, "1", "Picture 1", "rId4")))

	hashA := normalizeDrawingForHash(a, func(string) string { return "image-one" })
	hashB := normalizeDrawingForHash(b, func(string) string { return "image-two" })
	if hashA == hashB {
		t.Error("different image content hashed equally")
	}
}

func TestStripRsids(t *testing.T) {
	t.Parallel()
	src := `<w:body xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:p w:rsidR="00AB12CD" w:rsidRDefault="00AB12CD"><w:r w:rsidRPr="001122AA"><w:t>x</w:t></w:r></w:p></w:body>`
	root, err := oxml.ParseXml([]byte(src))
	if err != nil {
		t.Fatalf("ParseXml: %v", err)
	}
	stripRsids(root)
	if strings.Contains(oxml.Canonical(root), "rsid") {
		t.Errorf("rsid attributes survive: %s", oxml.Canonical(root))
	}
}
