package ooxml

import (
	"errors"
	"testing"

	"github.com/vortex/ooxml-diff/internal/fixture"
)

func TestDetectFamily(t *testing.T) {
	t.Parallel()
	if family, err := DetectFamily(fixture.Docx("hello")); err != nil || family != FamilyWordprocessing {
		t.Errorf("docx → %v, %v", family, err)
	}
	if family, err := DetectFamily(fixture.Pptx(fixture.Slide{})); err != nil || family != FamilyPresentation {
		t.Errorf("pptx → %v, %v", family, err)
	}
}

func TestDetectFamily_NotOOXML(t *testing.T) {
	t.Parallel()
	data := fixture.Zip(
		[]string{"[Content_Types].xml", "data.bin"},
		map[string]string{
			"[Content_Types].xml": `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="bin" ContentType="application/octet-stream"/></Types>`,
			"data.bin":            "payload",
		})
	_, err := DetectFamily(data)
	var ufe *UnsupportedFileTypeError
	if !errors.As(err, &ufe) {
		t.Errorf("expected UnsupportedFileTypeError, got %v", err)
	}
}

func TestCompare_MixedFamiliesRejected(t *testing.T) {
	t.Parallel()
	_, err := Compare(fixture.Docx("a"), fixture.Pptx(fixture.Slide{}), Options{})
	var ufe *UnsupportedFileTypeError
	if !errors.As(err, &ufe) {
		t.Errorf("expected UnsupportedFileTypeError, got %v", err)
	}
}

func TestCompare_DispatchesToWml(t *testing.T) {
	t.Parallel()
	result, err := Compare(
		fixture.Docx("The quick brown fox"),
		fixture.Docx("The very quick brown fox"),
		Options{})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if result.Family != FamilyWordprocessing {
		t.Errorf("Family = %s", result.Family)
	}
	if result.Counters.Insertions != 1 || result.Counters.Total != 1 {
		t.Errorf("Counters = %+v", result.Counters)
	}
	if len(result.Changes) != 1 || result.Changes[0].Location != "paragraph 1" {
		t.Errorf("Changes = %+v", result.Changes)
	}
	if len(result.Document) == 0 {
		t.Error("missing output document")
	}
}

func TestFamilyExt(t *testing.T) {
	t.Parallel()
	if FamilyWordprocessing.Ext() != ".docx" ||
		FamilySpreadsheet.Ext() != ".xlsx" ||
		FamilyPresentation.Ext() != ".pptx" {
		t.Error("Family.Ext mismatch")
	}
}
