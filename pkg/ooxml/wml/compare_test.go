package wml

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/beevik/etree"

	"github.com/vortex/ooxml-diff/internal/fixture"
	"github.com/vortex/ooxml-diff/pkg/ooxml/opc"
	"github.com/vortex/ooxml-diff/pkg/ooxml/oxml"
)

func testSettings() Settings {
	s := DefaultSettings()
	s.DateForRevisions = "2024-01-01T00:00:00Z"
	return s
}

func compareDocs(t *testing.T, a, b []byte) *Result {
	t.Helper()
	result, err := Compare(a, b, testSettings())
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	return result
}

func TestCompare_IdenticalDocuments(t *testing.T) {
	t.Parallel()
	doc := fixture.Docx("The quick brown fox", "jumps over the lazy dog")
	result := compareDocs(t, doc, doc)

	if got := result.Counters.Total(); got != 0 {
		t.Errorf("Total = %d, want 0", got)
	}
	if len(result.Changes) != 0 {
		t.Errorf("expected no changes, got %+v", result.Changes)
	}
	if result.Counters.RevisionCount != 0 {
		t.Errorf("RevisionCount = %d, want 0", result.Counters.RevisionCount)
	}
	// Output must reopen cleanly.
	if _, err := opc.OpenBytes(result.Document); err != nil {
		t.Fatalf("output does not reopen: %v", err)
	}
}

func TestCompare_WordInsertion(t *testing.T) {
	t.Parallel()
	a := fixture.Docx("The quick brown fox")
	b := fixture.Docx("The very quick brown fox")
	result := compareDocs(t, a, b)

	if result.Counters.Insertions != 1 {
		t.Errorf("Insertions = %d, want 1", result.Counters.Insertions)
	}
	if result.Counters.Deletions != 0 {
		t.Errorf("Deletions = %d, want 0", result.Counters.Deletions)
	}
	if len(result.Changes) != 1 {
		t.Fatalf("expected 1 change, got %d: %+v", len(result.Changes), result.Changes)
	}
	change := result.Changes[0]
	if change.Kind != ChangeInsertion {
		t.Errorf("Kind = %s", change.Kind)
	}
	if change.NewText != "very" {
		t.Errorf("NewText = %q, want %q", change.NewText, "very")
	}
	if change.ParagraphIndex != 0 {
		t.Errorf("ParagraphIndex = %d, want 0", change.ParagraphIndex)
	}

	// The emitted document carries an insertion-wrapped run.
	doc := openOutputBody(t, result.Document)
	ins := oxml.FindAll(doc, "w:ins")
	if len(ins) != 1 {
		t.Fatalf("expected 1 w:ins, got %d", len(ins))
	}
	if text := storyText(ins[0]); text != "very" {
		t.Errorf("w:ins text = %q", text)
	}
	if oxml.Attr(ins[0], "w:author", "") != "Comparer" {
		t.Errorf("w:ins author = %q", oxml.Attr(ins[0], "w:author", ""))
	}
	if oxml.Attr(ins[0], "w:id", "") != "1" {
		t.Errorf("revision ids must start at 1, got %q", oxml.Attr(ins[0], "w:id", ""))
	}
}

func TestCompare_WordDeletion(t *testing.T) {
	t.Parallel()
	a := fixture.Docx("The very quick brown fox")
	b := fixture.Docx("The quick brown fox")
	result := compareDocs(t, a, b)

	if result.Counters.Deletions != 1 {
		t.Errorf("Deletions = %d, want 1", result.Counters.Deletions)
	}
	doc := openOutputBody(t, result.Document)
	dels := oxml.FindAll(doc, "w:del")
	if len(dels) != 1 {
		t.Fatalf("expected 1 w:del, got %d", len(dels))
	}
	delTexts := oxml.FindAll(dels[0], "w:delText")
	if len(delTexts) == 0 {
		t.Fatal("deleted run must use w:delText")
	}
}

// A paragraph pair below the similarity threshold reports one deletion
// and one insertion, not a pile of inline edits.
func TestCompare_ReplacementBelowThreshold(t *testing.T) {
	t.Parallel()
	a := fixture.Docx("Alpha beta gamma delta")
	b := fixture.Docx("Zulu yankee xray whiskey")
	result := compareDocs(t, a, b)

	var dels, ins int
	for _, c := range result.Changes {
		switch c.Kind {
		case ChangeDeletion:
			dels++
			if c.OldText != "Alpha beta gamma delta" {
				t.Errorf("OldText = %q", c.OldText)
			}
		case ChangeInsertion:
			ins++
			if c.NewText != "Zulu yankee xray whiskey" {
				t.Errorf("NewText = %q", c.NewText)
			}
		default:
			t.Errorf("unexpected change kind %s", c.Kind)
		}
	}
	if dels != 1 || ins != 1 {
		t.Errorf("dels = %d, ins = %d; want 1, 1", dels, ins)
	}
}

// Adjacent delete/insert of a single word reports as one modification.
func TestCompare_AdjacentDeleteInsertGrouping(t *testing.T) {
	t.Parallel()
	a := fixture.Docx("The quick brown fox")
	b := fixture.Docx("The slow brown fox")
	result := compareDocs(t, a, b)

	if len(result.Changes) != 1 {
		t.Fatalf("expected 1 grouped change, got %d: %+v", len(result.Changes), result.Changes)
	}
	c := result.Changes[0]
	if c.Kind != ChangeModification {
		t.Errorf("Kind = %s, want Modification", c.Kind)
	}
	if c.OldText != "quick" || c.NewText != "slow" {
		t.Errorf("OldText/NewText = %q/%q", c.OldText, c.NewText)
	}
	// The markup still carries separate w:del and w:ins.
	doc := openOutputBody(t, result.Document)
	if len(oxml.FindAll(doc, "w:del")) != 1 || len(oxml.FindAll(doc, "w:ins")) != 1 {
		t.Error("modification must emit one w:del and one w:ins")
	}
}

func TestCompare_ParagraphInserted(t *testing.T) {
	t.Parallel()
	a := fixture.Docx("First paragraph")
	b := fixture.Docx("First paragraph", "Second paragraph")
	result := compareDocs(t, a, b)

	if len(result.Changes) != 1 || result.Changes[0].Kind != ChangeInsertion {
		t.Fatalf("changes = %+v", result.Changes)
	}
	if result.Changes[0].ParagraphIndex != 1 {
		t.Errorf("ParagraphIndex = %d, want 1", result.Changes[0].ParagraphIndex)
	}
	// Inserted paragraph's mark is revised too: pPr/rPr/w:ins.
	doc := openOutputBody(t, result.Document)
	found := false
	for _, rPr := range oxml.FindAll(doc, "w:rPr") {
		if oxml.FirstChild(rPr, "w:ins") != nil {
			found = true
		}
	}
	if !found {
		t.Error("inserted paragraph mark not revised")
	}
}

func TestCompare_EmptyOldSideIsAllInsertions(t *testing.T) {
	t.Parallel()
	a := fixture.Docx()
	b := fixture.Docx("Something new", "And more")
	result := compareDocs(t, a, b)

	if result.Counters.Deletions != 0 {
		t.Errorf("Deletions = %d, want 0", result.Counters.Deletions)
	}
	if result.Counters.Insertions == 0 {
		t.Error("expected insertions")
	}
	for _, c := range result.Changes {
		if c.Kind != ChangeInsertion {
			t.Errorf("unexpected kind %s", c.Kind)
		}
	}
}

func TestCompare_EmptyNewSideIsAllDeletions(t *testing.T) {
	t.Parallel()
	a := fixture.Docx("Doomed paragraph")
	b := fixture.Docx()
	result := compareDocs(t, a, b)

	if result.Counters.Insertions != 0 {
		t.Errorf("Insertions = %d, want 0", result.Counters.Insertions)
	}
	for _, c := range result.Changes {
		if c.Kind != ChangeDeletion {
			t.Errorf("unexpected kind %s", c.Kind)
		}
	}
	// Deleted content must survive in the output, marked deleted.
	doc := openOutputBody(t, result.Document)
	if len(oxml.FindAll(doc, "w:delText")) == 0 {
		t.Error("deleted paragraph content missing from output")
	}
}

// revision_count == insertions + deletions + format_changes.
func TestCompare_RevisionCountInvariant(t *testing.T) {
	t.Parallel()
	a := fixture.Docx("one two three", "to be removed", "stays put")
	b := fixture.Docx("one 2 three", "stays put", "brand new tail")
	result := compareDocs(t, a, b)

	c := result.Counters
	if c.RevisionCount != c.Insertions+c.Deletions+c.FormatChanges {
		t.Errorf("RevisionCount = %d, want %d + %d + %d",
			c.RevisionCount, c.Insertions, c.Deletions, c.FormatChanges)
	}
}

func TestCompare_Deterministic(t *testing.T) {
	t.Parallel()
	a := fixture.Docx("The quick brown fox")
	b := fixture.Docx("The very quick brown fox")

	first := compareDocs(t, a, b)
	second := compareDocs(t, a, b)
	if !bytes.Equal(first.Document, second.Document) {
		t.Error("two runs produced different documents")
	}
}

// Pre-existing tracked revisions in an input are accepted before the
// comparison: a document with a revision equals its accepted form.
func TestCompare_AcceptsExistingRevisions(t *testing.T) {
	t.Parallel()
	revised := fixture.DocxRaw(
		`<w:p><w:r><w:t xml:space="preserve">The </w:t></w:r>` +
			`<w:ins w:id="1" w:author="x" w:date="2020-01-01T00:00:00Z">` +
			`<w:r><w:t xml:space="preserve">very </w:t></w:r></w:ins>` +
			`<w:r><w:t>quick fox</w:t></w:r></w:p>`)
	clean := fixture.Docx("The very quick fox")

	result := compareDocs(t, revised, clean)
	if got := result.Counters.Total(); got != 0 {
		t.Errorf("Total = %d, want 0 after accepting revisions; changes: %+v", got, result.Changes)
	}
}

func TestAcceptRevisions_CleanDocumentIsNoop(t *testing.T) {
	t.Parallel()
	src := `<w:body xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:p><w:r><w:t>untouched</w:t></w:r></w:p></w:body>`
	root, err := oxml.ParseXml([]byte(src))
	if err != nil {
		t.Fatalf("ParseXml: %v", err)
	}
	before := oxml.Canonical(root)
	AcceptRevisions(root)
	if oxml.Canonical(root) != before {
		t.Error("accepting revisions on a clean tree changed it")
	}
}

func TestAcceptRevisions_RemovesDeletionsKeepsInsertions(t *testing.T) {
	t.Parallel()
	src := `<w:body xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:p>` +
		`<w:del w:id="1"><w:r><w:delText>gone</w:delText></w:r></w:del>` +
		`<w:ins w:id="2"><w:r><w:t>kept</w:t></w:r></w:ins>` +
		`</w:p></w:body>`
	root, _ := oxml.ParseXml([]byte(src))
	AcceptRevisions(root)

	if oxml.FindFirst(root, "w:del") != nil {
		t.Error("w:del not removed")
	}
	if oxml.FindFirst(root, "w:ins") != nil {
		t.Error("w:ins not unwrapped")
	}
	if got := storyText(root); got != "kept" {
		t.Errorf("text = %q, want %q", got, "kept")
	}
}

// Table row insertion reports as a row-scoped change, not scrambled
// cell diffs.
func TestCompare_TableRowInserted(t *testing.T) {
	t.Parallel()
	table := func(rows ...string) string {
		out := `<w:tbl><w:tblPr/><w:tblGrid/>`
		for _, r := range rows {
			out += `<w:tr><w:tc><w:p><w:r><w:t>` + r + `</w:t></w:r></w:p></w:tc></w:tr>`
		}
		return out + `</w:tbl>`
	}
	a := fixture.DocxRaw(table("alpha", "omega"))
	b := fixture.DocxRaw(table("alpha", "middle", "omega"))
	result := compareDocs(t, a, b)

	if len(result.Changes) != 1 {
		t.Fatalf("expected 1 change, got %+v", result.Changes)
	}
	c := result.Changes[0]
	if c.Kind != ChangeInsertion || !c.InTable || c.TableRow != 1 {
		t.Errorf("change = %+v", c)
	}
}

// Revision ids are dense from 1 and unique.
func TestCompare_RevisionIDsDense(t *testing.T) {
	t.Parallel()
	a := fixture.Docx("one two three", "four five six")
	b := fixture.Docx("one owt three", "four vife six")
	result := compareDocs(t, a, b)

	doc := openOutputBody(t, result.Document)
	seen := make(map[string]bool)
	for _, tag := range []string{"w:ins", "w:del", "w:rPrChange", "w:pPrChange"} {
		for _, el := range oxml.FindAll(doc, tag) {
			id := oxml.Attr(el, "w:id", "")
			if seen[id] {
				t.Errorf("duplicate revision id %q", id)
			}
			seen[id] = true
		}
	}
	for i := 1; i <= len(seen); i++ {
		if !seen[strconv.Itoa(i)] {
			t.Errorf("revision id %d missing; ids not dense", i)
		}
	}
}

func openOutputBody(t *testing.T, data []byte) *etree.Element {
	t.Helper()
	pkg, err := opc.OpenBytes(data)
	if err != nil {
		t.Fatalf("reopening output: %v", err)
	}
	part, err := pkg.MainDocumentPart()
	if err != nil {
		t.Fatalf("MainDocumentPart: %v", err)
	}
	root, err := part.XML()
	if err != nil {
		t.Fatalf("XML: %v", err)
	}
	body := oxml.FirstChild(root, "w:body")
	if body == nil {
		t.Fatal("output has no w:body")
	}
	return body
}
