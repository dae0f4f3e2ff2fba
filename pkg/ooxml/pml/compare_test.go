package pml

import (
	"testing"

	"github.com/vortex/ooxml-diff/internal/fixture"
	"github.com/vortex/ooxml-diff/pkg/ooxml/opc"
	"github.com/vortex/ooxml-diff/pkg/ooxml/oxml"
)

func slide(title, body string) fixture.Slide {
	return fixture.Slide{Shapes: []fixture.Shape{
		{ID: 2, Name: "Title 1", Placeholder: "title", Text: title,
			OffX: 457200, OffY: 274638, ExtCX: 8229600, ExtCY: 1143000},
		{ID: 3, Name: "Content 2", Placeholder: "body", Text: body,
			OffX: 457200, OffY: 1600200, ExtCX: 8229600, ExtCY: 4525963},
	}}
}

func comparePptx(t *testing.T, a, b []byte) *Result {
	t.Helper()
	result, err := Compare(a, b, DefaultSettings())
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	return result
}

func TestCompare_IdenticalDecks(t *testing.T) {
	t.Parallel()
	deck := fixture.Pptx(slide("One", "alpha"), slide("Two", "beta"))
	result := comparePptx(t, deck, deck)

	if got := result.Counters.Total(); got != 0 {
		t.Errorf("Total = %d, want 0; changes: %+v", got, result.Changes)
	}
	if _, err := opc.OpenBytes(result.Document); err != nil {
		t.Fatalf("output does not reopen: %v", err)
	}
}

// Reordering slides reports moves, never inserts or deletes.
func TestCompare_SlideReorder(t *testing.T) {
	t.Parallel()
	s1, s2, s3 := slide("One", "alpha"), slide("Two", "beta"), slide("Three", "gamma")
	a := fixture.Pptx(s1, s2, s3)
	b := fixture.Pptx(s1, s3, s2)
	result := comparePptx(t, a, b)

	kinds := map[ChangeKind]int{}
	for _, c := range result.Changes {
		kinds[c.Kind]++
	}
	if kinds[ChangeSlideMoved] != 2 {
		t.Errorf("SlideMoved = %d, want 2; changes: %+v", kinds[ChangeSlideMoved], result.Changes)
	}
	if kinds[ChangeSlideInserted] != 0 || kinds[ChangeSlideDeleted] != 0 {
		t.Errorf("reorder must not report inserts/deletes: %+v", result.Changes)
	}
}

func TestCompare_SlideInserted(t *testing.T) {
	t.Parallel()
	a := fixture.Pptx(slide("One", "alpha"))
	b := fixture.Pptx(slide("One", "alpha"), slide("Two", "beta"))
	result := comparePptx(t, a, b)

	var inserted *Change
	for i := range result.Changes {
		if result.Changes[i].Kind == ChangeSlideInserted {
			inserted = &result.Changes[i]
		}
	}
	if inserted == nil {
		t.Fatalf("no SlideInserted in %+v", result.Changes)
	}
	if inserted.Slide != 2 {
		t.Errorf("Slide = %d, want 2", inserted.Slide)
	}

	// The inserted slide carries a banner in the output.
	pkg, err := opc.OpenBytes(result.Document)
	if err != nil {
		t.Fatalf("reopening output: %v", err)
	}
	part, ok := pkg.Part("/ppt/slides/slide2.xml")
	if !ok {
		t.Fatal("slide2 missing from output")
	}
	root, err := part.XML()
	if err != nil {
		t.Fatalf("XML: %v", err)
	}
	found := false
	for _, tEl := range oxml.FindAll(root, "a:t") {
		if tEl.Text() == "Inserted slide" {
			found = true
		}
	}
	if !found {
		t.Error("banner text missing from inserted slide")
	}
}

func TestCompare_SlideDeleted(t *testing.T) {
	t.Parallel()
	a := fixture.Pptx(slide("One", "alpha"), slide("Two", "beta"))
	b := fixture.Pptx(slide("One", "alpha"))
	result := comparePptx(t, a, b)

	var deletions int
	for _, c := range result.Changes {
		if c.Kind == ChangeSlideDeleted {
			deletions++
		}
	}
	if deletions != 1 {
		t.Errorf("SlideDeleted = %d, want 1; changes: %+v", deletions, result.Changes)
	}
	if result.Counters.Deletions != 1 {
		t.Errorf("Counters.Deletions = %d", result.Counters.Deletions)
	}
}

// A moved shape beyond the position tolerance reports ShapeMoved; the
// slides still pair via their title.
func TestCompare_ShapeMoved(t *testing.T) {
	t.Parallel()
	moved := slide("One", "alpha")
	moved.Shapes[1].OffY += 500000
	a := fixture.Pptx(slide("One", "alpha"))
	b := fixture.Pptx(moved)
	result := comparePptx(t, a, b)

	var movedChanges int
	for _, c := range result.Changes {
		if c.Kind == ChangeShapeMoved {
			movedChanges++
			if c.Shape != "Content 2" {
				t.Errorf("Shape = %q", c.Shape)
			}
		}
	}
	if movedChanges != 1 {
		t.Errorf("ShapeMoved = %d, want 1; changes: %+v", movedChanges, result.Changes)
	}

	// The output carries an overlay rectangle on that slide.
	pkg, err := opc.OpenBytes(result.Document)
	if err != nil {
		t.Fatalf("reopening output: %v", err)
	}
	part, _ := pkg.Part("/ppt/slides/slide1.xml")
	root, err := part.XML()
	if err != nil {
		t.Fatalf("XML: %v", err)
	}
	overlays := 0
	for _, cNvPr := range oxml.FindAll(root, "p:cNvPr") {
		if name := cNvPr.SelectAttrValue("name", ""); len(name) >= 7 && name[:7] == "overlay" {
			overlays++
		}
	}
	if overlays != 1 {
		t.Errorf("overlays = %d, want 1", overlays)
	}
}

// Movement inside the tolerance is noise, not a change.
func TestCompare_ShapeMoveWithinTolerance(t *testing.T) {
	t.Parallel()
	nudged := slide("One", "alpha")
	nudged.Shapes[1].OffY += 5000
	a := fixture.Pptx(slide("One", "alpha"))
	b := fixture.Pptx(nudged)
	result := comparePptx(t, a, b)

	for _, c := range result.Changes {
		if c.Kind == ChangeShapeMoved {
			t.Errorf("sub-tolerance move reported: %+v", c)
		}
	}
}

func TestCompare_TextChanged(t *testing.T) {
	t.Parallel()
	a := fixture.Pptx(slide("One", "the quick brown fox"))
	b := fixture.Pptx(slide("One", "the slow brown fox"))
	result := comparePptx(t, a, b)

	var text *Change
	for i := range result.Changes {
		if result.Changes[i].Kind == ChangeTextChanged {
			text = &result.Changes[i]
		}
	}
	if text == nil {
		t.Fatalf("no TextChanged in %+v", result.Changes)
	}
	if text.Shape != "Content 2" {
		t.Errorf("Shape = %q", text.Shape)
	}
	if text.OldText != "the quick brown fox" || text.NewText != "the slow brown fox" {
		t.Errorf("old/new = %q/%q", text.OldText, text.NewText)
	}

	// Inline markup: the shape's text body shows old and new runs.
	pkg, err := opc.OpenBytes(result.Document)
	if err != nil {
		t.Fatalf("reopening output: %v", err)
	}
	part, _ := pkg.Part("/ppt/slides/slide1.xml")
	root, err := part.XML()
	if err != nil {
		t.Fatalf("XML: %v", err)
	}
	var texts []string
	for _, tEl := range oxml.FindAll(root, "a:t") {
		texts = append(texts, tEl.Text())
	}
	joined := ""
	for _, s := range texts {
		joined += s + "|"
	}
	if !contains(texts, "the quick brown fox") || !contains(texts, "the slow brown fox") {
		t.Errorf("inline markup missing old/new runs: %s", joined)
	}
}

func TestCompare_ShapeInserted(t *testing.T) {
	t.Parallel()
	grown := slide("One", "alpha")
	grown.Shapes = append(grown.Shapes, fixture.Shape{
		ID: 4, Name: "Callout 3", Text: "look here",
		OffX: 1000000, OffY: 1000000, ExtCX: 2000000, ExtCY: 1000000,
	})
	a := fixture.Pptx(slide("One", "alpha"))
	b := fixture.Pptx(grown)
	result := comparePptx(t, a, b)

	var inserted int
	for _, c := range result.Changes {
		if c.Kind == ChangeShapeInserted {
			inserted++
			if c.Shape != "Callout 3" {
				t.Errorf("Shape = %q", c.Shape)
			}
		}
	}
	if inserted != 1 {
		t.Errorf("ShapeInserted = %d, want 1; changes: %+v", inserted, result.Changes)
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
