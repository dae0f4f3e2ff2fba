package sml

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

// buildWorkbook creates workbook bytes with the given sheets; each sheet
// is a grid of rows starting at A1.
func buildWorkbook(t *testing.T, sheets map[string][][]any, order []string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("SetSheetName: %v", err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				t.Fatalf("NewSheet: %v", err)
			}
		}
		for r, rowValues := range sheets[name] {
			for c, v := range rowValues {
				ref, err := excelize.CoordinatesToCellName(c+1, r+1)
				if err != nil {
					t.Fatalf("CoordinatesToCellName: %v", err)
				}
				if err := f.SetCellValue(name, ref, v); err != nil {
					t.Fatalf("SetCellValue: %v", err)
				}
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func singleSheet(t *testing.T, rows [][]any) []byte {
	t.Helper()
	return buildWorkbook(t, map[string][][]any{"Data": rows}, []string{"Data"})
}

func compareBooks(t *testing.T, a, b []byte) *Result {
	t.Helper()
	result, err := Compare(a, b, DefaultSettings())
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	return result
}

func TestCompare_IdenticalWorkbooks(t *testing.T) {
	t.Parallel()
	rows := [][]any{{"Name", "Qty"}, {"Widget", 10}, {"Gadget", 20}}
	a := singleSheet(t, rows)
	b := singleSheet(t, rows)
	result := compareBooks(t, a, b)

	if got := result.Counters.Total(); got != 0 {
		t.Errorf("Total = %d, want 0; changes: %+v", got, result.Changes)
	}
	if _, err := excelize.OpenReader(bytes.NewReader(result.Document)); err != nil {
		t.Fatalf("output does not reopen: %v", err)
	}
}

func TestCompare_ValueChanged(t *testing.T) {
	t.Parallel()
	a := singleSheet(t, [][]any{{"Name", "Qty"}, {"Widget", 10}})
	b := singleSheet(t, [][]any{{"Name", "Qty"}, {"Widget", 12}})
	result := compareBooks(t, a, b)

	if len(result.Changes) != 1 {
		t.Fatalf("expected 1 change, got %+v", result.Changes)
	}
	c := result.Changes[0]
	if c.Kind != ChangeValueChanged || c.Sheet != "Data" || c.Cell != "B2" {
		t.Errorf("change = %+v", c)
	}
	if c.OldValue != "10" || c.NewValue != "12" {
		t.Errorf("old/new = %q/%q", c.OldValue, c.NewValue)
	}

	// The marked workbook carries a comment on the changed cell.
	out, err := excelize.OpenReader(bytes.NewReader(result.Document))
	if err != nil {
		t.Fatalf("reopening output: %v", err)
	}
	defer out.Close()
	comments, err := out.GetComments("Data")
	if err != nil {
		t.Fatalf("GetComments: %v", err)
	}
	if len(comments) != 1 || comments[0].Cell != "B2" {
		t.Fatalf("comments = %+v", comments)
	}
}

// Row alignment detects a whole-row insertion without reporting the
// shifted rows below it as changed.
func TestCompare_RowInsertionAligns(t *testing.T) {
	t.Parallel()
	a := singleSheet(t, [][]any{
		{"Name", "Qty"},
		{"Widget", 10},
		{"Gadget", 20},
	})
	b := singleSheet(t, [][]any{
		{"Name", "Qty"},
		{"Widget", 10},
		{"Sprocket", 15},
		{"Gadget", 20},
	})
	result := compareBooks(t, a, b)

	if len(result.Changes) != 1 {
		t.Fatalf("expected 1 change, got %+v", result.Changes)
	}
	c := result.Changes[0]
	if c.Kind != ChangeRowAdded || c.Row != 3 {
		t.Errorf("change = %+v", c)
	}
	if result.Counters.Insertions != 1 || result.Counters.Deletions != 0 {
		t.Errorf("counters = %+v", result.Counters)
	}
}

func TestCompare_RowDeletedListed(t *testing.T) {
	t.Parallel()
	a := singleSheet(t, [][]any{
		{"Name", "Qty"},
		{"Widget", 10},
		{"Gadget", 20},
	})
	b := singleSheet(t, [][]any{
		{"Name", "Qty"},
		{"Gadget", 20},
	})
	result := compareBooks(t, a, b)

	var deleted int
	for _, c := range result.Changes {
		if c.Kind == ChangeRowDeleted {
			deleted++
		}
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted row, got %+v", result.Changes)
	}

	// Deleted rows are listed in the annotation sheet.
	out, err := excelize.OpenReader(bytes.NewReader(result.Document))
	if err != nil {
		t.Fatalf("reopening output: %v", err)
	}
	defer out.Close()
	rows, err := out.GetRows(deletedRowsSheet)
	if err != nil {
		t.Fatalf("reading %q sheet: %v", deletedRowsSheet, err)
	}
	if len(rows) != 2 {
		t.Fatalf("listing rows = %v", rows)
	}
	if rows[1][0] != "Data" {
		t.Errorf("listing sheet column = %q", rows[1][0])
	}
}

// A renamed sheet with identical content reports exactly one
// SheetRenamed change — no spurious row churn.
func TestCompare_SheetRenameDetection(t *testing.T) {
	t.Parallel()
	rows := [][]any{{"Month", "Revenue"}, {"Jan", 100}, {"Feb", 110}, {"Mar", 120}}
	a := buildWorkbook(t, map[string][][]any{"Q1": rows}, []string{"Q1"})
	b := buildWorkbook(t, map[string][][]any{"Q1-2024": rows}, []string{"Q1-2024"})
	result := compareBooks(t, a, b)

	if len(result.Changes) != 1 {
		t.Fatalf("expected only the rename, got %+v", result.Changes)
	}
	c := result.Changes[0]
	if c.Kind != ChangeSheetRenamed || c.OldValue != "Q1" || c.NewValue != "Q1-2024" {
		t.Errorf("change = %+v", c)
	}
}

func TestCompare_SheetRenameDisabled(t *testing.T) {
	t.Parallel()
	rows := [][]any{{"Month"}, {"Jan"}}
	a := buildWorkbook(t, map[string][][]any{"Q1": rows}, []string{"Q1"})
	b := buildWorkbook(t, map[string][][]any{"Q1-2024": rows}, []string{"Q1-2024"})

	settings := DefaultSettings()
	settings.EnableSheetRenameDetection = false
	result, err := Compare(a, b, settings)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	kinds := map[ChangeKind]int{}
	for _, c := range result.Changes {
		kinds[c.Kind]++
	}
	if kinds[ChangeSheetDeleted] != 1 || kinds[ChangeSheetAdded] != 1 {
		t.Errorf("changes = %+v", result.Changes)
	}
}

func TestCompare_SheetAddedAndDeleted(t *testing.T) {
	t.Parallel()
	a := buildWorkbook(t, map[string][][]any{
		"Keep": {{"x"}},
		"Old":  {{"gone", "for", "good"}},
	}, []string{"Keep", "Old"})
	b := buildWorkbook(t, map[string][][]any{
		"Keep": {{"x"}},
		"New":  {{"fresh", "stuff"}},
	}, []string{"Keep", "New"})
	result := compareBooks(t, a, b)

	kinds := map[ChangeKind]int{}
	for _, c := range result.Changes {
		kinds[c.Kind]++
	}
	if kinds[ChangeSheetDeleted] != 1 || kinds[ChangeSheetAdded] != 1 {
		t.Errorf("changes = %+v", result.Changes)
	}
}

func TestCompare_FormulaChanged(t *testing.T) {
	t.Parallel()
	build := func(formula string) []byte {
		f := excelize.NewFile()
		defer f.Close()
		if err := f.SetCellValue("Sheet1", "A1", 2); err != nil {
			t.Fatal(err)
		}
		if err := f.SetCellFormula("Sheet1", "B1", formula); err != nil {
			t.Fatalf("SetCellFormula: %v", err)
		}
		buf, err := f.WriteToBuffer()
		if err != nil {
			t.Fatal(err)
		}
		return buf.Bytes()
	}
	result := compareBooks(t, build("A1*2"), build("A1*3"))

	var formulaChanges int
	for _, c := range result.Changes {
		if c.Kind == ChangeFormulaChanged {
			formulaChanges++
			if c.Cell != "B1" {
				t.Errorf("Cell = %q", c.Cell)
			}
		}
	}
	if formulaChanges != 1 {
		t.Errorf("changes = %+v", result.Changes)
	}
}

func TestCompare_NumericTolerance(t *testing.T) {
	t.Parallel()
	a := singleSheet(t, [][]any{{1.0001}})
	b := singleSheet(t, [][]any{{1.0002}})

	settings := DefaultSettings()
	settings.NumericTolerance = 0.01
	result, err := Compare(a, b, settings)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	for _, c := range result.Changes {
		if c.Kind == ChangeValueChanged {
			t.Errorf("tolerance should suppress %+v", c)
		}
	}
}

func TestCompare_CaseInsensitiveValues(t *testing.T) {
	t.Parallel()
	a := singleSheet(t, [][]any{{"Widget"}})
	b := singleSheet(t, [][]any{{"WIDGET"}})

	settings := DefaultSettings()
	settings.CaseInsensitiveValues = true
	result, err := Compare(a, b, settings)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if got := result.Counters.Total(); got != 0 {
		t.Errorf("Total = %d, want 0; changes: %+v", got, result.Changes)
	}
}

func TestCompare_CellAddedAndCleared(t *testing.T) {
	t.Parallel()
	a := singleSheet(t, [][]any{{"a", "", "c"}})
	b := singleSheet(t, [][]any{{"a", "b", ""}})
	result := compareBooks(t, a, b)

	kinds := map[ChangeKind]int{}
	for _, c := range result.Changes {
		kinds[c.Kind]++
	}
	if kinds[ChangeCellAdded] != 1 || kinds[ChangeCellDeleted] != 1 {
		t.Errorf("changes = %+v", result.Changes)
	}
}
