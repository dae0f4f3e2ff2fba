package sml

// ChangeKind classifies one reported workbook change.
type ChangeKind string

const (
	ChangeValueChanged   ChangeKind = "ValueChanged"
	ChangeFormulaChanged ChangeKind = "FormulaChanged"
	ChangeFormatChanged  ChangeKind = "FormatChanged"
	ChangeCellAdded      ChangeKind = "CellAdded"
	ChangeCellDeleted    ChangeKind = "CellDeleted"
	ChangeRowAdded       ChangeKind = "RowAdded"
	ChangeRowDeleted     ChangeKind = "RowDeleted"
	ChangeSheetAdded     ChangeKind = "SheetAdded"
	ChangeSheetDeleted   ChangeKind = "SheetDeleted"
	ChangeSheetRenamed   ChangeKind = "SheetRenamed"

	ChangeNamedRange     ChangeKind = "NamedRangeChanged"
	ChangeMergedCells    ChangeKind = "MergedCellsChanged"
	ChangeHyperlink      ChangeKind = "HyperlinkChanged"
	ChangeDataValidation ChangeKind = "DataValidationChanged"
	ChangeComment        ChangeKind = "CommentChanged"
)

// Change is one reported workbook change.
type Change struct {
	Kind    ChangeKind
	Summary string

	// Sheet is the sheet name on the new side (old side for deletions).
	Sheet string
	// Cell is the A1 reference for cell-scoped changes, empty otherwise.
	Cell string
	// Row is the 1-based row number for row-scoped changes, 0 otherwise.
	Row int

	OldValue string
	NewValue string
	Author   string
}

// Counters aggregate a comparison.
type Counters struct {
	Insertions    int
	Deletions     int
	Modifications int
}

// Total returns the total number of reported changes.
func (c Counters) Total() int {
	return c.Insertions + c.Deletions + c.Modifications
}

// Result is the outcome of an SML comparison.
type Result struct {
	Document []byte
	Changes  []Change
	Counters Counters
}

func (c *Counters) count(kind ChangeKind) {
	switch kind {
	case ChangeCellAdded, ChangeRowAdded, ChangeSheetAdded:
		c.Insertions++
	case ChangeCellDeleted, ChangeRowDeleted, ChangeSheetDeleted:
		c.Deletions++
	default:
		c.Modifications++
	}
}
