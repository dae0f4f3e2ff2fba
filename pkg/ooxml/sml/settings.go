// Package sml compares SpreadsheetML workbooks and emits a marked
// workbook: changed cells receive comments and fills, structural changes
// are highlighted or listed.
package sml

// Settings control an SML comparison.
type Settings struct {
	CompareValues     bool
	CompareFormulas   bool
	CompareFormatting bool

	// EnableRowAlignment diffs rows with the sequence kernel so whole-row
	// insertions and deletions are detected; disabled, rows pair by index.
	EnableRowAlignment bool

	// EnableSheetRenameDetection matches unmatched sheets by content.
	EnableSheetRenameDetection bool
	// SheetRenameSimilarityThreshold is the minimum row-level similarity
	// for two differently named sheets to count as a rename.
	SheetRenameSimilarityThreshold float64

	// CaseInsensitiveValues compares text cell values case-insensitively.
	CaseInsensitiveValues bool
	// NumericTolerance treats numeric values within this absolute delta
	// as equal. Zero requires exact equality.
	NumericTolerance float64

	CompareNamedRanges    bool
	CompareMergedCells    bool
	CompareHyperlinks     bool
	CompareDataValidation bool
	CompareComments       bool

	// AuthorForChanges is stamped on emitted comments.
	AuthorForChanges string
	// ShowDeletedRows appends a listing sheet holding rows the new side
	// dropped.
	ShowDeletedRows bool
}

// DefaultSettings returns the defaults: everything compared, rename
// detection at 0.8, exact value equality.
func DefaultSettings() Settings {
	return Settings{
		CompareValues:                  true,
		CompareFormulas:                true,
		CompareFormatting:              true,
		EnableRowAlignment:             true,
		EnableSheetRenameDetection:     true,
		SheetRenameSimilarityThreshold: 0.8,
		CompareNamedRanges:             true,
		CompareMergedCells:             true,
		CompareHyperlinks:              true,
		CompareDataValidation:          true,
		CompareComments:                true,
		AuthorForChanges:               "Comparer",
		ShowDeletedRows:                true,
	}
}
