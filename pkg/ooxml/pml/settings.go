// Package pml compares PresentationML decks and emits a marked
// presentation: banners on inserted slides, overlays on moved shapes,
// inline text markup, and optional summary and notes annotations.
package pml

// Settings control a PML comparison.
type Settings struct {
	CompareSlideStructure  bool
	CompareShapeStructure  bool
	CompareTextContent     bool
	CompareTextFormatting  bool
	CompareShapeTransforms bool
	CompareShapeStyles     bool
	CompareImageContent    bool
	CompareCharts          bool
	CompareTables          bool
	CompareNotes           bool
	CompareTransitions     bool

	// EnableFuzzyShapeMatching allows similarity-based shape pairing
	// after the exact strategies fail.
	EnableFuzzyShapeMatching bool
	// SlideSimilarityThreshold is the minimum similarity for a fuzzy
	// slide match.
	SlideSimilarityThreshold float64
	// ShapeSimilarityThreshold is the minimum similarity for a fuzzy
	// shape match.
	ShapeSimilarityThreshold float64
	// PositionTolerance is the transform delta, in EMU, at or below which
	// a shape has not moved or resized.
	PositionTolerance int64
	// UseSlideAlignmentLCS aligns slides with the sequence kernel before
	// fuzzy matching.
	UseSlideAlignmentLCS bool

	AuthorForChanges string
	// AddSummarySlide appends a slide aggregating change counts.
	AddSummarySlide bool
	// AddNotesAnnotations appends a textual change log to each changed
	// slide's notes.
	AddNotesAnnotations bool

	// Markup colors, RRGGBB hex without "#".
	InsertedColor   string
	DeletedColor    string
	ModifiedColor   string
	MovedColor      string
	FormattingColor string
}

// DefaultSettings returns the defaults: everything compared, LCS slide
// alignment on, fuzzy matching on at 0.7/0.5, 10000 EMU tolerance.
func DefaultSettings() Settings {
	return Settings{
		CompareSlideStructure:    true,
		CompareShapeStructure:    true,
		CompareTextContent:       true,
		CompareTextFormatting:    true,
		CompareShapeTransforms:   true,
		CompareShapeStyles:       true,
		CompareImageContent:      true,
		CompareCharts:            true,
		CompareTables:            true,
		CompareNotes:             true,
		CompareTransitions:       true,
		EnableFuzzyShapeMatching: true,
		SlideSimilarityThreshold: 0.7,
		ShapeSimilarityThreshold: 0.5,
		PositionTolerance:        10000,
		UseSlideAlignmentLCS:     true,
		AuthorForChanges:         "Comparer",
		AddSummarySlide:          false,
		AddNotesAnnotations:      false,
		InsertedColor:            "2E7D32",
		DeletedColor:             "C62828",
		ModifiedColor:            "F9A825",
		MovedColor:               "1565C0",
		FormattingColor:          "6A1B9A",
	}
}
