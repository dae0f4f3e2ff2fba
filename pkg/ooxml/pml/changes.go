package pml

// ChangeKind classifies one reported presentation change.
type ChangeKind string

const (
	ChangeSlideInserted ChangeKind = "SlideInserted"
	ChangeSlideDeleted  ChangeKind = "SlideDeleted"
	ChangeSlideMoved    ChangeKind = "SlideMoved"

	ChangeShapeInserted ChangeKind = "ShapeInserted"
	ChangeShapeDeleted  ChangeKind = "ShapeDeleted"
	ChangeShapeMoved    ChangeKind = "ShapeMoved"
	ChangeShapeResized  ChangeKind = "ShapeResized"
	ChangeShapeRotated  ChangeKind = "ShapeRotated"

	ChangeTextChanged    ChangeKind = "TextChanged"
	ChangeFormatChanged  ChangeKind = "FormatChanged"
	ChangeFillChanged    ChangeKind = "FillChanged"
	ChangeLineChanged    ChangeKind = "LineChanged"
	ChangeEffectChanged  ChangeKind = "EffectChanged"
	ChangeImageReplaced  ChangeKind = "ImageReplaced"
	ChangeTableChanged   ChangeKind = "TableChanged"
	ChangeChartChanged   ChangeKind = "ChartChanged"
	ChangeNotesChanged   ChangeKind = "NotesChanged"
	ChangeTransition     ChangeKind = "TransitionChanged"
)

// MatchMethod records how a slide pair was matched.
type MatchMethod string

const (
	MatchByHash  MatchMethod = "content-hash"
	MatchByTitle MatchMethod = "title"
	MatchByFuzzy MatchMethod = "fuzzy"
)

// Change is one reported presentation change.
type Change struct {
	Kind    ChangeKind
	Summary string

	// Slide is the 1-based slide number (new side; old side for
	// deletions).
	Slide int
	// Shape names the affected shape, empty for slide-scoped changes.
	Shape string

	OldText string
	NewText string
	Author  string
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

func (c *Counters) count(kind ChangeKind) {
	switch kind {
	case ChangeSlideInserted, ChangeShapeInserted:
		c.Insertions++
	case ChangeSlideDeleted, ChangeShapeDeleted:
		c.Deletions++
	default:
		c.Modifications++
	}
}

// Result is the outcome of a PML comparison.
type Result struct {
	Document []byte
	Changes  []Change
	Counters Counters
}

func (r *Result) add(c Change) {
	r.Changes = append(r.Changes, c)
	r.Counters.count(c.Kind)
}
