package pml

import (
	"fmt"

	"github.com/vortex/ooxml-diff/pkg/ooxml/lcs"
	"github.com/vortex/ooxml-diff/pkg/ooxml/oxml"
)

// textEdit is one run-level edit inside a matched shape, for emission.
type textEdit struct {
	status lcs.Status
	runs   []*RunSignature
}

// shapeOutcome carries everything the emitter needs about one shape pair.
type shapeOutcome struct {
	pair    shapePair
	moved   bool
	resized bool
	edits   []textEdit // non-nil when the text changed
}

// classifySlidePair reports the changes between two matched slides and
// returns the per-shape outcomes for emission.
func classifySlidePair(pair slidePair, settings Settings, result *Result) []shapeOutcome {
	slideNo := pair.New.Index + 1

	if settings.CompareSlideStructure && pair.Old.Index != pair.New.Index {
		result.add(Change{
			Kind:    ChangeSlideMoved,
			Summary: fmt.Sprintf("Slide moved from position %d to %d", pair.Old.Index+1, slideNo),
			Slide:   slideNo,
			Author:  settings.AuthorForChanges,
		})
	}
	if settings.CompareNotes && pair.Old.NotesHash != pair.New.NotesHash {
		result.add(Change{
			Kind:    ChangeNotesChanged,
			Summary: fmt.Sprintf("Notes changed on slide %d", slideNo),
			Slide:   slideNo,
			OldText: pair.Old.NotesText,
			NewText: pair.New.NotesText,
			Author:  settings.AuthorForChanges,
		})
	}
	if settings.CompareTransitions && pair.Old.TransitionHash != pair.New.TransitionHash {
		result.add(Change{
			Kind:    ChangeTransition,
			Summary: fmt.Sprintf("Transition changed on slide %d", slideNo),
			Slide:   slideNo,
			Author:  settings.AuthorForChanges,
		})
	}

	if !settings.CompareShapeStructure {
		return nil
	}

	alignment := alignShapes(pair.Old.Shapes, pair.New.Shapes, settings)
	var outcomes []shapeOutcome
	for _, sp := range alignment.Pairs {
		outcomes = append(outcomes, classifyShapePair(sp, slideNo, settings, result))
	}
	for _, sh := range alignment.Deleted {
		result.add(Change{
			Kind:    ChangeShapeDeleted,
			Summary: fmt.Sprintf("Shape %q deleted from slide %d", shapeLabel(sh), slideNo),
			Slide:   slideNo,
			Shape:   shapeLabel(sh),
			OldText: sh.TextBody.Text(),
			Author:  settings.AuthorForChanges,
		})
	}
	for _, sh := range alignment.Added {
		result.add(Change{
			Kind:    ChangeShapeInserted,
			Summary: fmt.Sprintf("Shape %q inserted on slide %d", shapeLabel(sh), slideNo),
			Slide:   slideNo,
			Shape:   shapeLabel(sh),
			NewText: sh.TextBody.Text(),
			Author:  settings.AuthorForChanges,
		})
	}
	return outcomes
}

func shapeLabel(sh *ShapeSignature) string {
	if sh.Name != "" {
		return sh.Name
	}
	if sh.Placeholder != "" {
		return sh.Placeholder
	}
	return sh.Type + " " + sh.ID
}

// classifyShapePair reports the differences of one matched shape pair.
func classifyShapePair(sp shapePair, slideNo int, settings Settings, result *Result) shapeOutcome {
	o, n := sp.Old, sp.New
	outcome := shapeOutcome{pair: sp}
	label := shapeLabel(n)

	if settings.CompareShapeTransforms {
		dx := abs64(o.Transform.X - n.Transform.X)
		dy := abs64(o.Transform.Y - n.Transform.Y)
		dw := abs64(o.Transform.CX - n.Transform.CX)
		dh := abs64(o.Transform.CY - n.Transform.CY)
		if dx > settings.PositionTolerance || dy > settings.PositionTolerance {
			outcome.moved = true
			result.add(Change{
				Kind:    ChangeShapeMoved,
				Summary: fmt.Sprintf("Shape %q moved on slide %d", label, slideNo),
				Slide:   slideNo,
				Shape:   label,
				Author:  settings.AuthorForChanges,
			})
		}
		if dw > settings.PositionTolerance || dh > settings.PositionTolerance {
			outcome.resized = true
			result.add(Change{
				Kind:    ChangeShapeResized,
				Summary: fmt.Sprintf("Shape %q resized on slide %d", label, slideNo),
				Slide:   slideNo,
				Shape:   label,
				Author:  settings.AuthorForChanges,
			})
		}
		if o.Transform.Rot != n.Transform.Rot {
			result.add(Change{
				Kind:    ChangeShapeRotated,
				Summary: fmt.Sprintf("Shape %q rotated on slide %d", label, slideNo),
				Slide:   slideNo,
				Shape:   label,
				Author:  settings.AuthorForChanges,
			})
		}
	}

	if settings.CompareShapeStyles {
		if o.FillHash != n.FillHash {
			result.add(Change{
				Kind:    ChangeFillChanged,
				Summary: fmt.Sprintf("Fill changed on shape %q, slide %d", label, slideNo),
				Slide:   slideNo,
				Shape:   label,
				Author:  settings.AuthorForChanges,
			})
		}
		if o.LineHash != n.LineHash {
			result.add(Change{
				Kind:    ChangeLineChanged,
				Summary: fmt.Sprintf("Line changed on shape %q, slide %d", label, slideNo),
				Slide:   slideNo,
				Shape:   label,
				Author:  settings.AuthorForChanges,
			})
		}
		if o.EffectHash != n.EffectHash {
			result.add(Change{
				Kind:    ChangeEffectChanged,
				Summary: fmt.Sprintf("Effects changed on shape %q, slide %d", label, slideNo),
				Slide:   slideNo,
				Shape:   label,
				Author:  settings.AuthorForChanges,
			})
		}
	}

	if o.ContentHash != n.ContentHash {
		switch n.Type {
		case "pic":
			if settings.CompareImageContent {
				result.add(Change{
					Kind:    ChangeImageReplaced,
					Summary: fmt.Sprintf("Image replaced in shape %q, slide %d", label, slideNo),
					Slide:   slideNo,
					Shape:   label,
					Author:  settings.AuthorForChanges,
				})
			}
		case "graphicFrame":
			kind, enabled := ChangeTableChanged, settings.CompareTables
			if oxmlIsChart(n) {
				kind, enabled = ChangeChartChanged, settings.CompareCharts
			}
			if enabled {
				result.add(Change{
					Kind:    kind,
					Summary: fmt.Sprintf("%s content changed in shape %q, slide %d", kind, label, slideNo),
					Slide:   slideNo,
					Shape:   label,
					Author:  settings.AuthorForChanges,
				})
			}
		}
	}

	if settings.CompareTextContent {
		outcome.edits = diffTextBodies(o.TextBody, n.TextBody, settings)
		if outcome.edits != nil {
			result.add(Change{
				Kind:    ChangeTextChanged,
				Summary: fmt.Sprintf("Text changed in shape %q, slide %d", label, slideNo),
				Slide:   slideNo,
				Shape:   label,
				OldText: o.TextBody.Text(),
				NewText: n.TextBody.Text(),
				Author:  settings.AuthorForChanges,
			})
		}
	}

	// Nested groups recurse with the same pairing rules.
	if len(o.Children) > 0 || len(n.Children) > 0 {
		childAlignment := alignShapes(o.Children, n.Children, settings)
		for _, child := range childAlignment.Pairs {
			classifyShapePair(child, slideNo, settings, result)
		}
		for _, sh := range childAlignment.Deleted {
			result.add(Change{
				Kind:    ChangeShapeDeleted,
				Summary: fmt.Sprintf("Shape %q deleted from group on slide %d", shapeLabel(sh), slideNo),
				Slide:   slideNo,
				Shape:   shapeLabel(sh),
				Author:  settings.AuthorForChanges,
			})
		}
		for _, sh := range childAlignment.Added {
			result.add(Change{
				Kind:    ChangeShapeInserted,
				Summary: fmt.Sprintf("Shape %q inserted into group on slide %d", shapeLabel(sh), slideNo),
				Slide:   slideNo,
				Shape:   shapeLabel(sh),
				Author:  settings.AuthorForChanges,
			})
		}
	}
	return outcome
}

func oxmlIsChart(sh *ShapeSignature) bool {
	return sh.el != nil && oxml.FindFirst(sh.el, "c:chart") != nil
}

// diffTextBodies diffs two text bodies at run level. Returns nil when
// the bodies are textually identical (formatting-only differences are
// reported when CompareTextFormatting is on, via a non-nil edit list
// whose segments are all Equal by text).
func diffTextBodies(old, new2 *TextBodySignature, settings Settings) []textEdit {
	oldRuns := flattenRuns(old, settings.CompareTextFormatting)
	newRuns := flattenRuns(new2, settings.CompareTextFormatting)

	a := make([]lcs.Unit, len(oldRuns))
	for i, r := range oldRuns {
		a[i] = r
	}
	b := make([]lcs.Unit, len(newRuns))
	for i, r := range newRuns {
		b[i] = r
	}
	segs := lcs.Correlate(a, b, lcs.Options{MinMatchLength: 1})

	changed := false
	var edits []textEdit
	for _, seg := range segs {
		switch seg.Status {
		case lcs.StatusEqual:
			edits = append(edits, textEdit{status: seg.Status, runs: runsOf(seg.Items2)})
		case lcs.StatusDeleted:
			edits = append(edits, textEdit{status: seg.Status, runs: runsOf(seg.Items1)})
			changed = true
		case lcs.StatusInserted:
			edits = append(edits, textEdit{status: seg.Status, runs: runsOf(seg.Items2)})
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return edits
}

// flattenRuns flattens a body's runs; paragraph boundaries become
// break-runs so they participate in the diff.
func flattenRuns(tb *TextBodySignature, withFormatting bool) []*RunSignature {
	if tb == nil {
		return nil
	}
	var runs []*RunSignature
	for i, p := range tb.Paragraphs {
		if i > 0 {
			runs = append(runs, &RunSignature{Text: "\n"})
		}
		for _, r := range p.Runs {
			if withFormatting {
				runs = append(runs, r)
				continue
			}
			runs = append(runs, &RunSignature{Text: r.Text})
		}
	}
	return runs
}

func runsOf(units []lcs.Unit) []*RunSignature {
	runs := make([]*RunSignature, len(units))
	for i, u := range units {
		runs[i] = u.(*RunSignature)
	}
	return runs
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
