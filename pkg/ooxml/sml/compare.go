package sml

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vortex/ooxml-diff/pkg/ooxml/lcs"
)

// Compare diffs two SpreadsheetML workbooks and returns the marked
// result plus the change list. Inputs are not modified.
func Compare(doc1, doc2 []byte, settings Settings) (*Result, error) {
	wb1, err := openWorkbook(doc1)
	if err != nil {
		return nil, err
	}
	defer wb1.close()
	wb2, err := openWorkbook(doc2)
	if err != nil {
		return nil, err
	}
	defer wb2.close()

	result := &Result{}
	alignment := alignSheets(wb1, wb2, settings)

	for _, pair := range alignment.Pairs {
		if pair.Renamed {
			result.add(Change{
				Kind:     ChangeSheetRenamed,
				Summary:  fmt.Sprintf("Sheet %q renamed to %q", pair.Old.Name, pair.New.Name),
				Sheet:    pair.New.Name,
				OldValue: pair.Old.Name,
				NewValue: pair.New.Name,
				Author:   settings.AuthorForChanges,
			})
		}
		compareSheetPair(pair, settings, result)
	}
	for _, s := range alignment.Deleted {
		result.add(Change{
			Kind:    ChangeSheetDeleted,
			Summary: fmt.Sprintf("Sheet %q deleted", s.Name),
			Sheet:   s.Name,
			Author:  settings.AuthorForChanges,
		})
	}
	for _, s := range alignment.Added {
		result.add(Change{
			Kind:    ChangeSheetAdded,
			Summary: fmt.Sprintf("Sheet %q added", s.Name),
			Sheet:   s.Name,
			Author:  settings.AuthorForChanges,
		})
	}

	compareWorkbookMetadata(wb1, wb2, alignment, settings, result)

	document, err := emit(doc2, result.Changes, settings)
	if err != nil {
		return nil, err
	}
	result.Document = document
	return result, nil
}

// add appends a change and counts it.
func (r *Result) add(c Change) {
	r.Changes = append(r.Changes, c)
	r.Counters.count(c.Kind)
}

// compareSheetPair diffs one aligned sheet pair: rows first, then cells
// within aligned rows.
func compareSheetPair(pair sheetPair, settings Settings, result *Result) {
	if settings.EnableRowAlignment {
		segs := correlateRows(pair.Old, pair.New)
		for i := 0; i < len(segs); i++ {
			seg := segs[i]
			switch seg.Status {
			case lcs.StatusEqual:
				for k := range seg.Items1 {
					compareCells(seg.Items1[k].(*row), seg.Items2[k].(*row), pair.New.Name, settings, result)
				}
			case lcs.StatusDeleted:
				// Deleted rows followed by inserted rows are the same
				// rows edited in place: pair them up and diff cells
				// instead of reporting row churn.
				if i+1 < len(segs) && segs[i+1].Status == lcs.StatusInserted {
					pairRows(seg.Items1, segs[i+1].Items2, pair, settings, result)
					i++
					continue
				}
				for _, u := range seg.Items1 {
					reportRow(u.(*row), ChangeRowDeleted, pair, settings, result)
				}
			case lcs.StatusInserted:
				for _, u := range seg.Items2 {
					reportRow(u.(*row), ChangeRowAdded, pair, settings, result)
				}
			}
		}
		return
	}

	// Positional pairing.
	n := len(pair.Old.Rows)
	if len(pair.New.Rows) > n {
		n = len(pair.New.Rows)
	}
	for i := 0; i < n; i++ {
		switch {
		case i >= len(pair.Old.Rows):
			reportRow(pair.New.Rows[i], ChangeRowAdded, pair, settings, result)
		case i >= len(pair.New.Rows):
			reportRow(pair.Old.Rows[i], ChangeRowDeleted, pair, settings, result)
		default:
			compareCells(pair.Old.Rows[i], pair.New.Rows[i], pair.New.Name, settings, result)
		}
	}
}

// pairRows pairs a modification region's old and new rows in order;
// leftovers report as whole-row changes.
func pairRows(olds, news []lcs.Unit, pair sheetPair, settings Settings, result *Result) {
	n := len(olds)
	if len(news) < n {
		n = len(news)
	}
	for k := 0; k < n; k++ {
		compareCells(olds[k].(*row), news[k].(*row), pair.New.Name, settings, result)
	}
	for _, u := range olds[n:] {
		reportRow(u.(*row), ChangeRowDeleted, pair, settings, result)
	}
	for _, u := range news[n:] {
		reportRow(u.(*row), ChangeRowAdded, pair, settings, result)
	}
}

func reportRow(r *row, kind ChangeKind, pair sheetPair, settings Settings, result *Result) {
	if r.isEmpty() {
		return
	}
	sheetName := pair.New.Name
	verb := "added"
	if kind == ChangeRowDeleted {
		verb = "deleted"
	}
	result.add(Change{
		Kind:     kind,
		Summary:  fmt.Sprintf("Row %d %s in sheet %q", r.Index, verb, sheetName),
		Sheet:    sheetName,
		Row:      r.Index,
		OldValue: rowPreviewIf(kind == ChangeRowDeleted, r),
		NewValue: rowPreviewIf(kind == ChangeRowAdded, r),
		Author:   settings.AuthorForChanges,
	})
}

func rowPreviewIf(cond bool, r *row) string {
	if !cond {
		return ""
	}
	var parts []string
	for _, c := range r.Cells {
		if c.Display != "" {
			parts = append(parts, c.Display)
		}
	}
	return strings.Join(parts, " | ")
}

// compareCells diffs two aligned rows positionally, cell by cell.
func compareCells(r1, r2 *row, sheetName string, settings Settings, result *Result) {
	n := len(r1.Cells)
	if len(r2.Cells) > n {
		n = len(r2.Cells)
	}
	for i := 0; i < n; i++ {
		var c1, c2 *cell
		if i < len(r1.Cells) {
			c1 = r1.Cells[i]
		}
		if i < len(r2.Cells) {
			c2 = r2.Cells[i]
		}
		compareCell(c1, c2, r2, sheetName, settings, result)
	}
}

func compareCell(c1, c2 *cell, r2 *row, sheetName string, settings Settings, result *Result) {
	switch {
	case c1 == nil || (c1.Value == "" && c1.Formula == ""):
		if c2 != nil && (c2.Value != "" || c2.Formula != "") {
			result.add(Change{
				Kind:     ChangeCellAdded,
				Summary:  fmt.Sprintf("Cell %s added in sheet %q", c2.Ref, sheetName),
				Sheet:    sheetName,
				Cell:     c2.Ref,
				Row:      r2.Index,
				NewValue: c2.Display,
				Author:   settings.AuthorForChanges,
			})
		}
		return
	case c2 == nil || (c2.Value == "" && c2.Formula == ""):
		ref := c1.Ref
		if c2 != nil {
			ref = c2.Ref
		}
		result.add(Change{
			Kind:     ChangeCellDeleted,
			Summary:  fmt.Sprintf("Cell %s cleared in sheet %q", ref, sheetName),
			Sheet:    sheetName,
			Cell:     ref,
			Row:      r2.Index,
			OldValue: c1.Display,
			Author:   settings.AuthorForChanges,
		})
		return
	}

	if settings.CompareFormulas && c1.Formula != c2.Formula {
		result.add(Change{
			Kind:     ChangeFormulaChanged,
			Summary:  fmt.Sprintf("Formula changed in %s!%s", sheetName, c2.Ref),
			Sheet:    sheetName,
			Cell:     c2.Ref,
			Row:      r2.Index,
			OldValue: c1.Formula,
			NewValue: c2.Formula,
			Author:   settings.AuthorForChanges,
		})
	} else if settings.CompareValues && !valuesEqual(c1.Value, c2.Value, settings) {
		result.add(Change{
			Kind:     ChangeValueChanged,
			Summary:  fmt.Sprintf("Value changed in %s!%s", sheetName, c2.Ref),
			Sheet:    sheetName,
			Cell:     c2.Ref,
			Row:      r2.Index,
			OldValue: c1.Display,
			NewValue: c2.Display,
			Author:   settings.AuthorForChanges,
		})
	}

	if settings.CompareFormatting && c1.StyleSig != c2.StyleSig {
		result.add(Change{
			Kind:    ChangeFormatChanged,
			Summary: fmt.Sprintf("Formatting changed in %s!%s", sheetName, c2.Ref),
			Sheet:   sheetName,
			Cell:    c2.Ref,
			Row:     r2.Index,
			Author:  settings.AuthorForChanges,
		})
	}
}

// valuesEqual applies the configured case and numeric tolerances.
func valuesEqual(v1, v2 string, settings Settings) bool {
	if v1 == v2 {
		return true
	}
	if settings.NumericTolerance > 0 {
		f1, err1 := strconv.ParseFloat(strings.TrimSpace(v1), 64)
		f2, err2 := strconv.ParseFloat(strings.TrimSpace(v2), 64)
		if err1 == nil && err2 == nil {
			return math.Abs(f1-f2) <= settings.NumericTolerance
		}
	}
	if settings.CaseInsensitiveValues {
		return strings.EqualFold(v1, v2)
	}
	return false
}
