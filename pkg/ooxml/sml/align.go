package sml

import (
	"github.com/vortex/ooxml-diff/pkg/ooxml/lcs"
)

// sheetPair is one aligned sheet pair. Renamed is set when the pair was
// matched by content rather than by name.
type sheetPair struct {
	Old     *sheet
	New     *sheet
	Renamed bool
}

// sheetAlignment is the outcome of sheet matching.
type sheetAlignment struct {
	Pairs   []sheetPair
	Deleted []*sheet // old-side only
	Added   []*sheet // new-side only
}

// alignSheets matches sheets by exact name first, then — when enabled —
// by content similarity among the leftovers (rename detection).
// Remaining unmatched sheets are added/deleted.
func alignSheets(wb1, wb2 *workbook, settings Settings) sheetAlignment {
	var out sheetAlignment
	matchedNew := make(map[*sheet]bool)

	var unmatchedOld []*sheet
	for _, s1 := range wb1.Sheets {
		if s2 := wb2.sheetByName(s1.Name); s2 != nil {
			out.Pairs = append(out.Pairs, sheetPair{Old: s1, New: s2})
			matchedNew[s2] = true
			continue
		}
		unmatchedOld = append(unmatchedOld, s1)
	}

	if settings.EnableSheetRenameDetection {
		for _, s1 := range unmatchedOld {
			var best *sheet
			bestSim := 0.0
			for _, s2 := range wb2.Sheets {
				if matchedNew[s2] {
					continue
				}
				if sim := sheetSimilarity(s1, s2); sim > bestSim {
					best, bestSim = s2, sim
				}
			}
			if best != nil && bestSim >= settings.SheetRenameSimilarityThreshold {
				out.Pairs = append(out.Pairs, sheetPair{Old: s1, New: best, Renamed: true})
				matchedNew[best] = true
				continue
			}
			out.Deleted = append(out.Deleted, s1)
		}
	} else {
		out.Deleted = append(out.Deleted, unmatchedOld...)
	}

	for _, s2 := range wb2.Sheets {
		if !matchedNew[s2] {
			out.Added = append(out.Added, s2)
		}
	}
	return out
}

// sheetSimilarity measures content overlap as the fraction of rows the
// sequence kernel aligns as equal, relative to the longer sheet.
// Identical sheets score 1; disjoint sheets 0. Two empty sheets are
// fully similar.
func sheetSimilarity(s1, s2 *sheet) float64 {
	if len(s1.Rows) == 0 && len(s2.Rows) == 0 {
		return 1
	}
	longer := len(s1.Rows)
	if len(s2.Rows) > longer {
		longer = len(s2.Rows)
	}
	equal := 0
	for _, seg := range correlateRows(s1, s2) {
		if seg.Status == lcs.StatusEqual {
			equal += len(seg.Items1)
		}
	}
	return float64(equal) / float64(longer)
}

// correlateRows runs the sequence kernel over two sheets' rows.
func correlateRows(s1, s2 *sheet) []lcs.Segment {
	a := make([]lcs.Unit, len(s1.Rows))
	for i, r := range s1.Rows {
		a[i] = r
	}
	b := make([]lcs.Unit, len(s2.Rows))
	for i, r := range s2.Rows {
		b[i] = r
	}
	return lcs.Correlate(a, b, lcs.Options{MinMatchLength: 1})
}
