package sml

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// compareWorkbookMetadata diffs the non-grid features: named ranges,
// merged regions, hyperlinks, data validation, and comments.
func compareWorkbookMetadata(wb1, wb2 *workbook, alignment sheetAlignment, settings Settings, result *Result) {
	if settings.CompareNamedRanges {
		compareNamedRanges(wb1, wb2, settings, result)
	}
	for _, pair := range alignment.Pairs {
		if settings.CompareMergedCells {
			compareMergedCells(wb1, wb2, pair, settings, result)
		}
		if settings.CompareHyperlinks {
			compareHyperlinks(wb1, wb2, pair, settings, result)
		}
		if settings.CompareDataValidation {
			compareDataValidations(wb1, wb2, pair, settings, result)
		}
		if settings.CompareComments {
			compareComments(wb1, wb2, pair, settings, result)
		}
	}
}

func compareNamedRanges(wb1, wb2 *workbook, settings Settings, result *Result) {
	key := func(name, scope string) string { return scope + "!" + name }

	old := make(map[string]string)
	var oldKeys []string
	for _, dn := range wb1.f.GetDefinedName() {
		k := key(dn.Name, dn.Scope)
		old[k] = dn.RefersTo
		oldKeys = append(oldKeys, k)
	}
	sort.Strings(oldKeys)

	seen := make(map[string]bool)
	for _, dn := range wb2.f.GetDefinedName() {
		k := key(dn.Name, dn.Scope)
		seen[k] = true
		oldRef, existed := old[k]
		switch {
		case !existed:
			result.add(Change{
				Kind:     ChangeNamedRange,
				Summary:  fmt.Sprintf("Named range %q added", dn.Name),
				NewValue: dn.RefersTo,
				Author:   settings.AuthorForChanges,
			})
		case oldRef != dn.RefersTo:
			result.add(Change{
				Kind:     ChangeNamedRange,
				Summary:  fmt.Sprintf("Named range %q changed", dn.Name),
				OldValue: oldRef,
				NewValue: dn.RefersTo,
				Author:   settings.AuthorForChanges,
			})
		}
	}
	for _, k := range oldKeys {
		if !seen[k] {
			result.add(Change{
				Kind:     ChangeNamedRange,
				Summary:  fmt.Sprintf("Named range %q deleted", strings.TrimPrefix(k, "!")),
				OldValue: old[k],
				Author:   settings.AuthorForChanges,
			})
		}
	}
}

func compareMergedCells(wb1, wb2 *workbook, pair sheetPair, settings Settings, result *Result) {
	regions := func(wb *workbook, name string) []string {
		merged, err := wb.f.GetMergeCells(name)
		if err != nil {
			return nil
		}
		var refs []string
		for _, m := range merged {
			refs = append(refs, m.GetStartAxis()+":"+m.GetEndAxis())
		}
		sort.Strings(refs)
		return refs
	}

	oldRegions := regions(wb1, pair.Old.Name)
	newRegions := regions(wb2, pair.New.Name)
	if strings.Join(oldRegions, ",") == strings.Join(newRegions, ",") {
		return
	}
	result.add(Change{
		Kind:     ChangeMergedCells,
		Summary:  fmt.Sprintf("Merged regions changed in sheet %q", pair.New.Name),
		Sheet:    pair.New.Name,
		OldValue: strings.Join(oldRegions, ","),
		NewValue: strings.Join(newRegions, ","),
		Author:   settings.AuthorForChanges,
	})
}

func compareHyperlinks(wb1, wb2 *workbook, pair sheetPair, settings Settings, result *Result) {
	links := func(wb *workbook, sh *sheet) map[string]string {
		m := make(map[string]string)
		for _, r := range sh.Rows {
			for _, c := range r.Cells {
				if ok, target, err := wb.f.GetCellHyperLink(sh.Name, c.Ref); err == nil && ok {
					m[c.Ref] = target
				}
			}
		}
		return m
	}

	old := links(wb1, pair.Old)
	new2 := links(wb2, pair.New)

	var refs []string
	for ref := range old {
		refs = append(refs, ref)
	}
	for ref := range new2 {
		if _, dup := old[ref]; !dup {
			refs = append(refs, ref)
		}
	}
	sort.Strings(refs)

	for _, ref := range refs {
		oldTarget, hadOld := old[ref]
		newTarget, hasNew := new2[ref]
		if hadOld && hasNew && oldTarget == newTarget {
			continue
		}
		result.add(Change{
			Kind:     ChangeHyperlink,
			Summary:  fmt.Sprintf("Hyperlink changed in %s!%s", pair.New.Name, ref),
			Sheet:    pair.New.Name,
			Cell:     ref,
			OldValue: oldTarget,
			NewValue: newTarget,
			Author:   settings.AuthorForChanges,
		})
	}
}

func compareDataValidations(wb1, wb2 *workbook, pair sheetPair, settings Settings, result *Result) {
	signature := func(wb *workbook, name string) string {
		dvs, err := wb.f.GetDataValidations(name)
		if err != nil || len(dvs) == 0 {
			return ""
		}
		encoded, err := json.Marshal(dvs)
		if err != nil {
			return ""
		}
		return string(encoded)
	}

	if signature(wb1, pair.Old.Name) == signature(wb2, pair.New.Name) {
		return
	}
	result.add(Change{
		Kind:    ChangeDataValidation,
		Summary: fmt.Sprintf("Data validation changed in sheet %q", pair.New.Name),
		Sheet:   pair.New.Name,
		Author:  settings.AuthorForChanges,
	})
}

func compareComments(wb1, wb2 *workbook, pair sheetPair, settings Settings, result *Result) {
	comments := func(wb *workbook, name string) map[string]string {
		m := make(map[string]string)
		list, err := wb.f.GetComments(name)
		if err != nil {
			return m
		}
		for _, c := range list {
			text := c.Text
			for _, p := range c.Paragraph {
				text += p.Text
			}
			m[c.Cell] = c.Author + ": " + text
		}
		return m
	}

	old := comments(wb1, pair.Old.Name)
	new2 := comments(wb2, pair.New.Name)

	var refs []string
	for ref := range old {
		refs = append(refs, ref)
	}
	for ref := range new2 {
		if _, dup := old[ref]; !dup {
			refs = append(refs, ref)
		}
	}
	sort.Strings(refs)

	for _, ref := range refs {
		if old[ref] == new2[ref] {
			continue
		}
		result.add(Change{
			Kind:     ChangeComment,
			Summary:  fmt.Sprintf("Comment changed in %s!%s", pair.New.Name, ref),
			Sheet:    pair.New.Name,
			Cell:     ref,
			OldValue: old[ref],
			NewValue: new2[ref],
			Author:   settings.AuthorForChanges,
		})
	}
}
