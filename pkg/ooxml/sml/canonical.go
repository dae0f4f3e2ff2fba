package sml

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vortex/ooxml-diff/pkg/ooxml/digest"
)

// cell is the canonical form of one worksheet cell: shared-string
// indirection resolved, number formats applied for the display form,
// formula and effective formatting carried separately.
type cell struct {
	Ref     string // A1 reference
	Value   string // raw stored value
	Display string // number-format-applied text
	Formula string
	// StyleSig fingerprints the effective cell style; two cells with
	// equivalent formatting share a signature regardless of style-table
	// index.
	StyleSig string
}

// row is one canonical worksheet row. It implements lcs.Unit.
type row struct {
	Index int // 1-based
	Cells []*cell

	hash string
}

// Hash covers values and formulas but not formatting: rows must align by
// content even when only styled differently.
func (r *row) Hash() string {
	if r.hash == "" {
		var sb strings.Builder
		for _, c := range r.Cells {
			sb.WriteString(c.Value)
			sb.WriteByte('\x1e')
			sb.WriteString(c.Formula)
			sb.WriteByte('\x1f')
		}
		r.hash = digest.HashString(sb.String())
	}
	return r.hash
}

// isEmpty reports whether every cell in the row is blank.
func (r *row) isEmpty() bool {
	for _, c := range r.Cells {
		if c.Value != "" || c.Formula != "" {
			return false
		}
	}
	return true
}

// sheet is one canonical worksheet.
type sheet struct {
	Name string
	Rows []*row
}

// contentSignature hashes the ordered row signatures. Rename detection
// does not use it; it scores candidates with sheetSimilarity.
func (s *sheet) contentSignature() string {
	var sb strings.Builder
	for _, r := range s.Rows {
		sb.WriteString(r.Hash())
		sb.WriteByte('\n')
	}
	return digest.HashString(sb.String())
}

// workbook is the canonical form of one side of the comparison. The
// underlying excelize file stays open for style and metadata lookups.
type workbook struct {
	f      *excelize.File
	Sheets []*sheet
}

// openWorkbook canonicalizes workbook bytes.
func openWorkbook(data []byte) (*workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("sml: opening workbook: %w", err)
	}
	wb := &workbook{f: f}

	styleSigs := make(map[int]string)
	for _, name := range f.GetSheetList() {
		sh, err := wb.canonicalizeSheet(name, styleSigs)
		if err != nil {
			return nil, err
		}
		wb.Sheets = append(wb.Sheets, sh)
	}
	return wb, nil
}

func (wb *workbook) close() {
	if wb.f != nil {
		_ = wb.f.Close()
	}
}

// canonicalizeSheet materializes one sheet's row/cell model.
func (wb *workbook) canonicalizeSheet(name string, styleSigs map[int]string) (*sheet, error) {
	display, err := wb.f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("sml: reading sheet %q: %w", name, err)
	}
	raw, err := wb.f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("sml: reading sheet %q: %w", name, err)
	}

	sh := &sheet{Name: name}
	for rowIdx := 0; rowIdx < len(raw) || rowIdx < len(display); rowIdx++ {
		r := &row{Index: rowIdx + 1}
		width := 0
		if rowIdx < len(raw) {
			width = len(raw[rowIdx])
		}
		if rowIdx < len(display) && len(display[rowIdx]) > width {
			width = len(display[rowIdx])
		}
		for colIdx := 0; colIdx < width; colIdx++ {
			ref, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			if err != nil {
				return nil, fmt.Errorf("sml: cell reference: %w", err)
			}
			c := &cell{Ref: ref}
			if rowIdx < len(raw) && colIdx < len(raw[rowIdx]) {
				c.Value = raw[rowIdx][colIdx]
			}
			if rowIdx < len(display) && colIdx < len(display[rowIdx]) {
				c.Display = display[rowIdx][colIdx]
			}
			if formula, err := wb.f.GetCellFormula(name, ref); err == nil {
				c.Formula = formula
			}
			c.StyleSig = wb.styleSignature(name, ref, styleSigs)
			r.Cells = append(r.Cells, c)
		}
		sh.Rows = append(sh.Rows, r)
	}
	return sh, nil
}

// styleSignature resolves a cell's style index to a content-based
// fingerprint, so equal effective formats compare equal across
// workbooks with differently ordered style tables.
func (wb *workbook) styleSignature(sheetName, ref string, cache map[int]string) string {
	idx, err := wb.f.GetCellStyle(sheetName, ref)
	if err != nil {
		return ""
	}
	if sig, ok := cache[idx]; ok {
		return sig
	}
	style, err := wb.f.GetStyle(idx)
	if err != nil || style == nil {
		cache[idx] = ""
		return ""
	}
	encoded, err := json.Marshal(style)
	if err != nil {
		cache[idx] = ""
		return ""
	}
	sig := digest.ContentID(string(encoded))
	cache[idx] = sig
	return sig
}

// sheetByName returns the canonical sheet with the given name.
func (wb *workbook) sheetByName(name string) *sheet {
	for _, s := range wb.Sheets {
		if s.Name == name {
			return s
		}
	}
	return nil
}
