package sml

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Highlight fills per change kind.
const (
	fillAdded    = "#C6EFCE" // green
	fillDeleted  = "#FFC7CE" // red
	fillModified = "#FFEB9C" // amber
)

// deletedRowsSheet is the listing sheet appended when ShowDeletedRows is
// on and the comparison dropped rows.
const deletedRowsSheet = "Deleted Rows"

// emit produces the marked workbook: a fresh copy of the new side with
// comments and fills applied per change, plus an optional listing of
// deleted rows.
func emit(doc2 []byte, changes []Change, settings Settings) ([]byte, error) {
	out, err := excelize.OpenReader(bytes.NewReader(doc2))
	if err != nil {
		return nil, fmt.Errorf("sml: reopening workbook for markup: %w", err)
	}
	defer out.Close()

	styleAdded, err := fillStyle(out, fillAdded)
	if err != nil {
		return nil, err
	}
	styleModified, err := fillStyle(out, fillModified)
	if err != nil {
		return nil, err
	}

	var deletedRows []Change
	for _, change := range changes {
		switch change.Kind {
		case ChangeValueChanged, ChangeFormulaChanged:
			if err := annotate(out, change, settings); err != nil {
				return nil, err
			}
			if err := applyFill(out, change.Sheet, change.Cell, styleModified); err != nil {
				return nil, err
			}
		case ChangeCellAdded:
			if err := applyFill(out, change.Sheet, change.Cell, styleAdded); err != nil {
				return nil, err
			}
		case ChangeCellDeleted:
			if err := annotate(out, change, settings); err != nil {
				return nil, err
			}
		case ChangeRowAdded:
			if err := fillRow(out, change.Sheet, change.Row, styleAdded); err != nil {
				return nil, err
			}
		case ChangeRowDeleted:
			deletedRows = append(deletedRows, change)
		}
	}

	if settings.ShowDeletedRows && len(deletedRows) > 0 {
		if err := writeDeletedRows(out, deletedRows); err != nil {
			return nil, err
		}
	}

	buf, err := out.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("sml: serializing marked workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// annotate attaches a "was:" comment to a changed cell.
func annotate(out *excelize.File, change Change, settings Settings) error {
	if change.Cell == "" {
		return nil
	}
	old := change.OldValue
	if old == "" {
		old = "(empty)"
	}
	err := out.AddComment(change.Sheet, excelize.Comment{
		Cell:   change.Cell,
		Author: settings.AuthorForChanges,
		Text:   fmt.Sprintf("%s: was: %s", settings.AuthorForChanges, old),
	})
	if err != nil {
		return fmt.Errorf("sml: adding comment at %s!%s: %w", change.Sheet, change.Cell, err)
	}
	return nil
}

func fillStyle(out *excelize.File, color string) (int, error) {
	id, err := out.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
	})
	if err != nil {
		return 0, fmt.Errorf("sml: registering highlight style: %w", err)
	}
	return id, nil
}

func applyFill(out *excelize.File, sheetName, ref string, styleID int) error {
	if ref == "" {
		return nil
	}
	if err := out.SetCellStyle(sheetName, ref, ref, styleID); err != nil {
		return fmt.Errorf("sml: highlighting %s!%s: %w", sheetName, ref, err)
	}
	return nil
}

// fillRow highlights the populated extent of an inserted row.
func fillRow(out *excelize.File, sheetName string, rowIndex, styleID int) error {
	rows, err := out.GetRows(sheetName)
	if err != nil || rowIndex < 1 || rowIndex > len(rows) {
		return nil
	}
	width := len(rows[rowIndex-1])
	if width == 0 {
		return nil
	}
	start, err := excelize.CoordinatesToCellName(1, rowIndex)
	if err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(width, rowIndex)
	if err != nil {
		return err
	}
	if err := out.SetCellStyle(sheetName, start, end, styleID); err != nil {
		return fmt.Errorf("sml: highlighting row %d of %q: %w", rowIndex, sheetName, err)
	}
	return nil
}

// writeDeletedRows appends a listing sheet: one line per dropped row
// with its origin and content preview.
func writeDeletedRows(out *excelize.File, deleted []Change) error {
	name := deletedRowsSheet
	if _, err := out.NewSheet(name); err != nil {
		return fmt.Errorf("sml: creating %q sheet: %w", name, err)
	}
	headers := []string{"Sheet", "Row", "Content"}
	for i, h := range headers {
		ref, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := out.SetCellValue(name, ref, h); err != nil {
			return err
		}
	}
	for i, change := range deleted {
		values := []any{change.Sheet, change.Row, change.OldValue}
		for col, v := range values {
			ref, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := out.SetCellValue(name, ref, v); err != nil {
				return err
			}
		}
	}
	return nil
}
