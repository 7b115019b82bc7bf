package tabfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadWorkbook loads every sheet of an xlsx file as a string-cell table,
// preserving sheet order. Sheet names become table names.
func ReadWorkbook(path string) ([]*Table, error) {
	f, err := openWorkbook(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []*Table
	for _, sheet := range f.GetSheetList() {
		t, err := sheetToTable(f, sheet)
		if err != nil {
			return nil, fmt.Errorf("%s[%s]: %w", path, sheet, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// ReadSheet loads one named sheet; ErrNotFound also covers a missing sheet.
func ReadSheet(path, sheet string) (*Table, error) {
	f, err := openWorkbook(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	found := false
	for _, name := range f.GetSheetList() {
		if name == sheet {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%s: sheet %q: %w", path, sheet, ErrNotFound)
	}
	t, err := sheetToTable(f, sheet)
	if err != nil {
		return nil, fmt.Errorf("%s[%s]: %w", path, sheet, err)
	}
	return t, nil
}

func openWorkbook(path string) (*excelize.File, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, classifyOpenErr(path, err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrLocked)
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func sheetToTable(f *excelize.File, sheet string) (*Table, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return New(sheet, nil), nil
	}

	t := New(sheet, rows[0])
	for _, row := range rows[1:] {
		empty := true
		for _, c := range row {
			if strings.TrimSpace(c) != "" {
				empty = false
				break
			}
		}
		if empty {
			continue
		}
		t.Append(row)
	}
	return t, nil
}

// WriteWorkbook renders tables as sheets of one xlsx file, first table
// first. Excel caps sheet names at 31 chars.
func WriteWorkbook(path string, tables []*Table) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, t := range tables {
		sheet := sheetName(t.Name, i)
		if i == 0 {
			f.SetSheetName(f.GetSheetName(0), sheet)
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return err
			}
		}
		for c, h := range t.Header {
			cell, _ := excelize.CoordinatesToCellName(c+1, 1)
			if err := f.SetCellValue(sheet, cell, h); err != nil {
				return err
			}
		}
		for r, row := range t.Rows {
			for c, v := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
				if err := f.SetCellValue(sheet, cell, v); err != nil {
					return err
				}
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return f.SaveAs(path)
}

func sheetName(name string, idx int) string {
	s := strings.TrimSpace(name)
	if s == "" {
		s = fmt.Sprintf("Sheet%d", idx+1)
	}
	if len(s) > 31 {
		s = s[:31]
	}
	return s
}
