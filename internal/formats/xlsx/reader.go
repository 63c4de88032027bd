// Package xlsx provides reading and writing capabilities for .xlsx (Excel) files.
package xlsx

import (
	"bytes"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

// Sheet represents a single worksheet's data. Rows hold raw cell values,
// so numbers appear the way Excel stores them rather than as formatted text.
type Sheet struct {
	Name string     `json:"name"`
	Rows [][]string `json:"rows"`
}

// Workbook represents a parsed Excel file with all its sheets.
type Workbook struct {
	Sheets []Sheet `json:"sheets"`
}

// ReadFile reads an .xlsx file and returns its structured data.
func ReadFile(path string) (*Workbook, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s (check that the path is correct)", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s, is this a valid .xlsx file? %w", path, err)
	}
	defer f.Close()

	return readWorkbook(f)
}

// ReadBytes reads an .xlsx file from a byte slice and returns its structured data.
func ReadBytes(data []byte) (*Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("could not read Excel data: %w", err)
	}
	defer f.Close()

	return readWorkbook(f)
}

func readWorkbook(f *excelize.File) (*Workbook, error) {
	wb := &Workbook{}

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("could not read sheet %q: %w", name, err)
		}

		wb.Sheets = append(wb.Sheets, Sheet{
			Name: name,
			Rows: rows,
		})
	}

	return wb, nil
}

// GetSheet returns a specific sheet by name. An empty name selects the first sheet.
func (wb *Workbook) GetSheet(name string) (*Sheet, error) {
	if name == "" {
		return wb.First()
	}
	for i := range wb.Sheets {
		if wb.Sheets[i].Name == name {
			return &wb.Sheets[i], nil
		}
	}

	available := make([]string, len(wb.Sheets))
	for i, s := range wb.Sheets {
		available[i] = s.Name
	}
	return nil, fmt.Errorf("sheet %q not found (available sheets: %v)", name, available)
}

// First returns the first worksheet in the workbook.
func (wb *Workbook) First() (*Sheet, error) {
	if len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return &wb.Sheets[0], nil
}

// Cell returns the raw value at zero-based (row, col). The boolean is false
// when the row or column lies beyond the sheet's data.
func (s *Sheet) Cell(row, col int) (string, bool) {
	if row < 0 || col < 0 || row >= len(s.Rows) {
		return "", false
	}
	cells := s.Rows[row]
	if col >= len(cells) {
		return "", false
	}
	return cells[col], true
}
