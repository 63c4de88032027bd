// Package reading locates and reads the monthly fuel figure in the spreadsheet.
package reading

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/klytics/fuelkit/internal/formats/xlsx"
)

// DefaultColumn is the zero-based column holding the fuel amount (column F).
const DefaultColumn = 5

var (
	// ErrMonthRange is returned for a month outside 1..12.
	ErrMonthRange = errors.New("month out of range")
	// ErrCellMissing is returned when the target row or column has no data.
	ErrCellMissing = errors.New("cell missing")
	// ErrNotNumeric is returned when the target cell does not hold a number.
	ErrNotNumeric = errors.New("cell is not numeric")
)

// Location addresses a cell by zero-based row and column.
type Location struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// String renders the location in A1 notation, e.g. F3 for {2, 5}.
func (l Location) String() string {
	name, err := excelize.CoordinatesToCellName(l.Column+1, l.Row+1)
	if err != nil {
		return fmt.Sprintf("R%dC%d", l.Row+1, l.Column+1)
	}
	return name
}

// LocationForMonth maps a calendar month (1..12) to row month-1.
func LocationForMonth(month, column int) (Location, error) {
	if month < 1 || month > 12 {
		return Location{}, fmt.Errorf("%w: %d", ErrMonthRange, month)
	}
	return Location{Row: month - 1, Column: column}, nil
}

// LocationFor returns the location for the month of t.
func LocationFor(t time.Time, column int) Location {
	loc, _ := LocationForMonth(int(t.Month()), column)
	return loc
}

// Reading is the result of one read.
type Reading struct {
	Path     string   `json:"path"`
	Sheet    string   `json:"sheet"`
	Location Location `json:"location"`
	Raw      string   `json:"raw"`
	Value    float64  `json:"value"`
}

// Reader reads the fuel value for the current month from a spreadsheet.
type Reader struct {
	Path   string
	Sheet  string // empty selects the first sheet
	Column int
	// Month overrides the calendar month when non-zero.
	Month int
	// Now defaults to time.Now.
	Now func() time.Time
}

// File returns the spreadsheet the reader opens.
func (r *Reader) File() string {
	return r.Path
}

// Location returns the cell the reader will read at call time.
func (r *Reader) Location() (Location, error) {
	month := r.Month
	if month == 0 {
		now := time.Now
		if r.Now != nil {
			now = r.Now
		}
		month = int(now().Month())
	}
	return LocationForMonth(month, r.Column)
}

// Read opens the workbook and returns the numeric value at the month's cell.
func (r *Reader) Read() (*Reading, error) {
	loc, err := r.Location()
	if err != nil {
		return nil, err
	}

	wb, err := xlsx.ReadFile(r.Path)
	if err != nil {
		return nil, err
	}
	sheet, err := wb.GetSheet(r.Sheet)
	if err != nil {
		return nil, err
	}

	raw, ok := sheet.Cell(loc.Row, loc.Column)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: %s!%s in %s", ErrCellMissing, sheet.Name, loc, r.Path)
	}

	value, err := ParseValue(raw)
	if err != nil {
		return nil, fmt.Errorf("%s!%s: %w", sheet.Name, loc, err)
	}

	return &Reading{
		Path:     r.Path,
		Sheet:    sheet.Name,
		Location: loc,
		Raw:      raw,
		Value:    value,
	}, nil
}

// ParseValue converts raw cell text into a number. Content that is not a
// finite number is rejected rather than coerced.
func ParseValue(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrNotNumeric, raw)
	}
	return v, nil
}
