package sheet

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrSheetNotFound    = errors.New("sheet not found")
	ErrRowOutOfRange    = errors.New("row out of range")
	ErrColumnOutOfRange = errors.New("column out of range")
)

// HeaderRowIndex is the 1-based row holding column names. Data starts below it.
const HeaderRowIndex = 1

// Sheet is a tabular store addressed by 1-based row and column numbers.
// Cells are strings; timestamps are stored with FormatTime.
type Sheet interface {
	Name() string
	ReadRow(ctx context.Context, row int) ([]string, error)
	ReadRange(ctx context.Context, rowStart, colStart, rowCount, colCount int) ([][]string, error)
	WriteCell(ctx context.Context, row, col int, value string) error
	// AppendRow writes values below the last row and returns the new row number.
	AppendRow(ctx context.Context, values []string) (int, error)
	LastRowIndex(ctx context.Context) (int, error)
	LastColumnIndex(ctx context.Context) (int, error)
	HeaderRow(ctx context.Context) ([]string, error)
}

// Workbook resolves sheets by name.
type Workbook interface {
	Sheet(ctx context.Context, name string) (Sheet, error)
}

// FormatTime renders t for storage in a cell.
func FormatTime(t time.Time) string { return t.Format(time.RFC3339) }

// ParseTime reads a cell written by FormatTime.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Pad returns row extended with blanks to at least n cells.
func Pad(row []string, n int) []string {
	if len(row) >= n {
		return row
	}
	out := make([]string, n)
	copy(out, row)
	return out
}
