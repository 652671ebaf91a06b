package sheetmock

import (
	"context"
	"sync"

	"change-approval/internal/domain/sheet"
)

var (
	_ sheet.Sheet    = (*Sheet)(nil)
	_ sheet.Workbook = (*Workbook)(nil)
)

// Sheet is an in-memory sheet.Sheet. Row 1 holds the headers.
// Counters record how often each read was issued; the Fn hooks inject failures.
type Sheet struct {
	mu   sync.Mutex
	name string
	rows [][]string

	ReadRowCalls   int
	ReadRangeCalls int
	Writes         int

	WriteCellFn func(row, col int, value string) error
	AppendRowFn func(values []string) error
	ReadRowFn   func(row int) error
}

func NewSheet(name string, headers ...string) *Sheet {
	s := &Sheet{name: name}
	if len(headers) > 0 {
		s.rows = append(s.rows, append([]string(nil), headers...))
	}
	return s
}

// AddRow appends a data row without going through the hooks.
func (s *Sheet) AddRow(values ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, append([]string(nil), values...))
	return len(s.rows)
}

// Cell returns the value at row/col, or "" when absent.
func (s *Sheet) Cell(row, col int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row < 1 || row > len(s.rows) || col < 1 || col > len(s.rows[row-1]) {
		return ""
	}
	return s.rows[row-1][col-1]
}

func (s *Sheet) Name() string { return s.name }

func (s *Sheet) ReadRow(_ context.Context, row int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ReadRowCalls++
	if s.ReadRowFn != nil {
		if err := s.ReadRowFn(row); err != nil {
			return nil, err
		}
	}
	if row < 1 || row > len(s.rows) {
		return nil, sheet.ErrRowOutOfRange
	}
	return append([]string(nil), s.rows[row-1]...), nil
}

func (s *Sheet) ReadRange(_ context.Context, rowStart, colStart, rowCount, colCount int) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ReadRangeCalls++
	out := make([][]string, rowCount)
	for i := range out {
		out[i] = make([]string, colCount)
		r := rowStart + i
		if r < 1 || r > len(s.rows) {
			continue
		}
		for j := range out[i] {
			c := colStart + j
			if c >= 1 && c <= len(s.rows[r-1]) {
				out[i][j] = s.rows[r-1][c-1]
			}
		}
	}
	return out, nil
}

func (s *Sheet) WriteCell(_ context.Context, row, col int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteCellFn != nil {
		if err := s.WriteCellFn(row, col, value); err != nil {
			return err
		}
	}
	if row < 1 || row > len(s.rows) {
		return sheet.ErrRowOutOfRange
	}
	if col < 1 {
		return sheet.ErrColumnOutOfRange
	}
	s.rows[row-1] = sheet.Pad(s.rows[row-1], col)
	s.rows[row-1][col-1] = value
	s.Writes++
	return nil
}

func (s *Sheet) AppendRow(_ context.Context, values []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AppendRowFn != nil {
		if err := s.AppendRowFn(values); err != nil {
			return 0, err
		}
	}
	s.rows = append(s.rows, append([]string(nil), values...))
	return len(s.rows), nil
}

func (s *Sheet) LastRowIndex(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows), nil
}

func (s *Sheet) LastColumnIndex(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.rows {
		if len(r) > n {
			n = len(r)
		}
	}
	return n, nil
}

func (s *Sheet) HeaderRow(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rows) == 0 {
		return nil, nil
	}
	return append([]string(nil), s.rows[0]...), nil
}

// Workbook is an in-memory sheet.Workbook.
type Workbook struct {
	mu     sync.Mutex
	sheets map[string]*Sheet
}

func NewWorkbook(sheets ...*Sheet) *Workbook {
	w := &Workbook{sheets: map[string]*Sheet{}}
	for _, s := range sheets {
		w.sheets[s.Name()] = s
	}
	return w
}

func (w *Workbook) Add(s *Sheet) {
	w.mu.Lock()
	w.sheets[s.Name()] = s
	w.mu.Unlock()
}

func (w *Workbook) Sheet(_ context.Context, name string) (sheet.Sheet, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.sheets[name]
	if !ok {
		return nil, sheet.ErrSheetNotFound
	}
	return s, nil
}
