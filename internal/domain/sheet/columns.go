package sheet

import (
	"context"
	"strings"

	"change-approval/internal/domain/apperr"
)

// Columns maps header names to 1-based column numbers. When a header is
// repeated the leftmost column wins.
type Columns struct {
	headers []string
	index   map[string]int
}

func NewColumns(headers []string) Columns {
	c := Columns{headers: make([]string, len(headers)), index: make(map[string]int, len(headers))}
	for i, h := range headers {
		h = strings.TrimSpace(h)
		c.headers[i] = h
		if h == "" {
			continue
		}
		if _, dup := c.index[h]; !dup {
			c.index[h] = i + 1
		}
	}
	return c
}

// LoadColumns reads the header row of s.
func LoadColumns(ctx context.Context, s Sheet) (Columns, error) {
	headers, err := s.HeaderRow(ctx)
	if err != nil {
		return Columns{}, apperr.External(err, "read header row of %q", s.Name())
	}
	return NewColumns(headers), nil
}

// Index returns the column number of name, or 0 when absent.
func (c Columns) Index(name string) int { return c.index[name] }

func (c Columns) Has(name string) bool { return c.index[name] > 0 }

// Require fails with a configuration error naming the first missing header.
func (c Columns) Require(names ...string) error {
	for _, n := range names {
		if !c.Has(n) {
			return apperr.Configuration("missing column %q", n)
		}
	}
	return nil
}

// Get returns the cell under name in row, or "" when the column or cell is absent.
func (c Columns) Get(row []string, name string) string {
	i := c.index[name]
	if i == 0 || i > len(row) {
		return ""
	}
	return row[i-1]
}

func (c Columns) Headers() []string { return append([]string(nil), c.headers...) }

func (c Columns) Len() int { return len(c.headers) }

// Map projects row into header -> value. Blank headers are skipped.
func (c Columns) Map(row []string) map[string]string {
	out := make(map[string]string, len(c.index))
	for name := range c.index {
		out[name] = c.Get(row, name)
	}
	return out
}
