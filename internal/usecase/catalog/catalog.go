package catalog

import (
	"context"
	"strings"

	"change-approval/internal/domain/sheet"

	"github.com/sirupsen/logrus"
)

type Config struct {
	OptionsSheet  string
	OptionHeaders []string
	AssetsSheet   string
}

// Catalog serves the lookup lists shown on the submission form. Lookup
// failures are logged and yield empty lists so the form still loads.
type Catalog struct {
	book sheet.Workbook
	cfg  Config
	log  logrus.FieldLogger
}

func New(book sheet.Workbook, cfg Config, log logrus.FieldLogger) *Catalog {
	return &Catalog{book: book, cfg: cfg, log: log}
}

// Options returns, per configured header, the distinct non-blank values of
// that column in sheet order. Every configured header is present in the result.
func (c *Catalog) Options(ctx context.Context) map[string][]string {
	out := make(map[string][]string, len(c.cfg.OptionHeaders))
	for _, h := range c.cfg.OptionHeaders {
		out[h] = []string{}
	}
	cols, rows, err := c.read(ctx, c.cfg.OptionsSheet)
	if err != nil {
		c.log.WithError(err).WithField("sheet", c.cfg.OptionsSheet).Warn("options unavailable")
		return out
	}
	for _, h := range c.cfg.OptionHeaders {
		if !cols.Has(h) {
			c.log.WithField("header", h).Warn("options column missing")
			continue
		}
		seen := map[string]bool{}
		for _, r := range rows {
			v := strings.TrimSpace(cols.Get(r, h))
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out[h] = append(out[h], v)
		}
	}
	return out
}

// Assets returns the asset sheet rows below the header, keyed by header.
// Fully blank rows are skipped.
func (c *Catalog) Assets(ctx context.Context) []map[string]string {
	out := []map[string]string{}
	cols, rows, err := c.read(ctx, c.cfg.AssetsSheet)
	if err != nil {
		c.log.WithError(err).WithField("sheet", c.cfg.AssetsSheet).Warn("assets unavailable")
		return out
	}
	for _, r := range rows {
		m := cols.Map(r)
		blank := true
		for k, v := range m {
			v = strings.TrimSpace(v)
			m[k] = v
			if v != "" {
				blank = false
			}
		}
		if !blank {
			out = append(out, m)
		}
	}
	return out
}

func (c *Catalog) read(ctx context.Context, name string) (sheet.Columns, [][]string, error) {
	sh, err := c.book.Sheet(ctx, name)
	if err != nil {
		return sheet.Columns{}, nil, err
	}
	cols, err := sheet.LoadColumns(ctx, sh)
	if err != nil {
		return sheet.Columns{}, nil, err
	}
	last, err := sh.LastRowIndex(ctx)
	if err != nil || last <= sheet.HeaderRowIndex || cols.Len() == 0 {
		return cols, nil, err
	}
	rows, err := sh.ReadRange(ctx, sheet.HeaderRowIndex+1, 1, last-sheet.HeaderRowIndex, cols.Len())
	return cols, rows, err
}
