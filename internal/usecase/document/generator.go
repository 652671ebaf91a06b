package document

import (
	"context"
	"errors"
	"strings"
	"time"

	"change-approval/internal/domain/apperr"
	domain "change-approval/internal/domain/document"
	"change-approval/internal/domain/record"
	"change-approval/internal/domain/sheet"

	"github.com/sirupsen/logrus"
)

const (
	titleDateLayout = "2006-01-02"
	fieldDateLayout = "2006/01/02"
)

type Config struct {
	TemplateID  string
	Destination string
	// Label prefixes every document title.
	Label    string
	Location *time.Location
}

// Generator renders an approved record into a document and links it back
// onto the record.
type Generator struct {
	renderer domain.Renderer
	cfg      Config
	log      logrus.FieldLogger
}

func NewGenerator(r domain.Renderer, cfg Config, log logrus.FieldLogger) *Generator {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Generator{renderer: r, cfg: cfg, log: log}
}

// Title derives the document name from the record's asset and submission date.
func (g *Generator) Title(fields map[string]string) string {
	date := fields[record.HeaderSubmittedAt]
	if t, ok := sheet.ParseTime(date); ok {
		date = t.In(g.cfg.Location).Format(titleDateLayout)
	}
	return g.cfg.Label + " - " + fields[record.HeaderAssetName] + " - " + date
}

// Generate renders row into a new document and returns its link. When the
// row already has a link it is returned unchanged and nothing is rendered.
func (g *Generator) Generate(ctx context.Context, sh sheet.Sheet, row int, cols sheet.Columns, recordNumber string) (string, error) {
	if strings.TrimSpace(recordNumber) == "" {
		return "", apperr.InvalidInput("row %d has no record number", row)
	}
	if g.cfg.TemplateID == "" || g.cfg.Destination == "" {
		return "", apperr.Configuration("document template and destination must be configured")
	}

	values, err := sh.ReadRow(ctx, row)
	if errors.Is(err, sheet.ErrRowOutOfRange) {
		return "", apperr.InvalidInput("row %d does not exist", row)
	}
	if err != nil {
		return "", apperr.External(err, "read row %d", row)
	}
	linkCol := cols.Index(record.HeaderDocumentLink)
	if existing := strings.TrimSpace(cols.Get(values, record.HeaderDocumentLink)); linkCol > 0 && existing != "" {
		return existing, nil
	}

	fields := cols.Map(values)
	fields[record.HeaderRecordNumber] = recordNumber
	title := g.Title(fields)

	h, err := g.renderer.CopyTemplate(ctx, g.cfg.TemplateID, title, g.cfg.Destination)
	switch {
	case errors.Is(err, domain.ErrTemplateNotFound), errors.Is(err, domain.ErrDestinationNotFound):
		return "", &apperr.Error{Kind: apperr.KindConfiguration, Msg: "copy document template", Err: err}
	case err != nil:
		return "", apperr.External(err, "copy document template")
	}

	link, err := g.fill(ctx, h, cols, fields)
	if err == nil && linkCol > 0 {
		if werr := sh.WriteCell(ctx, row, linkCol, link); werr != nil {
			err = apperr.External(werr, "write document link to row %d", row)
		}
	}
	if err != nil {
		g.discard(ctx, h, row, err)
		return "", err
	}
	g.log.WithFields(logrus.Fields{"row": row, "record_number": recordNumber, "document": h.ID}).Info("document generated")
	return link, nil
}

func (g *Generator) fill(ctx context.Context, h domain.Handle, cols sheet.Columns, fields map[string]string) (string, error) {
	opened, err := g.renderer.Open(ctx, h)
	if err != nil {
		return "", apperr.External(err, "open document %s", h.ID)
	}
	h = opened
	replacements := make(map[string]string, cols.Len())
	for _, header := range cols.Headers() {
		if header == "" {
			continue
		}
		replacements[header] = g.fieldValue(fields[header])
	}
	if err := g.renderer.ReplaceAllPlaceholders(ctx, h, replacements); err != nil {
		return "", apperr.External(err, "fill document %s", h.ID)
	}
	if err := g.renderer.Save(ctx, h); err != nil {
		return "", apperr.External(err, "save document %s", h.ID)
	}
	link, err := g.renderer.ShareableLink(ctx, h)
	if err != nil {
		return "", apperr.External(err, "link document %s", h.ID)
	}
	return link, nil
}

// fieldValue renders timestamps as yyyy/MM/dd; other values pass through.
func (g *Generator) fieldValue(v string) string {
	if t, ok := sheet.ParseTime(v); ok {
		return t.In(g.cfg.Location).Format(fieldDateLayout)
	}
	return v
}

// discard removes a copy that will never be linked, when the renderer can.
func (g *Generator) discard(ctx context.Context, h domain.Handle, row int, cause error) {
	entry := g.log.WithFields(logrus.Fields{"row": row, "document": h.ID}).WithError(cause)
	d, ok := g.renderer.(domain.Discarder)
	if !ok {
		entry.Warn("document generation failed after copy; orphaned copy needs manual cleanup")
		return
	}
	if err := d.Discard(ctx, h); err != nil {
		entry.WithField("discard_error", err.Error()).Warn("document generation failed after copy; discarding the copy also failed")
		return
	}
	entry.Warn("document generation failed after copy; copy discarded")
}
