package document

import (
	"context"
	"errors"
)

var (
	ErrTemplateNotFound    = errors.New("document template not found")
	ErrDestinationNotFound = errors.New("document destination not found")
	ErrDocumentNotOpen     = errors.New("document is not open")
	ErrDocumentNotFound    = errors.New("document not found")
)

// Handle identifies a rendered copy of a template.
type Handle struct {
	ID    string
	Title string
}

// Renderer copies templates and substitutes {{field}} placeholders in the
// copy's body and header/footer regions.
type Renderer interface {
	CopyTemplate(ctx context.Context, templateID, title, destination string) (Handle, error)
	Open(ctx context.Context, h Handle) (Handle, error)
	// ReplaceAllPlaceholders replaces {{key}} with value for every entry.
	ReplaceAllPlaceholders(ctx context.Context, h Handle, values map[string]string) error
	Save(ctx context.Context, h Handle) error
	ShareableLink(ctx context.Context, h Handle) (string, error)
}

// Discarder is implemented by renderers able to delete a copy that never
// got linked to its record.
type Discarder interface {
	Discard(ctx context.Context, h Handle) error
}

// Placeholder returns the token substituted for field.
func Placeholder(field string) string { return "{{" + field + "}}" }
