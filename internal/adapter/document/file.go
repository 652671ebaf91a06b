package document

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"change-approval/internal/domain/document"
	"change-approval/pkg/id"
)

var (
	_ document.Renderer  = (*FileRenderer)(nil)
	_ document.Discarder = (*FileRenderer)(nil)
)

// FileRenderer renders plain-text templates from a local directory into
// destination folders below an output directory. Links are BaseURL joined
// with the copy's relative path.
type FileRenderer struct {
	templatesDir string
	outputDir    string
	baseURL      string
	docs         buffers
}

func NewFileRenderer(templatesDir, outputDir, baseURL string) *FileRenderer {
	return &FileRenderer{
		templatesDir: templatesDir,
		outputDir:    outputDir,
		baseURL:      strings.TrimRight(baseURL, "/"),
	}
}

func (r *FileRenderer) CopyTemplate(_ context.Context, templateID, title, destination string) (document.Handle, error) {
	src := filepath.Join(r.templatesDir, filepath.Clean("/"+templateID))
	body, err := os.ReadFile(src)
	if errors.Is(err, fs.ErrNotExist) {
		return document.Handle{}, fmt.Errorf("%w: %s", document.ErrTemplateNotFound, templateID)
	}
	if err != nil {
		return document.Handle{}, fmt.Errorf("read template: %w", err)
	}
	dest := cleanRel(filepath.ToSlash(destination))
	if st, err := os.Stat(filepath.Join(r.outputDir, filepath.FromSlash(dest))); err != nil || !st.IsDir() {
		return document.Handle{}, fmt.Errorf("%w: %s", document.ErrDestinationNotFound, destination)
	}

	name := fileName(title) + "-" + id.Suffix() + filepath.Ext(templateID)
	h := document.Handle{ID: path.Join(dest, name), Title: title}
	if err := os.WriteFile(r.path(h), body, 0o644); err != nil {
		return document.Handle{}, fmt.Errorf("write copy: %w", err)
	}
	return h, nil
}

func (r *FileRenderer) Open(_ context.Context, h document.Handle) (document.Handle, error) {
	body, err := os.ReadFile(r.path(h))
	if err != nil {
		return h, fmt.Errorf("open %s: %w", h.ID, err)
	}
	r.docs.put(h.ID, string(body))
	return h, nil
}

func (r *FileRenderer) ReplaceAllPlaceholders(_ context.Context, h document.Handle, values map[string]string) error {
	return r.docs.replace(h.ID, values)
}

func (r *FileRenderer) Save(_ context.Context, h document.Handle) error {
	text, err := r.docs.take(h.ID)
	if err != nil {
		return err
	}
	if err := os.WriteFile(r.path(h), []byte(text), 0o644); err != nil {
		return fmt.Errorf("save %s: %w", h.ID, err)
	}
	return nil
}

func (r *FileRenderer) ShareableLink(_ context.Context, h document.Handle) (string, error) {
	return link(r.baseURL, h.ID), nil
}

func (r *FileRenderer) Discard(_ context.Context, h document.Handle) error {
	r.docs.drop(h.ID)
	if err := os.Remove(r.path(h)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (r *FileRenderer) path(h document.Handle) string {
	return filepath.Join(r.outputDir, filepath.FromSlash(h.ID))
}
