package renderermock

import (
	"context"
	"strings"
	"sync"

	"change-approval/internal/domain/document"
)

var (
	_ document.Renderer  = (*Renderer)(nil)
	_ document.Discarder = (*Renderer)(nil)
)

// Renderer is a function-backed mock of document.Renderer. Unfilled
// function fields fall back to an in-memory implementation whose copies
// start from Template.
type Renderer struct {
	Template string

	CopyTemplateFn func(templateID, title, destination string) (document.Handle, error)
	ReplaceFn      func(h document.Handle, values map[string]string) error
	SaveFn         func(h document.Handle) error
	LinkFn         func(h document.Handle) (string, error)

	mu        sync.Mutex
	Copies    int
	Discarded []document.Handle
	Docs      map[string]string
}

func (m *Renderer) CopyTemplate(_ context.Context, templateID, title, destination string) (document.Handle, error) {
	if m.CopyTemplateFn != nil {
		h, err := m.CopyTemplateFn(templateID, title, destination)
		if err != nil {
			return h, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Copies++
	if m.Docs == nil {
		m.Docs = map[string]string{}
	}
	h := document.Handle{ID: destination + "/" + title, Title: title}
	m.Docs[h.ID] = m.Template
	return h, nil
}

func (m *Renderer) Open(_ context.Context, h document.Handle) (document.Handle, error) {
	return h, nil
}

func (m *Renderer) ReplaceAllPlaceholders(_ context.Context, h document.Handle, values map[string]string) error {
	if m.ReplaceFn != nil {
		if err := m.ReplaceFn(h, values); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	body := m.Docs[h.ID]
	for k, v := range values {
		body = strings.ReplaceAll(body, document.Placeholder(k), v)
	}
	m.Docs[h.ID] = body
	return nil
}

func (m *Renderer) Save(_ context.Context, h document.Handle) error {
	if m.SaveFn != nil {
		return m.SaveFn(h)
	}
	return nil
}

func (m *Renderer) ShareableLink(_ context.Context, h document.Handle) (string, error) {
	if m.LinkFn != nil {
		return m.LinkFn(h)
	}
	return "https://docs.example.com/" + h.ID, nil
}

func (m *Renderer) Discard(_ context.Context, h document.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Discarded = append(m.Discarded, h)
	delete(m.Docs, h.ID)
	return nil
}

// Doc returns the rendered body of the copy identified by id.
func (m *Renderer) Doc(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Docs[id]
}
