package document

import (
	"net/url"
	"path"
	"strings"
	"sync"

	"change-approval/internal/domain/document"
)

// buffers holds the text of opened copies until they are saved.
type buffers struct {
	mu   sync.Mutex
	open map[string]string
}

func (b *buffers) put(id, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.open == nil {
		b.open = map[string]string{}
	}
	b.open[id] = text
}

func (b *buffers) replace(id string, values map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	text, ok := b.open[id]
	if !ok {
		return document.ErrDocumentNotOpen
	}
	pairs := make([]string, 0, 2*len(values))
	for k, v := range values {
		pairs = append(pairs, document.Placeholder(k), v)
	}
	b.open[id] = strings.NewReplacer(pairs...).Replace(text)
	return nil
}

// take returns the text of id and forgets it.
func (b *buffers) take(id string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	text, ok := b.open[id]
	if !ok {
		return "", document.ErrDocumentNotOpen
	}
	delete(b.open, id)
	return text, nil
}

func (b *buffers) drop(id string) {
	b.mu.Lock()
	delete(b.open, id)
	b.mu.Unlock()
}

// fileName turns a document title into a safe file or object name.
func fileName(title string) string {
	f := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	if f == "" {
		f = "document"
	}
	return f
}

// link joins baseURL and the slash separated rel, escaping each segment.
func link(baseURL, rel string) string {
	parts := strings.Split(rel, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.Join(parts, "/")
}

// cleanRel confines rel below its root: no leading slash, no "..".
func cleanRel(rel string) string {
	return strings.Trim(path.Clean("/"+rel), "/")
}
