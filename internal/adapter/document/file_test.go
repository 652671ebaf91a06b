package document

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"change-approval/internal/domain/document"
)

func newFileRenderer(t *testing.T) (*FileRenderer, string) {
	t.Helper()
	root := t.TempDir()
	tpl := filepath.Join(root, "templates")
	out := filepath.Join(root, "out")
	for _, d := range []string{tpl, filepath.Join(out, "approved")} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	body := "Record {{Record Number}}\nAsset: {{Asset Name}}\nNote: {{Missing}}\n"
	if err := os.WriteFile(filepath.Join(tpl, "change.txt"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return NewFileRenderer(tpl, out, "https://files.example.com/docs/"), out
}

func TestFileRenderer_FullCycle(t *testing.T) {
	r, out := newFileRenderer(t)
	ctx := context.Background()

	h, err := r.CopyTemplate(ctx, "change.txt", "Change Request Form - Core/switch - 2024-03-15", "approved")
	if err != nil {
		t.Fatalf("CopyTemplate: %v", err)
	}
	if !strings.HasPrefix(h.ID, "approved/Change Request Form - Core_switch - 2024-03-15-") || !strings.HasSuffix(h.ID, ".txt") {
		t.Fatalf("handle = %+v", h)
	}
	if h, err = r.Open(ctx, h); err != nil {
		t.Fatalf("Open: %v", err)
	}
	err = r.ReplaceAllPlaceholders(ctx, h, map[string]string{"Record Number": "IS-R-032-240315-01", "Asset Name": "Core switch"})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := r.Save(ctx, h); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(h.ID)))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "Record IS-R-032-240315-01\nAsset: Core switch\nNote: {{Missing}}\n" {
		t.Fatalf("saved body = %q", got)
	}

	link, err := r.ShareableLink(ctx, h)
	if err != nil || !strings.HasPrefix(link, "https://files.example.com/docs/approved/Change%20Request%20Form") {
		t.Fatalf("link = %q, %v", link, err)
	}
}

func TestFileRenderer_Errors(t *testing.T) {
	r, _ := newFileRenderer(t)
	ctx := context.Background()

	if _, err := r.CopyTemplate(ctx, "nope.txt", "t", "approved"); !errors.Is(err, document.ErrTemplateNotFound) {
		t.Fatalf("missing template: %v", err)
	}
	if _, err := r.CopyTemplate(ctx, "change.txt", "t", "archive"); !errors.Is(err, document.ErrDestinationNotFound) {
		t.Fatalf("missing destination: %v", err)
	}

	h, err := r.CopyTemplate(ctx, "change.txt", "t", "approved")
	if err != nil {
		t.Fatal(err)
	}
	if err := r.ReplaceAllPlaceholders(ctx, h, nil); !errors.Is(err, document.ErrDocumentNotOpen) {
		t.Fatalf("replace before open: %v", err)
	}
	if err := r.Save(ctx, h); !errors.Is(err, document.ErrDocumentNotOpen) {
		t.Fatalf("save before open: %v", err)
	}
}

func TestFileRenderer_Discard(t *testing.T) {
	r, out := newFileRenderer(t)
	ctx := context.Background()

	h, err := r.CopyTemplate(ctx, "change.txt", "t", "approved")
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Discard(ctx, h); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(h.ID))); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("copy still present: %v", err)
	}
	if err := r.Discard(ctx, h); err != nil {
		t.Fatalf("second Discard: %v", err)
	}
}

func TestFileRenderer_PathsStayInsideRoots(t *testing.T) {
	r, _ := newFileRenderer(t)
	if _, err := r.CopyTemplate(context.Background(), "../../etc/passwd", "t", "approved"); !errors.Is(err, document.ErrTemplateNotFound) {
		t.Fatalf("escaping template id: %v", err)
	}
}
