package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"change-approval/internal/domain/document"

	"github.com/labstack/echo/v4"
)

type fakeLinks struct {
	PresignFn func(ctx context.Context, name string) (string, error)
}

func (f fakeLinks) PresignDocument(ctx context.Context, name string) (string, error) {
	return f.PresignFn(ctx, name)
}

func TestDocumentHandler_Get(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		err      error
		wantCode int
		wantName string
	}{
		{"redirect", "/documents/approved/Change%20A-1a2b.txt", nil, http.StatusFound, "approved/Change A-1a2b.txt"},
		{"missing", "/documents/", document.ErrDocumentNotFound, http.StatusNotFound, ""},
		{"store down", "/documents/a.txt", errors.New("dial tcp: refused"), http.StatusBadGateway, "a.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotName string
			links := fakeLinks{PresignFn: func(_ context.Context, name string) (string, error) {
				gotName = name
				if tt.err != nil {
					return "", tt.err
				}
				return "https://minio.local/change-docs/documents/" + name + "?X-Amz-Expires=3600", nil
			}}
			e := echo.New()
			RegisterDocuments(e, NewDocumentHandler(links))

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if gotName != tt.wantName {
				t.Fatalf("name = %q, want %q", gotName, tt.wantName)
			}
			if tt.wantCode == http.StatusFound && rec.Header().Get(echo.HeaderLocation) == "" {
				t.Fatalf("missing Location header")
			}
		})
	}
}
