package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"change-approval/internal/domain/document"

	"github.com/labstack/echo/v4"
)

type DocumentLinks interface {
	PresignDocument(ctx context.Context, name string) (string, error)
}

// DocumentHandler serves the stable document links by redirecting to a
// freshly presigned object URL.
type DocumentHandler struct{ links DocumentLinks }

func NewDocumentHandler(links DocumentLinks) *DocumentHandler {
	return &DocumentHandler{links: links}
}

func (h *DocumentHandler) Get(c echo.Context) error {
	name := c.Param("*")
	if un, err := url.PathUnescape(name); err == nil {
		name = un
	}
	target, err := h.links.PresignDocument(c.Request().Context(), name)
	switch {
	case errors.Is(err, document.ErrDocumentNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "document not found"})
	case err != nil:
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
	}
	return c.Redirect(http.StatusFound, target)
}

// RegisterDocuments mounts GET /documents/* on e.
func RegisterDocuments(e *echo.Echo, h *DocumentHandler) {
	e.GET("/documents/*", h.Get)
}
