package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Catalog interface {
	Options(ctx context.Context) map[string][]string
	Assets(ctx context.Context) []map[string]string
}

type CatalogHandler struct{ cat Catalog }

func NewCatalogHandler(cat Catalog) *CatalogHandler { return &CatalogHandler{cat: cat} }

func (h *CatalogHandler) Options(c echo.Context) error {
	return c.JSON(http.StatusOK, h.cat.Options(c.Request().Context()))
}

func (h *CatalogHandler) Assets(c echo.Context) error {
	return c.JSON(http.StatusOK, h.cat.Assets(c.Request().Context()))
}
