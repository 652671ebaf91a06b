package http

import "github.com/labstack/echo/v4"

// Register mounts every route on e. idem guards the mutating routes.
func Register(e *echo.Echo, h *Handler, apps *ApplicationHandler, cat *CatalogHandler, idem echo.MiddlewareFunc) {
	e.GET("/health", h.Health)

	e.GET("/options", cat.Options)
	e.GET("/assets", cat.Assets)

	e.GET("/applications", apps.List)
	e.GET("/approvals/pending", apps.Pending)

	e.POST("/applications", apps.Submit, idem)
	e.POST("/approvals/batch", apps.BatchApprove, idem)
	e.POST("/applications/:row/reject", apps.Reject, idem)
	e.POST("/applications/:row/document", apps.CreateDocument, idem)
}
