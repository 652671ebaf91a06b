package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"change-approval/internal/adapter/middleware"
	"change-approval/internal/domain/apperr"

	"github.com/labstack/echo/v4"
)

// Check reports whether a dependency is reachable.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type Handler struct{ checks []Check }

func NewHandler(checks ...Check) *Handler { return &Handler{checks: checks} }

// Health answers 200 when every check passes and 503 otherwise.
func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	results := make(map[string]string, len(h.checks))
	for _, chk := range h.checks {
		if err := chk.Ping(ctx); err != nil {
			results[chk.Name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		results[chk.Name] = "ok"
	}
	return c.JSON(code, map[string]any{
		"status": status,
		"checks": results,
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// actor returns the acting user's email, lower-cased, or "" when absent.
func actor(c echo.Context) string {
	return strings.ToLower(strings.TrimSpace(c.Request().Header.Get(middleware.HeaderUserEmail)))
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindInvalidInput:
		return http.StatusUnprocessableEntity
	case apperr.KindPermission:
		return http.StatusForbidden
	case apperr.KindConfiguration:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func errorJSON(c echo.Context, err error) error {
	return c.JSON(statusFor(apperr.KindOf(err)), ErrorResponse{Error: err.Error()})
}

func invalidBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
}

func validationFailed(c echo.Context, err error) error {
	return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "validation failed",
		Details: ToFieldErrors(err),
	})
}
