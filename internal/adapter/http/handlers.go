package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type Handler struct{ metrics http.Handler }

// NewHandler serves health and, when metrics is non-nil, the metrics scrape.
func NewHandler(metrics http.Handler) *Handler { return &Handler{metrics: metrics} }

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (h *Handler) Metrics(c echo.Context) error {
	if h.metrics == nil {
		return c.NoContent(http.StatusNotFound)
	}
	h.metrics.ServeHTTP(c.Response(), c.Request())
	return nil
}
