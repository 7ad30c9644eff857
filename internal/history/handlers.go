package history

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handlers exposes the playback dispatch log over HTTP.
type Handlers struct {
	service *Service
}

// NewHandlers creates the history endpoint handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers history routes on an Echo group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.DELETE("", h.Clear)
}

// List returns dispatched playback events, newest first.
// GET /api/v1/history?eventType=playback&mediaType=movie&page=1&pageSize=50
func (h *Handlers) List(c echo.Context) error {
	opts := ListOptions{
		EventType: c.QueryParam("eventType"),
		MediaType: c.QueryParam("mediaType"),
		Page:      positiveIntParam(c, "page", 1),
		PageSize:  positiveIntParam(c, "pageSize", 50),
	}

	result, err := h.service.List(c.Request().Context(), opts)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, result)
}

// Clear wipes the dispatch log.
// DELETE /api/v1/history
func (h *Handlers) Clear(c echo.Context) error {
	if err := h.service.DeleteAll(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// positiveIntParam reads a positive integer query parameter, falling back
// to def when the value is absent or malformed.
func positiveIntParam(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return def
	}
	return v
}
