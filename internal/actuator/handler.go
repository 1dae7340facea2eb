// Package actuator provides the management endpoints: discovery, health,
// session listing and deletion, and Prometheus metrics.
package actuator

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sessiond/internal/core"
	"sessiond/internal/session"
)

// BasePath is where the management endpoints are mounted.
const BasePath = "/actuator"

const healthTimeout = 5 * time.Second

// Handler serves the management endpoints.
type Handler struct {
	store          session.Store
	storeType      string
	metricsEnabled bool
}

// NewHandler creates a management handler over store. storeType is reported
// in the health details.
func NewHandler(store session.Store, storeType string, metricsEnabled bool) *Handler {
	return &Handler{
		store:          store,
		storeType:      storeType,
		metricsEnabled: metricsEnabled,
	}
}

// Register mounts the endpoints on e under BasePath.
func (h *Handler) Register(e *echo.Echo) {
	g := e.Group(BasePath)
	g.GET("", h.Links)
	g.GET("/health", h.Health)
	g.GET("/sessions", h.ListSessions)
	g.GET("/sessions/:id", h.GetSession)
	g.DELETE("/sessions/:id", h.DeleteSession)
	if h.metricsEnabled {
		g.GET("/prometheus", echo.WrapHandler(promhttp.Handler()))
	}
}

// Links handles GET /actuator
//
// @Summary      List management endpoints
// @Tags         actuator
// @Produce      json
// @Security     BasicAuth
// @Success      200  {object}  actuator.LinksResponse
// @Failure      401  {object}  core.APIError
// @Router       /actuator [get]
func (h *Handler) Links(c echo.Context) error {
	base := requestBase(c) + BasePath
	links := map[string]Link{
		"self":        {Href: base},
		"health":      {Href: base + "/health"},
		"sessions":    {Href: base + "/sessions"},
		"sessions-id": {Href: base + "/sessions/{id}", Templated: true},
	}
	if h.metricsEnabled {
		links["prometheus"] = Link{Href: base + "/prometheus"}
	}
	return c.JSON(http.StatusOK, LinksResponse{Links: links})
}

// Health handles GET /actuator/health
//
// @Summary      Report service health
// @Tags         actuator
// @Produce      json
// @Success      200  {object}  actuator.HealthResponse
// @Failure      503  {object}  actuator.HealthResponse
// @Router       /actuator/health [get]
func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	component := ComponentHealth{
		Status:  StatusUp,
		Details: map[string]any{"type": h.storeType},
	}
	status := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		slog.Warn("session store health check failed", "type", h.storeType, "error", err)
		component.Status = StatusDown
		component.Details["error"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	return c.JSON(status, HealthResponse{
		Status:     component.Status,
		Components: map[string]ComponentHealth{"sessionStore": component},
	})
}

// ListSessions handles GET /actuator/sessions
//
// @Summary      List the sessions of a user
// @Tags         actuator
// @Produce      json
// @Security     BasicAuth
// @Param        username  query     string  true  "Principal name"
// @Success      200  {object}  actuator.SessionsResponse
// @Failure      400  {object}  core.APIError
// @Failure      401  {object}  core.APIError
// @Failure      503  {object}  core.APIError
// @Router       /actuator/sessions [get]
func (h *Handler) ListSessions(c echo.Context) error {
	username := strings.TrimSpace(c.QueryParam("username"))
	if username == "" {
		return core.HandleError(c, core.NewInvalidRequestError("username query parameter is required", nil))
	}

	sessions, err := h.store.FindByPrincipalName(c.Request().Context(), username)
	if err != nil {
		return core.HandleError(c, core.NewStoreError("failed to list sessions", err))
	}

	now := time.Now()
	out := make([]SessionDescriptor, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, describe(s, now))
	}
	return c.JSON(http.StatusOK, SessionsResponse{Sessions: out})
}

// GetSession handles GET /actuator/sessions/{id}
//
// @Summary      Get one session
// @Tags         actuator
// @Produce      json
// @Security     BasicAuth
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  actuator.SessionDescriptor
// @Failure      401  {object}  core.APIError
// @Failure      404  {object}  core.APIError
// @Failure      503  {object}  core.APIError
// @Router       /actuator/sessions/{id} [get]
func (h *Handler) GetSession(c echo.Context) error {
	s, err := h.store.FindByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return core.HandleError(c, lookupError(err))
	}
	return c.JSON(http.StatusOK, describe(s, time.Now()))
}

// DeleteSession handles DELETE /actuator/sessions/{id}
//
// @Summary      Delete one session
// @Tags         actuator
// @Security     BasicAuth
// @Param        id   path      string  true  "Session ID"
// @Success      204
// @Failure      401  {object}  core.APIError
// @Failure      404  {object}  core.APIError
// @Failure      503  {object}  core.APIError
// @Router       /actuator/sessions/{id} [delete]
func (h *Handler) DeleteSession(c echo.Context) error {
	id := c.Param("id")
	if cur := session.Current(c); cur != nil && cur.ID == id {
		// The caller's own session is also dropped from the request so it
		// is not saved again on commit.
		if err := session.Invalidate(c); err != nil {
			return core.HandleError(c, core.NewStoreError("failed to delete session", err))
		}
	} else if err := h.store.DeleteByID(c.Request().Context(), id); err != nil {
		return core.HandleError(c, lookupError(err))
	}
	session.RecordAdminDelete()
	slog.Info("session deleted", "session_id", id)
	return c.NoContent(http.StatusNoContent)
}

func lookupError(err error) error {
	if errors.Is(err, session.ErrNotFound) {
		return core.NewNotFoundError("session not found")
	}
	return core.NewStoreError("session store unavailable", err)
}

func requestBase(c echo.Context) string {
	return c.Scheme() + "://" + c.Request().Host
}
