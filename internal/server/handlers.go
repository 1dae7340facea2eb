// Package server provides HTTP handlers and server setup for sessiond.
package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"sessiond/internal/core"
	"sessiond/internal/session"
)

// UIDAttribute is the session attribute holding the per-session identifier.
const UIDAttribute = "uid"

// Handler holds the application HTTP handlers
type Handler struct{}

// NewHandler creates a new handler
func NewHandler() *Handler {
	return &Handler{}
}

// Index handles GET /
//
// @Summary      Create or reuse the caller's session
// @Description  Ensures the session carries a uid attribute and returns it.
// @Tags         session
// @Produce      plain
// @Security     BasicAuth
// @Success      200  {string}  string  "session uid"
// @Failure      401  {object}  core.APIError
// @Failure      503  {object}  core.APIError
// @Router       / [get]
func (h *Handler) Index(c echo.Context) error {
	s, err := session.GetOrCreate(c)
	if err != nil {
		return handleError(c, err)
	}

	v, _ := s.GetAttribute(UIDAttribute)
	uid, _ := v.(string)
	if uid == "" {
		uid = session.NewID()
		s.SetAttribute(UIDAttribute, uid)
	}
	if err := session.Commit(c); err != nil {
		return handleError(c, core.NewStoreError("failed to save session", err))
	}
	return c.String(http.StatusOK, uid)
}

// Logout handles POST /logout
//
// @Summary      Invalidate the caller's session
// @Tags         session
// @Security     BasicAuth
// @Success      204
// @Failure      401  {object}  core.APIError
// @Router       /logout [post]
func (h *Handler) Logout(c echo.Context) error {
	if err := session.Invalidate(c); err != nil {
		return handleError(c, core.NewStoreError("failed to invalidate session", err))
	}
	return c.NoContent(http.StatusNoContent)
}

func handleError(c echo.Context, err error) error {
	return core.HandleError(c, err)
}
