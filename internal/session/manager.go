package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"sessiond/internal/core"
)

const contextKey = "sessiond.session"

// ManagerConfig holds the cookie and lifetime settings of new sessions.
type ManagerConfig struct {
	// CookieName is the cookie carrying the session id (default: SESSION)
	CookieName string
	// CookieSecure marks the cookie Secure
	CookieSecure bool
	// MaxInactiveInterval is applied to every new session
	MaxInactiveInterval time.Duration
}

// Manager binds sessions from a Store to echo requests.
type Manager struct {
	store Store
	cfg   ManagerConfig
}

// NewManager creates a Manager backed by store.
func NewManager(store Store, cfg ManagerConfig) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = "SESSION"
	}
	return &Manager{store: store, cfg: cfg}
}

// Store returns the backing session store.
func (m *Manager) Store() Store {
	return m.store
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string {
	return m.cfg.CookieName
}

// requestState tracks the session of one request until it is committed.
type requestState struct {
	m *Manager
	c echo.Context

	session     *Session
	isNew       bool
	hadCookie   bool
	staleID     string
	idChanged   bool
	invalidated bool
	principal   string
	committed   bool
	commitErr   error
}

// Middleware resolves the session named by the request cookie and commits
// it before the response headers are written. Sessions are only created on
// demand through GetOrCreate.
func (m *Manager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			st := &requestState{m: m, c: c}
			if err := st.load(c.Request().Context()); err != nil {
				storeErrors.WithLabelValues("find").Inc()
				slog.Error("failed to load session", "error", err)
				return core.HandleError(c, core.NewStoreError("session store unavailable", err))
			}
			c.Set(contextKey, st)
			c.Response().Before(func() { _ = st.commit() })

			err := next(c)
			if !c.Response().Committed {
				_ = st.commit()
			}
			return err
		}
	}
}

func (st *requestState) load(ctx context.Context) error {
	cookie, err := st.c.Cookie(st.m.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	st.hadCookie = true

	id := decodeCookieValue(cookie.Value)
	sess, err := st.m.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	sess.LastAccessedTime = Now()
	st.session = sess
	return nil
}

func (st *requestState) create() *Session {
	sess := New(st.m.cfg.MaxInactiveInterval)
	if st.principal != "" {
		sess.SetPrincipalName(st.principal)
	}
	st.session = sess
	st.isNew = true
	st.invalidated = false
	sessionsCreated.Inc()
	return sess
}

func (st *requestState) rotate() {
	if st.session == nil {
		return
	}
	if !st.isNew && st.staleID == "" {
		st.staleID = st.session.ID
	}
	st.session.ID = NewID()
	st.idChanged = true
}

func (st *requestState) commit() error {
	if st.committed {
		return st.commitErr
	}
	st.committed = true

	ctx := st.c.Request().Context()

	if st.invalidated {
		if st.hadCookie {
			st.c.SetCookie(st.m.expiredCookie())
		}
		return nil
	}
	if st.session == nil {
		return nil
	}

	if st.staleID != "" {
		if err := st.m.store.DeleteByID(ctx, st.staleID); err != nil && !errors.Is(err, ErrNotFound) {
			storeErrors.WithLabelValues("delete").Inc()
			slog.Warn("failed to delete rotated session", "error", err)
		} else {
			sessionsDeleted.WithLabelValues(reasonRotated).Inc()
		}
	}

	if st.principal != "" && st.session.PrincipalName() == "" {
		st.session.SetPrincipalName(st.principal)
	}

	if err := st.m.store.Save(ctx, st.session); err != nil {
		storeErrors.WithLabelValues("save").Inc()
		slog.Error("failed to save session", "session_id", st.session.ID, "error", err)
		st.commitErr = fmt.Errorf("save session: %w", err)
		return st.commitErr
	}

	if st.isNew || st.idChanged {
		st.c.SetCookie(st.m.sessionCookie(st.session.ID))
	}
	return nil
}

func (m *Manager) sessionCookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    encodeCookieValue(id),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (m *Manager) expiredCookie() *http.Cookie {
	c := m.sessionCookie("")
	c.Value = ""
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}

// The cookie carries the base64 encoded id; raw ids are accepted too.
func encodeCookieValue(id string) string {
	return base64.StdEncoding.EncodeToString([]byte(id))
}

func decodeCookieValue(v string) string {
	b, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return v
	}
	return string(b)
}

func state(c echo.Context) (*requestState, error) {
	st, ok := c.Get(contextKey).(*requestState)
	if !ok {
		return nil, fmt.Errorf("session middleware is not installed")
	}
	return st, nil
}

// Current returns the session of the request, or nil if there is none.
func Current(c echo.Context) *Session {
	st, err := state(c)
	if err != nil || st.invalidated {
		return nil
	}
	return st.session
}

// GetOrCreate returns the session of the request, creating it if needed.
func GetOrCreate(c echo.Context) (*Session, error) {
	st, err := state(c)
	if err != nil {
		return nil, err
	}
	if st.session != nil && !st.invalidated {
		return st.session, nil
	}
	return st.create(), nil
}

// ChangeID gives the current session a new id. The old id is removed from
// the store when the request commits.
func ChangeID(c echo.Context) error {
	st, err := state(c)
	if err != nil {
		return err
	}
	if st.session == nil || st.invalidated {
		return nil
	}
	st.rotate()
	return nil
}

// SetPrincipal records the authenticated username of the request. An
// existing session owned by someone else (or nobody) is re-identified and
// claimed; a session created later in the request is stamped on creation.
func SetPrincipal(c echo.Context, name string) error {
	st, err := state(c)
	if err != nil {
		return err
	}
	st.principal = name
	if st.session != nil && !st.invalidated && st.session.PrincipalName() != name {
		st.rotate()
		st.session.SetPrincipalName(name)
	}
	return nil
}

// Commit saves the request session and sets the cookie right away instead
// of when the response is written. Changes made to the session afterwards
// are not saved.
func Commit(c echo.Context) error {
	st, err := state(c)
	if err != nil {
		return err
	}
	return st.commit()
}

// Invalidate deletes the current session and expires the cookie.
func Invalidate(c echo.Context) error {
	st, err := state(c)
	if err != nil {
		return err
	}
	if st.session == nil || st.invalidated {
		return nil
	}
	if !st.isNew {
		if err := st.m.store.DeleteByID(c.Request().Context(), st.session.ID); err != nil && !errors.Is(err, ErrNotFound) {
			storeErrors.WithLabelValues("delete").Inc()
			return fmt.Errorf("invalidate session: %w", err)
		}
	}
	if st.staleID != "" {
		_ = st.m.store.DeleteByID(c.Request().Context(), st.staleID)
		st.staleID = ""
	}
	st.invalidated = true
	st.session = nil
	sessionsDeleted.WithLabelValues(reasonInvalidated).Inc()
	return nil
}
