package actuator

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"sessiond/internal/session"
)

// brokenStore fails every operation.
type brokenStore struct {
	*session.MemoryStore
}

var errUnreachable = errors.New("connection refused")

func (brokenStore) FindByID(context.Context, string) (*session.Session, error) {
	return nil, errUnreachable
}

func (brokenStore) DeleteByID(context.Context, string) error {
	return errUnreachable
}

func (brokenStore) FindByPrincipalName(context.Context, string) ([]*session.Session, error) {
	return nil, errUnreachable
}

func (brokenStore) Ping(context.Context) error {
	return errUnreachable
}

func newTestServer(store session.Store, metrics bool) *echo.Echo {
	e := echo.New()
	NewHandler(store, "memory", metrics).Register(e)
	return e
}

func serve(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func seed(t *testing.T, store session.Store, principal string) *session.Session {
	t.Helper()
	s := session.New(30 * time.Minute)
	s.SetAttribute("uid", session.NewID())
	s.SetPrincipalName(principal)
	require.NoError(t, store.Save(context.Background(), s))
	return s
}

func TestListSessions(t *testing.T) {
	store := session.NewMemoryStore()
	s := seed(t, store, "user")
	seed(t, store, "admin")
	e := newTestServer(store, false)

	rec := serve(e, http.MethodGet, "/actuator/sessions?username=user")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	sessions := gjson.Get(body, "sessions").Array()
	require.Len(t, sessions, 1)
	assert.Equal(t, s.ID, sessions[0].Get("id").String())
	assert.Equal(t, int64(1800), sessions[0].Get("maxInactiveInterval").Int())
	assert.False(t, sessions[0].Get("expired").Bool())
	assert.ElementsMatch(t,
		[]string{"uid", session.PrincipalNameAttribute},
		[]string{sessions[0].Get("attributeNames.0").String(), sessions[0].Get("attributeNames.1").String()})
	assert.True(t, sessions[0].Get("creationTime").Exists())
	assert.True(t, sessions[0].Get("lastAccessedTime").Exists())
}

func TestListSessionsEmpty(t *testing.T) {
	e := newTestServer(session.NewMemoryStore(), false)

	rec := serve(e, http.MethodGet, "/actuator/sessions?username=nobody")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sessions":[]}`, rec.Body.String())
}

func TestListSessionsRequiresUsername(t *testing.T) {
	e := newTestServer(session.NewMemoryStore(), false)

	rec := serve(e, http.MethodGet, "/actuator/sessions")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request_error", gjson.Get(rec.Body.String(), "error.type").String())
}

func TestGetSession(t *testing.T) {
	store := session.NewMemoryStore()
	s := seed(t, store, "user")
	e := newTestServer(store, false)

	rec := serve(e, http.MethodGet, "/actuator/sessions/"+s.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, s.ID, gjson.Get(rec.Body.String(), "id").String())

	rec = serve(e, http.MethodGet, "/actuator/sessions/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found_error", gjson.Get(rec.Body.String(), "error.type").String())
}

func TestDeleteSession(t *testing.T) {
	store := session.NewMemoryStore()
	s := seed(t, store, "user")
	e := newTestServer(store, false)

	rec := serve(e, http.MethodDelete, "/actuator/sessions/"+s.ID)
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, err := store.FindByID(context.Background(), s.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)

	rec = serve(e, http.MethodDelete, "/actuator/sessions/"+s.ID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStoreFailures(t *testing.T) {
	e := newTestServer(brokenStore{session.NewMemoryStore()}, false)

	tests := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/actuator/sessions?username=user"},
		{http.MethodGet, "/actuator/sessions/abc"},
		{http.MethodDelete, "/actuator/sessions/abc"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			rec := serve(e, tt.method, tt.target)
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			assert.Equal(t, "store_error", gjson.Get(rec.Body.String(), "error.type").String())
			assert.NotContains(t, rec.Body.String(), "connection refused")
		})
	}
}

func TestHealth(t *testing.T) {
	rec := serve(newTestServer(session.NewMemoryStore(), false), http.MethodGet, "/actuator/health")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, StatusUp, gjson.Get(body, "status").String())
	assert.Equal(t, StatusUp, gjson.Get(body, "components.sessionStore.status").String())
	assert.Equal(t, "memory", gjson.Get(body, "components.sessionStore.details.type").String())
}

func TestHealthDown(t *testing.T) {
	rec := serve(newTestServer(brokenStore{session.NewMemoryStore()}, false), http.MethodGet, "/actuator/health")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, StatusDown, gjson.Get(rec.Body.String(), "status").String())
}

func TestLinks(t *testing.T) {
	rec := serve(newTestServer(session.NewMemoryStore(), true), http.MethodGet, "/actuator")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, "http://example.com/actuator/sessions", gjson.Get(body, "_links.sessions.href").String())
	assert.True(t, gjson.Get(body, "_links.sessions-id.templated").Bool())
	assert.True(t, gjson.Get(body, "_links.prometheus").Exists())

	rec = serve(newTestServer(session.NewMemoryStore(), false), http.MethodGet, "/actuator")
	assert.False(t, gjson.Get(rec.Body.String(), "_links.prometheus").Exists())
}

func TestPrometheus(t *testing.T) {
	store := session.NewMemoryStore()
	s := seed(t, store, "user")
	e := newTestServer(store, true)
	require.Equal(t, http.StatusNoContent, serve(e, http.MethodDelete, "/actuator/sessions/"+s.ID).Code)

	rec := serve(e, http.MethodGet, "/actuator/prometheus")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `sessiond_sessions_deleted_total{reason="admin"}`)

	rec = serve(newTestServer(store, false), http.MethodGet, "/actuator/prometheus")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteCurrentSessionIsNotSavedAgain(t *testing.T) {
	store := session.NewMemoryStore()
	s := seed(t, store, "user")

	e := echo.New()
	e.Use(session.NewManager(store, session.ManagerConfig{MaxInactiveInterval: 30 * time.Minute}).Middleware())
	NewHandler(store, "memory", false).Register(e)

	req := httptest.NewRequest(http.MethodDelete, "/actuator/sessions/"+s.ID, nil)
	req.AddCookie(&http.Cookie{Name: "SESSION", Value: base64.StdEncoding.EncodeToString([]byte(s.ID))})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	_, err := store.FindByID(context.Background(), s.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
}
