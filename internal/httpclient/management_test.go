package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if _, err := r.Cookie("SESSION"); err != nil && (!ok || user != "user" || pass != "password") {
			w.Header().Set("WWW-Authenticate", `basic realm="sessiond"`)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"type":"authentication_error","message":"Unauthorized"}}`))
			return
		}

		switch {
		case r.URL.Path == "/":
			if _, err := r.Cookie("SESSION"); err != nil {
				http.SetCookie(w, &http.Cookie{Name: "SESSION", Value: "abc", Path: "/"})
				_, _ = w.Write([]byte("uid-1\n"))
				return
			}
			_, _ = w.Write([]byte("uid-from-cookie"))
		case r.URL.Path == "/actuator/sessions":
			if r.URL.Query().Get("username") != "user" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"username query parameter is required"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"sessions":[{"id":"s1","attributeNames":["uid"],"creationTime":"2024-01-01T00:00:00Z","lastAccessedTime":"2024-01-01T00:01:00Z","maxInactiveInterval":1800,"expired":false}]}`))
		case r.URL.Path == "/actuator/sessions/s1" && r.Method == http.MethodGet:
			_, _ = w.Write([]byte(`{"id":"s1","attributeNames":[],"maxInactiveInterval":60}`))
		case r.URL.Path == "/actuator/sessions/s1" && r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"type":"not_found_error","message":"session not found"}}`))
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestManagementClient(t *testing.T) {
	srv := newFakeServer(t)
	client := NewManagementClient(srv.URL+"/", "user", "password", nil)
	ctx := context.Background()

	uid, err := client.Touch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", uid)

	// The cookie jar carries the session into the next call.
	uid, err = client.Touch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "uid-from-cookie", uid)

	sessions, err := client.ListSessions(ctx, "user")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].ID)
	assert.Equal(t, int64(1800), sessions[0].MaxInactiveInterval)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC), sessions[0].LastAccessedTime)

	s, err := client.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(60), s.MaxInactiveInterval)

	require.NoError(t, client.DeleteSession(ctx, "s1"))
}

func TestManagementClientErrors(t *testing.T) {
	srv := newFakeServer(t)
	ctx := context.Background()

	_, err := NewManagementClient(srv.URL, "user", "wrong", nil).ListSessions(ctx, "user")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, "authentication_error", statusErr.Type)

	client := NewManagementClient(srv.URL, "user", "password", nil)
	err = client.DeleteSession(ctx, "missing")
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, "session not found", statusErr.Message)
}

func TestStatusErrorWithoutJSONBody(t *testing.T) {
	err := statusError(http.StatusBadGateway, []byte("<html>bad gateway</html>"))

	assert.Equal(t, "Bad Gateway", err.Message)
	assert.Empty(t, err.Type)
	assert.Equal(t, "HTTP 502: Bad Gateway", err.Error())
}

func TestNewManagementClientKeepsCallerClient(t *testing.T) {
	base := &http.Client{Timeout: time.Second}
	client := NewManagementClient("http://localhost", "u", "p", base)

	assert.Nil(t, base.Jar)
	assert.NotNil(t, client.client.Jar)
	assert.Equal(t, time.Second, client.client.Timeout)
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "5")
	assert.Equal(t, 5*time.Second, DefaultConfig().Timeout)

	t.Setenv("HTTP_TIMEOUT", "1m")
	assert.Equal(t, time.Minute, DefaultConfig().Timeout)

	t.Setenv("HTTP_TIMEOUT", "junk")
	assert.Equal(t, 30*time.Second, DefaultConfig().Timeout)
}
