//go:build integration

package integration

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// API endpoints
const (
	indexPath    = "/"
	sessionsPath = "/actuator/sessions"
)

// createSession issues an authenticated GET / so the server creates a
// session. The response body is discarded.
func createSession(t *testing.T, serverURL string) {
	t.Helper()

	resp := send(t, http.MethodGet, serverURL+indexPath, true)
	defer closeBody(resp)
	_, _ = io.Copy(io.Discard, resp.Body)
	require.Equal(t, http.StatusOK, resp.StatusCode, "GET / should succeed")
}

// getSessions lists the sessions of the test user.
func getSessions(t *testing.T, serverURL string) *http.Response {
	t.Helper()
	return send(t, http.MethodGet, serverURL+sessionsPath+"?username="+testUsername, true)
}

func send(t *testing.T, method, url string, authenticated bool) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err, "failed to create request")
	if authenticated {
		req.SetBasicAuth(testUsername, testPassword)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err, "failed to send request")
	return resp
}

// readBody reads and closes the response body.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer closeBody(resp)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")
	return string(body)
}

// closeBody closes the response body, ignoring errors.
func closeBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
}
