package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessiond/internal/security"
	"sessiond/internal/server"
	"sessiond/internal/session"
)

func startServer(t *testing.T) (*httptest.Server, session.Store) {
	t.Helper()
	store := session.NewMemoryStore()
	srv := server.New(&server.Config{
		Sessions:          session.NewManager(store, session.ManagerConfig{MaxInactiveInterval: 30 * time.Minute}),
		Users:             security.Users{"user": "password"},
		StoreType:         "memory",
		ManagementEnabled: true,
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts, store
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTouchAndList(t *testing.T) {
	ts, _ := startServer(t)
	common := []string{"--server", ts.URL, "-u", "user", "-p", "password"}

	out, err := run(t, append([]string{"touch", "-n", "2"}, common...)...)
	require.NoError(t, err)
	lines := strings.Fields(out)
	require.Len(t, lines, 2)
	assert.Equal(t, lines[0], lines[1], "touch reuses one session")

	out, err = run(t, append([]string{"sessions", "list", "--username", "user"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "uid")
	assert.Equal(t, 2, len(strings.Split(strings.TrimSpace(out), "\n")), "header plus one session")
}

func TestGetAndDelete(t *testing.T) {
	ts, store := startServer(t)
	common := []string{"--server", ts.URL, "-u", "user", "-p", "password"}

	s := session.New(time.Minute)
	s.SetPrincipalName("user")
	require.NoError(t, store.Save(context.Background(), s))

	out, err := run(t, append([]string{"sessions", "get", s.ID}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, s.ID)
	assert.Contains(t, out, "1m0s")

	out, err = run(t, append([]string{"sessions", "delete", s.ID}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")

	_, err = run(t, append([]string{"sessions", "get", s.ID}, common...)...)
	assert.ErrorContains(t, err, "404")
}

func TestWrongPassword(t *testing.T) {
	ts, _ := startServer(t)

	_, err := run(t, "sessions", "list", "--server", ts.URL, "-u", "user", "-p", "nope")
	assert.ErrorContains(t, err, "401")
}
