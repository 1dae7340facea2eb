//go:build integration

package integration

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sessiond/config"
	"sessiond/internal/app"
)

const (
	testUsername = "user"
	testPassword = "password"
)

// TestServerFixture holds test server resources.
type TestServerFixture struct {
	// ServerURL is the base URL of the test server
	ServerURL string

	// App is the running application
	App *app.App
}

// SetupTestServer starts the application configured from the environment
// variables in env, on top of the test credentials.
func SetupTestServer(t *testing.T, env map[string]string) *TestServerFixture {
	t.Helper()

	port, err := findAvailablePort()
	require.NoError(t, err, "failed to find available port")

	t.Setenv("PORT", fmt.Sprintf("%d", port))
	t.Setenv("SECURITY_USER_NAME", testUsername)
	t.Setenv("SECURITY_USER_PASSWORD", testPassword)
	t.Setenv("SESSION_CLEANUP_INTERVAL", "0")
	t.Setenv("STORAGE_CONNECT_ATTEMPTS", "3")
	t.Setenv("STORAGE_CONNECT_TIMEOUT", "2m")
	for k, v := range env {
		t.Setenv(k, v)
	}

	appCfg, err := config.Load()
	require.NoError(t, err, "failed to load config")

	application, err := app.New(testCtx, app.Config{AppConfig: appCfg})
	require.NoError(t, err, "failed to create app")

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	go func() {
		_ = application.Start(fmt.Sprintf("127.0.0.1:%d", port))
	}()

	require.NoError(t, waitForServer(serverURL+"/actuator/health"), "server failed to become healthy")

	fixture := &TestServerFixture{
		ServerURL: serverURL,
		App:       application,
	}
	t.Cleanup(func() { fixture.Shutdown(t) })
	return fixture
}

// Shutdown gracefully shuts down the test server.
func (f *TestServerFixture) Shutdown(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if f.App != nil {
		require.NoError(t, f.App.Shutdown(ctx), "failed to shutdown app")
	}
}

// waitForServer waits for the server to become healthy.
func waitForServer(healthURL string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	for i := 0; i < 50; i++ {
		resp, err := client.Get(healthURL)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server did not become healthy within timeout")
}

// findAvailablePort finds an available TCP port on loopback.
func findAvailablePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = listener.Close() }()
	return listener.Addr().(*net.TCPAddr).Port, nil
}
