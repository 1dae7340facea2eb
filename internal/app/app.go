// Package app provides the main application struct for centralized dependency management
// and lifecycle control of the sessiond server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"sessiond/config"
	"sessiond/internal/security"
	"sessiond/internal/server"
	"sessiond/internal/session"
)

// App represents the main application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config   *config.Config
	sessions *session.Result
	manager  *session.Manager
	server   *server.Server

	cleanupStop chan struct{}
	cleanupDone chan struct{}

	shutdownMu sync.Mutex
	shutdown   bool
}

// Config holds the configuration options for creating an App.
type Config struct {
	// AppConfig holds the loaded application configuration produced by config.Load.
	AppConfig *config.Config
}

// New creates a new App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("app config is required")
	}
	appCfg := cfg.AppConfig

	app := &App{
		config: appCfg,
	}

	sessionResult, err := session.NewStore(ctx, appCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}
	app.sessions = sessionResult

	app.manager = session.NewManager(sessionResult.Store, session.ManagerConfig{
		CookieName:          appCfg.Session.CookieName,
		CookieSecure:        appCfg.Session.CookieSecure,
		MaxInactiveInterval: appCfg.Session.Timeout,
	})

	app.logStartupInfo()

	app.server = server.New(&server.Config{
		Sessions:          app.manager,
		Users:             security.Users{appCfg.Security.User.Name: appCfg.Security.User.Password},
		StoreType:         appCfg.Session.StoreType,
		BodySizeLimit:     appCfg.Server.BodySizeLimit,
		ManagementEnabled: appCfg.Management.Enabled,
		MetricsEnabled:    appCfg.Management.MetricsEnabled,
		SwaggerEnabled:    appCfg.Server.SwaggerEnabled,
	})

	if appCfg.Session.CleanupInterval > 0 {
		app.cleanupStop = make(chan struct{})
		app.cleanupDone = make(chan struct{})
		go func() {
			defer close(app.cleanupDone)
			session.RunCleanupLoop(app.cleanupStop, appCfg.Session.CleanupInterval, session.CleanupFunc(sessionResult.Store))
		}()
	}

	return app, nil
}

// Router returns the HTTP handler of the application.
func (a *App) Router() http.Handler {
	return a.server
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	slog.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully tears down app components in dependency order.
// Order:
// 1. HTTP server shutdown via server.Shutdown(ctx), honoring the passed context timeout/cancellation.
// 2. Expired-session cleanup loop stop.
// 3. Session store and storage connection close.
//
// Shutdown is idempotent and safe for repeated calls; after the first call, subsequent calls are no-ops.
// It attempts every close step, aggregates failures, and returns a joined error if any step fails.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	slog.Info("shutting down application...")

	var errs []error

	// 1. Shutdown HTTP server first (stop accepting new requests)
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}

	// 2. Stop the cleanup loop before its store goes away
	if a.cleanupStop != nil {
		close(a.cleanupStop)
		select {
		case <-a.cleanupDone:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("cleanup loop stop: %w", ctx.Err()))
		}
	}

	// 3. Close the session store
	if a.sessions != nil {
		if err := a.sessions.Close(); err != nil {
			slog.Error("session store close error", "error", err)
			errs = append(errs, fmt.Errorf("session store close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	slog.Info("application shutdown complete")
	return nil
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo() {
	cfg := a.config

	slog.Info("session store configured",
		"type", cfg.Session.StoreType,
		"timeout", cfg.Session.Timeout,
		"cookie", cfg.Session.CookieName,
		"cleanup_interval", cfg.Session.CleanupInterval,
	)

	slog.Info("authentication enabled", "mode", "basic", "username", cfg.Security.User.Name)
	cfg.LogPasswordWarning()

	if cfg.Management.Enabled {
		slog.Info("management endpoints enabled", "base_path", "/actuator", "metrics", cfg.Management.MetricsEnabled)
	} else {
		slog.Info("management endpoints disabled")
	}

	if cfg.Server.SwaggerEnabled {
		slog.Info("swagger UI enabled", "path", "/swagger/index.html")
	}
}
