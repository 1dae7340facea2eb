// Package main is the entry point for the sessiond server.
//
// @title                      sessiond
// @version                    1.0
// @description                HTTP sessions backed by a pluggable store, with management endpoints.
// @BasePath                   /
// @securityDefinitions.basic  BasicAuth
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sessiond/cmd/sessiond/docs"
	"sessiond/config"
	"sessiond/internal/app"
	"sessiond/internal/logging"
	"sessiond/internal/version"
)

func main() {
	versionFlag := flag.Bool("version", false, "Print version information")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Log, os.Stdout)

	slog.Info("starting sessiond",
		"version", version.Version,
		"commit", version.Commit,
		"build_date", version.Date,
	)

	docs.SwaggerInfo.Version = version.Version

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout(cfg))
	application, err := app.New(ctx, app.Config{AppConfig: cfg})
	cancel()
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	// Handle graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := application.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := application.Start(":" + cfg.Server.Port); err != nil {
		slog.Error("server failed", "error", err)
		_ = application.Shutdown(context.Background())
		os.Exit(1)
	}
	<-done
}

// startupTimeout bounds store initialization: every connection attempt plus slack.
func startupTimeout(cfg *config.Config) time.Duration {
	attempts := cfg.Storage.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}
	return time.Duration(attempts)*cfg.Storage.ConnectTimeout + time.Minute
}
