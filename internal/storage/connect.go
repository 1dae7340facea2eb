package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig bounds the initial connection to the database.
type RetryConfig struct {
	// Attempts is the maximum number of connection attempts (default: 3)
	Attempts int
	// AttemptTimeout bounds each attempt (default: 2 minutes)
	AttemptTimeout time.Duration
	// InitialInterval is the first backoff delay (default: 500ms)
	InitialInterval time.Duration
}

func (r RetryConfig) withDefaults() RetryConfig {
	if r.Attempts <= 0 {
		r.Attempts = 3
	}
	if r.AttemptTimeout <= 0 {
		r.AttemptTimeout = 2 * time.Minute
	}
	if r.InitialInterval <= 0 {
		r.InitialInterval = 500 * time.Millisecond
	}
	return r
}

// Connect calls New until it succeeds, the attempts are exhausted or ctx is done.
// Configuration errors are not retried.
func Connect(ctx context.Context, cfg Config, retry RetryConfig) (Storage, error) {
	return connectWith(ctx, cfg, retry, New)
}

type newFunc func(ctx context.Context, cfg Config) (Storage, error)

func connectWith(ctx context.Context, cfg Config, retry RetryConfig, open newFunc) (Storage, error) {
	switch cfg.Type {
	case TypeSQLite, TypePostgreSQL, TypeMongoDB:
	default:
		return nil, invalidConfig("unknown storage type: %s (valid: sqlite, postgresql, mongodb)", cfg.Type)
	}

	return Retry(ctx, cfg.Type, retry, func(attemptCtx context.Context) (Storage, error) {
		return open(attemptCtx, cfg)
	})
}

// Retry runs open with the bounded backoff policy of retry. Each attempt
// gets its own timeout. ErrInvalidConfig and errors wrapped with
// backoff.Permanent stop the loop.
func Retry[T any](ctx context.Context, name string, retry RetryConfig, open func(ctx context.Context) (T, error)) (T, error) {
	retry = retry.withDefaults()

	attempt := 0
	operation := func() (T, error) {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, retry.AttemptTimeout)
		defer cancel()

		conn, err := open(attemptCtx)
		if errors.Is(err, ErrInvalidConfig) {
			return conn, backoff.Permanent(err)
		}
		if err != nil {
			slog.Warn("storage connection attempt failed",
				"type", name,
				"attempt", attempt,
				"max_attempts", retry.Attempts,
				"error", err,
			)
			return conn, err
		}
		return conn, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retry.InitialInterval

	conn, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(retry.Attempts)),
	)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to connect to %s after %d attempt(s): %w", name, attempt, err)
	}

	slog.Info("storage connected", "type", name, "attempts", attempt)
	return conn, nil
}
