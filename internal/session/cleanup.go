package session

import (
	"context"
	"log/slog"
	"time"
)

// DefaultCleanupInterval is how often expired sessions are purged.
const DefaultCleanupInterval = 1 * time.Minute

// RunCleanupLoop runs a cleanup function periodically until the stop channel is closed.
// It runs cleanup immediately on start, then at the given interval.
func RunCleanupLoop(stop <-chan struct{}, interval time.Duration, cleanupFn func()) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	cleanupFn()

	for {
		select {
		case <-ticker.C:
			cleanupFn()
		case <-stop:
			return
		}
	}
}

// CleanupFunc returns a cleanup function that deletes expired sessions from store.
func CleanupFunc(store Store) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		n, err := store.DeleteExpired(ctx, time.Now())
		if err != nil {
			storeErrors.WithLabelValues("delete_expired").Inc()
			slog.Warn("failed to delete expired sessions", "error", err)
			return
		}
		if n > 0 {
			sessionsDeleted.WithLabelValues(reasonExpired).Add(float64(n))
			slog.Debug("deleted expired sessions", "count", n)
		}
	}
}
