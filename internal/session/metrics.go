package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reasons recorded on sessionsDeleted.
const (
	reasonInvalidated = "invalidated"
	reasonRotated     = "rotated"
	reasonExpired     = "expired"
	reasonAdmin       = "admin"
)

var (
	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessiond_sessions_created_total",
		Help: "Total number of HTTP sessions created",
	})

	sessionsDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sessiond_sessions_deleted_total",
		Help: "Total number of HTTP sessions deleted, by reason",
	}, []string{"reason"})

	storeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sessiond_session_store_errors_total",
		Help: "Total number of failed session store operations, by operation",
	}, []string{"operation"})
)

// RecordAdminDelete counts a session removed through the management API.
func RecordAdminDelete() {
	sessionsDeleted.WithLabelValues(reasonAdmin).Inc()
}
