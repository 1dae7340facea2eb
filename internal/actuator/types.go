package actuator

import (
	"time"

	"sessiond/internal/session"
)

// SessionDescriptor describes one stored session.
type SessionDescriptor struct {
	ID                  string    `json:"id"`
	AttributeNames      []string  `json:"attributeNames"`
	CreationTime        time.Time `json:"creationTime"`
	LastAccessedTime    time.Time `json:"lastAccessedTime"`
	MaxInactiveInterval int64     `json:"maxInactiveInterval"` // seconds
	Expired             bool      `json:"expired"`
}

// SessionsResponse is the body of GET /actuator/sessions.
type SessionsResponse struct {
	Sessions []SessionDescriptor `json:"sessions"`
}

// Link is a single entry of the discovery document.
type Link struct {
	Href      string `json:"href"`
	Templated bool   `json:"templated"`
}

// LinksResponse is the body of GET /actuator.
type LinksResponse struct {
	Links map[string]Link `json:"_links"`
}

// Health statuses.
const (
	StatusUp   = "UP"
	StatusDown = "DOWN"
)

// ComponentHealth reports the health of one dependency.
type ComponentHealth struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// HealthResponse is the body of GET /actuator/health.
type HealthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

func describe(s *session.Session, now time.Time) SessionDescriptor {
	return SessionDescriptor{
		ID:                  s.ID,
		AttributeNames:      s.AttributeNames(),
		CreationTime:        s.CreationTime,
		LastAccessedTime:    s.LastAccessedTime,
		MaxInactiveInterval: int64(s.MaxInactiveInterval / time.Second),
		Expired:             s.IsExpired(now),
	}
}
