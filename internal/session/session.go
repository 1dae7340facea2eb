// Package session provides server-side HTTP sessions: the Session type,
// pluggable persistence backends and the echo middleware that binds a
// session to each request through a cookie.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates a requested session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// PrincipalNameAttribute is the reserved attribute holding the authenticated
// username. Stores index sessions by its value.
const PrincipalNameAttribute = "sessiond.principal_name"

// Session is the server-side state bound to one client.
type Session struct {
	ID                  string
	CreationTime        time.Time
	LastAccessedTime    time.Time
	MaxInactiveInterval time.Duration
	Attributes          map[string]any
}

// New creates a session with a random id. A non-positive maxInactive
// produces a session that never expires.
func New(maxInactive time.Duration) *Session {
	now := Now()
	return &Session{
		ID:                  NewID(),
		CreationTime:        now,
		LastAccessedTime:    now,
		MaxInactiveInterval: maxInactive,
		Attributes:          make(map[string]any),
	}
}

// NewID returns a new random session id.
func NewID() string {
	return uuid.NewString()
}

// Now returns the current time at the precision every store persists.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// GetAttribute returns the named attribute.
func (s *Session) GetAttribute(name string) (any, bool) {
	v, ok := s.Attributes[name]
	return v, ok
}

// SetAttribute stores value under name. A nil value removes the attribute.
func (s *Session) SetAttribute(name string, value any) {
	if value == nil {
		s.RemoveAttribute(name)
		return
	}
	if s.Attributes == nil {
		s.Attributes = make(map[string]any)
	}
	s.Attributes[name] = value
}

// RemoveAttribute deletes the named attribute.
func (s *Session) RemoveAttribute(name string) {
	delete(s.Attributes, name)
}

// AttributeNames returns the attribute names in lexical order.
func (s *Session) AttributeNames() []string {
	names := make([]string, 0, len(s.Attributes))
	for name := range s.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PrincipalName returns the username that owns the session, or "".
func (s *Session) PrincipalName() string {
	name, _ := s.Attributes[PrincipalNameAttribute].(string)
	return name
}

// SetPrincipalName records the username that owns the session.
func (s *Session) SetPrincipalName(name string) {
	if name == "" {
		s.RemoveAttribute(PrincipalNameAttribute)
		return
	}
	s.SetAttribute(PrincipalNameAttribute, name)
}

// ExpiresAt returns when the session expires, or the zero time if it never does.
func (s *Session) ExpiresAt() time.Time {
	if s.MaxInactiveInterval <= 0 {
		return time.Time{}
	}
	return s.LastAccessedTime.Add(s.MaxInactiveInterval)
}

// IsExpired reports whether the session has been inactive for at least
// MaxInactiveInterval at time now.
func (s *Session) IsExpired(now time.Time) bool {
	if s.MaxInactiveInterval <= 0 {
		return false
	}
	return now.Sub(s.LastAccessedTime) >= s.MaxInactiveInterval
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() (*Session, error) {
	raw, err := encodeAttributes(s.Attributes)
	if err != nil {
		return nil, err
	}
	attrs, err := decodeAttributes(raw)
	if err != nil {
		return nil, err
	}
	c := *s
	c.Attributes = attrs
	return &c, nil
}

// Store persists sessions. Implementations must be safe for concurrent use.
type Store interface {
	// Save inserts or replaces the session.
	Save(ctx context.Context, s *Session) error

	// FindByID returns the session with the given id. Unknown and expired
	// sessions yield ErrNotFound; expired sessions are deleted.
	FindByID(ctx context.Context, id string) (*Session, error)

	// DeleteByID removes the session. Returns ErrNotFound if it did not exist.
	DeleteByID(ctx context.Context, id string) error

	// FindByPrincipalName returns the unexpired sessions owned by name,
	// oldest first.
	FindByPrincipalName(ctx context.Context, name string) ([]*Session, error)

	// DeleteExpired removes every session expired at now and reports how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources owned by the store.
	Close() error
}

// Attributes are persisted as JSON so every backend shares one representation.
func encodeAttributes(attrs map[string]any) ([]byte, error) {
	if attrs == nil {
		attrs = map[string]any{}
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("marshal session attributes: %w", err)
	}
	return b, nil
}

func decodeAttributes(raw []byte) (map[string]any, error) {
	attrs := make(map[string]any)
	if len(raw) == 0 {
		return attrs, nil
	}
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, fmt.Errorf("unmarshal session attributes: %w", err)
	}
	return attrs, nil
}

func validateSession(s *Session) error {
	if s == nil {
		return fmt.Errorf("session is nil")
	}
	if s.ID == "" {
		return fmt.Errorf("session id is required")
	}
	return nil
}

// millis and fromMillis convert between time.Time and the unix-millisecond
// values stored by the SQL and Redis backends.
func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func sortByCreation(sessions []*Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreationTime.Equal(sessions[j].CreationTime) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreationTime.Before(sessions[j].CreationTime)
	})
}
