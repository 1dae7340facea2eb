package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory.
// Data survives across requests but not process restarts.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]*Session),
	}
}

// Save stores a copy of the session.
func (s *MemoryStore) Save(_ context.Context, sess *Session) error {
	if err := validateSession(sess); err != nil {
		return err
	}
	c, err := sess.Clone()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[c.ID] = c
	return nil
}

// FindByID returns a copy of one session.
func (s *MemoryStore) FindByID(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if sess.IsExpired(time.Now()) {
		s.evictExpired(id, time.Now())
		return nil, ErrNotFound
	}
	return sess.Clone()
}

// evictExpired deletes id only if the stored session is still expired.
// A concurrent Save may have refreshed it since the read lock was released.
func (s *MemoryStore) evictExpired(id string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.items[id]; ok && cur.IsExpired(now) {
		delete(s.items, id)
	}
}

// DeleteByID removes one session.
func (s *MemoryStore) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}

// FindByPrincipalName returns the unexpired sessions owned by name.
func (s *MemoryStore) FindByPrincipalName(_ context.Context, name string) ([]*Session, error) {
	now := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Session, 0)
	for _, sess := range s.items {
		if sess.PrincipalName() != name || sess.IsExpired(now) {
			continue
		}
		c, err := sess.Clone()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	sortByCreation(out)
	return out, nil
}

// DeleteExpired removes every session expired at now.
func (s *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, sess := range s.items {
		if sess.IsExpired(now) {
			delete(s.items, id)
			n++
		}
	}
	return n, nil
}

// Ping always succeeds for the memory store.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close releases resources (no-op for memory store).
func (s *MemoryStore) Close() error {
	return nil
}
