package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore stores sessions in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the sessions table and indexes if needed.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			principal TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			accessed_at INTEGER NOT NULL,
			max_inactive_ms INTEGER NOT NULL,
			expires_at INTEGER,
			attributes TEXT NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_sessions_principal ON sessions(principal)"); err != nil {
		return nil, fmt.Errorf("failed to create sessions principal index: %w", err)
	}
	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)"); err != nil {
		return nil, fmt.Errorf("failed to create sessions expires_at index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save upserts a session row.
func (s *SQLiteStore) Save(ctx context.Context, sess *Session) error {
	if err := validateSession(sess); err != nil {
		return err
	}
	payload, err := encodeAttributes(sess.Attributes)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, principal, created_at, accessed_at, max_inactive_ms, expires_at, attributes)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			principal = excluded.principal,
			accessed_at = excluded.accessed_at,
			max_inactive_ms = excluded.max_inactive_ms,
			expires_at = excluded.expires_at,
			attributes = excluded.attributes
	`, sess.ID, sess.PrincipalName(), millis(sess.CreationTime), millis(sess.LastAccessedTime),
		sess.MaxInactiveInterval.Milliseconds(), expiresAtMillis(sess), string(payload))
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// FindByID returns a session by id.
func (s *SQLiteStore) FindByID(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, accessed_at, max_inactive_ms, attributes
		FROM sessions WHERE id = ?
	`, id)
	sess, err := scanSQLSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query session: %w", err)
	}

	if sess.IsExpired(time.Now()) {
		_, _ = s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
		return nil, ErrNotFound
	}
	return sess, nil
}

// DeleteByID removes a session row.
func (s *SQLiteStore) DeleteByID(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByPrincipalName returns the unexpired sessions of one principal ordered by creation time.
func (s *SQLiteStore) FindByPrincipalName(ctx context.Context, name string) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, accessed_at, max_inactive_ms, attributes
		FROM sessions
		WHERE principal = ? AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY created_at ASC, id ASC
	`, name, millis(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("find sessions by principal: %w", err)
	}
	defer rows.Close()

	out := make([]*Session, 0)
	for rows.Next() {
		sess, err := scanSQLSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return out, nil
}

// DeleteExpired removes every session expired at now.
func (s *SQLiteStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at IS NOT NULL AND expires_at <= ?", millis(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// Ping verifies the database file is usable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the *sql.DB lifecycle is managed by storage layer.
func (s *SQLiteStore) Close() error {
	return nil
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanSQLSession(row sqlScanner) (*Session, error) {
	var (
		id                string
		created, accessed int64
		maxInactiveMS     int64
		payload           string
	)
	if err := row.Scan(&id, &created, &accessed, &maxInactiveMS, &payload); err != nil {
		return nil, err
	}
	attrs, err := decodeAttributes([]byte(payload))
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:                  id,
		CreationTime:        fromMillis(created),
		LastAccessedTime:    fromMillis(accessed),
		MaxInactiveInterval: time.Duration(maxInactiveMS) * time.Millisecond,
		Attributes:          attrs,
	}, nil
}
