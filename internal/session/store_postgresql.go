package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQLStore stores sessions in PostgreSQL.
type PostgreSQLStore struct {
	pool *pgxpool.Pool
}

// NewPostgreSQLStore creates the sessions table and indexes if needed.
func NewPostgreSQLStore(ctx context.Context, pool *pgxpool.Pool) (*PostgreSQLStore, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if pool == nil {
		return nil, fmt.Errorf("connection pool is required")
	}

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			principal TEXT NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL,
			accessed_at BIGINT NOT NULL,
			max_inactive_ms BIGINT NOT NULL,
			expires_at BIGINT,
			attributes JSONB NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	if _, err := pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_sessions_principal ON sessions(principal)"); err != nil {
		return nil, fmt.Errorf("failed to create sessions principal index: %w", err)
	}
	if _, err := pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)"); err != nil {
		return nil, fmt.Errorf("failed to create sessions expires_at index: %w", err)
	}

	return &PostgreSQLStore{pool: pool}, nil
}

// Save upserts a session row.
func (s *PostgreSQLStore) Save(ctx context.Context, sess *Session) error {
	if err := validateSession(sess); err != nil {
		return err
	}
	payload, err := encodeAttributes(sess.Attributes)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO sessions (id, principal, created_at, accessed_at, max_inactive_ms, expires_at, attributes)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
		ON CONFLICT (id) DO UPDATE SET
			principal = EXCLUDED.principal,
			accessed_at = EXCLUDED.accessed_at,
			max_inactive_ms = EXCLUDED.max_inactive_ms,
			expires_at = EXCLUDED.expires_at,
			attributes = EXCLUDED.attributes
	`, sess.ID, sess.PrincipalName(), millis(sess.CreationTime), millis(sess.LastAccessedTime),
		sess.MaxInactiveInterval.Milliseconds(), expiresAtMillis(sess), payload)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// FindByID returns a session by id.
func (s *PostgreSQLStore) FindByID(ctx context.Context, id string) (*Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, created_at, accessed_at, max_inactive_ms, attributes
		FROM sessions WHERE id = $1
	`, id)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query session: %w", err)
	}

	if sess.IsExpired(time.Now()) {
		_, _ = s.pool.Exec(ctx, "DELETE FROM sessions WHERE id = $1", id)
		return nil, ErrNotFound
	}
	return sess, nil
}

// DeleteByID removes a session row.
func (s *PostgreSQLStore) DeleteByID(ctx context.Context, id string) error {
	cmd, err := s.pool.Exec(ctx, "DELETE FROM sessions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByPrincipalName returns the unexpired sessions of one principal ordered by creation time.
func (s *PostgreSQLStore) FindByPrincipalName(ctx context.Context, name string) ([]*Session, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, created_at, accessed_at, max_inactive_ms, attributes
		FROM sessions
		WHERE principal = $1 AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY created_at ASC, id ASC
	`, name, millis(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("find sessions by principal: %w", err)
	}
	defer rows.Close()

	out := make([]*Session, 0)
	for rows.Next() {
		sess, err := scanSession(rows)
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
func (s *PostgreSQLStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	cmd, err := s.pool.Exec(ctx, "DELETE FROM sessions WHERE expires_at IS NOT NULL AND expires_at <= $1", millis(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return cmd.RowsAffected(), nil
}

// Ping verifies the pool can reach the server.
func (s *PostgreSQLStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close is a no-op; pool lifecycle is managed by storage layer.
func (s *PostgreSQLStore) Close() error {
	return nil
}

func scanSession(row pgx.Row) (*Session, error) {
	var (
		id                string
		created, accessed int64
		maxInactiveMS     int64
		payload           []byte
	)
	if err := row.Scan(&id, &created, &accessed, &maxInactiveMS, &payload); err != nil {
		return nil, err
	}
	attrs, err := decodeAttributes(payload)
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

// expiresAtMillis returns nil for sessions that never expire so the column stays NULL.
func expiresAtMillis(s *Session) *int64 {
	exp := s.ExpiresAt()
	if exp.IsZero() {
		return nil
	}
	ms := millis(exp)
	return &ms
}
