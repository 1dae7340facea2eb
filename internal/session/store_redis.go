package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"sessiond/internal/storage"
)

// DefaultRedisKeyPrefix namespaces every key written by the redis store.
const DefaultRedisKeyPrefix = "sessiond"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379" or "redis://:password@host:6379/0")
	URL string

	// KeyPrefix namespaces session keys (defaults to "sessiond")
	KeyPrefix string
}

type redisSessionRecord struct {
	ID            string          `json:"id"`
	Principal     string          `json:"principal,omitempty"`
	CreatedMS     int64           `json:"created_ms"`
	AccessedMS    int64           `json:"accessed_ms"`
	MaxInactiveMS int64           `json:"max_inactive_ms"`
	Attributes    json.RawMessage `json:"attributes"`
}

// RedisStore stores each session under its own key with a TTL equal to
// the remaining inactive time, plus one set per principal for lookups.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and returns a store owning the client.
// ctx bounds the initial ping.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid REDIS_URL: %v", storage.ErrInvalidConfig, err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	store := NewRedisStoreFromClient(client, cfg.KeyPrefix)
	slog.Info("redis session store connected", "prefix", store.prefix)
	return store, nil
}

// NewRedisStoreFromClient wraps an existing client. The store closes it on Close.
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) sessionKey(id string) string {
	return s.prefix + ":sessions:" + id
}

func (s *RedisStore) principalKey(name string) string {
	return s.prefix + ":index:principal:" + name
}

func (s *RedisStore) get(ctx context.Context, id string) (*redisSessionRecord, error) {
	data, err := s.client.Get(ctx, s.sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session from redis: %w", err)
	}
	var rec redisSessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse session from redis: %w", err)
	}
	return &rec, nil
}

func (r *redisSessionRecord) toSession() (*Session, error) {
	attrs, err := decodeAttributes(r.Attributes)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:                  r.ID,
		CreationTime:        fromMillis(r.CreatedMS),
		LastAccessedTime:    fromMillis(r.AccessedMS),
		MaxInactiveInterval: time.Duration(r.MaxInactiveMS) * time.Millisecond,
		Attributes:          attrs,
	}, nil
}

// Save writes the session and keeps the principal index in step.
func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	if err := validateSession(sess); err != nil {
		return err
	}
	attrs, err := encodeAttributes(sess.Attributes)
	if err != nil {
		return err
	}

	rec := redisSessionRecord{
		ID:            sess.ID,
		Principal:     sess.PrincipalName(),
		CreatedMS:     millis(sess.CreationTime),
		AccessedMS:    millis(sess.LastAccessedTime),
		MaxInactiveMS: sess.MaxInactiveInterval.Milliseconds(),
		Attributes:    attrs,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	var ttl time.Duration
	if exp := sess.ExpiresAt(); !exp.IsZero() {
		ttl = time.Until(exp)
		if ttl <= 0 {
			return s.DeleteByID(ctx, sess.ID)
		}
	}

	previous, err := s.get(ctx, sess.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.sessionKey(sess.ID), data, ttl)
		if previous != nil && previous.Principal != "" && previous.Principal != rec.Principal {
			pipe.SRem(ctx, s.principalKey(previous.Principal), sess.ID)
		}
		if rec.Principal != "" {
			pipe.SAdd(ctx, s.principalKey(rec.Principal), sess.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session in redis: %w", err)
	}
	return nil
}

// FindByID returns a session by id. Redis expires keys itself.
func (s *RedisStore) FindByID(ctx context.Context, id string) (*Session, error) {
	rec, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	sess, err := rec.toSession()
	if err != nil {
		return nil, err
	}
	if sess.IsExpired(time.Now()) {
		_ = s.DeleteByID(ctx, id)
		return nil, ErrNotFound
	}
	return sess, nil
}

// DeleteByID removes the session key and its principal index entry.
func (s *RedisStore) DeleteByID(ctx context.Context, id string) error {
	rec, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.sessionKey(id))
		if rec.Principal != "" {
			pipe.SRem(ctx, s.principalKey(rec.Principal), id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	return nil
}

// FindByPrincipalName resolves the principal index and drops ids whose key has expired.
func (s *RedisStore) FindByPrincipalName(ctx context.Context, name string) ([]*Session, error) {
	ids, err := s.client.SMembers(ctx, s.principalKey(name)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read principal index: %w", err)
	}
	out := make([]*Session, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.sessionKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions from redis: %w", err)
	}

	now := time.Now()
	var stale []interface{}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var rec redisSessionRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("failed to parse session from redis: %w", err)
		}
		sess, err := rec.toSession()
		if err != nil {
			return nil, err
		}
		if rec.Principal != name || sess.IsExpired(now) {
			continue
		}
		out = append(out, sess)
	}
	if len(stale) > 0 {
		if err := s.client.SRem(ctx, s.principalKey(name), stale...).Err(); err != nil {
			slog.Warn("failed to prune principal index", "principal", name, "error", err)
		}
	}

	sortByCreation(out)
	return out, nil
}

// DeleteExpired prunes principal index entries whose session key Redis has
// already expired. It reports the number of pruned entries.
func (s *RedisStore) DeleteExpired(ctx context.Context, _ time.Time) (int64, error) {
	var (
		cursor uint64
		pruned int64
	)
	for {
		indexKeys, next, err := s.client.Scan(ctx, cursor, s.principalKey("*"), 100).Result()
		if err != nil {
			return pruned, fmt.Errorf("failed to scan principal indexes: %w", err)
		}
		for _, indexKey := range indexKeys {
			ids, err := s.client.SMembers(ctx, indexKey).Result()
			if err != nil {
				return pruned, fmt.Errorf("failed to read principal index: %w", err)
			}
			for _, id := range ids {
				n, err := s.client.Exists(ctx, s.sessionKey(id)).Result()
				if err != nil {
					return pruned, fmt.Errorf("failed to check session key: %w", err)
				}
				if n == 0 {
					if err := s.client.SRem(ctx, indexKey, id).Err(); err != nil {
						return pruned, fmt.Errorf("failed to prune principal index: %w", err)
					}
					pruned++
				}
			}
		}
		cursor = next
		if cursor == 0 {
			return pruned, nil
		}
	}
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
