// Package storage opens the database connection that backs the session
// store. The session package creates its own collection or table on top of
// whichever backend is configured here.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Backend names accepted in Config.Type and SESSION_STORE_TYPE.
const (
	TypeSQLite     = "sqlite"
	TypePostgreSQL = "postgresql"
	TypeMongoDB    = "mongodb"
)

const (
	// DefaultSQLitePath is the session database file used when none is set.
	DefaultSQLitePath = "data/sessiond.db"
	// DefaultMongoDatabase holds the sessions collection when no database is set.
	DefaultMongoDatabase = "sessiond"
	// ApplicationName identifies sessiond connections on the database server.
	ApplicationName = "sessiond"

	defaultPostgresMaxConns = 10
)

// ErrInvalidConfig marks connection settings that no retry can fix.
var ErrInvalidConfig = errors.New("invalid storage configuration")

// Config selects the session backend and its connection settings.
type Config struct {
	Type       string
	SQLite     SQLiteConfig
	PostgreSQL PostgreSQLConfig
	MongoDB    MongoDBConfig
}

// SQLiteConfig locates the embedded session database.
type SQLiteConfig struct {
	// Path is the database file, or ":memory:" for a throwaway store
	Path string
}

// PostgreSQLConfig configures the pool shared by session requests.
type PostgreSQLConfig struct {
	URL string
	// MaxConns caps concurrent session queries (default: 10)
	MaxConns int
}

// MongoDBConfig names the deployment and database holding the sessions collection.
type MongoDBConfig struct {
	// URL usually names a replica set, e.g. mongodb://host:27017/?replicaSet=rs0
	URL      string
	Database string
}

// Storage is an open connection to one session backend.
// Exactly one of SQLiteDB, PostgreSQLPool and MongoDatabase is non-nil.
type Storage interface {
	Type() string

	SQLiteDB() *sql.DB

	// PostgreSQLPool returns a *pgxpool.Pool. It is typed as interface{}
	// so this package does not leak driver types to its importers.
	PostgreSQLPool() interface{}

	// MongoDatabase returns a *mongo.Database, typed as for PostgreSQLPool.
	MongoDatabase() interface{}

	// Ping backs the sessionStore component of /actuator/health.
	Ping(ctx context.Context) error

	Close() error
}

// New opens one connection attempt. Use Connect for startup, which retries.
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Type {
	case TypeSQLite:
		return NewSQLite(cfg.SQLite)
	case TypePostgreSQL:
		return NewPostgreSQL(ctx, cfg.PostgreSQL)
	case TypeMongoDB:
		return NewMongoDB(ctx, cfg.MongoDB)
	default:
		return nil, invalidConfig("unknown storage type: %s (valid: sqlite, postgresql, mongodb)", cfg.Type)
	}
}

// DefaultConfig stores sessions in MongoDB.
func DefaultConfig() Config {
	return Config{
		Type:       TypeMongoDB,
		SQLite:     SQLiteConfig{Path: DefaultSQLitePath},
		PostgreSQL: PostgreSQLConfig{MaxConns: defaultPostgresMaxConns},
		MongoDB:    MongoDBConfig{Database: DefaultMongoDatabase},
	}
}

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
