// Package config provides configuration management for the application.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Session store backends accepted by SESSION_STORE_TYPE.
const (
	StoreMongoDB    = "mongodb"
	StorePostgreSQL = "postgresql"
	StoreSQLite     = "sqlite"
	StoreRedis      = "redis"
	StoreMemory     = "memory"
)

const (
	// DefaultBodySizeLimit is the default maximum request body size (1MB).
	DefaultBodySizeLimit int64 = 1 << 20

	// DefaultSessionTimeout matches the servlet default of 30 minutes.
	DefaultSessionTimeout = 30 * time.Minute

	// DefaultCookieName is the cookie carrying the encoded session id.
	DefaultCookieName = "SESSION"
)

// configPaths are the locations searched for an optional YAML config file.
var configPaths = []string{"config/config.yaml", "config.yaml"}

// Config holds the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Security   SecurityConfig   `yaml:"security"`
	Session    SessionConfig    `yaml:"session"`
	Storage    StorageConfig    `yaml:"storage"`
	Redis      RedisConfig      `yaml:"redis"`
	Management ManagementConfig `yaml:"management"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           string `yaml:"port"`
	BodySizeLimit  int64  `yaml:"body_size_limit"`
	SwaggerEnabled bool   `yaml:"swagger_enabled"`
}

// SecurityConfig holds the credentials of the single in-memory user.
type SecurityConfig struct {
	User UserConfig `yaml:"user"`
}

// UserConfig is a username/password pair for HTTP Basic authentication.
type UserConfig struct {
	Name     string `yaml:"name"`
	Password string `yaml:"password"`

	// PasswordGenerated is set when no password was configured and Load
	// generated a random one.
	PasswordGenerated bool `yaml:"-"`
}

// SessionConfig holds HTTP session configuration
type SessionConfig struct {
	// StoreType is one of mongodb, postgresql, sqlite, redis, memory
	StoreType string `yaml:"store_type"`
	// Timeout is the max inactive interval of new sessions
	Timeout time.Duration `yaml:"timeout"`
	// CookieName is the name of the session cookie (default: SESSION)
	CookieName string `yaml:"cookie_name"`
	// CookieSecure marks the session cookie Secure
	CookieSecure bool `yaml:"cookie_secure"`
	// CleanupInterval is how often expired sessions are purged (0 disables the loop)
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// StorageConfig holds database configuration for the session store backends.
type StorageConfig struct {
	MongoDB    MongoDBStorageConfig    `yaml:"mongodb"`
	PostgreSQL PostgreSQLStorageConfig `yaml:"postgresql"`
	SQLite     SQLiteStorageConfig     `yaml:"sqlite"`

	// ConnectAttempts bounds how many times the initial connection is tried
	ConnectAttempts int `yaml:"connect_attempts"`
	// ConnectTimeout bounds each connection attempt
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// MongoDBStorageConfig holds MongoDB-specific configuration
type MongoDBStorageConfig struct {
	URL      string `yaml:"url"`
	Database string `yaml:"database"`
}

// PostgreSQLStorageConfig holds PostgreSQL-specific configuration
type PostgreSQLStorageConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

// SQLiteStorageConfig holds SQLite-specific configuration
type SQLiteStorageConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig holds Redis connection configuration for the redis session store.
type RedisConfig struct {
	URL       string `yaml:"url"`
	KeyPrefix string `yaml:"key_prefix"`
}

// ManagementConfig controls the /actuator endpoints.
type ManagementConfig struct {
	Enabled        bool `yaml:"enabled"`
	MetricsEnabled bool `yaml:"metrics_enabled"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Format is "json", "pretty" or "" (auto-detect from the terminal)
	Format string `yaml:"format"`
	// Level is debug, info, warn or error
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:          "8080",
			BodySizeLimit: DefaultBodySizeLimit,
		},
		Security: SecurityConfig{
			User: UserConfig{Name: "user"},
		},
		Session: SessionConfig{
			StoreType:       StoreMongoDB,
			Timeout:         DefaultSessionTimeout,
			CookieName:      DefaultCookieName,
			CleanupInterval: time.Minute,
		},
		Storage: StorageConfig{
			MongoDB: MongoDBStorageConfig{
				URL:      "mongodb://localhost:27017",
				Database: "sessiond",
			},
			PostgreSQL: PostgreSQLStorageConfig{
				MaxConns: 10,
			},
			SQLite: SQLiteStorageConfig{
				Path: "data/sessiond.db",
			},
			ConnectAttempts: 3,
			ConnectTimeout:  2 * time.Minute,
		},
		Redis: RedisConfig{
			URL:       "redis://localhost:6379",
			KeyPrefix: "sessiond",
		},
		Management: ManagementConfig{
			Enabled:        true,
			MetricsEnabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file,
// an optional .env file and the environment, in that order of precedence.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range configPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := yaml.Unmarshal([]byte(expandEnv(string(data))), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		break
	}

	// .env is optional; variables already set in the environment win.
	_ = godotenv.Load()

	applyEnv(&cfg)

	if cfg.Security.User.Password == "" {
		cfg.Security.User.Password = uuid.NewString()
		cfg.Security.User.PasswordGenerated = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports configuration values the application cannot run with.
func (c *Config) Validate() error {
	switch c.Session.StoreType {
	case StoreMongoDB, StorePostgreSQL, StoreSQLite, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("unknown session store type: %q (valid: mongodb, postgresql, sqlite, redis, memory)", c.Session.StoreType)
	}
	if c.Session.Timeout <= 0 {
		return fmt.Errorf("session timeout must be positive, got %s", c.Session.Timeout)
	}
	if c.Security.User.Name == "" {
		return fmt.Errorf("security user name is required")
	}
	if c.Session.StoreType == StorePostgreSQL && c.Storage.PostgreSQL.URL == "" {
		return fmt.Errorf("POSTGRES_URL is required for the postgresql session store")
	}
	return nil
}

// LogPasswordWarning logs the generated password so the operator can use it.
func (c *Config) LogPasswordWarning() {
	if c.Security.User.PasswordGenerated {
		slog.Warn("using generated security password",
			"username", c.Security.User.Name,
			"password", c.Security.User.Password,
			"recommendation", "set SECURITY_USER_PASSWORD for anything but local development")
	}
}

func applyEnv(cfg *Config) {
	envString("PORT", &cfg.Server.Port)
	envInt64("BODY_SIZE_LIMIT", &cfg.Server.BodySizeLimit)
	envBool("SWAGGER_ENABLED", &cfg.Server.SwaggerEnabled)

	envString("SECURITY_USER_NAME", &cfg.Security.User.Name)
	envString("SECURITY_USER_PASSWORD", &cfg.Security.User.Password)

	envString("SESSION_STORE_TYPE", &cfg.Session.StoreType)
	envDuration("SESSION_TIMEOUT", &cfg.Session.Timeout)
	envString("SESSION_COOKIE_NAME", &cfg.Session.CookieName)
	envBool("SESSION_COOKIE_SECURE", &cfg.Session.CookieSecure)
	envDuration("SESSION_CLEANUP_INTERVAL", &cfg.Session.CleanupInterval)

	envString("MONGODB_URI", &cfg.Storage.MongoDB.URL)
	envString("MONGODB_DATABASE", &cfg.Storage.MongoDB.Database)
	envString("POSTGRES_URL", &cfg.Storage.PostgreSQL.URL)
	envInt("POSTGRES_MAX_CONNS", &cfg.Storage.PostgreSQL.MaxConns)
	envString("SQLITE_PATH", &cfg.Storage.SQLite.Path)
	envInt("STORAGE_CONNECT_ATTEMPTS", &cfg.Storage.ConnectAttempts)
	envDuration("STORAGE_CONNECT_TIMEOUT", &cfg.Storage.ConnectTimeout)

	envString("REDIS_URL", &cfg.Redis.URL)
	envString("REDIS_KEY_PREFIX", &cfg.Redis.KeyPrefix)

	envBool("MANAGEMENT_ENABLED", &cfg.Management.Enabled)
	envBool("METRICS_ENABLED", &cfg.Management.MetricsEnabled)

	envString("LOG_FORMAT", &cfg.Log.Format)
	envString("LOG_LEVEL", &cfg.Log.Level)

	cfg.Session.StoreType = strings.ToLower(strings.TrimSpace(cfg.Session.StoreType))
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envInt64(key string, dst *int64) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// envDuration accepts either plain integers (interpreted as seconds) or Go
// duration strings (e.g., "10m", "1h30m").
func envDuration(key string, dst *time.Duration) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandEnv replaces ${VAR} and ${VAR:-default} in YAML content.
func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(m string) string {
		parts := envPattern.FindStringSubmatch(m)
		if v, ok := os.LookupEnv(parts[1]); ok && v != "" {
			return v
		}
		return parts[3]
	})
}
