// Package config loads service configuration from DOCVAULT_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Database drivers registered by internal/platform/postgres.
const (
	DriverPGX = "pgx"
	DriverPQ  = "postgres"
)

// Audit failure modes.
const (
	AuditBestEffort = "best_effort"
	AuditFailClosed = "fail_closed"
)

// Notifier backends.
const (
	NotifyKafka = "kafka"
	NotifyLog   = "log"
	NotifyNone  = "none"
)

// Config is the full service configuration.
type Config struct {
	Addr            string        `envconfig:"ADDR" default:":8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	Auth       AuthConfig       `envconfig:"AUTH"`
	Database   DatabaseConfig   `envconfig:"DB"`
	Redis      RedisConfig      `envconfig:"REDIS"`
	Notify     NotifyConfig     `envconfig:"NOTIFY"`
	Audit      AuditConfig      `envconfig:"AUDIT"`
	Grant      GrantConfig      `envconfig:"GRANT"`
	Revocation RevocationConfig `envconfig:"REVOCATION"`
	RateLimit  RateLimitConfig  `envconfig:"RATELIMIT"`
}

// AuthConfig configures bearer-token verification.
type AuthConfig struct {
	SigningKey string `envconfig:"SIGNING_KEY" default:"dev-secret-key-change-in-production"`
	Issuer     string `envconfig:"ISSUER" default:"docvault"`
}

// DatabaseConfig selects Postgres. An empty URL runs every store in memory.
type DatabaseConfig struct {
	URL             string        `envconfig:"URL"`
	Driver          string        `envconfig:"DRIVER" default:"pgx"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"30m"`
	TxTimeout       time.Duration `envconfig:"TX_TIMEOUT" default:"5s"`
	Migrate         bool          `envconfig:"MIGRATE" default:"true"`
}

// RedisConfig configures the revocation cache. An empty URL keeps it in memory.
type RedisConfig struct {
	URL          string        `envconfig:"URL"`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

// NotifyConfig selects where revoke, reinstate and share notices go.
type NotifyConfig struct {
	Mode              string   `envconfig:"MODE" default:"log"`
	Brokers           []string `envconfig:"BROKERS"`
	Topic             string   `envconfig:"TOPIC" default:"docvault.notifications"`
	TopicPartitions   int32    `envconfig:"TOPIC_PARTITIONS" default:"3"`
	TopicReplication  int16    `envconfig:"TOPIC_REPLICATION" default:"1"`
	EnsureTopicOnBoot bool     `envconfig:"ENSURE_TOPIC" default:"true"`

	// Records still undelivered after DeliveryTimeout fail. Once
	// MaxBufferedRecords are in flight, new notifications are dropped.
	DeliveryTimeout    time.Duration `envconfig:"DELIVERY_TIMEOUT" default:"30s"`
	MaxBufferedRecords int           `envconfig:"MAX_BUFFERED_RECORDS" default:"10000"`
}

type AuditConfig struct {
	FailureMode string `envconfig:"FAILURE_MODE" default:"best_effort"`
}

// GrantConfig controls the optional expiry sweep. The sweep only runs when
// SweepInterval is positive and at least one tenant is listed.
type GrantConfig struct {
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"0"`
	SweepTenants  []string      `envconfig:"SWEEP_TENANTS"`
	SweepBatch    int           `envconfig:"SWEEP_BATCH" default:"500"`
}

type RevocationConfig struct {
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"10m"`
}

// RateLimitConfig throttles share-link requests per client IP. The window is
// shared through Redis when Redis is configured.
type RateLimitConfig struct {
	Disabled      bool          `envconfig:"DISABLED" default:"false"`
	ShareRequests int           `envconfig:"SHARE_REQUESTS" default:"60"`
	ShareWindow   time.Duration `envconfig:"SHARE_WINDOW" default:"1m"`
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("docvault", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects enumerations outside their closed sets.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPGX, DriverPQ:
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	switch c.Audit.FailureMode {
	case AuditBestEffort, AuditFailClosed:
	default:
		return fmt.Errorf("config: audit failure mode must be %s or %s", AuditBestEffort, AuditFailClosed)
	}
	switch c.Notify.Mode {
	case NotifyLog, NotifyNone:
	case NotifyKafka:
		if len(c.Notify.Brokers) == 0 {
			return fmt.Errorf("config: kafka notifier requires DOCVAULT_NOTIFY_BROKERS")
		}
	default:
		return fmt.Errorf("config: unsupported notify mode %q", c.Notify.Mode)
	}
	if c.Grant.SweepInterval < 0 {
		return fmt.Errorf("config: grant sweep interval cannot be negative")
	}
	if c.Revocation.CacheTTL <= 0 {
		return fmt.Errorf("config: revocation cache ttl must be positive")
	}
	if !c.RateLimit.Disabled && (c.RateLimit.ShareRequests <= 0 || c.RateLimit.ShareWindow <= 0) {
		return fmt.Errorf("config: share link rate limit needs positive requests and window")
	}
	return nil
}

// SweepEnabled reports whether the grant expiry sweep should run.
func (g GrantConfig) SweepEnabled() bool {
	return g.SweepInterval > 0 && len(g.SweepTenants) > 0
}
