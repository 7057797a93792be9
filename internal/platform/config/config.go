// Package config builds process-level configuration from the environment so
// main stays lean. Engine policy lives in internal/config; this package only
// carries connection strings, addresses, and the env-overridable knobs.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	enginecfg "turnstile/internal/config"
	"turnstile/internal/models"
	dErrors "turnstile/pkg/domain-errors"
)

// Server captures process-level configuration.
type Server struct {
	Addr        string
	Environment string

	// AdminTokenHash is the bcrypt hash admin bearer tokens verify against.
	// Empty disables the admin surface entirely.
	AdminTokenHash string

	// JWTSigningKey verifies bearer tokens for user-level identity. Empty
	// disables bearer subjects; API keys and IPs still resolve.
	JWTSigningKey string

	// UpstreamURL is the service gated traffic is proxied to. Empty means the
	// gate runs without an upstream and protected paths answer 404.
	UpstreamURL string

	// TracingEnabled turns on OpenTelemetry spans around fraud
	// classification, exported through the process's global tracer provider.
	TracingEnabled bool

	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig

	// AuditBuffer sizes the async audit publisher channel.
	AuditBuffer int

	// RecorderBuffer sizes the usage/violation recorder queue.
	RecorderBuffer int

	// CleanupInterval paces the memory-store expiry sweep.
	CleanupInterval time.Duration
}

// RedisConfig holds counter/ledger store connection settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig holds compliance persistence settings.
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// KafkaConfig holds the audit sink settings. Empty brokers disables the sink.
type KafkaConfig struct {
	Brokers    string
	AuditTopic string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:           envOr("TURNSTILE_ADDR", ":8080"),
		Environment:    envOr("TURNSTILE_ENV", "development"),
		AdminTokenHash: os.Getenv("TURNSTILE_ADMIN_TOKEN_HASH"),
		JWTSigningKey:  os.Getenv("TURNSTILE_JWT_SIGNING_KEY"),
		UpstreamURL:    os.Getenv("TURNSTILE_UPSTREAM_URL"),
		TracingEnabled: envBool("TURNSTILE_TRACING", false),
		Redis: RedisConfig{
			URL:          os.Getenv("TURNSTILE_REDIS_URL"),
			PoolSize:     envInt("TURNSTILE_REDIS_POOL_SIZE", 20),
			MinIdleConns: envInt("TURNSTILE_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("TURNSTILE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("TURNSTILE_REDIS_READ_TIMEOUT", 100*time.Millisecond),
			WriteTimeout: envDuration("TURNSTILE_REDIS_WRITE_TIMEOUT", 100*time.Millisecond),
		},
		Postgres: PostgresConfig{
			URL:             os.Getenv("TURNSTILE_POSTGRES_URL"),
			MaxOpenConns:    envInt("TURNSTILE_POSTGRES_MAX_OPEN", 25),
			MaxIdleConns:    envInt("TURNSTILE_POSTGRES_MAX_IDLE", 5),
			ConnMaxLifetime: envDuration("TURNSTILE_POSTGRES_CONN_LIFETIME", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:    os.Getenv("TURNSTILE_KAFKA_BROKERS"),
			AuditTopic: envOr("TURNSTILE_KAFKA_AUDIT_TOPIC", "turnstile.audit"),
		},
		AuditBuffer:     envInt("TURNSTILE_AUDIT_BUFFER", 1024),
		RecorderBuffer:  envInt("TURNSTILE_RECORDER_BUFFER", 4096),
		CleanupInterval: envDuration("TURNSTILE_CLEANUP_INTERVAL", 5*time.Minute),
	}
}

// EngineFromEnv returns the engine policy config with environment overrides
// applied, validated. The failure policy and protected prefixes are the knobs
// operators most often need to change without a rebuild.
func EngineFromEnv() (*enginecfg.Config, error) {
	cfg := enginecfg.DefaultConfig()

	if v := os.Getenv("TURNSTILE_FAILURE_API"); v != "" {
		mode, err := enginecfg.ParseFailureMode(v)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, "TURNSTILE_FAILURE_API")
		}
		cfg.Failure[models.ClassAPI] = mode
	}
	if v := os.Getenv("TURNSTILE_FAILURE_PAYMENT"); v != "" {
		mode, err := enginecfg.ParseFailureMode(v)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeConfiguration, "TURNSTILE_FAILURE_PAYMENT")
		}
		cfg.Failure[models.ClassPayment] = mode
	}
	if v := os.Getenv("TURNSTILE_API_PREFIXES"); v != "" {
		cfg.Prefixes.API = splitList(v)
	}
	if v := os.Getenv("TURNSTILE_PAYMENT_PREFIXES"); v != "" {
		cfg.Prefixes.Payment = splitList(v)
	}
	if v := os.Getenv("TURNSTILE_TIER_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.TierCacheTTL = d
		}
	}
	if v := os.Getenv("TURNSTILE_STORE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Windows.StoreTimeout = d
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
