// Package config holds the environment-driven configuration for the device
// trust server. Policy constants (weights, thresholds, limits) are not here
// on purpose: they are compile-time constants in pkg/devicetrust and
// pkg/fingerprint, not runtime-mutable state.
package config

import (
	"fmt"
	"time"
)

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	Host string `env:"DT_HTTP_HOST" env-default:"0.0.0.0"`
	Port uint16 `env:"DT_HTTP_PORT" env-default:"4000"`
	// RateLimitBurst and RateLimitPerMinute throttle each client IP; a zero
	// burst disables the limiter
	RateLimitBurst     int `env:"DT_RATE_LIMIT_BURST" env-default:"30"`
	RateLimitPerMinute int `env:"DT_RATE_LIMIT_PER_MINUTE" env-default:"120"`
}

// Addr returns the host:port listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds PostgreSQL database configuration
type DatabaseConfig struct {
	Host     string `env:"DT_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"DT_PG_PORT" env-default:"5432"`
	Database string `env:"DT_PG_DATABASE" env-default:"devicetrust_db"`
	User     string `env:"DT_PG_USER" env-default:"devicetrust"`
	Password string `env:"DT_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"DT_PG_SCHEMA" env-default:"public"`
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

// DeviceTrustConfig holds operational knobs for the trust engine
type DeviceTrustConfig struct {
	// Persistence selects the repository backend: "postgres" or "inmem"
	Persistence string `env:"DT_PERSISTENCE" env-default:"inmem"`
	// EncryptionKey is the hex-encoded 32-byte key sealing stored
	// characteristics; required for the postgres backend
	EncryptionKey string `env:"DT_ENCRYPTION_KEY"`
	// CacheTTL bounds profile read-cache staleness; zero disables the cache
	CacheTTL time.Duration `env:"DT_CACHE_TTL" env-default:"30s"`
	// RetentionWindow is how long an unverified active device survives a
	// cleanup sweep
	RetentionWindow time.Duration `env:"DT_RETENTION_WINDOW" env-default:"4320h"`
}

// Config is the root configuration for cmd/devicetrust
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	DeviceTrust DeviceTrustConfig
}
