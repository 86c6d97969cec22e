// Package config loads service configuration from environment variables and
// an optional YAML file. Environment always wins, with the AUTHCORE_ prefix:
// AUTHCORE_DATABASE_DSN, AUTHCORE_SIGNING_KEY and so on.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/avagner/authcore/internal/crypto"
	"github.com/avagner/authcore/internal/crypto/fieldcipher"
	"github.com/avagner/authcore/internal/errs"
	"github.com/avagner/authcore/internal/keys"
	"github.com/avagner/authcore/internal/token"
)

const envPrefix = "AUTHCORE"

// Config carries everything the service needs at startup.
type Config struct {
	Environment string `mapstructure:"environment"`

	// Either a full DSN or the individual postgres_* parts.
	DatabaseDSN      string `mapstructure:"database_dsn"`
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDB       string `mapstructure:"postgres_db"`

	// Base64-encoded key material. No defaults: both must be provided.
	SigningKey      string `mapstructure:"signing_key"`
	EncryptionKey   string `mapstructure:"encryption_key"`
	CipherAlgorithm string `mapstructure:"cipher_algorithm"`

	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`

	HashTime    uint32 `mapstructure:"hash_time"`
	HashMemory  uint32 `mapstructure:"hash_memory"`
	HashThreads uint8  `mapstructure:"hash_threads"`

	BulkheadSize int           `mapstructure:"bulkhead_size"`
	BulkheadWait time.Duration `mapstructure:"bulkhead_wait"`

	LimiterWindow   time.Duration `mapstructure:"limiter_window"`
	LimiterMaxFails int           `mapstructure:"limiter_max_fails"`
	LimiterLockout  time.Duration `mapstructure:"limiter_lockout"`
}

func defaults() map[string]any {
	return map[string]any{
		"environment":       "development",
		"database_dsn":      "",
		"postgres_host":     "localhost",
		"postgres_port":     5432,
		"postgres_user":     "postgres",
		"postgres_password": "postgres",
		"postgres_db":       "authcore",
		"signing_key":       "",
		"encryption_key":    "",
		"cipher_algorithm":  string(fieldcipher.AlgorithmAESGCM),
		"access_token_ttl":  15 * time.Minute,
		"hash_time":         3,
		"hash_memory":       64 * 1024,
		"hash_threads":      1,
		"bulkhead_size":     8,
		"bulkhead_wait":     time.Duration(0),
		"limiter_window":    15 * time.Minute,
		"limiter_max_fails": 5,
		"limiter_lockout":   15 * time.Minute,
	}
}

// Load reads configuration and validates it. path may name an explicit YAML
// file; otherwise authcore.yaml is searched for in the working directory and
// /etc/authcore, and a missing file is fine.
func Load(path string) (*Config, error) {
	v := viper.New()

	for key, val := range defaults() {
		v.SetDefault(key, val)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("authcore")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/authcore")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the loaded values without touching the network. Key
// material is checked by Material instead, so database-only callers can load
// config keyless.
func (c *Config) Validate() error {
	switch fieldcipher.Algorithm(c.CipherAlgorithm) {
	case fieldcipher.AlgorithmAESGCM, fieldcipher.AlgorithmXChaCha, "":
	default:
		return fmt.Errorf("cipher_algorithm %q is not supported: %w", c.CipherAlgorithm, errs.ErrInvalidInput)
	}
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("access_token_ttl must be positive: %w", errs.ErrInvalidInput)
	}
	threads := c.HashThreads
	if threads == 0 {
		threads = 1
	}
	if c.HashMemory != 0 && c.HashMemory < 8*uint32(threads) {
		return fmt.Errorf("hash_memory must be at least 8 KiB per thread: %w", errs.ErrInvalidInput)
	}
	if c.DSN() == "" {
		return fmt.Errorf("database connection is not configured: %w", errs.ErrInvalidInput)
	}
	return nil
}

// Material decodes both keys into a redacted, zeroizable bundle.
func (c *Config) Material() (*keys.Material, error) {
	sig, err := c.SigningKeyBytes()
	if err != nil {
		return nil, err
	}
	enc, err := c.EncryptionKeyBytes()
	if err != nil {
		return nil, err
	}
	return keys.New(sig, enc)
}

// HashParams returns the argon2id cost factors. Zero fields fall back to the
// hasher defaults.
func (c *Config) HashParams() crypto.Params {
	return crypto.Params{Time: c.HashTime, Memory: c.HashMemory, Threads: c.HashThreads}
}

// SigningKeyBytes decodes the base64 token signing key.
func (c *Config) SigningKeyBytes() ([]byte, error) {
	if c.SigningKey == "" {
		return nil, fmt.Errorf("signing_key is required: %w", errs.ErrInvalidInput)
	}
	b, err := base64.StdEncoding.DecodeString(c.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("signing_key is not base64: %w", errs.ErrInvalidInput)
	}
	if len(b) < token.MinKeyLen {
		return nil, fmt.Errorf("signing_key must decode to at least %d bytes: %w", token.MinKeyLen, errs.ErrInvalidInput)
	}
	return b, nil
}

// EncryptionKeyBytes decodes the base64 field-encryption key.
func (c *Config) EncryptionKeyBytes() ([]byte, error) {
	if c.EncryptionKey == "" {
		return nil, fmt.Errorf("encryption_key is required: %w", errs.ErrInvalidInput)
	}
	b, err := base64.StdEncoding.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption_key is not base64: %w", errs.ErrInvalidInput)
	}
	if len(b) != fieldcipher.KeySize {
		return nil, fmt.Errorf("encryption_key must decode to %d bytes: %w", fieldcipher.KeySize, errs.ErrInvalidInput)
	}
	return b, nil
}

// DSN returns database_dsn when set, otherwise a URL assembled from the
// postgres_* parts.
func (c *Config) DSN() string {
	if c.DatabaseDSN != "" {
		return c.DatabaseDSN
	}
	if c.PostgresHost == "" || c.PostgresUser == "" || c.PostgresDB == "" {
		return ""
	}
	port := c.PostgresPort
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:   net.JoinHostPort(c.PostgresHost, strconv.Itoa(port)),
		Path:   "/" + c.PostgresDB,
	}
	return u.String()
}

// Development reports whether the development profile is active, which picks
// the human-readable logger.
func (c *Config) Development() bool {
	return strings.EqualFold(c.Environment, "development")
}
