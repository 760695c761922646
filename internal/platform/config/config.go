// Package config loads and validates the process configuration from the
// environment. Key material is validated here so a misconfigured deployment
// dies at startup instead of silently producing unqueryable blind indexes or
// unreadable ciphertexts.
package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"sigil/internal/identity/blindindex"
	"sigil/internal/identity/cipher"
)

// Config is the full process configuration.
type Config struct {
	Addr     string `env:"SIGIL_ADDR" envDefault:":8080"`
	LogLevel string `env:"SIGIL_LOG_LEVEL" envDefault:"info"`

	PostgresDSN string `env:"SIGIL_POSTGRES_DSN,notEmpty"`
	RedisURL    string `env:"SIGIL_REDIS_URL"`

	// KafkaBrokers enables the egress publisher when non-empty; the saga
	// works without Kafka, downstream consumers just see nothing.
	KafkaBrokers []string `env:"SIGIL_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"SIGIL_KAFKA_TOPIC" envDefault:"sigil.registration.facts"`

	JWTSigningKey   string        `env:"SIGIL_JWT_SIGNING_KEY,notEmpty"`
	JWTIssuer       string        `env:"SIGIL_JWT_ISSUER" envDefault:"sigil"`
	JWTAudience     string        `env:"SIGIL_JWT_AUDIENCE" envDefault:"sigil-api"`
	AccessTokenTTL  time.Duration `env:"SIGIL_ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"SIGIL_REFRESH_TOKEN_TTL" envDefault:"720h"`

	// Hex-encoded key material. Both must decode to at least 32 bytes; the
	// cipher key to exactly 32.
	BlindIndexKeyHex  string `env:"SIGIL_BLIND_INDEX_KEY,notEmpty"`
	EmailCipherKeyHex string `env:"SIGIL_EMAIL_CIPHER_KEY,notEmpty"`

	ShutdownTimeout time.Duration `env:"SIGIL_SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// Load parses the environment and validates key material.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if _, err := cfg.BlindIndexKey(); err != nil {
		return nil, err
	}
	if _, err := cfg.EmailCipherKey(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BlindIndexKey decodes and checks the blind-index key.
func (c *Config) BlindIndexKey() ([]byte, error) {
	key, err := hex.DecodeString(c.BlindIndexKeyHex)
	if err != nil {
		return nil, fmt.Errorf("SIGIL_BLIND_INDEX_KEY is not valid hex: %w", err)
	}
	if len(key) < blindindex.MinKeyLen {
		return nil, fmt.Errorf("SIGIL_BLIND_INDEX_KEY must decode to at least %d bytes, got %d",
			blindindex.MinKeyLen, len(key))
	}
	return key, nil
}

// EmailCipherKey decodes and checks the email encryption key.
func (c *Config) EmailCipherKey() ([]byte, error) {
	key, err := hex.DecodeString(c.EmailCipherKeyHex)
	if err != nil {
		return nil, fmt.Errorf("SIGIL_EMAIL_CIPHER_KEY is not valid hex: %w", err)
	}
	if len(key) != cipher.KeyLen {
		return nil, fmt.Errorf("SIGIL_EMAIL_CIPHER_KEY must decode to exactly %d bytes, got %d",
			cipher.KeyLen, len(key))
	}
	return key, nil
}
