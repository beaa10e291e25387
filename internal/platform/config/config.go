// Package config builds runtime configuration from environment variables so
// main stays lean. Every backend is optional: with no database, Redis, or
// Kafka configured the service runs fully in-memory, which is the
// development and unit-test mode.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures the full server configuration.
type Config struct {
	Addr string

	// DatabaseURL enables the PostgreSQL stores when set. Empty means
	// in-memory stores.
	DatabaseURL string

	// RedisURL enables the Redis OTP attempt throttle when set.
	RedisURL string

	// KafkaBrokers enables the audit event publisher when non-empty.
	KafkaBrokers    []string
	KafkaAuditTopic string

	JWTSigningKey string
	JWTIssuer     string

	// SMTP settings for OTP delivery. Empty SMTPAddr means console-only
	// delivery (development mode).
	SMTPAddr string
	SMTPFrom string

	// Confirm-attempt throttling. Zero MaxConfirmAttempts disables the
	// throttle, which preserves the bare workflow semantics.
	MaxConfirmAttempts    int
	ConfirmAttemptsWindow time.Duration
}

// FromEnv reads configuration from the environment, applying development
// defaults.
func FromEnv() Config {
	cfg := Config{
		Addr:                  envOr("CERTIVA_ADDR", ":8080"),
		DatabaseURL:           os.Getenv("CERTIVA_DATABASE_URL"),
		RedisURL:              os.Getenv("CERTIVA_REDIS_URL"),
		KafkaAuditTopic:       envOr("CERTIVA_KAFKA_AUDIT_TOPIC", "certiva.audit"),
		JWTSigningKey:         envOr("CERTIVA_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:             envOr("CERTIVA_JWT_ISSUER", "certiva"),
		SMTPAddr:              os.Getenv("CERTIVA_SMTP_ADDR"),
		SMTPFrom:              envOr("CERTIVA_SMTP_FROM", "no-reply@example.com"),
		MaxConfirmAttempts:    envInt("CERTIVA_MAX_CONFIRM_ATTEMPTS", 0),
		ConfirmAttemptsWindow: envDuration("CERTIVA_CONFIRM_ATTEMPTS_WINDOW", 10*time.Minute),
	}
	if brokers := os.Getenv("CERTIVA_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
