package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration. Values come from the
// environment so main stays lean; every field has a development default.
type Config struct {
	Addr        string
	DatabaseURL string
	RedisURL    string

	// KafkaBrokers enables the kafka audit sink when non-empty.
	KafkaBrokers []string
	AuditTopic   string

	JWTSigningKey string
	JWTIssuer     string

	// AllocatorRetryBudget bounds how often a registration re-attempts
	// allocation after a student number uniqueness conflict.
	AllocatorRetryBudget int

	// PublicRateLimit is the per-minute budget for the unauthenticated
	// validation endpoints. Zero disables limiting.
	PublicRateLimit int

	// BootstrapAdminEmail and BootstrapAdminPassword seed an initial admin
	// account when the staff store is empty. Both must be set; without them
	// a fresh deployment has no way to log in.
	BootstrapAdminEmail    string
	BootstrapAdminPassword string

	ShutdownTimeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:                   envOr("NBT_ADDR", ":8080"),
		DatabaseURL:            os.Getenv("NBT_DATABASE_URL"),
		RedisURL:               os.Getenv("NBT_REDIS_URL"),
		AuditTopic:             envOr("NBT_AUDIT_TOPIC", "nbt.audit"),
		JWTSigningKey:          envOr("NBT_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:              envOr("NBT_JWT_ISSUER", "nbtbook"),
		AllocatorRetryBudget:   envIntOr("NBT_ALLOCATOR_RETRIES", 5),
		PublicRateLimit:        envIntOr("NBT_PUBLIC_RATE_LIMIT", 60),
		BootstrapAdminEmail:    os.Getenv("NBT_BOOTSTRAP_ADMIN_EMAIL"),
		BootstrapAdminPassword: os.Getenv("NBT_BOOTSTRAP_ADMIN_PASSWORD"),
		ShutdownTimeout:        10 * time.Second,
	}
	if brokers := os.Getenv("NBT_KAFKA_BROKERS"); brokers != "" {
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

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
