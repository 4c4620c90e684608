// Package config builds runtime configuration from environment variables so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs at startup. Postgres, Redis,
// and Kafka are each optional: without Postgres the server runs on the
// in-memory store, without Redis the list view scans the store, without
// Kafka the outbox stays unpublished.
type Config struct {
	Addr string

	PostgresURL string
	RedisURL    string

	KafkaBrokers []string
	KafkaTopic   string

	FraudThreshold float64
	StageRetries   int
	RetryBackoff   time.Duration

	PageSize        int
	CacheTTL        time.Duration
	OutboxInterval  time.Duration
	OutboxBatch     int
	ShutdownTimeout time.Duration

	// StageSeed seeds the built-in stage workers; 0 means wall-clock.
	StageSeed int64
}

// FromEnv reads configuration with development defaults.
func FromEnv() Config {
	return Config{
		Addr:            envString("KYC_ADDR", ":8080"),
		PostgresURL:     os.Getenv("KYC_POSTGRES_URL"),
		RedisURL:        os.Getenv("KYC_REDIS_URL"),
		KafkaBrokers:    envList("KYC_KAFKA_BROKERS"),
		KafkaTopic:      envString("KYC_KAFKA_TOPIC", "kyc.events"),
		FraudThreshold:  envFloat("KYC_FRAUD_THRESHOLD", 0.7),
		StageRetries:    envInt("KYC_STAGE_RETRIES", 2),
		RetryBackoff:    envDuration("KYC_RETRY_BACKOFF", 2*time.Second),
		PageSize:        envInt("KYC_PAGE_SIZE", 100),
		CacheTTL:        envDuration("KYC_CACHE_TTL", 5*time.Minute),
		OutboxInterval:  envDuration("KYC_OUTBOX_INTERVAL", time.Second),
		OutboxBatch:     envInt("KYC_OUTBOX_BATCH", 100),
		ShutdownTimeout: envDuration("KYC_SHUTDOWN_TIMEOUT", 10*time.Second),
		StageSeed:       int64(envInt("KYC_STAGE_SEED", 0)),
	}
}

func envString(key, fallback string) string {
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

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
