// Package config loads service configuration from the environment (and an
// optional .env file) plus the YAML reference-data seed.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tanre/retro-engine/internal/share"
)

// Config holds application configuration
type Config struct {
	Port              string
	DatabaseURL       string // empty selects the in-memory store
	RedisURL          string // optional read-through cache in front of Postgres
	CacheTTL          time.Duration
	Policy            share.Policy
	CORSOrigins       []string
	LogLevel          slog.Level
	ReferenceDataPath string // YAML seed applied at startup, optional
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	partition, err := share.ParsePartitionMode(getEnv("PARTITION_POLICY", string(share.PartitionWarn)))
	if err != nil {
		return nil, fmt.Errorf("config: PARTITION_POLICY: %w", err)
	}

	ttl, err := time.ParseDuration(getEnv("CACHE_TTL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("config: CACHE_TTL: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		CacheTTL:    ttl,
		Policy: share.Policy{
			Partition:         partition,
			StrictPercentages: getEnvAsBool("STRICT_PERCENTAGES", false),
		},
		CORSOrigins:       splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:          level,
		ReferenceDataPath: os.Getenv("REFERENCE_DATA"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
