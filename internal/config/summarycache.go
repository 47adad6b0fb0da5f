package config

import (
	"os"
	"time"
)

// SummaryCacheConfig defines settings for the Redis cache in front of the AI
// summarizer. Identical content yields identical summaries, so results are
// keyed by a digest of the input. When Enabled is false or no Redis client is
// configured, every request goes to the upstream API.
type SummaryCacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadSummaryCacheConfig reads environment variables to build a
// SummaryCacheConfig. Defaults are used when variables are not set.
func LoadSummaryCacheConfig() SummaryCacheConfig {
	return SummaryCacheConfig{
		Enabled: getenv("SUMMARY_CACHE_ENABLED", "true") == "true",
		TTL:     parseDur(getenv("SUMMARY_CACHE_TTL", "24h")),
		Prefix:  getenv("SUMMARY_CACHE_PREFIX", "summary"),
	}
}

// Helper functions reused from redis.go and ratelimit.go
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Hour
	}
	return d
}
