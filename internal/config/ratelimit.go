package config

import (
	"os"
	"strconv"
	"time"
)

// RateLimitConfig parameterizes one Redis token bucket. The server runs two:
// a general bucket for every API route (env prefix RATE_LIMIT) and a tighter
// one for credential and AI endpoints (env prefix AUTH_RATE_LIMIT).
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads <envPrefix>_ENABLED, _CAPACITY, _REFILL_TOKENS,
// _REFILL_INTERVAL, _TTL, _KEY_STRATEGY and _DEBUG. def supplies the values
// used for anything unset.
func LoadRateLimitConfig(envPrefix string, def RateLimitConfig) RateLimitConfig {
	k := func(s string) string { return envPrefix + "_" + s }
	cfg := RateLimitConfig{
		Enabled:        envBool(k("ENABLED"), def.Enabled),
		Capacity:       envInt(k("CAPACITY"), def.Capacity),
		RefillTokens:   envInt(k("REFILL_TOKENS"), def.RefillTokens),
		RefillInterval: envDur(k("REFILL_INTERVAL"), def.RefillInterval),
		TTL:            envDur(k("TTL"), def.TTL),
		KeyStrategy:    envStr(k("KEY_STRATEGY"), def.KeyStrategy),
		Prefix:         envStr(k("PREFIX"), def.Prefix),
		Debug:          envBool(k("DEBUG"), def.Debug),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	return cfg
}

// DefaultAPIRateLimit is the general bucket: 60 requests, one token per second.
var DefaultAPIRateLimit = RateLimitConfig{
	Enabled:        true,
	Capacity:       60,
	RefillTokens:   1,
	RefillInterval: time.Second,
	TTL:            10 * time.Minute,
	KeyStrategy:    "ip_user_route",
	Prefix:         "rl",
}

// DefaultAuthRateLimit guards login, register and AI calls: 10 requests,
// one token every six seconds, keyed by client IP and route.
var DefaultAuthRateLimit = RateLimitConfig{
	Enabled:        true,
	Capacity:       10,
	RefillTokens:   1,
	RefillInterval: 6 * time.Second,
	TTL:            10 * time.Minute,
	KeyStrategy:    "ip_route",
	Prefix:         "rl-auth",
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	if dur, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return dur
	}
	return d
}
