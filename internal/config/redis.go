package config

// Redis backs the token-bucket rate limiter and the AI summary cache. The
// client parameters are loaded from environment variables. If the server
// cannot be reached during startup the constructor returns nil and callers
// degrade gracefully by skipping rate limiting and caching.

import (
	"context"
	"crypto/tls"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from the environment:
//
//	REDIS_ADDR     host:port (default localhost:6379)
//	REDIS_HOST/REDIS_PORT  override REDIS_ADDR when both are set
//	REDIS_PASSWORD optional password
//	REDIS_DB       database number (default 0)
//	REDIS_TLS      "true" or "1" enables TLS
func RedisOptions() *redis.Options {
	addr := getenv("REDIS_ADDR", "localhost:6379")
	if host, port := getenv("REDIS_HOST", ""), getenv("REDIS_PORT", ""); host != "" && port != "" {
		addr = host + ":" + port
	}
	dbNum, err := strconv.Atoi(getenv("REDIS_DB", "0"))
	if err != nil {
		dbNum = 0
	}
	opts := &redis.Options{
		Addr:     addr,
		Password: getenv("REDIS_PASSWORD", ""),
		DB:       dbNum,
	}
	if v := getenv("REDIS_TLS", ""); strings.EqualFold(v, "true") || v == "1" {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// NewRedisClient connects using RedisOptions and pings the server with a
// short timeout. It returns nil when REDIS_DISABLED is set or the ping fails.
func NewRedisClient() *redis.Client {
	if getenv("REDIS_DISABLED", "") == "true" {
		return nil
	}
	client := redis.NewClient(RedisOptions())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
