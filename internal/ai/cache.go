package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/andymattgee/swe-blog/internal/config"
	"github.com/andymattgee/swe-blog/internal/logging"
	"github.com/andymattgee/swe-blog/internal/service"
)

// CachedSummarizer memoizes summaries in Redis by a digest of model and
// content. Redis failures fall through to the upstream call.
type CachedSummarizer struct {
	next  service.Summarizer
	model string
	rdb   *redis.Client
	cfg   config.SummaryCacheConfig
	log   logging.Logger
}

// NewCachedSummarizer wraps next. With caching disabled or a nil client the
// wrapper is a plain pass-through.
func NewCachedSummarizer(next service.Summarizer, model string, rdb *redis.Client, cfg config.SummaryCacheConfig, log logging.Logger) *CachedSummarizer {
	return &CachedSummarizer{next: next, model: model, rdb: rdb, cfg: cfg, log: log}
}

func (s *CachedSummarizer) Summarize(ctx context.Context, content string) (string, error) {
	if !s.cfg.Enabled || s.rdb == nil {
		return s.next.Summarize(ctx, content)
	}
	key := s.key(content)

	hit, err := s.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		return hit, nil
	case !errors.Is(err, redis.Nil):
		s.log.Warn(ctx, "summary cache read failed", "err", err)
	}

	summary, err := s.next.Summarize(ctx, content)
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, key, summary, s.cfg.TTL).Err(); err != nil {
		s.log.Warn(ctx, "summary cache write failed", "err", err)
	}
	return summary, nil
}

func (s *CachedSummarizer) key(content string) string {
	sum := sha256.Sum256([]byte(s.model + "\x00" + content))
	return s.cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}
