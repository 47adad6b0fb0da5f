package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andymattgee/swe-blog/internal/config"
	"github.com/andymattgee/swe-blog/internal/logging"
	"github.com/andymattgee/swe-blog/internal/service"
)

// completionRequest is the part of the request body the fake upstream checks.
type completionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

func completionServer(t *testing.T, status int, reply string, seen *completionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]string{"role": "assistant", "content": reply}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(url string) *Client {
	return NewClient(Config{BaseURL: url + "/v1/", APIKey: "key", Model: "m1", Timeout: 2 * time.Second}, nil)
}

func TestSummarize(t *testing.T) {
	var seen completionRequest
	srv := completionServer(t, http.StatusOK, "  A short summary. ", &seen)

	got, err := newTestClient(srv.URL).Summarize(context.Background(), "long text")
	require.NoError(t, err)
	assert.Equal(t, "A short summary.", got)
	assert.Equal(t, "m1", seen.Model)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, RoleSystem, seen.Messages[0].Role)
	assert.Equal(t, "long text", seen.Messages[1].Content)
}

func TestChat(t *testing.T) {
	var seen completionRequest
	srv := completionServer(t, http.StatusOK, "hello there", &seen)
	c := newTestClient(srv.URL)

	reply, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "hello there", reply)
	assert.Len(t, seen.Messages, 1)

	_, err = c.Chat(context.Background(), nil)
	assert.ErrorIs(t, err, service.ErrValidation)
	_, err = c.Chat(context.Background(), []Message{{Role: "robot", Content: "x"}})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestUpstreamFailures(t *testing.T) {
	srv := completionServer(t, http.StatusTooManyRequests, "", nil)
	_, err := newTestClient(srv.URL).Summarize(context.Background(), "x")
	assert.ErrorIs(t, err, service.ErrUpstream)
	assert.ErrorContains(t, err, "status 429: quota exceeded")

	empty := completionServer(t, http.StatusOK, "", nil)
	_, err = newTestClient(empty.URL).Summarize(context.Background(), "x")
	assert.ErrorIs(t, err, service.ErrUpstream)

	_, err = newTestClient("http://127.0.0.1:1").Summarize(context.Background(), "x")
	assert.ErrorIs(t, err, service.ErrUpstream)

	_, err = newTestClient(srv.URL).Summarize(context.Background(), "   ")
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)
	start := time.Now()
	_, err := c.Summarize(context.Background(), "x")
	assert.ErrorIs(t, err, service.ErrUpstream)
	assert.Less(t, time.Since(start), time.Second)
}

type countingSummarizer struct{ calls int }

func (c *countingSummarizer) Summarize(context.Context, string) (string, error) {
	c.calls++
	return "s", nil
}

func TestCachedSummarizer_PassThrough(t *testing.T) {
	next := &countingSummarizer{}
	s := NewCachedSummarizer(next, "m1", nil, config.SummaryCacheConfig{Enabled: true, TTL: time.Hour, Prefix: "summary"}, logging.Discard())

	for range 2 {
		got, err := s.Summarize(context.Background(), "x")
		require.NoError(t, err)
		assert.Equal(t, "s", got)
	}
	assert.Equal(t, 2, next.calls, "no redis means no caching")
}

func TestCachedSummarizer_RedisDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()

	next := &countingSummarizer{}
	s := NewCachedSummarizer(next, "m1", rdb, config.SummaryCacheConfig{Enabled: true, TTL: time.Hour, Prefix: "summary"}, logging.Discard())
	got, err := s.Summarize(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "s", got)
	assert.Equal(t, 1, next.calls)
}

func TestCachedSummarizer_KeyDependsOnModel(t *testing.T) {
	cfg := config.SummaryCacheConfig{Prefix: "summary"}
	a := NewCachedSummarizer(nil, "m1", nil, cfg, logging.Discard())
	b := NewCachedSummarizer(nil, "m2", nil, cfg, logging.Discard())
	assert.NotEqual(t, a.key("x"), b.key("x"))
	assert.Equal(t, a.key("x"), a.key("x"))
	assert.Contains(t, a.key("x"), "summary:")
}
