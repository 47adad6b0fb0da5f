// Package ai talks to an OpenAI-compatible chat completions API. It backs
// the summarize and chat endpoints and the queued entry summaries.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/andymattgee/swe-blog/internal/service"
)

const summaryPrompt = "Summarize the following journal entry in two or three sentences. Reply with the summary only."

// Roles accepted in chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config holds the upstream endpoint settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client calls the upstream API. Every call is bounded by Config.Timeout.
type Client struct {
	cfg Config
	api *openai.Client
}

// NewClient builds a client for cfg. A nil hc uses http.DefaultClient.
func NewClient(cfg Config, hc *http.Client) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if hc != nil {
		oc.HTTPClient = hc
	}
	return &Client{cfg: cfg, api: openai.NewClientWithConfig(oc)}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

// Summarize returns a short summary of content.
func (c *Client) Summarize(ctx context.Context, content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", &service.ValidationError{Field: "content", Msg: "content is required"}
	}
	return c.complete(ctx, []Message{
		{Role: RoleSystem, Content: summaryPrompt},
		{Role: RoleUser, Content: content},
	})
}

// Chat forwards a conversation and returns the assistant's reply.
func (c *Client) Chat(ctx context.Context, msgs []Message) (string, error) {
	if len(msgs) == 0 {
		return "", &service.ValidationError{Field: "messages", Msg: "messages are required"}
	}
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return "", &service.ValidationError{Field: "messages", Msg: fmt.Sprintf("unknown role %q", m.Role)}
		}
		if strings.TrimSpace(m.Content) == "" {
			return "", &service.ValidationError{Field: "messages", Msg: "message content is required"}
		}
	}
	return c.complete(ctx, msgs)
}

func (c *Client) complete(ctx context.Context, msgs []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:    c.cfg.Model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(msgs)),
	}
	for _, m := range msgs {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", upstreamErr(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: empty completion", service.ErrUpstream)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// upstreamErr folds SDK errors into ErrUpstream, keeping the provider's
// status and message for the logs.
func upstreamErr(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: status %d: %s", service.ErrUpstream, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: status %d: %w", service.ErrUpstream, reqErr.HTTPStatusCode, reqErr.Err)
	}
	return fmt.Errorf("%w: %w", service.ErrUpstream, err)
}
