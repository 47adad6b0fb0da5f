package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/andymattgee/swe-blog/internal/ai"
	"github.com/andymattgee/swe-blog/internal/logging"
	"github.com/andymattgee/swe-blog/internal/service"
)

// ChatClient forwards conversations upstream; *ai.Client implements it.
type ChatClient interface {
	Chat(ctx context.Context, msgs []ai.Message) (string, error)
}

// AIHandler passes summarize and chat requests through to the AI provider.
type AIHandler struct {
	Summarizer service.Summarizer
	Chat       ChatClient
	San        *service.Sanitizer
	Log        logging.Logger
}

func NewAIHandler(sum service.Summarizer, chat ChatClient, san *service.Sanitizer, log logging.Logger) *AIHandler {
	return &AIHandler{Summarizer: sum, Chat: chat, San: san, Log: log}
}

type summarizeReq struct {
	Content string `json:"content"`
}

type chatReq struct {
	Messages []ai.Message `json:"messages"`
}

// Summarize accepts rich text or plain text and returns a short summary.
func (h *AIHandler) Summarize(c echo.Context) error {
	var req summarizeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	content := h.San.PlainText(req.Content)
	if content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "content is required"})
	}
	summary, err := h.Summarizer.Summarize(c.Request().Context(), content)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"summary": summary})
}

// ChatReply forwards the conversation and returns the assistant's reply.
func (h *AIHandler) ChatReply(c echo.Context) error {
	var req chatReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	reply, err := h.Chat.Chat(c.Request().Context(), req.Messages)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reply": reply})
}
