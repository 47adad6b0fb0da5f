package router

import (
	"github.com/labstack/echo/v4"

	"github.com/andymattgee/swe-blog/internal/handler"
)

// RegisterEntries registers the journal entry endpoints. Ownership is
// enforced by the service layer, so no route-level check is needed.
func RegisterEntries(e *echo.Echo, h *handler.EntryHandler, g Guards) {
	grp := e.Group("/entries", g.Auth, g.APILimit)
	grp.GET("", h.List)
	grp.POST("", h.Create)
	grp.GET("/:id", h.Get)
	grp.PUT("/:id", h.Update)
	grp.DELETE("/:id", h.Delete)
	grp.POST("/:id/summary", h.Summarize, g.AuthLimit)
}

// RegisterTodos registers the todo endpoints.
func RegisterTodos(e *echo.Echo, h *handler.TodoHandler, g Guards) {
	grp := e.Group("/todos", g.Auth, g.APILimit)
	grp.GET("", h.List)
	grp.POST("", h.Create)
	grp.GET("/:id", h.Get)
	grp.PUT("/:id", h.Update)
	grp.DELETE("/:id", h.Delete)
	grp.PATCH("/:id/toggle", h.Toggle)
}

// RegisterAI registers the AI pass-through. Upstream calls cost money, so
// the whole group sits behind the tight bucket.
func RegisterAI(e *echo.Echo, h *handler.AIHandler, g Guards) {
	grp := e.Group("/ai", g.Auth, g.AuthLimit)
	grp.POST("/summarize", h.Summarize)
	grp.POST("/chat", h.ChatReply)
}
