package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/andymattgee/swe-blog/internal/handler" // handlers implementing each endpoint
)

// Guards are the middleware chains shared by the route groups.
type Guards struct {
	Auth      echo.MiddlewareFunc // bearer token gate
	APILimit  echo.MiddlewareFunc // general rate limit, keyed by user once authenticated
	AuthLimit echo.MiddlewareFunc // tighter limit for credential and AI endpoints
}

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterUploads serves the local image store. It is only mounted when
// images are kept on disk.
func RegisterUploads(e *echo.Echo, dir string) {
	e.Static("/uploads", dir)
}

// RegisterAuth registers account and session routes. Register and login are
// open but tightly rate limited; everything else needs a bearer token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, g Guards) {
	e.POST("/register", a.Register, g.AuthLimit)
	e.POST("/login", a.Login, g.AuthLimit)
	e.POST("/logout", a.Logout, g.Auth)
	e.POST("/logout-all", a.LogoutAll, g.Auth)

	users := e.Group("/users", g.Auth, g.APILimit)
	users.GET("/me", a.Me)
	users.POST("/change-password", a.ChangePassword, g.AuthLimit)
	users.POST("/profile-picture", a.ProfilePicture)
}
