// Package middleware contains the echo middleware of the API: the bearer
// token gate and the Redis token-bucket rate limiter.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/andymattgee/swe-blog/internal/logging"
	"github.com/andymattgee/swe-blog/internal/model"
	"github.com/andymattgee/swe-blog/internal/service"
)

// Context keys set by Auth.
const (
	ContextUser  = "user"
	ContextToken = "token"
)

// TokenVerifier resolves a raw bearer token to its owner.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*model.User, error)
}

// Auth rejects requests without a valid `Authorization: Bearer <token>`
// header with 401 before the handler runs. On success the resolved user and
// the raw token are stored on the context under ContextUser and ContextToken.
func Auth(v TokenVerifier, log logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			u, err := v.Verify(c.Request().Context(), raw)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrInvalidToken):
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
				case errors.Is(err, service.ErrRevokedToken):
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token revoked"})
				default:
					log.Error(c.Request().Context(), "verify token failed", "err", err)
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
				}
			}
			c.Set(ContextUser, u)
			c.Set(ContextToken, raw)
			return next(c)
		}
	}
}

// CurrentUser returns the user stored by Auth.
func CurrentUser(c echo.Context) (*model.User, bool) {
	u, ok := c.Get(ContextUser).(*model.User)
	return u, ok && u != nil
}

// CurrentToken returns the raw bearer token stored by Auth.
func CurrentToken(c echo.Context) string {
	s, _ := c.Get(ContextToken).(string)
	return s
}

func bearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
