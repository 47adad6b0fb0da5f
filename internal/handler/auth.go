package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/andymattgee/swe-blog/internal/logging"
	"github.com/andymattgee/swe-blog/internal/middleware"
	"github.com/andymattgee/swe-blog/internal/model"
	"github.com/andymattgee/swe-blog/internal/service"
)

// AuthHandler bundles dependencies for account and session endpoints.
type AuthHandler struct {
	Auth          *service.AuthService
	MaxImageBytes int64
	Log           logging.Logger
}

func NewAuthHandler(auth *service.AuthService, maxImageBytes int64, log logging.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, MaxImageBytes: maxImageBytes, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type authResp struct {
	User  model.PublicUser `json:"user"`
	Token string           `json:"token"`
}

// Register creates an account and returns it with a session token. Errors
// use the {"message": ...} shape the web client expects for this route.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	ctx, cancel := requestCtx(c, dbTimeout)
	defer cancel()

	u, token, err := h.Auth.Register(ctx, service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return writeErrorAs(c, h.Log, "message", err)
	}
	return c.JSON(http.StatusCreated, authResp{User: u.Public(), Token: token})
}

// Login verifies credentials and returns a fresh token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := requestCtx(c, dbTimeout)
	defer cancel()

	u, token, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, authResp{User: u.Public(), Token: token})
}

// Logout revokes the token that authenticated this request.
func (h *AuthHandler) Logout(c echo.Context) error {
	u, err := currentUser(c)
	if u == nil {
		return err
	}
	ctx, cancel := requestCtx(c, dbTimeout)
	defer cancel()

	if err := h.Auth.Logout(ctx, u.ID, middleware.CurrentToken(c)); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusOK)
}

// LogoutAll revokes every token of the current user.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	u, err := currentUser(c)
	if u == nil {
		return err
	}
	ctx, cancel := requestCtx(c, dbTimeout)
	defer cancel()

	if err := h.Auth.LogoutAll(ctx, u.ID); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusOK)
}

// Me returns the current user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	u, err := currentUser(c)
	if u == nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u.Public()})
}

func (h *AuthHandler) ChangePassword(c echo.Context) error {
	u, err := currentUser(c)
	if u == nil {
		return err
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := requestCtx(c, dbTimeout)
	defer cancel()

	if err := h.Auth.ChangePassword(ctx, u.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// ProfilePicture accepts a multipart "image" field and stores it as the
// user's avatar.
func (h *AuthHandler) ProfilePicture(c echo.Context) error {
	u, err := currentUser(c)
	if u == nil {
		return err
	}
	img, err := readImage(c, "image", h.MaxImageBytes)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if img == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "image file is required"})
	}
	ctx, cancel := requestCtx(c, uploadTimeout)
	defer cancel()

	ref, err := h.Auth.UpdateProfilePicture(ctx, u.ID, *img)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"imageUrl": ref})
}
