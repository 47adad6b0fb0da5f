package service

import (
	"context"
	"errors"
	"strings"

	"github.com/andymattgee/swe-blog/internal/logging"
	"github.com/andymattgee/swe-blog/internal/model"
	"github.com/andymattgee/swe-blog/internal/repository"
	"github.com/andymattgee/swe-blog/internal/storage"
	"github.com/andymattgee/swe-blog/internal/utils"
)

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthService manages accounts and their sessions.
type AuthService struct {
	users  UserStore
	tokens *TokenService
	images imageSaver
	cost   int
	log    logging.Logger
}

func NewAuthService(users UserStore, tokens *TokenService, images storage.Store, bcryptCost int, maxImageBytes int64, log logging.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		images: imageSaver{store: images, maxBytes: maxImageBytes, log: log},
		cost:   bcryptCost,
		log:    log,
	}
}

// Register creates an account and signs the user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, string, error) {
	email := repository.NormalizeEmail(in.Email)
	if email == "" {
		return nil, "", invalid("email", "email is required")
	}
	if in.Password == "" {
		return nil, "", invalid("password", "password is required")
	}
	hash, err := utils.HashPassword(in.Password, s.cost)
	if err != nil {
		return nil, "", err
	}
	u := &model.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, "", storeErr("create user", err)
	}
	token, err := s.tokens.Issue(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}
	s.log.Info(ctx, "user registered", "user_id", u.ID)
	return u, token, nil
}

// Login checks the credentials and issues a new token. An unknown email and
// a wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, "", invalid("email", "email and password are required")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", storeErr("load user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Logout revokes the presented token only; other sessions stay valid.
func (s *AuthService) Logout(ctx context.Context, userID uint64, token string) error {
	return s.tokens.Revoke(ctx, userID, token)
}

// LogoutAll revokes every session of the user.
func (s *AuthService) LogoutAll(ctx context.Context, userID uint64) error {
	return s.tokens.RevokeAll(ctx, userID)
}

// Profile returns the current account.
func (s *AuthService) Profile(ctx context.Context, userID uint64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr("load user", err)
	}
	return u, nil
}

// ChangePassword replaces the password after checking the current one.
// Existing sessions are left alone.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint64, current, next string) error {
	if next == "" {
		return invalid("newPassword", "new password is required")
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return storeErr("load user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	hash, err := utils.HashPassword(next, s.cost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return storeErr("update password", err)
	}
	s.log.Info(ctx, "password changed", "user_id", userID)
	return nil
}

// UpdateProfilePicture stores a new avatar and returns its reference. The
// previous image, if any, is removed afterwards.
func (s *AuthService) UpdateProfilePicture(ctx context.Context, userID uint64, up ImageUpload) (string, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", storeErr("load user", err)
	}
	ref, err := s.images.save(ctx, "profiles", &up)
	if err != nil {
		return "", err
	}
	if err := s.users.UpdateProfileImage(ctx, userID, ref); err != nil {
		s.images.discard(ctx, ref)
		return "", storeErr("update profile image", err)
	}
	if u.ProfileImageURL != ref {
		s.images.discard(ctx, u.ProfileImageURL)
	}
	return ref, nil
}
