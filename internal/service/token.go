package service

import (
	"context"
	"errors"
	"time"

	"github.com/andymattgee/swe-blog/internal/model"
	"github.com/andymattgee/swe-blog/internal/repository"
	"github.com/andymattgee/swe-blog/internal/utils"
)

// TokenService issues and verifies bearer session tokens. A token is valid
// while its signature verifies and its hash is still on the owner's active
// list; revocation removes the hash.
type TokenService struct {
	users  UserStore
	tokens TokenStore
	secret string
	ttl    time.Duration
}

// NewTokenService builds a TokenService. A ttl of zero issues tokens without
// an expiry.
func NewTokenService(users UserStore, tokens TokenStore, secret string, ttl time.Duration) *TokenService {
	return &TokenService{users: users, tokens: tokens, secret: secret, ttl: ttl}
}

// Issue signs a new token for userID and appends it to the active list.
func (s *TokenService) Issue(ctx context.Context, userID uint64) (string, error) {
	raw, err := utils.NewSessionToken(s.secret, userID, s.ttl)
	if err != nil {
		return "", err
	}
	if err := s.tokens.Store(ctx, userID, utils.HashToken(raw)); err != nil {
		return "", storeErr("store token", err)
	}
	return raw, nil
}

// Verify resolves raw to its owner.
func (s *TokenService) Verify(ctx context.Context, raw string) (*model.User, error) {
	uid, err := utils.ParseSessionToken(s.secret, raw)
	if err != nil {
		return nil, ErrInvalidToken
	}
	u, err := s.users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRevokedToken
		}
		return nil, storeErr("load token owner", err)
	}
	ok, err := s.tokens.Exists(ctx, uid, utils.HashToken(raw))
	if err != nil {
		return nil, storeErr("check token", err)
	}
	if !ok {
		return nil, ErrRevokedToken
	}
	return u, nil
}

// Revoke removes exactly one token from the user's list. Revoking a token
// that is already gone succeeds.
func (s *TokenService) Revoke(ctx context.Context, userID uint64, raw string) error {
	return storeErr("revoke token", s.tokens.Delete(ctx, userID, utils.HashToken(raw)))
}

// RevokeAll ends every session of the user.
func (s *TokenService) RevokeAll(ctx context.Context, userID uint64) error {
	return storeErr("revoke tokens", s.tokens.DeleteAllForUser(ctx, userID))
}
