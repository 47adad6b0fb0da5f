package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists the active-token list of every user, one row per
// token in `user_tokens`. Only token hashes are stored.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Store appends a token hash to the user's active list.
func (r *TokenRepo) Store(ctx context.Context, userID uint64, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO user_tokens (user_id, token_hash, created_at) VALUES (?,?,?)",
		userID, tokenHash, time.Now().UTC().Truncate(time.Second))
	if isDuplicate(err) {
		return ErrDuplicateToken
	}
	return err
}

// Exists reports whether the hash is in the user's active list.
func (r *TokenRepo) Exists(ctx context.Context, userID uint64, tokenHash string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM user_tokens WHERE user_id=? AND token_hash=? LIMIT 1",
		userID, tokenHash).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes one token from the user's list. Deleting an absent token
// is not an error.
func (r *TokenRepo) Delete(ctx context.Context, userID uint64, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM user_tokens WHERE user_id=? AND token_hash=?",
		userID, tokenHash)
	return err
}

// DeleteAllForUser empties the user's active list.
func (r *TokenRepo) DeleteAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM user_tokens WHERE user_id=?", userID)
	return err
}
