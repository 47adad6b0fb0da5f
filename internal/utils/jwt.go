package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256" // SHA-256 digests of token strings
	"encoding/hex"  // hex encoding of digests
	"errors"        // sentinel for rejected tokens
	"strconv"       // user id to subject string
	"time"          // issued-at and optional expiry

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
	"github.com/google/uuid"       // unique token ids
)

// ErrInvalidToken is returned when a token fails signature verification,
// uses an unexpected algorithm, has expired, or carries no user id.
var ErrInvalidToken = errors.New("invalid token")

// SessionClaims are the claims embedded in a bearer session token. UserID is
// duplicated into the standard subject claim for interoperability.
type SessionClaims struct {
	UserID uint64 `json:"uid"`
	jwt.RegisteredClaims
}

// NewSessionToken builds and signs an HS256 JWT for a user. Every token gets
// a random id (jti) so two logins within the same second never produce the
// same string. A ttl of zero omits the exp claim; such a token stays valid
// until it is removed from the user's active list.
func NewSessionToken(secret string, userID uint64, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  strconv.FormatUint(userID, 10),
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseSessionToken verifies the signature of raw and returns the embedded
// user id. Only HMAC signing methods are accepted.
func ParseSessionToken(secret, raw string) (uint64, error) {
	claims := &SessionClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return 0, ErrInvalidToken
	}
	if claims.UserID == 0 {
		return 0, ErrInvalidToken
	}
	return claims.UserID, nil
}

// HashToken returns the SHA-256 hash of a token string as hex. Storing only
// the hash keeps a copied token table from being replayed.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
