package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSessionToken_RoundTrip(t *testing.T) {
	raw, err := NewSessionToken("k", 42, 0)
	require.NoError(t, err)

	uid, err := ParseSessionToken("k", raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), uid)
}

func TestSessionToken_UniquePerIssue(t *testing.T) {
	a, err := NewSessionToken("k", 1, 0)
	require.NoError(t, err)
	b, err := NewSessionToken("k", 1, 0)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSessionToken_NoExpiryByDefault(t *testing.T) {
	raw, err := NewSessionToken("k", 1, 0)
	require.NoError(t, err)

	claims := &SessionClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(raw, claims)
	require.NoError(t, err)
	assert.Nil(t, claims.ExpiresAt)
	assert.Equal(t, "1", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestParseSessionToken_Rejects(t *testing.T) {
	good, err := NewSessionToken("k", 7, 0)
	require.NoError(t, err)

	exp := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		UserID:           7,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))},
	})
	expired, err := exp.SignedString([]byte("k"))
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{}).SignedString([]byte("k"))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{UserID: 7}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]struct {
		secret string
		raw    string
	}{
		"wrong secret": {"other", good},
		"garbage":      {"k", "not.a.jwt"},
		"expired":      {"k", expired},
		"no user id":   {"k", noUser},
		"alg none":     {"k", none},
		"empty":        {"k", ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSessionToken(tc.secret, tc.raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestHashToken(t *testing.T) {
	h := HashToken("abc")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashToken("abc"))
	assert.NotEqual(t, h, HashToken("abd"))
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("pw1", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", hash)
	assert.True(t, VerifyPassword(hash, "pw1"))
	assert.False(t, VerifyPassword(hash, "pw2"))
	assert.False(t, VerifyPassword("", "pw1"))
}
