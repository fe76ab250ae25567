package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khidma-app/khidma/internal/apperr"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret())
	require.NoError(t, err)
	return signed
}

func TestParseBearer(t *testing.T) {
	signed := signToken(t, jwt.MapClaims{
		"user_id":           "u1",
		"role":              "provider",
		"provider_verified": true,
		"exp":               time.Now().Add(time.Hour).Unix(),
	})

	ident, err := ParseBearer(signed)
	require.NoError(t, err)
	assert.Equal(t, "u1", ident.UserID)
	assert.Equal(t, "provider", ident.Role)
	assert.True(t, ident.ProviderVerified)
}

func TestParseBearerExpired(t *testing.T) {
	signed := signToken(t, jwt.MapClaims{
		"user_id": "u1",
		"role":    "seeker",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})

	_, err := ParseBearer(signed)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestParseBearerGarbage(t *testing.T) {
	_, err := ParseBearer("not-a-token")
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestParseBearerMissingUserID(t *testing.T) {
	signed := signToken(t, jwt.MapClaims{
		"role": "seeker",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	_, err := ParseBearer(signed)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}
