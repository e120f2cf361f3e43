package token_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/medix-console/internal/errors"
	"github.com/jrsteele09/medix-console/token"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("remote-secret"))
	require.NoError(t, err)
	return raw
}

func TestDecode(t *testing.T) {
	exp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("reads exp and user id without the signing key", func(t *testing.T) {
		claims, err := token.Decode(signed(t, jwtlib.MapClaims{"exp": exp.Unix(), "user_id": 42}))
		require.NoError(t, err)
		require.True(t, exp.Equal(claims.ExpiresAt))
		require.Equal(t, "42", claims.UserID)
	})

	t.Run("missing exp", func(t *testing.T) {
		claims, err := token.Decode(signed(t, jwtlib.MapClaims{"user_id": 1}))
		require.NoError(t, err)
		require.True(t, claims.ExpiresAt.IsZero())
		require.False(t, claims.Expired(time.Now()))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := token.Decode("not-a-jwt")
		require.True(t, errors.Is(err, errors.ErrInvalidToken))
	})

	t.Run("empty", func(t *testing.T) {
		_, err := token.Decode("  ")
		require.True(t, errors.Is(err, errors.ErrInvalidToken))
	})
}

func TestCheckExpiry(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	t.Run("one second in the past is expired", func(t *testing.T) {
		err := token.CheckExpiry(signed(t, jwtlib.MapClaims{"exp": now.Add(-time.Second).Unix()}), now)
		require.True(t, errors.Is(err, errors.ErrTokenExpired))
	})

	t.Run("future exp is valid", func(t *testing.T) {
		require.NoError(t, token.CheckExpiry(signed(t, jwtlib.MapClaims{"exp": now.Add(time.Minute).Unix()}), now))
	})

	t.Run("undecodable token", func(t *testing.T) {
		require.True(t, errors.Is(token.CheckExpiry("not-a-jwt", now), errors.ErrInvalidToken))
	})
}
