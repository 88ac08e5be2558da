package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenService(t *testing.T) {
	ts := NewTokenService("access-secret-key", 15)

	assert.NotNil(t, ts)
	assert.Equal(t, "access-secret-key", ts.AccessTokenSecret)
	assert.Equal(t, 15*time.Minute, ts.AccessTokenExpiry)
}

func TestTokenService_Generate(t *testing.T) {
	ts := NewTokenService("access-secret", 15)

	pair, err := ts.Generate("user-123", "test@example.com", "standard")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEmpty(t, pair.AccessTokenID)

	t.Run("access token carries identity and jti", func(t *testing.T) {
		claims, err := ts.VerifyAccessToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.UserID)
		assert.Equal(t, "test@example.com", claims.Email)
		assert.Equal(t, "standard", claims.Role)
		assert.Equal(t, pair.AccessTokenID, claims.ID)
	})

	t.Run("refresh tokens are unique per generation", func(t *testing.T) {
		other, err := ts.Generate("user-123", "test@example.com", "standard")
		require.NoError(t, err)
		assert.NotEqual(t, pair.RefreshToken, other.RefreshToken)
		assert.NotEqual(t, pair.AccessTokenID, other.AccessTokenID)
	})
}

func TestTokenService_VerifyAccessToken(t *testing.T) {
	ts := NewTokenService("access-secret", 15)

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := ts.VerifyAccessToken("delta")
		assert.Error(t, err)
	})

	t.Run("rejects a token signed with another secret", func(t *testing.T) {
		forged := NewTokenService("other-secret", 15)
		pair, err := forged.Generate("user-123", "test@example.com", "standard")
		require.NoError(t, err)

		_, err = ts.VerifyAccessToken(pair.AccessToken)
		assert.Error(t, err)
	})

	t.Run("rejects non-HMAC signing methods", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": "user-123"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = ts.VerifyAccessToken(unsigned)
		assert.Error(t, err)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		expired := NewTokenService("access-secret", -1)
		pair, err := expired.Generate("user-123", "test@example.com", "standard")
		require.NoError(t, err)

		_, err = ts.VerifyAccessToken(pair.AccessToken)
		assert.Error(t, err)
	})
}

func TestTokenService_ParseAccessToken(t *testing.T) {
	ts := NewTokenService("access-secret", 15)

	t.Run("accepts an expired token", func(t *testing.T) {
		expired := NewTokenService("access-secret", -1)
		pair, err := expired.Generate("user-123", "test@example.com", "standard")
		require.NoError(t, err)

		claims, err := ts.ParseAccessToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.UserID)
	})

	t.Run("still rejects a bad signature", func(t *testing.T) {
		forged := NewTokenService("other-secret", 15)
		pair, err := forged.Generate("user-123", "test@example.com", "standard")
		require.NoError(t, err)

		_, err = ts.ParseAccessToken(pair.AccessToken)
		assert.Error(t, err)
	})

	t.Run("still rejects garbage", func(t *testing.T) {
		_, err := ts.ParseAccessToken("delta")
		assert.Error(t, err)
	})
}
