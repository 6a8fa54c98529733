package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticVerifier(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	v := NewStaticVerifier()
	v.now = func() time.Time { return now }

	v.Register("good", "user-1", now.Add(time.Hour))
	v.Register("stale", "user-2", now.Add(-time.Minute))
	v.Register("forever", "user-3", time.Time{})

	t.Run("valid token", func(t *testing.T) {
		claims, err := v.Verify("good")
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := v.Verify("")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := v.Verify("nope")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("expired token", func(t *testing.T) {
		_, err := v.Verify("stale")
		assert.ErrorIs(t, err, ErrCredentialExpired)
	})

	t.Run("no expiry bound", func(t *testing.T) {
		_, err := v.Verify("forever")
		assert.NoError(t, err)
	})
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	assert.False(t, Token{Value: "x", ExpiresAt: now.Add(time.Minute)}.Expired(now))
	assert.True(t, Token{Value: "x", ExpiresAt: now.Add(-time.Minute)}.Expired(now))
	assert.False(t, Token{Value: "x"}.Expired(now), "zero expiry means no bound")
}
