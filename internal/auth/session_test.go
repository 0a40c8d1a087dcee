package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateSessionToken(t *testing.T) {
	token, err := GenerateSessionToken()
	require.NoError(t, err)
	require.Len(t, token, 64) // 32 random bytes hex-encoded

	other, err := GenerateSessionToken()
	require.NoError(t, err)
	require.NotEqual(t, token, other)
}

func TestCalculateExpiry(t *testing.T) {
	expiry := CalculateExpiry()
	require.WithinDuration(t, time.Now().Add(SessionDuration), expiry, time.Minute)
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEqual(t, "correct horse battery staple", hash)

	require.True(t, CheckPassword("correct horse battery staple", hash))
	require.False(t, CheckPassword("wrong password", hash))
	require.False(t, CheckPassword("", hash))
}
