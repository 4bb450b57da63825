package jwt

import (
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAccessToken(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)

	token, expiresAt, err := svc.GenerateAccessToken("user-1")
	require.NoError(t, err)
	assert.Greater(t, expiresAt, time.Now().Unix())

	parsed, err := jwtauth.VerifyToken(svc.JWTAuth(), token)
	require.NoError(t, err)

	userID, ok := parsed.Get("user_id")
	require.True(t, ok)
	assert.Equal(t, "user-1", userID)
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	token, _, err := NewJWTService("secret", time.Hour).GenerateAccessToken("user-1")
	require.NoError(t, err)

	_, err = jwtauth.VerifyToken(NewJWTService("other", time.Hour).JWTAuth(), token)
	assert.Error(t, err)
}
