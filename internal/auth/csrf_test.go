package auth_test

import (
	"testing"

	"github.com/biyuboxing/adminauth/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCSRFToken(t *testing.T) {
	first, err := auth.GenerateCSRFToken()
	require.NoError(t, err)
	second, err := auth.GenerateCSRFToken()
	require.NoError(t, err)

	assert.Len(t, first, 64, "32 random bytes hex-encoded")
	assert.NotEqual(t, first, second)
}

func TestVerifyCSRFToken(t *testing.T) {
	token, err := auth.GenerateCSRFToken()
	require.NoError(t, err)

	assert.True(t, auth.VerifyCSRFToken(token, token))
	assert.False(t, auth.VerifyCSRFToken(token, "something-else"))
	assert.False(t, auth.VerifyCSRFToken(token, ""))
	assert.False(t, auth.VerifyCSRFToken("", token))
	assert.False(t, auth.VerifyCSRFToken("", ""))
}
