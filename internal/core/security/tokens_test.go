package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSessionToken(t *testing.T) {
	token, sessionID, err := GenerateSessionToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(token, "mx_sess_"))
	assert.Len(t, token, len("mx_sess_")+64)
	assert.Len(t, sessionID, 64)
	assert.Equal(t, HashToken(token), sessionID)

	other, _, err := GenerateSessionToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestValidateToken(t *testing.T) {
	token, sessionID, err := GenerateSessionToken()
	require.NoError(t, err)

	assert.True(t, ValidateToken(token, sessionID))
	assert.False(t, ValidateToken(token+"x", sessionID))
	assert.False(t, ValidateToken("", sessionID))
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: 4}

	hash, err := h.Hash("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	assert.NoError(t, h.Compare(hash, "secret123"))
	assert.ErrorIs(t, h.Compare(hash, "secret124"), ErrPasswordMismatch)
	assert.Error(t, h.Compare("not-a-hash", "secret123"))
}
