// ABOUTME: Tests for JWT verification and generation.
// ABOUTME: Covers round trips, expiry, tampering, and secret length checks.

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSecret is a 32-byte secret that meets MinSecretLength.
var testSecret = []byte("todo-mcp-token-test-secret-32by!")

func TestNewJWTVerifier_ShortSecret(t *testing.T) {
	_, err := NewJWTVerifier([]byte("short"))
	assert.ErrorIs(t, err, ErrShortSecret)
}

func TestVerify_RoundTrip(t *testing.T) {
	v, err := NewJWTVerifier(testSecret)
	require.NoError(t, err)

	token, err := v.Generate("todo", time.Hour)
	require.NoError(t, err)

	sub, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "todo", sub)
}

func TestVerify_Expired(t *testing.T) {
	v, err := NewJWTVerifier(testSecret)
	require.NoError(t, err)

	token, err := v.Generate("todo", -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	v1, err := NewJWTVerifier(testSecret)
	require.NoError(t, err)
	v2, err := NewJWTVerifier([]byte("a-completely-different-32b-secret!!"))
	require.NoError(t, err)

	token, err := v1.Generate("todo", time.Hour)
	require.NoError(t, err)

	_, err = v2.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Garbage(t *testing.T) {
	v, err := NewJWTVerifier(testSecret)
	require.NoError(t, err)

	_, err = v.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
