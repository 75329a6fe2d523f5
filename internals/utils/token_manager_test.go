package utils

import (
	"testing"
	"time"

	"chat-friendly/internals/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenManager(maxAge int) *TokenManager {
	return NewTokenManager(&config.CookieConfig{HttpOnly: true}, "test-secret", maxAge)
}

func TestIssueAndVerify(t *testing.T) {
	tm := newTestTokenManager(3600)

	tokenStr, err := tm.Issue(42)
	require.NoError(t, err)

	userID, jti, expiresAt, err := tm.Verify(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
	assert.NotEmpty(t, jti)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	tm := newTestTokenManager(3600)

	tokenStr, err := tm.Issue(42)
	require.NoError(t, err)

	_, _, _, err = tm.Verify(tokenStr + "x")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	tm := newTestTokenManager(3600)
	other := NewTokenManager(&config.CookieConfig{}, "other-secret", 3600)

	tokenStr, err := other.Issue(42)
	require.NoError(t, err)

	_, _, _, err = tm.Verify(tokenStr)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	tm := newTestTokenManager(-10)

	tokenStr, err := tm.Issue(42)
	require.NoError(t, err)

	_, _, _, err = tm.Verify(tokenStr)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestExtractClaimsOnExpiredToken(t *testing.T) {
	// Logout must still be able to denylist an already-expired credential.
	tm := newTestTokenManager(-10)

	tokenStr, err := tm.Issue(42)
	require.NoError(t, err)

	jti, expiresAt, err := tm.ExtractClaims(tokenStr)
	require.NoError(t, err)
	assert.NotEmpty(t, jti)
	assert.True(t, expiresAt.Before(time.Now()))
}

func TestUniqueJTIPerIssue(t *testing.T) {
	tm := newTestTokenManager(3600)

	t1, err := tm.Issue(1)
	require.NoError(t, err)
	t2, err := tm.Issue(1)
	require.NoError(t, err)

	_, jti1, _, err := tm.Verify(t1)
	require.NoError(t, err)
	_, jti2, _, err := tm.Verify(t2)
	require.NoError(t, err)
	assert.NotEqual(t, jti1, jti2)
}
