package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "admin", RoleAdmin, 10, time.Now())
	require.NoError(t, err)

	claims, err := ParseAccessToken("s3cret", tok.Token, nil)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)

	_, err = ParseAccessToken("other", tok.Token, nil)
	assert.Error(t, err)
}

func TestAccessTokenExpired(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "admin", RoleAdmin, 1, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = ParseAccessToken("s3cret", tok.Token, nil)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestAccessTokenExpiryFollowsInjectedClock(t *testing.T) {
	issued := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	tok, err := NewAccessToken("s3cret", "admin", RoleAdmin, 5, issued)
	require.NoError(t, err)

	at := func(ts time.Time) func() time.Time { return func() time.Time { return ts } }

	claims, err := ParseAccessToken("s3cret", tok.Token, at(issued.Add(4*time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)

	_, err = ParseAccessToken("s3cret", tok.Token, at(issued.Add(6*time.Minute)))
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestAccessTokenRejectsOtherAlgorithms(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: RoleAdmin}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseAccessToken("s3cret", raw, nil)
	assert.Error(t, err)
}

func TestAdminCredential(t *testing.T) {
	cred, err := NewAdminCredential("letmein", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, cred.Verify("letmein"))
	assert.False(t, cred.Verify("letmeout"))
	assert.False(t, cred.Verify(""))

	_, err = NewAdminCredential("", bcrypt.MinCost)
	assert.Error(t, err)
}
