package jwt

import (
	"errors"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestGenerateAndValidate(t *testing.T) {
	tm := NewTokenManager(secret, "wingmentor-auth", time.Hour)

	token, err := tm.GenerateToken("u1", "u1@example.com", "Amelia E")
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID())
	assert.Equal(t, "u1@example.com", claims.Email)
	assert.Equal(t, "Amelia E", claims.DisplayName)
}

func TestValidate_Expired(t *testing.T) {
	tm := NewTokenManager(secret, "wingmentor-auth", -time.Minute)
	token, err := tm.GenerateToken("u1", "", "")
	require.NoError(t, err)

	_, err = tm.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidate_WrongIssuerOrSecret(t *testing.T) {
	other, err := NewTokenManager(secret, "someone-else", time.Hour).GenerateToken("u1", "", "")
	require.NoError(t, err)
	_, err = NewTokenManager(secret, "wingmentor-auth", time.Hour).ValidateToken(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	forged, err := NewTokenManager("ffffffffffffffffffffffffffffffff", "wingmentor-auth", time.Hour).GenerateToken("u1", "", "")
	require.NoError(t, err)
	_, err = NewTokenManager(secret, "wingmentor-auth", time.Hour).ValidateToken(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_RejectsNoneAlgorithm(t *testing.T) {
	token := gojwt.NewWithClaims(gojwt.SigningMethodNone, UserClaims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   "u1",
			Issuer:    "wingmentor-auth",
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenManager(secret, "wingmentor-auth", time.Hour).ValidateToken(signed)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestValidate_MissingSubject(t *testing.T) {
	tm := NewTokenManager(secret, "wingmentor-auth", time.Hour)
	token, err := tm.GenerateToken("", "", "")
	require.NoError(t, err)

	_, err = tm.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidClaim)
}
