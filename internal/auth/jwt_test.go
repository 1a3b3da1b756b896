package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func mintToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestJWTValidator_AcceptsValidToken(t *testing.T) {
	req := require.New(t)
	v := NewJWTValidator(testSecret)

	token := mintToken(t, testSecret, Claims{
		UserID: "user-42",
		Name:   "Alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := v.Validate(context.Background(), token)
	req.NoError(err)
	req.Equal("user-42", claims.UserID)
	req.Equal("Alice", claims.Name)
}

func TestJWTValidator_RejectsExpiredToken(t *testing.T) {
	req := require.New(t)
	v := NewJWTValidator(testSecret)

	token := mintToken(t, testSecret, Claims{
		UserID: "user-42",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})

	_, err := v.Validate(context.Background(), token)
	req.ErrorIs(err, ErrExpiredToken)
}

func TestJWTValidator_RejectsWrongSecret(t *testing.T) {
	req := require.New(t)
	v := NewJWTValidator(testSecret)

	token := mintToken(t, "other-secret", Claims{UserID: "user-42"})

	_, err := v.Validate(context.Background(), token)
	req.ErrorIs(err, ErrInvalidToken)
}

func TestJWTValidator_RejectsGarbage(t *testing.T) {
	req := require.New(t)
	v := NewJWTValidator(testSecret)

	_, err := v.Validate(context.Background(), "not.a.jwt")
	req.ErrorIs(err, ErrInvalidToken)
}

func TestJWTValidator_FallsBackToSubject(t *testing.T) {
	req := require.New(t)
	v := NewJWTValidator(testSecret)

	token := mintToken(t, testSecret, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "sub-7"},
	})

	claims, err := v.Validate(context.Background(), token)
	req.NoError(err)
	req.Equal("sub-7", claims.UserID)
}

func TestJWTValidator_RejectsTokenWithoutIdentity(t *testing.T) {
	req := require.New(t)
	v := NewJWTValidator(testSecret)

	token := mintToken(t, testSecret, Claims{Name: "anonymous"})

	_, err := v.Validate(context.Background(), token)
	req.ErrorIs(err, ErrInvalidToken)
}
