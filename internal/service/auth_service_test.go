package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sensei-assign-api/internal/models"
	appErrors "github.com/noah-isme/sensei-assign-api/pkg/errors"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims *models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func operatorClaims(role models.UserRole, expiresIn time.Duration) *models.JWTClaims {
	now := time.Now().UTC()
	return &models.JWTClaims{
		UserID: "user-1",
		Role:   role,
		Email:  "ops@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "sensei-assign",
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}
}

func TestValidateTokenAcceptsOperatorToken(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{AccessTokenSecret: testSecret, Issuer: "sensei-assign"})

	claims, err := svc.ValidateToken(signToken(t, testSecret, operatorClaims(models.RoleAdmin, time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestValidateTokenRejections(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{AccessTokenSecret: testSecret, Issuer: "sensei-assign"})

	_, err := svc.ValidateToken(signToken(t, "other-secret", operatorClaims(models.RoleAdmin, time.Hour)))
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.ValidateToken(signToken(t, testSecret, operatorClaims(models.RoleAdmin, -time.Minute)))
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	foreign := operatorClaims(models.RoleAdmin, time.Hour)
	foreign.Issuer = "someone-else"
	_, err = svc.ValidateToken(signToken(t, testSecret, foreign))
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	anonymous := operatorClaims(models.RoleOperator, time.Hour)
	anonymous.UserID = ""
	_, err = svc.ValidateToken(signToken(t, testSecret, anonymous))
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.ValidateToken(signToken(t, testSecret, operatorClaims("STUDENT", time.Hour)))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestValidateTokenRejectsOtherAlgorithms(t *testing.T) {
	svc := NewAuthService(nil, AuthConfig{AccessTokenSecret: testSecret})
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, operatorClaims(models.RoleAdmin, time.Hour))
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
