package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "unit-test-secret"

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken(7, "ada@example.com", secret)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateAndGetClaims(token, secret)
	require.NoError(t, err)

	userID, err := UserIDFromClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, uint(7), userID)
	assert.Equal(t, "ada@example.com", claims["email"])
}

func TestGenerateTokenEmptySecret(t *testing.T) {
	_, err := GenerateToken(7, "ada@example.com", "")
	assert.Error(t, err)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(7, "ada@example.com", secret)
	require.NoError(t, err)

	_, err = ValidateAndGetClaims(token, "some-other-secret")
	assert.Error(t, err)
}

func TestValidateExpiredToken(t *testing.T) {
	claims := gojwt.MapClaims{
		"id":    float64(7),
		"email": "ada@example.com",
		"exp":   time.Now().Add(-time.Hour).Unix(),
	}
	expired, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = ValidateAndGetClaims(expired, secret)
	assert.Error(t, err)
}

func TestValidateRejectsWrongAlgorithm(t *testing.T) {
	token := gojwt.NewWithClaims(gojwt.SigningMethodNone, gojwt.MapClaims{"id": float64(7)})
	unsigned, err := token.SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateAndGetClaims(unsigned, secret)
	assert.Error(t, err)
}

func TestUserIDFromClaimsMissing(t *testing.T) {
	_, err := UserIDFromClaims(gojwt.MapClaims{"email": "x@example.com"})
	assert.Error(t, err)
}
