package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

// AccessTokenValidity is how long a minted token stays usable.
const AccessTokenValidity = time.Hour * 24

// GenerateToken mints an HS256 access token carrying the user id and email.
func GenerateToken(userID uint, email string, secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt secret is empty")
	}
	claims := jwt.MapClaims{
		"id":    userID,
		"email": email,
		"exp":   time.Now().Add(AccessTokenValidity).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateAndGetClaims parses the token, enforcing the HS256 signature and
// expiry, and returns its claims.
func ValidateAndGetClaims(tokenString string, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// UserIDFromClaims extracts the numeric user id claim.
func UserIDFromClaims(claims jwt.MapClaims) (uint, error) {
	idValue, ok := claims["id"]
	if !ok {
		return 0, fmt.Errorf("missing id claim")
	}
	idFloat, ok := idValue.(float64)
	if !ok {
		return 0, fmt.Errorf("invalid id claim type")
	}
	return uint(idFloat), nil
}
