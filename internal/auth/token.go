package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/echopoint/echopoint/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims carries the subject account id plus the registered time claims.
type TokenClaims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies the bearer credential.
type TokenManager struct {
	secret string
	expiry time.Duration
}

func NewTokenManager(secret string, expiry time.Duration) *TokenManager {
	return &TokenManager{secret: secret, expiry: expiry}
}

// Issue creates a signed token for the account id with issued-at and expiry.
func (tm *TokenManager) Issue(userID string) (string, error) {
	now := time.Now()
	claims := &TokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Verify parses and validates a token, returning its claims. Signature
// comparison inside the HMAC check is constant-time.
func (tm *TokenManager) Verify(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.NewUnauthorizedError("Token has expired. Please log in again.")
		}
		return nil, models.NewUnauthorizedError("Invalid token. Please log in.")
	}

	if !token.Valid || claims.UserID == "" {
		return nil, models.NewUnauthorizedError("Invalid token. Please log in.")
	}

	return claims, nil
}
