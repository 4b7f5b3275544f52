package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/erazemk/komponente/internal/model"
)

// Claims represents the JWT claims. The token ID is the session ID.
type Claims struct {
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

// DefaultTokenExpiry is the token lifetime when none is configured.
const DefaultTokenExpiry = 7 * 24 * time.Hour

// GenerateToken signs a token for session s that expires after ttl.
func GenerateToken(secret string, s model.Session, ttl time.Duration) (string, error) {
	if s.ID == "" {
		return "", fmt.Errorf("session id required")
	}

	issued := time.Now()
	claims := Claims{
		UserID:      s.UserID,
		DisplayName: s.DisplayName,
		Username:    s.Username,
		Role:        s.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(issued),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

// Session returns the identity snapshot carried by the claims.
func (c *Claims) Session() model.Session {
	return model.Session{
		ID:          c.ID,
		UserID:      c.UserID,
		DisplayName: c.DisplayName,
		Username:    c.Username,
		Role:        c.Role,
	}
}
