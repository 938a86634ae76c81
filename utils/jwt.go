package utils

import (
	"errors"
	"os"
	"time"

	"edufees/config"

	"github.com/golang-jwt/jwt"
)

// ScopeClaims are the identity claims a ledger token carries.
type ScopeClaims struct {
	UserID   string
	TenantID string
	Name     string
	Role     string
}

func secretKey() []byte {
	if config.AppConfig.JWTSecret != "" {
		return []byte(config.AppConfig.JWTSecret)
	}
	return []byte(os.Getenv("JWT_SECRET"))
}

// GenerateToken creates a signed JWT token for the given identity.
// The token expires after the specified duration.
func GenerateToken(c ScopeClaims, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":      c.UserID,
		"tenantId": c.TenantID,
		"name":     c.Name,
		"role":     c.Role,
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(duration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey())
}

// ValidateToken parses and validates a token string and returns the token if valid.
func ValidateToken(tokenString string) (*jwt.Token, error) {
	key := secretKey()
	if len(key) == 0 {
		return nil, errors.New("JWT secret is not configured")
	}
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Ensure that the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	})
}

// ExtractScopeClaims validates tokenString and returns its identity claims.
// sub is required; a missing tenantId is left for the ledger to reject.
func ExtractScopeClaims(tokenString string) (ScopeClaims, error) {
	token, err := ValidateToken(tokenString)
	if err != nil {
		return ScopeClaims{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return ScopeClaims{}, errors.New("invalid token")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return ScopeClaims{}, errors.New("token does not contain a valid 'sub' claim")
	}

	out := ScopeClaims{UserID: sub}
	out.TenantID, _ = claims["tenantId"].(string)
	out.Name, _ = claims["name"].(string)
	out.Role, _ = claims["role"].(string)
	return out, nil
}
