package ops

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultServiceTokenTTL = time.Hour

type ServiceClaims struct {
	Service string `json:"svc"`
	jwt.RegisteredClaims
}

// TokenManager mints and validates the HS256 service tokens that guard
// the ops surface. These are operator credentials, not end-user ones.
type TokenManager struct {
	secret []byte
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret)}
}

func (m *TokenManager) Enabled() bool {
	return len(m.secret) > 0
}

func (m *TokenManager) Generate(service string) (string, error) {
	now := time.Now()
	claims := ServiceClaims{
		Service: service,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(defaultServiceTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "restyle",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing service token: %w", err)
	}
	return signed, nil
}

func (m *TokenManager) Validate(tokenStr string) (*ServiceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &ServiceClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing service token: %w", err)
	}

	claims, ok := token.Claims.(*ServiceClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid service token claims")
	}
	return claims, nil
}
