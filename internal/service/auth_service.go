package service

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"campaignlens/internal/model"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// AuthService validates host tokens issued by the external auth provider
type AuthService struct {
	jwtSecret []byte
}

// NewAuthService creates a new auth service sharing the provider's HS256 secret
func NewAuthService(secret string) *AuthService {
	return &AuthService{jwtSecret: []byte(secret)}
}

// ValidateHostToken validates a host JWT and returns claims
func (s *AuthService) ValidateHostToken(tokenString string) (*model.HostClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.HostClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.HostClaims)
	if !ok || !token.Valid || claims.HostID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
