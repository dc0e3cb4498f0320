package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/planner-api/internal/models"
	appErrors "github.com/noah-isme/planner-api/pkg/errors"
)

// TokenService verifies HS256 access tokens issued by the identity service.
type TokenService struct {
	secret []byte
	leeway time.Duration
}

// NewTokenService constructs a verifier for secret.
func NewTokenService(secret string, leeway time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), leeway: leeway}
}

// ValidateToken parses tokenString and returns its claims when the signature and lifetime check out.
func (s *TokenService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	if len(s.secret) == 0 {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token verification is not configured")
	}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(tokenString), &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithLeeway(s.leeway))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.StudentID() == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token has no subject")
	}
	return claims, nil
}
