package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload of access tokens issued by the identity service.
// UserID doubles as the student id for plan lookups.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}

// StudentID returns the plan owner carried by the token, preferring user_id over sub.
func (c *JWTClaims) StudentID() string {
	if c == nil {
		return ""
	}
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}
