package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims are the claims carried by session tokens
type JWTClaims struct {
	jwt.RegisteredClaims
	UID            string `json:"id"`
	UserRole       string `json:"rol"`
	ImpersonatedBy string `json:"impersonatedBy,omitempty"`
}

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Role returns the role the token was issued for
func (c *JWTClaims) Role() string {
	return c.UserRole
}

// Impersonator returns the admin id behind an impersonated token
func (c *JWTClaims) Impersonator() string {
	return c.ImpersonatedBy
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// Session converts the claims into a Session
func (c *JWTClaims) Session() *SessionObject {
	s := &SessionObject{
		UserID:         c.UserID(),
		Role:           c.UserRole,
		ImpersonatedBy: c.ImpersonatedBy,
	}
	if t := c.IssuedAt(); !t.IsZero() {
		s.IssuedAt = &t
	}
	if t := c.Expires(); !t.IsZero() {
		s.ExpirationDate = &t
	}
	return s
}
