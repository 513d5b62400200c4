package auth

import (
	"context"
	"fmt"
	"time"
)

// Logger is the structured logger used across the package. Arguments after
// the message are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Session holds attributes that are part of an auth session
type Session interface {
	GetUserID() string
	GetRole() string
	GetImpersonatedBy() string
	IsImpersonated() bool
	GetIssuedAt() *time.Time
	GetExpiresAt() *time.Time
}

// Identity holds the attributes of an identity
type Identity interface {
	ID() string
	Name() string
	Email() string
	Role() string
	Active() bool
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() time.Duration
	GetImpersonationExpiration() time.Duration
	GetIssuer() string
	GetAudience() []string
	GetContextKey() string
	GetAuthScheme() string
}

// IdentityProvider ensure we have a store to retrieve auth identity
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByID(ctx context.Context, id string) (Identity, error)
}

// TokenService issues and validates signed session tokens
type TokenService interface {
	Generate(identity Identity) (string, error)
	GenerateImpersonation(identity Identity, adminID string) (string, error)
	SignClaims(claims *JWTClaims) (string, error)
	Validate(tokenString string) (*JWTClaims, error)
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Println(line("[ERR] AUTH", msg, args)...)
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Println(line("[WRN] AUTH", msg, args)...)
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Println(line("[INF] AUTH", msg, args)...)
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Println(line("[DBG] AUTH", msg, args)...)
}

func line(prefix, msg string, args []any) []any {
	out := make([]any, 0, len(args)+2)
	out = append(out, prefix, msg)
	return append(out, args...)
}

// NoopLogger discards every entry
type NoopLogger struct{}

func (NoopLogger) Debug(string, ...any) {}
func (NoopLogger) Info(string, ...any)  {}
func (NoopLogger) Warn(string, ...any)  {}
func (NoopLogger) Error(string, ...any) {}
