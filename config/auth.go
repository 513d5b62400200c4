package config

import (
	"time"

	"github.com/goliatone/go-tiltguard/auth"
)

// AuthConfig holds the authenticator options
type AuthConfig struct {
	SigningKey              string   `toml:"signing_key"`
	Issuer                  string   `toml:"issuer"`
	Audience                []string `toml:"audience"`
	TokenExpiration         Duration `toml:"token_expiration"`
	ImpersonationExpiration Duration `toml:"impersonation_expiration"`
	ContextKey              string   `toml:"context_key"`
	AuthScheme              string   `toml:"auth_scheme"`
	MaxLoginAttempts        int      `toml:"max_login_attempts"`
	LoginCoolDown           Duration `toml:"login_cool_down"`
}

var _ auth.Config = AuthConfig{}

func (a AuthConfig) GetSigningKey() string {
	return a.SigningKey
}

func (a AuthConfig) GetTokenExpiration() time.Duration {
	return a.TokenExpiration.Duration
}

func (a AuthConfig) GetImpersonationExpiration() time.Duration {
	return a.ImpersonationExpiration.Duration
}

func (a AuthConfig) GetIssuer() string {
	return a.Issuer
}

func (a AuthConfig) GetAudience() []string {
	return a.Audience
}

func (a AuthConfig) GetContextKey() string {
	if a.ContextKey == "" {
		return "user"
	}
	return a.ContextKey
}

func (a AuthConfig) GetAuthScheme() string {
	if a.AuthScheme == "" {
		return "Bearer"
	}
	return a.AuthScheme
}
