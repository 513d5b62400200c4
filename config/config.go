// Package config loads tiltguard settings from a TOML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "TILTGUARD_"

// Duration is a time.Duration read from strings like "2h" or "30m"
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type ServerConfig struct {
	Address         string   `toml:"address"`
	CORSOrigins     []string `toml:"cors_origins"`
	BodyLimit       int      `toml:"body_limit"`
	AuthRateLimit   float64  `toml:"auth_rate_limit"`
	AuthRateBurst   int      `toml:"auth_rate_burst"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

type PersistenceConfig struct {
	Driver      string `toml:"driver"`
	DSN         string `toml:"dsn"`
	Debug       bool   `toml:"debug"`
	AutoMigrate bool   `toml:"auto_migrate"`
}

type RedisConfig struct {
	URL       string   `toml:"url"`
	StatusTTL Duration `toml:"status_ttl"`
}

type GuideConfig struct {
	Cooldown     Duration `toml:"cooldown"`
	AccessWindow Duration `toml:"access_window"`
}

type UsersConfig struct {
	DefaultRegion string `toml:"default_region"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ClientConfig struct {
	APIURL       string   `toml:"api_url"`
	Token        string   `toml:"token"`
	Email        string   `toml:"email"`
	Password     string   `toml:"password"`
	PollInterval Duration `toml:"poll_interval"`
}

// Config is the resolved application configuration
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Auth        AuthConfig        `toml:"auth"`
	Persistence PersistenceConfig `toml:"persistence"`
	Redis       RedisConfig       `toml:"redis"`
	Guide       GuideConfig       `toml:"guide"`
	Users       UsersConfig       `toml:"users"`
	Log         LogConfig         `toml:"log"`
	Client      ClientConfig      `toml:"client"`
}

// Defaults returns the configuration used when nothing else is set
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":5000",
			CORSOrigins:     []string{"*"},
			BodyLimit:       1 << 20,
			AuthRateLimit:   1,
			AuthRateBurst:   10,
			ShutdownTimeout: Duration{10 * time.Second},
		},
		Auth: AuthConfig{
			SigningKey:              "tiltguard-dev-secret",
			Issuer:                  "tiltguard",
			Audience:                []string{"tiltguard"},
			TokenExpiration:         Duration{7 * 24 * time.Hour},
			ImpersonationExpiration: Duration{2 * time.Hour},
			ContextKey:              "user",
			AuthScheme:              "Bearer",
			MaxLoginAttempts:        5,
			LoginCoolDown:           Duration{24 * time.Hour},
		},
		Persistence: PersistenceConfig{
			Driver:      "sqlite",
			DSN:         "file:tiltguard.db?cache=shared",
			AutoMigrate: true,
		},
		Redis: RedisConfig{
			StatusTTL: Duration{5 * time.Minute},
		},
		Guide: GuideConfig{
			Cooldown:     Duration{2 * time.Hour},
			AccessWindow: Duration{24 * time.Hour},
		},
		Users: UsersConfig{
			DefaultRegion: "ES",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Client: ClientConfig{
			APIURL:       "http://localhost:5000/api",
			PollInterval: Duration{time.Minute},
		},
	}
}

// Load reads path over the defaults and then applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, k := range undecoded {
				keys = append(keys, k.String())
			}
			return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that would break the server at runtime
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Auth.SigningKey) == "" {
		errs = append(errs, errors.New("auth.signing_key is required"))
	}

	switch c.Persistence.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("persistence.driver %q is not supported", c.Persistence.Driver))
	}

	if c.Auth.TokenExpiration.Duration <= 0 {
		errs = append(errs, errors.New("auth.token_expiration must be positive"))
	}

	if c.Guide.Cooldown.Duration <= 0 || c.Guide.AccessWindow.Duration <= 0 {
		errs = append(errs, errors.New("guide windows must be positive"))
	}

	if c.Client.PollInterval.Duration <= 0 {
		errs = append(errs, errors.New("client.poll_interval must be positive"))
	}

	return errors.Join(errs...)
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			parts := strings.Split(v, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			*dst = out
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *Duration) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			}
		}
	}

	str("SERVER_ADDRESS", &c.Server.Address)
	list("SERVER_CORS_ORIGINS", &c.Server.CORSOrigins)

	str("AUTH_SIGNING_KEY", &c.Auth.SigningKey)
	str("AUTH_ISSUER", &c.Auth.Issuer)
	list("AUTH_AUDIENCE", &c.Auth.Audience)
	duration("AUTH_TOKEN_EXPIRATION", &c.Auth.TokenExpiration)
	duration("AUTH_IMPERSONATION_EXPIRATION", &c.Auth.ImpersonationExpiration)
	integer("AUTH_MAX_LOGIN_ATTEMPTS", &c.Auth.MaxLoginAttempts)

	str("PERSISTENCE_DRIVER", &c.Persistence.Driver)
	str("PERSISTENCE_DSN", &c.Persistence.DSN)
	boolean("PERSISTENCE_DEBUG", &c.Persistence.Debug)
	boolean("PERSISTENCE_AUTO_MIGRATE", &c.Persistence.AutoMigrate)

	str("REDIS_URL", &c.Redis.URL)
	duration("REDIS_STATUS_TTL", &c.Redis.StatusTTL)

	duration("GUIDE_COOLDOWN", &c.Guide.Cooldown)
	duration("GUIDE_ACCESS_WINDOW", &c.Guide.AccessWindow)

	str("USERS_DEFAULT_REGION", &c.Users.DefaultRegion)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	str("CLIENT_API_URL", &c.Client.APIURL)
	str("CLIENT_TOKEN", &c.Client.Token)
	str("CLIENT_EMAIL", &c.Client.Email)
	str("CLIENT_PASSWORD", &c.Client.Password)
	duration("CLIENT_POLL_INTERVAL", &c.Client.PollInterval)

	return errors.Join(errs...)
}

// Masked returns a copy safe to print
func (c *Config) Masked() *Config {
	out := *c
	out.Auth.SigningKey = mask(c.Auth.SigningKey)
	out.Client.Token = mask(c.Client.Token)
	out.Client.Password = mask(c.Client.Password)
	out.Redis.URL = maskURLPassword(c.Redis.URL)
	return &out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}

func maskURLPassword(raw string) string {
	at := strings.LastIndex(raw, "@")
	scheme := strings.Index(raw, "://")
	if at < 0 || scheme < 0 {
		return raw
	}
	creds := raw[scheme+3 : at]
	if i := strings.Index(creds, ":"); i >= 0 {
		return raw[:scheme+3] + creds[:i] + ":****" + raw[at:]
	}
	return raw
}
