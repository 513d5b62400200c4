package main

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-tiltguard/api"
	"github.com/goliatone/go-tiltguard/auth"
	"github.com/goliatone/go-tiltguard/blocking"
	"github.com/goliatone/go-tiltguard/cache"
	"github.com/goliatone/go-tiltguard/guideaccess"
	"github.com/goliatone/go-tiltguard/middleware/ratelimit"
	"github.com/goliatone/go-tiltguard/repository"
	"github.com/goliatone/go-tiltguard/users"
)

// stack is a wired server plus what must be released on shutdown
type stack struct {
	db      *bun.DB
	server  *api.Server
	limiter *ratelimit.Limiter
	redis   *cache.RedisStatusCache
}

func (s *stack) Close() error {
	if s.limiter != nil {
		s.limiter.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (a *app) openDB(ctx context.Context) (*bun.DB, error) {
	p := a.cfg.Persistence
	return repository.Open(ctx, repository.Config{
		Driver: p.Driver,
		DSN:    p.DSN,
		Debug:  p.Debug,
	})
}

func (a *app) migrate(ctx context.Context, db *bun.DB) error {
	group, err := repository.Migrate(ctx, db)
	if err != nil {
		return err
	}
	if group.IsZero() {
		a.GetLogger("migrate").Info("database is up to date")
		return nil
	}
	a.GetLogger("migrate").Info("migrations applied", "group", group.ID, "migrations", group.Migrations.String())
	return nil
}

// buildStack connects every service to db and builds the HTTP server
func (a *app) buildStack(ctx context.Context, db *bun.DB) (*stack, error) {
	cfg := a.cfg
	st := &stack{db: db}

	auth.MaxLoginAttempts = cfg.Auth.MaxLoginAttempts
	auth.CoolDownPeriod = cfg.Auth.LoginCoolDown.String()

	repo := repository.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		return nil, err
	}

	activity := auth.LoggerActivitySink(a.GetLogger("activity"))

	provider := auth.NewUserProvider(repo.Users()).
		WithLogger(a.GetLogger("auth:provider"))

	authenticator := auth.NewAuthenticator(provider, cfg.Auth).
		WithLogger(a.GetLogger("auth:authz")).
		WithActivitySink(activity)

	register := auth.NewRegisterUserHandler(repo).
		WithLogger(a.GetLogger("auth:register")).
		WithActivitySink(activity)

	blockingSvc := blocking.NewService(repo.BlockSettings()).
		WithLogger(a.GetLogger("blocking"))

	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisStatusCache(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		st.redis = redisCache
		blockingSvc.WithCache(redisCache, cfg.Redis.StatusTTL.Duration)
		a.GetLogger("blocking").Info("redis status cache enabled", "ttl", cfg.Redis.StatusTTL.String())
	}

	guideSvc := guideaccess.NewService(repo.GuideAccess()).
		WithLogger(a.GetLogger("guide")).
		WithWindow(guideaccess.Window{
			Cooldown: cfg.Guide.Cooldown.Duration,
			Access:   cfg.Guide.AccessWindow.Duration,
		})

	usersSvc := users.NewService(repo).
		WithLogger(a.GetLogger("users")).
		WithRegion(cfg.Users.DefaultRegion).
		WithStatusForgetter(blockingSvc).
		WithActivitySink(activity)

	var limit fiber.Handler
	if cfg.Server.AuthRateLimit > 0 {
		st.limiter = ratelimit.New(ratelimit.Config{
			Rate:  cfg.Server.AuthRateLimit,
			Burst: cfg.Server.AuthRateBurst,
		})
		limit = st.limiter.Handler()
	}

	st.server = api.NewServer(api.Dependencies{
		Auth:        authenticator,
		Register:    register,
		Users:       usersSvc,
		Blocking:    blockingSvc,
		Guide:       guideSvc,
		AuthLimiter: limit,
	}, api.Options{
		ContextKey:  cfg.Auth.GetContextKey(),
		AuthScheme:  cfg.Auth.GetAuthScheme(),
		CORSOrigins: cfg.Server.CORSOrigins,
		BodyLimit:   cfg.Server.BodyLimit,
	}, a.GetLogger("http"))

	return st, nil
}
