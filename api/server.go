// Package api exposes tiltguard over HTTP with fiber.
package api

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/goliatone/go-tiltguard/auth"
	"github.com/goliatone/go-tiltguard/blocking"
	"github.com/goliatone/go-tiltguard/guideaccess"
	"github.com/goliatone/go-tiltguard/middleware/jwtware"
	"github.com/goliatone/go-tiltguard/users"
)

// Authenticator is the subset of auth.Auther the routes use
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (string, auth.Identity, error)
	IssueToken(identity auth.Identity) (string, error)
	IdentityFromSession(ctx context.Context, session auth.Session) (auth.Identity, error)
	Impersonate(ctx context.Context, session auth.Session, targetID string) (string, auth.Identity, error)
	StopImpersonation(ctx context.Context, session auth.Session) (string, auth.Identity, error)
	TokenService() auth.TokenService
}

// Dependencies are the services behind the routes
type Dependencies struct {
	Auth     Authenticator
	Register *auth.RegisterUserHandler
	Users    *users.Service
	Blocking *blocking.Service
	Guide    *guideaccess.Service
	// AuthLimiter throttles login and register, optional
	AuthLimiter fiber.Handler
}

// Options tune the HTTP server
type Options struct {
	ContextKey  string
	AuthScheme  string
	CORSOrigins []string
	BodyLimit   int
}

// Server holds the fiber app and its routes
type Server struct {
	app    *fiber.App
	deps   Dependencies
	opts   Options
	logger auth.Logger
	now    func() time.Time
}

// NewServer builds the app and registers every route
func NewServer(deps Dependencies, opts Options, logger auth.Logger) *Server {
	if logger == nil {
		logger = auth.NoopLogger{}
	}
	if opts.ContextKey == "" {
		opts.ContextKey = "user"
	}
	if opts.AuthScheme == "" {
		opts.AuthScheme = "Bearer"
	}
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = fiber.DefaultBodyLimit
	}

	s := &Server{
		deps:   deps,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "tiltguard",
		BodyLimit:             opts.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(logger),
	})

	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(s.accessLog())
	s.app.Use(cors.New(corsConfig(opts.CORSOrigins)))

	s.routes()
	return s
}

// App returns the fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called
func (s *Server) Listen(addr string) error {
	s.logger.Info("http server listening", "address", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) routes() {
	limit := s.deps.AuthLimiter
	if limit == nil {
		limit = func(c *fiber.Ctx) error { return c.Next() }
	}

	token := jwtware.New(jwtware.Config{
		ContextKey: s.opts.ContextKey,
		AuthScheme: s.opts.AuthScheme,
		TokenValidator: jwtware.TokenValidatorFunc(func(raw string) (jwtware.AuthClaims, error) {
			claims, err := s.deps.Auth.TokenService().Validate(raw)
			if err != nil {
				return nil, err
			}
			return claims, nil
		}),
		ValidationListeners: []jwtware.ValidationListener{s.logImpersonation},
		ContextEnricher:     sessionContext,
	})
	protected := []fiber.Handler{token, s.requireActiveUser}

	api := s.app.Group("/api")
	api.Get("/health", s.health)

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", limit, s.register)
	authRoutes.Post("/login", limit, s.login)
	authRoutes.Get("/me", append(protected, s.me)...)
	authRoutes.Post("/impersonate/:userId", append(protected, s.requireAdmin, s.impersonate)...)
	authRoutes.Post("/stop-impersonation", append(protected, s.stopImpersonation)...)

	blockingRoutes := api.Group("/blocking", protected...)
	blockingRoutes.Get("/status", s.blockingStatus)
	blockingRoutes.Post("/activate", s.blockingActivate)

	guideRoutes := api.Group("/guide-access", protected...)
	guideRoutes.Get("/status", s.guideStatus)
	guideRoutes.Post("/complete-setup", s.guideCompleteSetup)
	guideRoutes.Post("/request-access", s.guideRequestAccess)
	guideRoutes.Post("/register-extension", s.guideRegisterExtension)
	guideRoutes.Post("/undo-setup", s.guideUndoSetup)

	userRoutes := api.Group("/usuarios", protected...)
	userRoutes.Get("/", s.listUsers)
	userRoutes.Post("/", s.createUser)
	userRoutes.Get("/:id", s.getUser)
	userRoutes.Put("/:id", s.updateUser)
	userRoutes.Delete("/:id", s.deleteUser)

	s.app.Use(func(c *fiber.Ctx) error {
		return errRouteNotFound
	})
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}
	if len(origins) > 0 {
		cfg.AllowOrigins = strings.Join(origins, ",")
	}
	return cfg
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(envelope{Success: true, Message: "Backend is running"})
}
