package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Auther struct {
	provider     IdentityProvider
	tokenService TokenService
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, opts Config) *Auther {
	logger := defLogger{}
	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetTokenExpiration(),
		opts.GetIssuer(),
		jwt.ClaimStrings(opts.GetAudience()),
		logger,
	).WithImpersonationExpiration(opts.GetImpersonationExpiration())

	return &Auther{
		provider:     provider,
		tokenService: tokenService,
		logger:       logger,
		activitySink: discardActivity{},
		now:          time.Now,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger == nil {
		return s
	}
	s.logger = logger
	if ts, ok := s.tokenService.(*TokenServiceImpl); ok {
		ts.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = sinkOrDiscard(sink)
	return s
}

// WithTokenService replaces the token service built from Config
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the credentials and returns a signed token for the identity
func (s *Auther) Login(ctx context.Context, identifier, password string) (string, Identity, error) {
	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Warn("Login verify identity error", "identifier", identifier, "error", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Role: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return "", nil, err
	}

	token, err := s.tokenService.Generate(identity)
	if err != nil {
		s.logger.Error("Login failed to generate token", "error", err)
		return "", nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, actorFromIdentity(identity), identity.ID(), map[string]any{
		"identifier": identifier,
	})

	return token, identity, nil
}

// IssueToken signs a regular session token for identity
func (s *Auther) IssueToken(identity Identity) (string, error) {
	if identity == nil {
		return "", ErrIdentityNotFound
	}
	return s.tokenService.Generate(identity)
}

// SessionFromToken validates a raw token and returns its session
func (s *Auther) SessionFromToken(raw string) (Session, error) {
	claims, err := s.tokenService.Validate(raw)
	if err != nil {
		return nil, err
	}
	return claims.Session(), nil
}

// IdentityFromSession resolves the session user, which must still exist and be active
func (s *Auther) IdentityFromSession(ctx context.Context, session Session) (Identity, error) {
	if session == nil {
		return nil, ErrTokenMalformed
	}
	return s.activeIdentity(ctx, session.GetUserID())
}

// Impersonate issues a token for targetID on behalf of the admin behind session.
// The admin role is read from the store, never from the token.
func (s *Auther) Impersonate(ctx context.Context, session Session, targetID string) (string, Identity, error) {
	actor := ActorRef{Role: "unknown"}
	if session != nil {
		actor.ID = session.GetUserID()
	}

	fail := func(err error) (string, Identity, error) {
		s.logger.Warn("Impersonation rejected", "admin_id", actor.ID, "target_id", targetID, "error", err)
		s.emitAuthEvent(ctx, ActivityEventImpersonationFailure, actor, targetID, map[string]any{
			"error": err.Error(),
		})
		return "", nil, err
	}

	if session == nil {
		return fail(ErrTokenMalformed)
	}

	if session.IsImpersonated() {
		return fail(ErrNestedImpersonation)
	}

	admin, err := s.activeIdentity(ctx, session.GetUserID())
	if err != nil {
		return fail(err)
	}

	if !UserRole(admin.Role()).IsAdmin() {
		return fail(ErrAdminRequired)
	}

	if targetID == admin.ID() {
		return fail(ErrImpersonateSelf)
	}

	target, err := s.activeIdentity(ctx, targetID)
	if err != nil {
		return fail(err)
	}

	token, err := s.tokenService.GenerateImpersonation(target, admin.ID())
	if err != nil {
		return fail(err)
	}

	s.logger.Info("Impersonation started", "admin_id", admin.ID(), "target_id", target.ID())
	s.emitAuthEvent(ctx, ActivityEventImpersonationSuccess, actorFromIdentity(admin), target.ID(), map[string]any{
		"target_email": target.Email(),
	})

	return token, target, nil
}

// StopImpersonation returns a regular token for the admin behind an impersonated session
func (s *Auther) StopImpersonation(ctx context.Context, session Session) (string, Identity, error) {
	if session == nil || !session.IsImpersonated() {
		return "", nil, ErrNotImpersonating
	}

	admin, err := s.activeIdentity(ctx, session.GetImpersonatedBy())
	if err != nil {
		return "", nil, err
	}

	if !UserRole(admin.Role()).IsAdmin() {
		return "", nil, ErrAdminRequired
	}

	token, err := s.tokenService.Generate(admin)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info("Impersonation stopped", "admin_id", admin.ID(), "target_id", session.GetUserID())
	s.emitAuthEvent(ctx, ActivityEventImpersonationStopped, actorFromIdentity(admin), session.GetUserID(), nil)

	return token, admin, nil
}

func (s *Auther) activeIdentity(ctx context.Context, id string) (Identity, error) {
	identity, err := s.provider.FindIdentityByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !identity.Active() {
		return nil, ErrUserInactive
	}
	return identity, nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		Actor:      actor,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: s.now().UTC(),
	}
	if err := s.activitySink.Record(ctx, event); err != nil {
		s.logger.Error("failed to record activity event", "event", string(eventType), "error", err)
	}
}

func actorFromIdentity(identity Identity) ActorRef {
	if identity == nil {
		return ActorRef{Role: "unknown"}
	}
	return ActorRef{ID: identity.ID(), Role: identity.Role()}
}
