// Package users implements the admin users CRUD.
package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-tiltguard/auth"
)

// DefaultRegion is used to read phone numbers without a country prefix
const DefaultRegion = "ES"

// Store is the persistence the service needs
type Store interface {
	auth.RepositoryManager
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// StatusForgetter drops cached per user state on delete
type StatusForgetter interface {
	Forget(ctx context.Context, userID uuid.UUID)
}

type noopForgetter struct{}

func (noopForgetter) Forget(context.Context, uuid.UUID) {}

// Service manages user records on behalf of an actor
type Service struct {
	store    Store
	forget   StatusForgetter
	region   string
	logger   auth.Logger
	activity auth.ActivitySink
}

func NewService(store Store) *Service {
	return &Service{
		store:    store,
		forget:   noopForgetter{},
		region:   DefaultRegion,
		logger:   auth.NoopLogger{},
		activity: auth.ActivitySinkFunc(nil),
	}
}

func (s *Service) WithLogger(logger auth.Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithRegion sets the default phone region
func (s *Service) WithRegion(region string) *Service {
	if region = strings.TrimSpace(region); region != "" {
		s.region = strings.ToUpper(region)
	}
	return s
}

// WithStatusForgetter sets the cache invalidated when a user is removed
func (s *Service) WithStatusForgetter(f StatusForgetter) *Service {
	if f != nil {
		s.forget = f
	}
	return s
}

func (s *Service) WithActivitySink(sink auth.ActivitySink) *Service {
	if sink != nil {
		s.activity = sink
	}
	return s
}

// List returns every user. Admin only.
func (s *Service) List(ctx context.Context, actor auth.Identity) ([]*auth.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.store.Users().List(ctx)
}

// Get returns a user. Admins can read anyone, others only themselves.
func (s *Service) Get(ctx context.Context, actor auth.Identity, id uuid.UUID) (*auth.User, error) {
	if err := requireSelfOrAdmin(actor, id); err != nil {
		return nil, err
	}
	return s.store.Users().GetByID(ctx, id)
}

// Create adds a user. Admin only.
func (s *Service) Create(ctx context.Context, actor auth.Identity, msg CreateUserMessage) (*auth.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = auth.NormalizeEmail(msg.Email)
	msg.Role = strings.TrimSpace(msg.Role)

	if err := msg.Validate(); err != nil {
		return nil, auth.ValidationError("invalid user data", TextCodeInvalidUser, err)
	}

	role, err := auth.ParseRole(msg.Role)
	if err != nil {
		return nil, err
	}

	phone, err := NormalizePhone(msg.Phone, s.region)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(msg.Password)
	if err != nil {
		return nil, err
	}

	active := true
	if msg.Active != nil {
		active = *msg.Active
	}

	user := &auth.User{
		Name:         msg.Name,
		Email:        msg.Email,
		PasswordHash: hash,
		Role:         role,
		Active:       active,
		Avatar:       strings.TrimSpace(msg.Avatar),
		Phone:        phone,
		Address:      strings.TrimSpace(msg.Address),
		City:         strings.TrimSpace(msg.City),
		Country:      strings.TrimSpace(msg.Country),
	}

	err = s.store.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := ensureEmailFree(ctx, s.store.Users(), tx, user.Email, uuid.Nil); err != nil {
			return err
		}
		created, err := s.store.Users().CreateTx(ctx, tx, user)
		if err != nil {
			return err
		}
		user = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user created", "user_id", user.ID.String(), "by", actor.ID())
	s.emit(ctx, auth.ActivityEventUserCreated, actor, user)
	return user, nil
}

// Update applies a partial update. Non admins may update themselves but not
// their role or active flag.
func (s *Service) Update(ctx context.Context, actor auth.Identity, id uuid.UUID, msg UpdateUserMessage) (*auth.User, error) {
	if err := requireSelfOrAdmin(actor, id); err != nil {
		return nil, err
	}
	if msg.touchesPrivileges() && !auth.UserRole(actor.Role()).IsAdmin() {
		return nil, auth.ErrAdminRequired
	}

	if msg.Email != nil {
		email := auth.NormalizeEmail(*msg.Email)
		msg.Email = &email
	}
	if msg.Name != nil {
		name := strings.TrimSpace(*msg.Name)
		msg.Name = &name
	}

	if err := msg.Validate(); err != nil {
		return nil, auth.ValidationError("invalid user data", TextCodeInvalidUser, err)
	}

	var updated *auth.User
	err := s.store.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := s.store.Users().GetByIDTx(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := s.apply(ctx, tx, user, msg); err != nil {
			return err
		}

		updated, err = s.store.Users().UpdateTx(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user updated", "user_id", id.String(), "by", actor.ID())
	s.emit(ctx, auth.ActivityEventUserUpdated, actor, updated)
	return updated, nil
}

func (s *Service) apply(ctx context.Context, tx bun.IDB, user *auth.User, msg UpdateUserMessage) error {
	if msg.Name != nil {
		user.Name = *msg.Name
	}
	if msg.Email != nil && *msg.Email != user.Email {
		if err := ensureEmailFree(ctx, s.store.Users(), tx, *msg.Email, user.ID); err != nil {
			return err
		}
		user.Email = *msg.Email
	}
	if msg.Password != nil {
		hash, err := auth.HashPassword(*msg.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
	}
	if msg.Role != nil {
		role, err := auth.ParseRole(*msg.Role)
		if err != nil {
			return err
		}
		user.Role = role
	}
	if msg.Active != nil {
		user.Active = *msg.Active
	}
	if msg.Avatar != nil {
		user.Avatar = strings.TrimSpace(*msg.Avatar)
	}
	if msg.Phone != nil {
		phone, err := NormalizePhone(*msg.Phone, s.region)
		if err != nil {
			return err
		}
		user.Phone = phone
	}
	if msg.Address != nil {
		user.Address = strings.TrimSpace(*msg.Address)
	}
	if msg.City != nil {
		user.City = strings.TrimSpace(*msg.City)
	}
	if msg.Country != nil {
		user.Country = strings.TrimSpace(*msg.Country)
	}
	return nil
}

// Delete removes a user with its block settings and guide access. Admin only.
func (s *Service) Delete(ctx context.Context, actor auth.Identity, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}

	s.forget.Forget(ctx, id)
	s.logger.Info("user deleted", "user_id", id.String(), "by", actor.ID())
	s.emit(ctx, auth.ActivityEventUserDeleted, actor, &auth.User{ID: id})
	return nil
}

func (s *Service) emit(ctx context.Context, eventType auth.ActivityEventType, actor auth.Identity, user *auth.User) {
	event := auth.ActivityEvent{
		EventType:  eventType,
		Actor:      auth.ActorRef{ID: actor.ID(), Role: actor.Role()},
		UserID:     user.ID.String(),
		Metadata:   map[string]any{},
		OccurredAt: time.Now().UTC(),
	}
	if user.Email != "" {
		event.Metadata["email"] = user.Email
	}
	if err := s.activity.Record(ctx, event); err != nil {
		s.logger.Warn("user activity record failed", "event", string(eventType), "error", err)
	}
}

func ensureEmailFree(ctx context.Context, repo auth.Users, tx bun.IDB, email string, self uuid.UUID) error {
	existing, err := repo.GetByIdentifierTx(ctx, tx, email)
	if err != nil {
		if auth.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID == self {
		return nil
	}
	return auth.ErrEmailTaken
}

func requireAdmin(actor auth.Identity) error {
	if actor == nil {
		return auth.ErrForbidden
	}
	if !auth.UserRole(actor.Role()).IsAdmin() {
		return auth.ErrAdminRequired
	}
	return nil
}

func requireSelfOrAdmin(actor auth.Identity, id uuid.UUID) error {
	if actor == nil {
		return auth.ErrForbidden
	}
	if auth.UserRole(actor.Role()).IsAdmin() || actor.ID() == id.String() {
		return nil
	}
	return auth.ErrForbidden
}
