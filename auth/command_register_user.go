package auth

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Name      string `json:"nombre"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	UseHashid bool   `json:"-"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate enforces name, email and password rules
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&e.Email, validation.Required, validation.Length(3, 254), validation.Match(EmailPattern)),
		validation.Field(&e.Password, validation.Required, validation.Length(MinPasswordLength, MaxPasswordLength)),
	)
}

// RegisterUserHandler creates regular accounts
type RegisterUserHandler struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
}

// NewRegisterUserHandler creates a handler with sane defaults.
func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:     repo,
		activity: discardActivity{},
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit registration events.
func (h *RegisterUserHandler) WithActivitySink(sink ActivitySink) *RegisterUserHandler {
	h.activity = sinkOrDiscard(sink)
	return h
}

// WithLogger replaces the default logger
func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	event.Name = strings.TrimSpace(event.Name)
	event.Email = NormalizeEmail(event.Email)

	if err := event.Validate(); err != nil {
		return nil, ValidationError("invalid registration data", TextCodeInvalidRegistration, err)
	}

	hash, err := HashPassword(event.Password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user := &User{
		Name:         event.Name,
		Email:        event.Email,
		PasswordHash: hash,
		Role:         RoleUser,
		Active:       true,
	}

	if event.UseHashid {
		if id, err := hashid.NewUUID(event.Email); err == nil {
			user.ID = id
		}
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Users().GetByIdentifierTx(ctx, tx, user.Email); err == nil {
			return ErrEmailTaken
		} else if !IsNotFound(err) {
			return err
		}

		if _, err := h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	h.logger.Info("user registered", "user_id", user.ID.String(), "email", user.Email)
	if err := h.activity.Record(ctx, ActivityEvent{
		EventType:  ActivityEventUserRegistered,
		Actor:      ActorRef{ID: user.ID.String(), Role: string(user.Role)},
		UserID:     user.ID.String(),
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		h.logger.Error("failed to record activity event", "error", err)
	}

	return user, nil
}
