package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// UserTracker loads accounts for login and records attempts against them
type UserTracker interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

// MaxLoginAttempts is how many failed passwords an account absorbs before
// logins are refused until CoolDownPeriod has passed since the last failure
var MaxLoginAttempts = 5

// CoolDownPeriod is a time.ParseDuration string
var CoolDownPeriod = "24h"

// UserProvider checks credentials against the user store
type UserProvider struct {
	store  UserTracker
	logger Logger
	now    func() time.Time
}

func NewUserProvider(store UserTracker) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
		now:    time.Now,
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// WithClock overrides the time source used for the login cool down
func (u *UserProvider) WithClock(now func() time.Time) *UserProvider {
	if now != nil {
		u.now = now
	}
	return u
}

// VerifyIdentity resolves identifier to an active account whose password
// matches. Unknown accounts and wrong passwords yield the same error.
func (u *UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	user, err := u.store.GetByIdentifier(ctx, identifier)
	switch {
	case IsNotFound(err):
		return nil, ErrMismatchedHashAndPassword
	case err != nil:
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user for login")
	}

	locked, err := u.lockedOut(user)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, ErrTooManyLoginAttempts
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if trackErr := u.store.TrackAttemptedLogin(ctx, user); trackErr != nil {
			return nil, errors.Wrap(trackErr, errors.CategoryInternal, "failed to record failed login")
		}
		return nil, ErrMismatchedHashAndPassword
	}

	if !user.Active {
		return nil, ErrUserInactive
	}

	if err := u.store.TrackSuccessfulLogin(ctx, user); err != nil {
		u.logger.Error("failed to reset login attempts", "user_id", user.ID.String(), "error", err)
	}

	if !user.Role.IsValid() {
		return nil, invalidRoleError(user)
	}
	return user.Identity(), nil
}

// lockedOut forgets stale attempts before comparing against the limit
func (u *UserProvider) lockedOut(user *User) (bool, error) {
	if user.LoginAttemptAt != nil {
		expired, err := attemptsExpired(u.now(), *user.LoginAttemptAt)
		if err != nil {
			return false, errors.Wrap(err, errors.CategoryInternal, "invalid login cool down")
		}
		if expired {
			user.LoginAttempts = 0
		}
	}
	return user.LoginAttempts > MaxLoginAttempts, nil
}

// FindIdentityByID loads an identity by user id. Inactive users are returned
// so callers can decide how to treat them.
func (u *UserProvider) FindIdentityByID(ctx context.Context, id string) (Identity, error) {
	uid, err := ParseUserID(id)
	if err != nil {
		return nil, err
	}

	user, err := u.store.GetByID(ctx, uid)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	if !user.Role.IsValid() {
		return nil, invalidRoleError(user)
	}
	return user.Identity(), nil
}

func invalidRoleError(u *User) error {
	return errors.New("user has an unknown or invalid role", errors.CategoryAuth).
		WithTextCode(TextCodeInvalidRole).
		WithCode(errors.CodeUnauthorized).
		WithMetadata(map[string]any{"rol": string(u.Role), "user_id": u.ID.String()})
}
