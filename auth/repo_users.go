package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the users store
type Users interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	ListTx(ctx context.Context, tx bun.IDB) ([]*User, error)

	Create(ctx context.Context, user *User) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	Update(ctx context.Context, user *User) (*User, error)
	UpdateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error
}

var updatableUserColumns = []string{
	"name",
	"email",
	"password_hash",
	"role",
	"active",
	"avatar",
	"phone",
	"address",
	"city",
	"country",
	"updated_at",
}

type users struct {
	db  *bun.DB
	now func() time.Time
}

var _ Users = (*users)(nil)

// NewUsersRepository returns a bun backed Users store
func NewUsersRepository(db *bun.DB) Users {
	return &users{
		db:  db,
		now: time.Now,
	}
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *users) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	user := &User{}
	err := tx.NewSelect().
		Model(user).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOrInternal(err, "failed to load user")
	}
	return user, nil
}

// GetByIdentifier finds a user by email
func (a *users) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier)
}

func (a *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*User, error) {
	user := &User{}
	err := tx.NewSelect().
		Model(user).
		Where("?TableAlias.email = ?", NormalizeEmail(identifier)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOrInternal(err, "failed to load user by email")
	}
	return user, nil
}

func (a *users) List(ctx context.Context) ([]*User, error) {
	return a.ListTx(ctx, a.db)
}

func (a *users) ListTx(ctx context.Context, tx bun.IDB) ([]*User, error) {
	records := []*User{}
	err := tx.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.created_at ASC").
		OrderExpr("?TableAlias.email ASC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list users")
	}
	return records, nil
}

func (a *users) Create(ctx context.Context, user *User) (*User, error) {
	return a.CreateTx(ctx, a.db, user)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = RoleUser
	}

	now := a.now().UTC()
	user.Email = NormalizeEmail(user.Email)
	user.CreatedAt = &now
	user.UpdatedAt = &now

	if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create user")
	}
	return user, nil
}

func (a *users) Update(ctx context.Context, user *User) (*User, error) {
	return a.UpdateTx(ctx, a.db, user)
}

func (a *users) UpdateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	now := a.now().UTC()
	user.Email = NormalizeEmail(user.Email)
	user.UpdatedAt = &now

	res, err := tx.NewUpdate().
		Model(user).
		Column(updatableUserColumns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user")
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrIdentityNotFound
	}
	return user, nil
}

func (a *users) Delete(ctx context.Context, id uuid.UUID) error {
	return a.DeleteTx(ctx, a.db, id)
}

func (a *users) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*User)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete user")
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrIdentityNotFound
	}
	return nil
}

func (a *users) TrackAttemptedLogin(ctx context.Context, user *User) error {
	return a.TrackAttemptedLoginTx(ctx, a.db, user)
}

func (a *users) TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	now := a.now().UTC()
	user.LoginAttempts++
	user.LoginAttemptAt = &now

	_, err := tx.NewUpdate().
		Model(user).
		Column("login_attempts", "login_attempt_at").
		WherePK().
		Exec(ctx)
	return err
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, user)
}

func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	now := a.now().UTC()
	user.LoginAttempts = 0
	user.LoginAttemptAt = nil
	user.LoggedInAt = &now

	_, err := tx.NewUpdate().
		Model(user).
		Column("login_attempts", "login_attempt_at", "loggedin_at").
		WherePK().
		Exec(ctx)
	return err
}

func notFoundOrInternal(err error, msg string) error {
	if IsNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryNotFound, ErrIdentityNotFound.Message).
			WithTextCode(TextCodeIdentityNotFound).
			WithCode(goerrors.CodeNotFound)
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}
