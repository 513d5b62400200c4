package users_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-tiltguard/auth"
	"github.com/goliatone/go-tiltguard/blocking"
	"github.com/goliatone/go-tiltguard/guideaccess"
	"github.com/goliatone/go-tiltguard/repository"
	"github.com/goliatone/go-tiltguard/users"
)

func TestMain(m *testing.M) {
	auth.PasswordHashCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type forgetter struct {
	ids []uuid.UUID
}

func (f *forgetter) Forget(_ context.Context, id uuid.UUID) {
	f.ids = append(f.ids, id)
}

type fixture struct {
	repo    *repository.Manager
	service *users.Service
	forget  *forgetter
	admin   *auth.User
	user    *auth.User
}

func setup(t *testing.T) fixture {
	t.Helper()

	ctx := context.Background()
	db, err := repository.OpenInMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := repository.NewRepositoryManager(db)
	f := fixture{
		repo:   repo,
		forget: &forgetter{},
	}
	f.service = users.NewService(repo).WithStatusForgetter(f.forget)
	f.admin = createUser(t, repo, "admin@example.com", auth.RoleAdmin)
	f.user = createUser(t, repo, "user@example.com", auth.RoleUser)
	return f
}

func createUser(t *testing.T, repo auth.RepositoryManager, email string, role auth.UserRole) *auth.User {
	t.Helper()
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	u, err := repo.Users().Create(context.Background(), &auth.User{
		Name:         email,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	})
	require.NoError(t, err)
	return u
}

func ptr[T any](v T) *T {
	return &v
}

func TestListRequiresAdmin(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.service.List(ctx, f.user.Identity())
	assert.ErrorIs(t, err, auth.ErrAdminRequired)

	records, err := f.service.List(ctx, f.admin.Identity())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestGetSelfOrAdmin(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	got, err := f.service.Get(ctx, f.user.Identity(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, f.user.Email, got.Email)

	got, err = f.service.Get(ctx, f.admin.Identity(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, got.ID)

	_, err = f.service.Get(ctx, f.user.Identity(), f.admin.ID)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeForbidden))

	_, err = f.service.Get(ctx, f.admin.Identity(), uuid.New())
	assert.True(t, auth.IsNotFound(err))
}

func TestCreate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, f.admin.Identity(), users.CreateUserMessage{
		Name:     " Maria ",
		Email:    "Maria@Example.com",
		Password: "secret1",
		Phone:    "612 345 678",
		City:     "Madrid",
	})
	require.NoError(t, err)

	assert.Equal(t, "Maria", created.Name)
	assert.Equal(t, "maria@example.com", created.Email)
	assert.Equal(t, auth.RoleUser, created.Role)
	assert.True(t, created.Active)
	assert.Equal(t, "+34612345678", created.Phone)
	assert.NoError(t, auth.ComparePasswordAndHash("secret1", created.PasswordHash))

	stored, err := f.repo.Users().GetByIdentifier(ctx, "maria@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, stored.ID)
}

func TestCreateErrors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	valid := users.CreateUserMessage{Name: "New", Email: "new@example.com", Password: "secret1"}

	tests := []struct {
		name     string
		actor    auth.Identity
		mutate   func(m *users.CreateUserMessage)
		textCode string
		field    string
	}{
		{name: "non admin", actor: f.user.Identity(), textCode: auth.TextCodeAdminRequired},
		{name: "missing name", mutate: func(m *users.CreateUserMessage) { m.Name = "" }, textCode: users.TextCodeInvalidUser, field: "nombre"},
		{name: "bad email", mutate: func(m *users.CreateUserMessage) { m.Email = "nope" }, textCode: users.TextCodeInvalidUser, field: "email"},
		{name: "short password", mutate: func(m *users.CreateUserMessage) { m.Password = "123" }, textCode: users.TextCodeInvalidUser, field: "password"},
		{name: "unknown role", mutate: func(m *users.CreateUserMessage) { m.Role = "root" }, textCode: users.TextCodeInvalidUser, field: "rol"},
		{name: "bad phone", mutate: func(m *users.CreateUserMessage) { m.Phone = "12" }, textCode: users.TextCodeInvalidPhone},
		{name: "duplicate email", mutate: func(m *users.CreateUserMessage) { m.Email = "USER@example.com" }, textCode: auth.TextCodeEmailTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := valid
			if tt.mutate != nil {
				tt.mutate(&msg)
			}
			actor := tt.actor
			if actor == nil {
				actor = f.admin.Identity()
			}

			_, err := f.service.Create(ctx, actor, msg)
			require.Error(t, err)
			assert.True(t, auth.HasTextCode(err, tt.textCode), "got %v", err)
			if tt.field != "" {
				assert.Contains(t, auth.ValidationFields(err), tt.field)
			}
		})
	}
}

func TestUpdateSelf(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	updated, err := f.service.Update(ctx, f.user.Identity(), f.user.ID, users.UpdateUserMessage{
		Name:     ptr("Renamed"),
		Password: ptr("newpassword"),
		Country:  ptr("España"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "España", updated.Country)

	stored, err := f.repo.Users().GetByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Name)
	assert.Equal(t, f.user.Email, stored.Email)
	assert.NoError(t, auth.ComparePasswordAndHash("newpassword", stored.PasswordHash))
}

func TestUpdatePrivileges(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.service.Update(ctx, f.user.Identity(), f.user.ID, users.UpdateUserMessage{Role: ptr("admin")})
	assert.ErrorIs(t, err, auth.ErrAdminRequired)

	_, err = f.service.Update(ctx, f.user.Identity(), f.user.ID, users.UpdateUserMessage{Active: ptr(false)})
	assert.ErrorIs(t, err, auth.ErrAdminRequired)

	updated, err := f.service.Update(ctx, f.admin.Identity(), f.user.ID, users.UpdateUserMessage{
		Role:   ptr("admin"),
		Active: ptr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, updated.Role)
	assert.False(t, updated.Active)
}

func TestUpdateErrors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.service.Update(ctx, f.user.Identity(), f.admin.ID, users.UpdateUserMessage{Name: ptr("x")})
	assert.True(t, auth.HasTextCode(err, auth.TextCodeForbidden))

	_, err = f.service.Update(ctx, f.admin.Identity(), f.user.ID, users.UpdateUserMessage{Email: ptr("admin@example.com")})
	assert.ErrorIs(t, err, auth.ErrEmailTaken)

	_, err = f.service.Update(ctx, f.admin.Identity(), f.user.ID, users.UpdateUserMessage{Name: ptr("  ")})
	assert.True(t, auth.HasTextCode(err, users.TextCodeInvalidUser))

	_, err = f.service.Update(ctx, f.admin.Identity(), uuid.New(), users.UpdateUserMessage{Name: ptr("Ghost")})
	assert.True(t, auth.IsNotFound(err))

	// keeping the same email is not a conflict
	_, err = f.service.Update(ctx, f.user.Identity(), f.user.ID, users.UpdateUserMessage{Email: ptr("User@Example.com")})
	assert.NoError(t, err)
}

func TestDeleteCascades(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := blocking.NewService(f.repo.BlockSettings()).Activate(ctx, f.user.ID, "day")
	require.NoError(t, err)
	_, err = guideaccess.NewService(f.repo.GuideAccess()).CompleteSetup(ctx, f.user.ID)
	require.NoError(t, err)

	err = f.service.Delete(ctx, f.user.Identity(), f.user.ID)
	assert.ErrorIs(t, err, auth.ErrAdminRequired)

	require.NoError(t, f.service.Delete(ctx, f.admin.Identity(), f.user.ID))
	assert.Equal(t, []uuid.UUID{f.user.ID}, f.forget.ids)

	_, err = f.repo.Users().GetByID(ctx, f.user.ID)
	assert.True(t, auth.IsNotFound(err))
	_, err = f.repo.BlockSettings().Get(ctx, f.user.ID)
	assert.True(t, auth.IsNotFound(err))
	_, err = f.repo.GuideAccess().Get(ctx, f.user.ID)
	assert.True(t, auth.IsNotFound(err))

	err = f.service.Delete(ctx, f.admin.Identity(), f.user.ID)
	assert.True(t, auth.IsNotFound(err))
}
