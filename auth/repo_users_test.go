package auth_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-tiltguard/auth"
)

func TestUsersRepository(t *testing.T) {
	repo := setupRepo(t)
	users := repo.Users()
	ctx := context.Background()

	created, err := users.Create(ctx, &auth.User{
		Name:         "María García",
		Email:        " MARIA@example.com ",
		PasswordHash: "hash",
		Active:       true,
		Phone:        "+34612345678",
		City:         "Madrid",
		Country:      "España",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, auth.RoleUser, created.Role)
	assert.Equal(t, "maria@example.com", created.Email)
	assert.NotNil(t, created.CreatedAt)

	t.Run("get by id", func(t *testing.T) {
		found, err := users.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "María García", found.Name)
		assert.Equal(t, "Madrid", found.City)
	})

	t.Run("get by identifier", func(t *testing.T) {
		found, err := users.GetByIdentifier(ctx, "Maria@Example.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := users.GetByID(ctx, uuid.New())
		assert.True(t, auth.IsNotFound(err))
		assert.True(t, auth.HasTextCode(err, auth.TextCodeIdentityNotFound))
	})

	t.Run("update", func(t *testing.T) {
		created.City = "Sevilla"
		created.Role = auth.RoleAdmin
		_, err := users.Update(ctx, created)
		require.NoError(t, err)

		found, err := users.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Sevilla", found.City)
		assert.Equal(t, auth.RoleAdmin, found.Role)
	})

	t.Run("update unknown", func(t *testing.T) {
		_, err := users.Update(ctx, &auth.User{ID: uuid.New(), Email: "x@example.com"})
		assert.True(t, auth.IsNotFound(err))
	})

	t.Run("list", func(t *testing.T) {
		_, err := users.Create(ctx, &auth.User{Name: "Other", Email: "other@example.com", PasswordHash: "hash", Active: true})
		require.NoError(t, err)

		records, err := users.List(ctx)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, users.Delete(ctx, created.ID))
		assert.True(t, auth.IsNotFound(users.Delete(ctx, created.ID)))
	})
}
