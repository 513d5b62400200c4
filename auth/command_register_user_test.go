package auth_test

import (
	"context"
	"testing"

	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-tiltguard/auth"
)

func TestRegisterUserHandler(t *testing.T) {
	repo := setupRepo(t)
	sink := &recordingSink{}
	handler := auth.NewRegisterUserHandler(repo).
		WithLogger(auth.NoopLogger{}).
		WithActivitySink(sink)

	ctx := context.Background()

	user, err := handler.Execute(ctx, auth.RegisterUserMessage{
		Name:     "  Ana López ",
		Email:    "Ana@Example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana López", user.Name)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, auth.RoleUser, user.Role)
	assert.True(t, user.Active)
	assert.NoError(t, auth.ComparePasswordAndHash("secret1", user.PasswordHash))
	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventUserRegistered}, sink.types())

	_, err = handler.Execute(ctx, auth.RegisterUserMessage{
		Name:     "Ana Again",
		Email:    "ana@example.com",
		Password: "secret1",
	})
	assert.True(t, auth.HasTextCode(err, auth.TextCodeEmailTaken))
}

func TestRegisterUserHandlerValidation(t *testing.T) {
	repo := setupRepo(t)
	handler := auth.NewRegisterUserHandler(repo).WithLogger(auth.NoopLogger{})

	tests := []struct {
		name  string
		msg   auth.RegisterUserMessage
		field string
	}{
		{name: "missing name", msg: auth.RegisterUserMessage{Email: "a@example.com", Password: "secret1"}, field: "nombre"},
		{name: "bad email", msg: auth.RegisterUserMessage{Name: "A", Email: "not-an-email", Password: "secret1"}, field: "email"},
		{name: "short password", msg: auth.RegisterUserMessage{Name: "A", Email: "a@example.com", Password: "12345"}, field: "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := handler.Execute(context.Background(), tt.msg)
			require.True(t, auth.HasTextCode(err, auth.TextCodeInvalidRegistration), "got %v", err)
			assert.Contains(t, auth.ValidationFields(err), tt.field)
		})
	}
}

func TestRegisterUserHandlerHashid(t *testing.T) {
	repo := setupRepo(t)
	handler := auth.NewRegisterUserHandler(repo).WithLogger(auth.NoopLogger{})

	user, err := handler.Execute(context.Background(), auth.RegisterUserMessage{
		Name:      "Hashed",
		Email:     "hashed@example.com",
		Password:  "secret1",
		UseHashid: true,
	})
	require.NoError(t, err)

	expected, err := hashid.NewUUID("hashed@example.com")
	require.NoError(t, err)
	assert.Equal(t, expected, user.ID)
}

func TestRegisterUserHandlerCancelledContext(t *testing.T) {
	handler := auth.NewRegisterUserHandler(setupRepo(t)).WithLogger(auth.NoopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := handler.Execute(ctx, auth.RegisterUserMessage{Name: "A", Email: "a@example.com", Password: "secret1"})
	assert.Error(t, err)
}
