package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/goliatone/go-tiltguard/auth"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    auth.UserRole
		wantErr bool
	}{
		{name: "empty defaults to user", input: "", want: auth.RoleUser},
		{name: "user", input: "usuario", want: auth.RoleUser},
		{name: "admin mixed case", input: " Admin ", want: auth.RoleAdmin},
		{name: "unknown", input: "owner", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := auth.ParseRole(tt.input)
			if tt.wantErr {
				assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidRole))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUserRoleIsAdmin(t *testing.T) {
	assert.True(t, auth.RoleAdmin.IsAdmin())
	assert.False(t, auth.RoleUser.IsAdmin())
	assert.False(t, auth.UserRole("ghost").IsValid())
}
