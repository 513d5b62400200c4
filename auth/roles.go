package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// UserRole is the user's role
type UserRole string

const (
	// RoleUser is a regular account
	RoleUser UserRole = "usuario"
	// RoleAdmin can manage every account and impersonate users
	RoleAdmin UserRole = "admin"
)

// IsValid reports whether r is a known role
func (r UserRole) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}

// IsAdmin reports whether r is the admin role
func (r UserRole) IsAdmin() bool {
	return r == RoleAdmin
}

func (r UserRole) String() string {
	return string(r)
}

// ParseRole normalizes a role name. An empty value resolves to RoleUser.
func ParseRole(value string) (UserRole, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return RoleUser, nil
	}

	role := UserRole(value)
	if !role.IsValid() {
		return "", goerrors.New("user has an unknown or invalid role", goerrors.CategoryValidation).
			WithTextCode(TextCodeInvalidRole).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"role": value})
	}
	return role, nil
}
