package users

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/goliatone/go-tiltguard/auth"
)

// CreateUserMessage is the admin create payload
type CreateUserMessage struct {
	Name     string `json:"nombre"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"rol"`
	Active   *bool  `json:"activo"`
	Avatar   string `json:"avatar"`
	Phone    string `json:"telefono"`
	Address  string `json:"direccion"`
	City     string `json:"ciudad"`
	Country  string `json:"pais"`
}

func (m CreateUserMessage) Type() string { return "user.create" }

func (m CreateUserMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&m.Email, validation.Required, validation.Length(3, 254), validation.Match(auth.EmailPattern)),
		validation.Field(&m.Password, validation.Required, validation.Length(auth.MinPasswordLength, auth.MaxPasswordLength)),
		validation.Field(&m.Role, validation.In(string(auth.RoleUser), string(auth.RoleAdmin))),
		validation.Field(&m.Avatar, validation.Length(0, 2048), is.URL),
		validation.Field(&m.Address, validation.Length(0, 255)),
		validation.Field(&m.City, validation.Length(0, 120)),
		validation.Field(&m.Country, validation.Length(0, 120)),
	)
}

// UpdateUserMessage is a partial update. Nil fields are left untouched.
type UpdateUserMessage struct {
	Name     *string `json:"nombre"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"rol"`
	Active   *bool   `json:"activo"`
	Avatar   *string `json:"avatar"`
	Phone    *string `json:"telefono"`
	Address  *string `json:"direccion"`
	City     *string `json:"ciudad"`
	Country  *string `json:"pais"`
}

func (m UpdateUserMessage) Type() string { return "user.update" }

func (m UpdateUserMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Name, validation.NilOrNotEmpty, validation.Length(1, 120)),
		validation.Field(&m.Email, validation.NilOrNotEmpty, validation.Length(3, 254), validation.Match(auth.EmailPattern)),
		validation.Field(&m.Password, validation.NilOrNotEmpty, validation.Length(auth.MinPasswordLength, auth.MaxPasswordLength)),
		validation.Field(&m.Role, validation.NilOrNotEmpty, validation.In(string(auth.RoleUser), string(auth.RoleAdmin))),
		validation.Field(&m.Avatar, validation.Length(0, 2048), is.URL),
		validation.Field(&m.Address, validation.Length(0, 255)),
		validation.Field(&m.City, validation.Length(0, 120)),
		validation.Field(&m.Country, validation.Length(0, 120)),
	)
}

// touchesPrivileges reports whether the update changes role or active flag
func (m UpdateUserMessage) touchesPrivileges() bool {
	return m.Role != nil || m.Active != nil
}
