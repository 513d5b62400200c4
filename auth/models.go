package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model. JSON keys follow the contract used by the admin
// UI and the browser extension.
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"_id"`
	Name           string     `bun:"name,notnull" json:"nombre"`
	Email          string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash   string     `bun:"password_hash,notnull" json:"-"`
	Role           UserRole   `bun:"role,notnull" json:"rol"`
	Active         bool       `bun:"active,notnull" json:"activo"`
	Avatar         string     `bun:"avatar" json:"avatar"`
	Phone          string     `bun:"phone" json:"telefono"`
	Address        string     `bun:"address" json:"direccion"`
	City           string     `bun:"city" json:"ciudad"`
	Country        string     `bun:"country" json:"pais"`
	LoginAttempts  int        `bun:"login_attempts,notnull" json:"-"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"-"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"-"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt,omitempty"`
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u != nil && u.Role.IsAdmin()
}

// Identity adapts the user to the Identity interface
func (u *User) Identity() Identity {
	return authIdentity{
		id:     u.ID.String(),
		name:   u.Name,
		email:  u.Email,
		role:   string(u.Role),
		active: u.Active,
	}
}

type authIdentity struct {
	id     string
	name   string
	email  string
	role   string
	active bool
}

func (a authIdentity) ID() string {
	return a.id
}

func (a authIdentity) Name() string {
	return a.name
}

func (a authIdentity) Email() string {
	return a.email
}

func (a authIdentity) Role() string {
	return a.role
}

func (a authIdentity) Active() bool {
	return a.active
}

var _ Identity = authIdentity{}
