package auth

import (
	"time"

	"github.com/google/uuid"
)

var _ Session = &SessionObject{}

type SessionObject struct {
	UserID         string     `json:"user_id,omitempty"`
	Role           string     `json:"role,omitempty"`
	ImpersonatedBy string     `json:"impersonated_by,omitempty"`
	IssuedAt       *time.Time `json:"issued_at,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

func (s *SessionObject) GetRole() string {
	return s.Role
}

func (s *SessionObject) GetImpersonatedBy() string {
	return s.ImpersonatedBy
}

func (s *SessionObject) IsImpersonated() bool {
	return s.ImpersonatedBy != ""
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func (s *SessionObject) GetExpiresAt() *time.Time {
	return s.ExpirationDate
}

// ParseUserID parses a user id, returning ErrInvalidUserID on bad input
func ParseUserID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, ErrInvalidUserID
	}
	return uid, nil
}
