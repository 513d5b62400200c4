package api

import (
	"time"

	"github.com/goliatone/go-tiltguard/auth"
	"github.com/goliatone/go-tiltguard/blocking"
	"github.com/goliatone/go-tiltguard/guideaccess"
)

// ISOLayout matches JavaScript's Date.toISOString
const ISOLayout = "2006-01-02T15:04:05.000Z"

// isoTime renders as a UTC ISO-8601 timestamp with milliseconds
type isoTime time.Time

func (t isoTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).UTC().Format(ISOLayout) + `"`), nil
}

func iso(t *time.Time) *isoTime {
	if t == nil || t.IsZero() {
		return nil
	}
	v := isoTime(*t)
	return &v
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Token   string            `json:"token,omitempty"`
	User    any               `json:"user,omitempty"`
	Count   *int              `json:"count,omitempty"`
	Data    any               `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Code    string            `json:"code,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// userSummary is the user shape returned by the auth routes
type userSummary struct {
	ID             string `json:"id"`
	Name           string `json:"nombre"`
	Email          string `json:"email"`
	Role           string `json:"rol"`
	ImpersonatedBy string `json:"impersonatedBy,omitempty"`
}

func summary(identity auth.Identity, impersonatedBy string) userSummary {
	return userSummary{
		ID:             identity.ID(),
		Name:           identity.Name(),
		Email:          identity.Email(),
		Role:           identity.Role(),
		ImpersonatedBy: impersonatedBy,
	}
}

// userView is the full user record returned by the admin routes
type userView struct {
	ID        string   `json:"_id"`
	Name      string   `json:"nombre"`
	Email     string   `json:"email"`
	Role      string   `json:"rol"`
	Active    bool     `json:"activo"`
	Avatar    string   `json:"avatar"`
	Phone     string   `json:"telefono"`
	Address   string   `json:"direccion"`
	City      string   `json:"ciudad"`
	Country   string   `json:"pais"`
	CreatedAt *isoTime `json:"createdAt"`
	UpdatedAt *isoTime `json:"updatedAt"`
}

func newUserView(u *auth.User) userView {
	return userView{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role.String(),
		Active:    u.Active,
		Avatar:    u.Avatar,
		Phone:     u.Phone,
		Address:   u.Address,
		City:      u.City,
		Country:   u.Country,
		CreatedAt: iso(u.CreatedAt),
		UpdatedAt: iso(u.UpdatedAt),
	}
}

func newUserViews(records []*auth.User) []userView {
	out := make([]userView, 0, len(records))
	for _, u := range records {
		out = append(out, newUserView(u))
	}
	return out
}

type blockingView struct {
	BlockRiskSettings bool     `json:"blockRiskSettings"`
	BlockUntil        *isoTime `json:"blockUntil"`
}

func newBlockingView(s blocking.Status) blockingView {
	return blockingView{
		BlockRiskSettings: s.BlockRiskSettings,
		BlockUntil:        iso(s.BlockUntil),
	}
}

type guideView struct {
	SetupCompleted bool              `json:"setupCompleted"`
	CooldownUntil  *isoTime          `json:"cooldownUntil"`
	AccessUntil    *isoTime          `json:"accessUntil"`
	ExtensionID    *string           `json:"extensionId"`
	Phase          guideaccess.Phase `json:"phase"`
}

func newGuideView(s guideaccess.Status) guideView {
	v := guideView{
		SetupCompleted: s.SetupCompleted,
		CooldownUntil:  iso(s.CooldownUntil),
		AccessUntil:    iso(s.AccessUntil),
		Phase:          s.Phase,
	}
	if s.ExtensionID != "" {
		id := s.ExtensionID
		v.ExtensionID = &id
	}
	return v
}
