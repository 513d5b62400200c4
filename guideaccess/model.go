package guideaccess

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Phase summarizes where a user stands in the guide access flow
type Phase string

const (
	// PhaseSetup means the extension setup has not been completed
	PhaseSetup Phase = "setup"
	// PhaseLocked means setup is done and no access was requested
	PhaseLocked Phase = "locked"
	// PhaseCooldown means access was requested and the wait is running
	PhaseCooldown Phase = "cooldown"
	// PhaseOpen means the guide can be shown
	PhaseOpen Phase = "open"
)

// Window holds the lengths of the cooldown and access periods
type Window struct {
	Cooldown time.Duration
	Access   time.Duration
}

// DefaultWindow is a two hour wait followed by a day of access
var DefaultWindow = Window{
	Cooldown: 2 * time.Hour,
	Access:   24 * time.Hour,
}

// Record is the persisted guide access state of a user
type Record struct {
	bun.BaseModel  `bun:"table:guide_access,alias:ga"`
	UserID         uuid.UUID  `bun:"user_id,pk,type:uuid"`
	SetupCompleted bool       `bun:"setup_completed,notnull"`
	CooldownUntil  *time.Time `bun:"cooldown_until"`
	AccessUntil    *time.Time `bun:"access_until"`
	ExtensionID    string     `bun:"extension_id,nullzero"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Advance applies the windows that elapsed by now and reports whether the
// record changed:
//   - an elapsed cooldown is cleared and, unless access is already open,
//     opens an access window starting at now;
//   - an elapsed access window is cleared.
func (r *Record) Advance(now time.Time, w Window) bool {
	changed := false

	if r.CooldownUntil != nil && !now.Before(*r.CooldownUntil) {
		if !r.accessOpen(now) {
			until := now.Add(w.Access).UTC()
			r.AccessUntil = &until
		}
		r.CooldownUntil = nil
		changed = true
	}

	if r.AccessUntil != nil && !now.Before(*r.AccessUntil) {
		r.AccessUntil = nil
		changed = true
	}

	return changed
}

// StartCooldown begins a new wait and closes any access window
func (r *Record) StartCooldown(now time.Time, w Window) {
	until := now.Add(w.Cooldown).UTC()
	r.CooldownUntil = &until
	r.AccessUntil = nil
}

// Phase reports the phase at now without mutating the record
func (r *Record) Phase(now time.Time) Phase {
	switch {
	case r == nil:
		return PhaseSetup
	case r.accessOpen(now):
		return PhaseOpen
	case r.cooldownRunning(now):
		return PhaseCooldown
	case !r.SetupCompleted:
		return PhaseSetup
	default:
		return PhaseLocked
	}
}

// Status returns the public view of the record at now
func (r *Record) Status(now time.Time) Status {
	if r == nil {
		return Status{Phase: PhaseSetup}
	}
	return Status{
		SetupCompleted: r.SetupCompleted,
		CooldownUntil:  utc(r.CooldownUntil),
		AccessUntil:    utc(r.AccessUntil),
		ExtensionID:    r.ExtensionID,
		Phase:          r.Phase(now),
	}
}

func (r *Record) accessOpen(now time.Time) bool {
	return r.AccessUntil != nil && now.Before(*r.AccessUntil)
}

func (r *Record) cooldownRunning(now time.Time) bool {
	return r.CooldownUntil != nil && now.Before(*r.CooldownUntil)
}

// Status is the guide access state returned to clients
type Status struct {
	SetupCompleted bool       `json:"setupCompleted"`
	CooldownUntil  *time.Time `json:"cooldownUntil"`
	AccessUntil    *time.Time `json:"accessUntil"`
	ExtensionID    string     `json:"extensionId"`
	Phase          Phase      `json:"phase"`
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
