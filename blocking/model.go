package blocking

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Settings is the persisted block state of a user
type Settings struct {
	bun.BaseModel     `bun:"table:block_settings,alias:bs"`
	UserID            uuid.UUID  `bun:"user_id,pk,type:uuid"`
	BlockRiskSettings bool       `bun:"block_risk_settings,notnull"`
	BlockUntil        *time.Time `bun:"block_until"`
	CreatedAt         *time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         *time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Active reports whether the block is in force at now
func (s *Settings) Active(now time.Time) bool {
	return s != nil && s.BlockRiskSettings && s.BlockUntil != nil && now.Before(*s.BlockUntil)
}

// Expired reports a flagged block whose window has closed
func (s *Settings) Expired(now time.Time) bool {
	return s != nil && s.BlockRiskSettings && !s.Active(now)
}

// Status returns the public view of the settings
func (s *Settings) Status() Status {
	if s == nil || !s.BlockRiskSettings || s.BlockUntil == nil {
		return Status{}
	}
	until := s.BlockUntil.UTC()
	return Status{BlockRiskSettings: true, BlockUntil: &until}
}

// Status is what the extension polls for
type Status struct {
	BlockRiskSettings bool       `json:"blockRiskSettings"`
	BlockUntil        *time.Time `json:"blockUntil"`
}

// ShouldBlock reports whether the Risk Settings page must stay hidden at now
func (s Status) ShouldBlock(now time.Time) bool {
	return s.BlockRiskSettings && s.BlockUntil != nil && now.Before(*s.BlockUntil)
}
