package blocking

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-tiltguard/auth"
)

// Repository stores block settings, one row per user
type Repository interface {
	Get(ctx context.Context, userID uuid.UUID) (*Settings, error)
	GetTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Settings, error)
	Upsert(ctx context.Context, record *Settings) error
	UpsertTx(ctx context.Context, tx bun.IDB, record *Settings) error
	ClearExpired(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error)
	ClearExpiredTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, now time.Time) (bool, error)
	DeleteByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
}

type repo struct {
	db  *bun.DB
	now func() time.Time
}

var _ Repository = (*repo)(nil)

// NewRepository returns a bun backed Repository
func NewRepository(db *bun.DB) Repository {
	return &repo{db: db, now: time.Now}
}

// Get returns the settings for userID. A missing row is reported with
// an error for which auth.IsNotFound is true.
func (r *repo) Get(ctx context.Context, userID uuid.UUID) (*Settings, error) {
	return r.GetTx(ctx, r.db, userID)
}

func (r *repo) GetTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Settings, error) {
	record := &Settings{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if auth.IsNotFound(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryNotFound, "block settings not found").
				WithCode(goerrors.CodeNotFound)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load block settings")
	}
	return record, nil
}

func (r *repo) Upsert(ctx context.Context, record *Settings) error {
	return r.UpsertTx(ctx, r.db, record)
}

func (r *repo) UpsertTx(ctx context.Context, tx bun.IDB, record *Settings) error {
	now := r.now().UTC()
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	record.UpdatedAt = &now

	_, err := tx.NewInsert().
		Model(record).
		On("CONFLICT (user_id) DO UPDATE").
		Set("block_risk_settings = EXCLUDED.block_risk_settings").
		Set("block_until = EXCLUDED.block_until").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save block settings")
	}
	return nil
}

// ClearExpired unflags the block of userID only if its window closed at or
// before now. It reports false when the row holds a block still in force, so
// a concurrent activation is never overwritten.
func (r *repo) ClearExpired(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	return r.ClearExpiredTx(ctx, r.db, userID, now)
}

func (r *repo) ClearExpiredTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, now time.Time) (bool, error) {
	updatedAt := r.now().UTC()
	res, err := tx.NewUpdate().
		Model((*Settings)(nil)).
		Set("block_risk_settings = ?", false).
		Set("block_until = NULL").
		Set("updated_at = ?", updatedAt).
		Where("user_id = ?", userID).
		Where("block_risk_settings = ?", true).
		WhereGroup(" AND ", func(q *bun.UpdateQuery) *bun.UpdateQuery {
			return q.Where("block_until IS NULL").WhereOr("block_until <= ?", now.UTC())
		}).
		Exec(ctx)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear expired block")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear expired block")
	}
	return n > 0, nil
}

func (r *repo) DeleteByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*Settings)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}
