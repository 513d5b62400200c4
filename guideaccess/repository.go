package guideaccess

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-tiltguard/auth"
)

// Repository stores guide access records, one row per user
type Repository interface {
	Get(ctx context.Context, userID uuid.UUID) (*Record, error)
	GetTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Record, error)
	Upsert(ctx context.Context, record *Record) error
	UpsertTx(ctx context.Context, tx bun.IDB, record *Record) error
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

func (r *repo) Get(ctx context.Context, userID uuid.UUID) (*Record, error) {
	return r.GetTx(ctx, r.db, userID)
}

func (r *repo) GetTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Record, error) {
	record := &Record{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if auth.IsNotFound(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryNotFound, "guide access not found").
				WithCode(goerrors.CodeNotFound)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load guide access")
	}
	return record, nil
}

func (r *repo) Upsert(ctx context.Context, record *Record) error {
	return r.UpsertTx(ctx, r.db, record)
}

func (r *repo) UpsertTx(ctx context.Context, tx bun.IDB, record *Record) error {
	now := r.now().UTC()
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	record.UpdatedAt = &now

	_, err := tx.NewInsert().
		Model(record).
		On("CONFLICT (user_id) DO UPDATE").
		Set("setup_completed = EXCLUDED.setup_completed").
		Set("cooldown_until = EXCLUDED.cooldown_until").
		Set("access_until = EXCLUDED.access_until").
		Set("extension_id = EXCLUDED.extension_id").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save guide access")
	}
	return nil
}

func (r *repo) DeleteByUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*Record)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}
