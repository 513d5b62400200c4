package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-tiltguard/auth"
	"github.com/goliatone/go-tiltguard/blocking"
	"github.com/goliatone/go-tiltguard/guideaccess"
)

// Manager exposes every repository backed by the same database
type Manager struct {
	db            *bun.DB
	users         auth.Users
	blockSettings blocking.Repository
	guideAccess   guideaccess.Repository
}

var _ auth.RepositoryManager = (*Manager)(nil)

func NewRepositoryManager(db *bun.DB) *Manager {
	return &Manager{
		db:            db,
		users:         auth.NewUsersRepository(db),
		blockSettings: blocking.NewRepository(db),
		guideAccess:   guideaccess.NewRepository(db),
	}
}

func (m *Manager) Validate() error {
	if m.db == nil {
		return errors.New("repository manager requires a database")
	}

	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.blockSettings == nil {
		return errors.New("repository blockSettings should be initialized")
	}

	if m.guideAccess == nil {
		return errors.New("repository guideAccess should be initialized")
	}

	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m *Manager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m *Manager) DB() *bun.DB {
	return m.db
}

func (m *Manager) Users() auth.Users {
	return m.users
}

func (m *Manager) BlockSettings() blocking.Repository {
	return m.blockSettings
}

func (m *Manager) GuideAccess() guideaccess.Repository {
	return m.guideAccess
}

// DeleteUser removes a user together with their block settings and guide
// access record in a single transaction
func (m *Manager) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return m.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := m.users.GetByIDTx(ctx, tx, id); err != nil {
			return err
		}
		if err := m.blockSettings.DeleteByUserTx(ctx, tx, id); err != nil {
			return err
		}
		if err := m.guideAccess.DeleteByUserTx(ctx, tx, id); err != nil {
			return err
		}
		return m.users.DeleteTx(ctx, tx, id)
	})
}

// DeleteAllUsers removes every user and their dependent records
func (m *Manager) DeleteAllUsers(ctx context.Context) (int, error) {
	var deleted int
	err := m.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		records, err := m.users.ListTx(ctx, tx)
		if err != nil {
			return err
		}
		for _, u := range records {
			if err := m.blockSettings.DeleteByUserTx(ctx, tx, u.ID); err != nil {
				return err
			}
			if err := m.guideAccess.DeleteByUserTx(ctx, tx, u.ID); err != nil {
				return err
			}
			if err := m.users.DeleteTx(ctx, tx, u.ID); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}

func (m *Manager) Close() error {
	return m.db.Close()
}
