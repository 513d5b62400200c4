package repository

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	tiltguard "github.com/goliatone/go-tiltguard"
)

// NewMigrator builds a migrator loaded with the embedded migrations of the
// db dialect
func NewMigrator(db *bun.DB) (*migrate.Migrator, error) {
	fsys, err := tiltguard.DialectMigrations(DialectName(db))
	if err != nil {
		return nil, err
	}

	migrations := migrate.NewMigrations()
	if err := migrations.Discover(fsys); err != nil {
		return nil, fmt.Errorf("discover migrations: %w", err)
	}

	return migrate.NewMigrator(db, migrations), nil
}

// Migrate applies pending migrations. The returned group is empty when
// nothing was pending.
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator, err := NewMigrator(db)
	if err != nil {
		return nil, err
	}

	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}

	if err := migrator.Lock(ctx); err != nil {
		return nil, fmt.Errorf("lock migrations: %w", err)
	}
	defer migrator.Unlock(ctx) //nolint:errcheck

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return group, nil
}

// Rollback reverts the last applied migration group
func Rollback(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator, err := NewMigrator(db)
	if err != nil {
		return nil, err
	}

	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}

	if err := migrator.Lock(ctx); err != nil {
		return nil, fmt.Errorf("lock migrations: %w", err)
	}
	defer migrator.Unlock(ctx) //nolint:errcheck

	group, err := migrator.Rollback(ctx)
	if err != nil {
		return nil, fmt.Errorf("rollback migrations: %w", err)
	}
	return group, nil
}
