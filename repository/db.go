package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects and tunes the database connection
type Config struct {
	Driver string
	DSN    string
	Debug  bool
}

// Open connects to the configured database. SQLite connections get foreign
// keys enabled; in-memory SQLite is limited to a single connection so every
// query sees the same database.
func Open(ctx context.Context, cfg Config) (*bun.DB, error) {
	var db *bun.DB

	switch strings.ToLower(cfg.Driver) {
	case "", DriverSQLite, "sqlite3":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if strings.Contains(dsn, ":memory:") {
			sqldb.SetMaxOpenConns(1)
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	case DriverPostgres, "pg", "postgresql":
		sqldb, err := sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// DialectName returns the migrations directory name for db
func DialectName(db *bun.DB) string {
	if db.Dialect().Name() == dialect.PG {
		return DriverPostgres
	}
	return DriverSQLite
}

// OpenInMemory opens a private in-memory SQLite database with every
// migration applied
func OpenInMemory(ctx context.Context) (*bun.DB, error) {
	db, err := Open(ctx, Config{Driver: DriverSQLite, DSN: ":memory:"})
	if err != nil {
		return nil, err
	}
	if _, err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
