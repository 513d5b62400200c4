package tiltguard

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

//go:embed data/fixtures/users.yaml
var userFixtures []byte

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// DialectMigrations returns the migration directory for the given dialect
// ("sqlite" or "postgres").
func DialectMigrations(dialect string) (fs.FS, error) {
	switch dialect {
	case "sqlite", "postgres":
		return fs.Sub(migrationsFS, "data/sql/migrations/"+dialect)
	default:
		return nil, fmt.Errorf("no migrations for dialect %q", dialect)
	}
}

// UserFixtures returns the YAML demo users loaded by the seed command
func UserFixtures() []byte {
	return userFixtures
}
