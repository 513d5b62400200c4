package auth

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes the stores used by the auth package
type RepositoryManager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Users() Users
}
