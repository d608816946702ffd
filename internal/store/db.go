package store

import (
	"context"
	"database/sql"
)

// DBTX is the query surface the stores run against. Both *sql.DB and
// *sql.Tx satisfy it, so a store works the same inside and outside a
// transaction. Only the methods the stores actually call are included.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
