// Package database is the hand-written pgx query layer. It mirrors the shape
// of generated sqlc code: a DBTX seam so every query runs against either the
// pool or an open transaction, a Queries struct, and one method per named
// query. Keeping the shape means services stay oblivious to whether they are
// inside a transaction.
package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}
