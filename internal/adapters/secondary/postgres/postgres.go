package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Querier is the part of *pgxpool.Pool the stores need.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}
