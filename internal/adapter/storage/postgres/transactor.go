package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Transactor hands out database transactions from the pool. Services use it
// to scope a claim plus its ledger or plan mutation to a single commit.
type Transactor struct {
	pool Pool
}

// NewTransactor creates a Transactor over the connection pool.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin opens a transaction.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.Begin(ctx)
}
