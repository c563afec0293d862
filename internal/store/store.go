// Package store persists users, products and orders in Postgres. Every query
// lives in a free function taking a database.Querier so it runs the same on
// a pool or inside a transaction; Postgres binds those functions to the
// engine repository interfaces.
package store

import (
	"context"
	"database/sql"

	"github.com/safar/retail-store/internal/catalog"
	"github.com/safar/retail-store/internal/database"
	"github.com/safar/retail-store/internal/fulfillment"
	"github.com/safar/retail-store/internal/order"
)

var (
	_ order.Repository       = (*Postgres)(nil)
	_ catalog.Repository     = (*Postgres)(nil)
	_ fulfillment.UnitOfWork = (*Postgres)(nil)
)

type Postgres struct {
	db   *sql.DB
	q    database.Querier
	inTx bool
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db, q: db}
}

// Do runs fn in one read-committed transaction. Rows read through the
// transaction-bound repositories are locked until commit.
func (s *Postgres) Do(ctx context.Context, fn func(orders order.Repository, products catalog.Repository) error) error {
	if s.inTx {
		return fn(s, s)
	}
	return database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		bound := &Postgres{db: s.db, q: tx, inTx: true}
		return fn(bound, bound)
	})
}
