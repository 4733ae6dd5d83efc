package postgres

import (
	"context"
	"database/sql"

	"ridehail/internal/repository"
)

// Transactor is a PostgreSQL implementation of repository.Transactor.
type Transactor struct {
	db *sql.DB
}

// NewTransactor creates a transactor on the given pool.
func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTx runs fn in a transaction, committing if fn returns nil.
func (t *Transactor) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) (err error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(txRepositories{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type txRepositories struct {
	tx *sql.Tx
}

func (r txRepositories) Cabs() repository.CabRepository {
	return NewCabRepositoryWithTx(r.tx)
}

func (r txRepositories) Orders() repository.OrderRepository {
	return NewOrderRepositoryWithTx(r.tx)
}
