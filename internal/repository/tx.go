package repository

import "context"

// Tx exposes repositories bound to a single transaction.
type Tx interface {
	Cabs() CabRepository
	Orders() OrderRepository
}

// Transactor runs a function inside a transaction. The transaction commits
// when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
