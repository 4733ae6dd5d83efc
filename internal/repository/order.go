package repository

import (
	"context"
	"time"

	"ridehail/internal/domain"
)

// OrderRepository defines the persistence operations for orders.
type OrderRepository interface {
	// Create persists a new order.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order with its rider and cab.
	GetByID(ctx context.Context, id string) (*domain.OrderView, error)

	// List retrieves orders matching the filter, newest first.
	List(ctx context.Context, filter domain.OrderFilter) ([]*domain.OrderView, error)

	// UpdateStatus moves an order from one status to another.
	// Returns ErrConflict if the order is no longer in status from.
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, completedAt time.Time) error

	// UpdateLocation stores the live location of an order.
	UpdateLocation(ctx context.Context, id string, location domain.TrackedLocation) error
}
