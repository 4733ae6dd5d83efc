package repository

import (
	"context"

	"ridehail/internal/domain"
)

// CabRepository defines the persistence operations for cabs.
type CabRepository interface {
	// Create persists a new cab. Returns ErrDuplicate if the vehicle number
	// is taken or the driver already owns a cab.
	Create(ctx context.Context, cab *domain.Cab) error

	// GetByID retrieves a cab with its driver.
	GetByID(ctx context.Context, id string) (*domain.CabView, error)

	// GetByDriverID retrieves the cab owned by a driver.
	GetByDriverID(ctx context.Context, driverID string) (*domain.Cab, error)

	// List retrieves all cabs matching the filter.
	List(ctx context.Context, filter domain.CabFilter) ([]*domain.CabView, error)

	// Update writes the editable attributes of a cab. Availability is left untouched.
	Update(ctx context.Context, cab *domain.Cab) error

	// Reserve marks an available cab unavailable and returns it.
	// Returns ErrNotFound if the cab does not exist and ErrConflict if it is
	// already unavailable.
	Reserve(ctx context.Context, id string) (*domain.Cab, error)

	// SetAvailability sets the availability flag of a cab.
	SetAvailability(ctx context.Context, id string, available bool) error
}
