package repository

import (
	"context"

	"ridehail/internal/domain"
)

// UserRepository defines the persistence operations for users.
type UserRepository interface {
	// Create persists a new user. Returns ErrDuplicate if the email is taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user, including the password hash, by email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}
