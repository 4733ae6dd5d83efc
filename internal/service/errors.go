package service

import (
	"errors"
	"fmt"
	"strings"

	"ridehail/internal/domain"
)

var (
	// ErrUserExists is returned when registering an email that is already taken.
	ErrUserExists = errors.New("user already exists")

	// ErrMissingCredentials is returned when login is attempted without email or password.
	ErrMissingCredentials = errors.New("email and password are required")

	// ErrInvalidCredentials is returned for an unknown email or a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound is returned when an authenticated user no longer exists.
	ErrUserNotFound = errors.New("user no longer exists")

	// ErrCabNotFound is returned when a cab does not exist.
	ErrCabNotFound = errors.New("cab not found")

	// ErrCabUnavailable is returned when ordering a cab that is already booked.
	ErrCabUnavailable = errors.New("cab is not available")

	// ErrNotCabOwner is returned when a driver edits a cab they do not own.
	ErrNotCabOwner = errors.New("driver does not own this cab")

	// ErrOrderNotFound is returned when an order does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderAccessDenied is returned when the caller is neither the rider nor the cab's driver.
	ErrOrderAccessDenied = errors.New("caller may not access this order")

	// ErrOrderUpdateDenied is returned when a driver changes the status of another driver's order.
	ErrOrderUpdateDenied = errors.New("caller may not update this order")

	// ErrLocationUpdateDenied is returned when a driver reports the location of another driver's order.
	ErrLocationUpdateDenied = errors.New("caller may not update this order location")

	// ErrTrackingDenied is returned when the caller may not track an order.
	ErrTrackingDenied = errors.New("caller may not track this order")

	// ErrMissingStatus is returned when a status update carries no status.
	ErrMissingStatus = errors.New("status is required")

	// ErrInvalidCoordinates is returned when a location is not a [longitude, latitude] pair.
	ErrInvalidCoordinates = errors.New("invalid coordinates")

	// ErrOrderClosed is returned when updating the location of a delivered or cancelled order.
	ErrOrderClosed = errors.New("order is already closed")
)

// TransitionError is returned when an order status change is not allowed.
type TransitionError struct {
	From domain.OrderStatus
	To   domain.OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("Invalid status transition from %s to %s", e.From, e.To)
}

// ValidationError carries one message per invalid field.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, ", ")
}

// fieldErrors collects field messages.
type fieldErrors []string

func (f *fieldErrors) add(format string, args ...any) {
	*f = append(*f, fmt.Sprintf(format, args...))
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Messages: f}
}
