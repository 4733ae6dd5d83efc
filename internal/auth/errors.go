package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingToken is returned when a request carries no bearer token.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrInvalidToken is returned when a token is malformed or badly signed.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when a token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// RoleError is returned when an authenticated user lacks a required role.
type RoleError struct {
	Role string
}

func (e *RoleError) Error() string {
	return fmt.Sprintf("User role %s is not authorized to access this route", e.Role)
}
