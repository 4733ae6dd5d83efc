package domain

import "time"

// Role represents what a user is allowed to do in the system.
type Role string

const (
	RoleUser   Role = "user"
	RoleDriver Role = "driver"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleDriver
}

// User represents a rider or a driver account.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Address      string
	CreatedAt    time.Time
}

// UserSummary is the public identity joined into cab and order views.
type UserSummary struct {
	ID    string
	Name  string
	Email string
}

// Summary returns the public part of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}
