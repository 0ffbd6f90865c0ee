package users

import "time"

// User represents a user account for management.
type User struct {
	ID         int64
	RoleID     int64
	RoleName   string
	FirstName  string
	LastName   string
	Email      string
	IsVerified bool
	IsActive   bool
	LastActive *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CreateParams carries the fields needed to persist a new account.
type CreateParams struct {
	RoleID       int64
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	IsVerified   bool
}

// UpdateParams carries optional profile changes; nil means unchanged.
type UpdateParams struct {
	FirstName *string
	LastName  *string
}
