package auth

import "time"

// User represents an authenticated user account.
type User struct {
	ID           int64
	RoleID       int64
	RoleName     string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	IsVerified   bool
	IsActive     bool
	LastActive   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GetRoleName implements the authorization principal contract.
func (u *User) GetRoleName() string {
	if u == nil {
		return ""
	}
	return u.RoleName
}
