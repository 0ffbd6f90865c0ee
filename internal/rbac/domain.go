package rbac

import "time"

// Permission represents an atomic capability.
type Permission struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Role represents a named grouping of permissions.
type Role struct {
	ID          int64
	Name        string
	Description string
	Permissions []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Principal describes the authenticated actor as seen by authorization.
type Principal interface {
	GetRoleName() string
}
