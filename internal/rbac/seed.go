package rbac

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the role registry.
var (
	// ErrRoleNotFound indicates the requested role does not exist.
	ErrRoleNotFound = errors.New("rbac: role not found")
	// ErrRoleInUse indicates a role still referenced by users.
	ErrRoleInUse = errors.New("rbac: role is assigned to users")
	// ErrPermissionNotFound indicates the requested permission does not exist.
	ErrPermissionNotFound = errors.New("rbac: permission not found")
)

// SeedFormatError reports malformed seed data.
type SeedFormatError struct {
	Reason string
	Err    error
}

func (e *SeedFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rbac: malformed seed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("rbac: malformed seed: %s", e.Reason)
}

func (e *SeedFormatError) Unwrap() error { return e.Err }

// UnknownPermissionError reports a role referencing a permission absent
// from the catalog.
type UnknownPermissionError struct {
	Role       string
	Permission string
}

func (e *UnknownPermissionError) Error() string {
	return fmt.Sprintf("rbac: role %q references unknown permission %q", e.Role, e.Permission)
}

// RoleSeed describes one role entry in the seed document.
type RoleSeed struct {
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

// Seed is the external bootstrap document defining the permission
// catalog and the role graph.
type Seed struct {
	Scopes map[string]string   `json:"scopes"`
	Roles  map[string]RoleSeed `json:"roles"`
}

// ParseSeed decodes and structurally validates a seed document.
// Permission keys are folded to their canonical lowercase form here so
// every later comparison is exact.
func ParseSeed(data []byte) (Seed, error) {
	var seed Seed
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&seed); err != nil {
		return Seed{}, &SeedFormatError{Reason: "decode", Err: err}
	}
	if seed.Scopes == nil {
		return Seed{}, &SeedFormatError{Reason: "scopes must be a mapping of key to description"}
	}
	scopes := make(map[string]string, len(seed.Scopes))
	for key, description := range seed.Scopes {
		key = CanonicalPermissionKey(key)
		if key == "" {
			return Seed{}, &SeedFormatError{Reason: "scope keys must be non-empty"}
		}
		scopes[key] = description
	}
	seed.Scopes = scopes
	for name, role := range seed.Roles {
		if strings.TrimSpace(name) == "" {
			return Seed{}, &SeedFormatError{Reason: "role names must be non-empty"}
		}
		for i, perm := range role.Permissions {
			perm = CanonicalPermissionKey(perm)
			if perm == "" {
				return Seed{}, &SeedFormatError{Reason: fmt.Sprintf("role %q lists an empty permission key", name)}
			}
			role.Permissions[i] = perm
		}
		seed.Roles[name] = role
	}
	return seed, nil
}

// CanonicalPermissionKey folds a permission key to the single form the
// catalog stores and the evaluator compares against.
func CanonicalPermissionKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
