package rbac

import (
	"sort"
	"strings"
	"sync/atomic"
)

type roleGrants struct {
	description string
	grants      map[string]struct{}
}

// snapshot is an immutable view of the catalog and role graph. Readers
// load the current snapshot without locking; writers build a fresh one
// and swap it whole, so a reader never observes a partially-updated role.
type snapshot struct {
	perms map[string]Permission
	roles map[string]roleGrants
}

// Registry holds the in-memory permission catalog and role registry
// consulted on every authorization decision.
type Registry struct {
	snap atomic.Pointer[snapshot]
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	r.snap.Store(&snapshot{
		perms: map[string]Permission{},
		roles: map[string]roleGrants{},
	})
	return r
}

// Replace atomically publishes a new catalog and role graph.
func (r *Registry) Replace(perms []Permission, roles []Role) {
	next := &snapshot{
		perms: make(map[string]Permission, len(perms)),
		roles: make(map[string]roleGrants, len(roles)),
	}
	for _, p := range perms {
		next.perms[p.Name] = p
	}
	for _, role := range roles {
		grants := make(map[string]struct{}, len(role.Permissions))
		for _, name := range role.Permissions {
			grants[name] = struct{}{}
		}
		next.roles[role.Name] = roleGrants{description: role.Description, grants: grants}
	}
	r.snap.Store(next)
}

// PermissionExists reports whether the catalog contains the key.
func (r *Registry) PermissionExists(key string) bool {
	_, ok := r.snap.Load().perms[key]
	return ok
}

// Permissions returns a fresh, sorted copy of the catalog.
func (r *Registry) Permissions() []Permission {
	snap := r.snap.Load()
	perms := make([]Permission, 0, len(snap.perms))
	for _, p := range snap.perms {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].Name < perms[j].Name })
	return perms
}

// RolePermissions returns the permission keys granted to the role.
func (r *Registry) RolePermissions(roleName string) ([]string, error) {
	role, ok := r.snap.Load().roles[roleName]
	if !ok {
		return nil, ErrRoleNotFound
	}
	keys := make([]string, 0, len(role.grants))
	for key := range role.grants {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// HasPermission reports whether the role holds the permission. A role
// lacking the permission yields false without error; an unknown role
// yields ErrRoleNotFound.
func (r *Registry) HasPermission(roleName, permissionKey string) (bool, error) {
	role, ok := r.snap.Load().roles[roleName]
	if !ok {
		return false, ErrRoleNotFound
	}
	_, granted := role.grants[permissionKey]
	return granted, nil
}

// Authorize decides whether the principal holds the required
// permission. Any condition not explicitly allowed is denied: nil
// principals, blank roles, and unknown roles all fail closed.
func (r *Registry) Authorize(p Principal, requiredPermission string) bool {
	if p == nil {
		return false
	}
	roleName := strings.TrimSpace(p.GetRoleName())
	if roleName == "" || requiredPermission == "" {
		return false
	}
	granted, err := r.HasPermission(roleName, requiredPermission)
	if err != nil {
		return false
	}
	return granted
}
