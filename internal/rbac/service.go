package rbac

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Service orchestrates RBAC operations: seed loading, admin mutations,
// and snapshot refresh. Every mutation rebuilds the registry snapshot
// from the store so readers only ever see committed state.
type Service struct {
	repo     Repository
	registry *Registry
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, registry *Registry, logger *slog.Logger) *Service {
	return &Service{repo: repo, registry: registry, logger: logger}
}

// Registry exposes the read-side evaluator.
func (s *Service) Registry() *Registry {
	return s.registry
}

// LoadSeed applies a seed document: catalog entries first, then roles
// validated against the resulting catalog. Additive and idempotent:
// existing permissions keep their descriptions, role reloads union
// their permission sets.
func (s *Service) LoadSeed(ctx context.Context, seed Seed) error {
	for key, description := range seed.Scopes {
		if _, err := s.repo.UpsertPermission(ctx, key, description); err != nil {
			return err
		}
		if s.logger != nil {
			s.logger.Debug("seeded permission", slog.String("permission", key))
		}
	}

	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return err
	}
	catalog := make(map[string]Permission, len(perms))
	for _, p := range perms {
		catalog[p.Name] = p
	}

	// Validate before any role is written: a role listing a key outside
	// the catalog aborts the whole load.
	for name, roleSeed := range seed.Roles {
		for _, key := range roleSeed.Permissions {
			if _, ok := catalog[key]; !ok {
				return &UnknownPermissionError{Role: name, Permission: key}
			}
		}
	}

	for name, roleSeed := range seed.Roles {
		role, err := s.repo.UpsertRole(ctx, name, roleSeed.Description)
		if err != nil {
			return err
		}
		for _, key := range roleSeed.Permissions {
			if err := s.repo.AttachPermission(ctx, role.ID, catalog[key].ID); err != nil {
				return err
			}
		}
		if s.logger != nil {
			s.logger.Debug("seeded role", slog.String("role", name))
		}
	}

	return s.Refresh(ctx)
}

// Refresh republishes the registry snapshot from the store.
func (s *Service) Refresh(ctx context.Context) error {
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return err
	}
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return err
	}
	s.registry.Replace(perms, roles)
	return nil
}

// ListPermissions returns the catalog.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// CreatePermission extends the catalog with a new entry. The key is
// stored in canonical form.
func (s *Service) CreatePermission(ctx context.Context, name, description string) (Permission, error) {
	name = CanonicalPermissionKey(name)
	if name == "" {
		return Permission{}, errors.New("rbac: permission name required")
	}
	perm, err := s.repo.UpsertPermission(ctx, name, strings.TrimSpace(description))
	if err != nil {
		return Permission{}, err
	}
	if err := s.Refresh(ctx); err != nil {
		return Permission{}, err
	}
	return perm, nil
}

// ListRoles returns all roles with their grants.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// GetRoleByName fetches a role by name.
func (s *Service) GetRoleByName(ctx context.Context, name string) (Role, error) {
	return s.repo.GetRoleByName(ctx, name)
}

// CreateRole inserts a role, optionally with initial permissions.
func (s *Service) CreateRole(ctx context.Context, name, description string, permissions []string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	keys := make([]string, len(permissions))
	for i, key := range permissions {
		keys[i] = CanonicalPermissionKey(key)
		if !s.registry.PermissionExists(keys[i]) {
			return Role{}, &UnknownPermissionError{Role: name, Permission: key}
		}
	}
	role, err := s.repo.UpsertRole(ctx, name, strings.TrimSpace(description))
	if err != nil {
		return Role{}, err
	}
	for _, key := range keys {
		perm, err := s.repo.GetPermissionByName(ctx, key)
		if err != nil {
			return Role{}, err
		}
		if err := s.repo.AttachPermission(ctx, role.ID, perm.ID); err != nil {
			return Role{}, err
		}
	}
	if err := s.Refresh(ctx); err != nil {
		return Role{}, err
	}
	return s.repo.GetRole(ctx, role.ID)
}

// DeleteRole removes a role unless users still hold it.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// AddPermissionToRole grants one permission to a role.
func (s *Service) AddPermissionToRole(ctx context.Context, roleID, permissionID int64) (Role, error) {
	if err := s.repo.AttachPermission(ctx, roleID, permissionID); err != nil {
		return Role{}, err
	}
	if err := s.Refresh(ctx); err != nil {
		return Role{}, err
	}
	return s.repo.GetRole(ctx, roleID)
}

// RemovePermissionFromRole revokes one permission from a role.
func (s *Service) RemovePermissionFromRole(ctx context.Context, roleID, permissionID int64) (Role, error) {
	if err := s.repo.DetachPermission(ctx, roleID, permissionID); err != nil {
		return Role{}, err
	}
	if err := s.Refresh(ctx); err != nil {
		return Role{}, err
	}
	return s.repo.GetRole(ctx, roleID)
}
