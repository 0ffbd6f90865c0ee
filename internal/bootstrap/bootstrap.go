// Package bootstrap brings a fresh deployment to a usable state: it loads
// the permission and role seed into the catalog and guarantees a super
// admin account exists before the server starts accepting traffic.
package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gatehouse-id/gatehouse/internal/auth"
	"github.com/gatehouse-id/gatehouse/internal/platform/httpx"
	"github.com/gatehouse-id/gatehouse/internal/rbac"
	"github.com/gatehouse-id/gatehouse/internal/shared"
	"github.com/gatehouse-id/gatehouse/internal/users"
)

// Error wraps a failure in a named bootstrap step. Any Error returned
// from Run is fatal; the process must not serve requests after one.
type Error struct {
	Step string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("bootstrap: %s: %v", e.Step, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// AdminSeed describes the initial super admin account.
type AdminSeed struct {
	SuperAdmin struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Password  string `json:"password"`
	} `json:"super_admin"`
}

// ParseAdminSeed decodes and validates the admin seed document.
func ParseAdminSeed(data []byte) (AdminSeed, error) {
	var seed AdminSeed
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&seed); err != nil {
		return AdminSeed{}, fmt.Errorf("decode admin seed: %w", err)
	}
	if strings.TrimSpace(seed.SuperAdmin.Email) == "" {
		return AdminSeed{}, errors.New("admin seed: super_admin.email is required")
	}
	if seed.SuperAdmin.Password == "" {
		return AdminSeed{}, errors.New("admin seed: super_admin.password is required")
	}
	return seed, nil
}

// UserStore is the slice of the user repository the sequencer needs.
type UserStore interface {
	CountByRole(ctx context.Context, roleID int64) (int64, error)
	Create(ctx context.Context, params users.CreateParams) (users.User, error)
}

// Sequencer runs the startup steps in order, stopping at the first failure.
type Sequencer struct {
	rbac   *rbac.Service
	store  UserStore
	logger *slog.Logger
}

func NewSequencer(rbacService *rbac.Service, store UserStore, logger *slog.Logger) *Sequencer {
	return &Sequencer{rbac: rbacService, store: store, logger: logger}
}

// Run loads the permission seed, then ensures the super admin account.
// It is safe to run on every startup; reruns are no-ops.
func (s *Sequencer) Run(ctx context.Context, permissionSeed, adminSeed []byte) error {
	seed, err := rbac.ParseSeed(permissionSeed)
	if err != nil {
		return &Error{Step: "parse permission seed", Err: err}
	}
	if err := s.rbac.LoadSeed(ctx, seed); err != nil {
		return &Error{Step: "load permission seed", Err: err}
	}
	if err := s.verifyCoreScopes(); err != nil {
		return &Error{Step: "verify core scopes", Err: err}
	}
	admin, err := ParseAdminSeed(adminSeed)
	if err != nil {
		return &Error{Step: "parse admin seed", Err: err}
	}
	if err := s.ensureSuperAdmin(ctx, admin); err != nil {
		return &Error{Step: "ensure super admin", Err: err}
	}
	return nil
}

// verifyCoreScopes rejects a seed document that leaves the platform's
// own permissions out of the catalog. A deployment seeded without them
// would lock every administrator out of the admin endpoints.
func (s *Sequencer) verifyCoreScopes() error {
	for _, key := range shared.CoreScopes() {
		if !s.rbac.Registry().PermissionExists(key) {
			return fmt.Errorf("core permission %q missing from seed", key)
		}
	}
	return nil
}

// ensureSuperAdmin creates the seeded account when no user holds the
// super admin role yet. A concurrent boot can win the race between the
// count and the insert; the unique email constraint turns the second
// insert into a no-op.
func (s *Sequencer) ensureSuperAdmin(ctx context.Context, seed AdminSeed) error {
	role, err := s.rbac.GetRoleByName(ctx, shared.SuperAdminRole)
	if err != nil {
		return fmt.Errorf("look up role %q: %w", shared.SuperAdminRole, err)
	}
	count, err := s.store.CountByRole(ctx, role.ID)
	if err != nil {
		return fmt.Errorf("count role holders: %w", err)
	}
	if count > 0 {
		s.logger.Debug("super admin already present", "role_id", role.ID)
		return nil
	}
	hash, err := auth.HashPassword(seed.SuperAdmin.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	created, err := s.store.Create(ctx, users.CreateParams{
		RoleID:       role.ID,
		FirstName:    seed.SuperAdmin.FirstName,
		LastName:     seed.SuperAdmin.LastName,
		Email:        strings.ToLower(seed.SuperAdmin.Email),
		PasswordHash: hash,
		IsVerified:   true,
	})
	if err != nil {
		if errors.Is(err, httpx.ErrDuplicate) {
			s.logger.Info("super admin created by a concurrent boot", "email", seed.SuperAdmin.Email)
			return nil
		}
		return fmt.Errorf("create super admin: %w", err)
	}
	s.logger.Info("super admin created", "user_id", created.ID, "email", created.Email)
	return nil
}
