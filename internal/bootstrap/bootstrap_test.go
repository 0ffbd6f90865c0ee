package bootstrap

import (
	"context"
	"log/slog"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gatehouse-id/gatehouse/internal/auth"
	"github.com/gatehouse-id/gatehouse/internal/platform/httpx"
	"github.com/gatehouse-id/gatehouse/internal/rbac"
	"github.com/gatehouse-id/gatehouse/internal/users"
)

type memRBACRepo struct {
	perms      map[string]rbac.Permission
	roles      map[string]*rbac.Role
	nextPermID int64
	nextRoleID int64
}

func newMemRBACRepo() *memRBACRepo {
	return &memRBACRepo{
		perms:      make(map[string]rbac.Permission),
		roles:      make(map[string]*rbac.Role),
		nextPermID: 1,
		nextRoleID: 1,
	}
}

func (m *memRBACRepo) ListPermissions(ctx context.Context) ([]rbac.Permission, error) {
	out := make([]rbac.Permission, 0, len(m.perms))
	for _, p := range m.perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memRBACRepo) UpsertPermission(ctx context.Context, name, description string) (rbac.Permission, error) {
	if p, ok := m.perms[name]; ok {
		return p, nil
	}
	p := rbac.Permission{ID: m.nextPermID, Name: name, Description: description}
	m.nextPermID++
	m.perms[name] = p
	return p, nil
}

func (m *memRBACRepo) GetPermissionByName(ctx context.Context, name string) (rbac.Permission, error) {
	p, ok := m.perms[name]
	if !ok {
		return rbac.Permission{}, rbac.ErrPermissionNotFound
	}
	return p, nil
}

func (m *memRBACRepo) ListRoles(ctx context.Context) ([]rbac.Role, error) {
	out := make([]rbac.Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, *r)
	}
	return out, nil
}

func (m *memRBACRepo) GetRole(ctx context.Context, id int64) (rbac.Role, error) {
	for _, r := range m.roles {
		if r.ID == id {
			return *r, nil
		}
	}
	return rbac.Role{}, rbac.ErrRoleNotFound
}

func (m *memRBACRepo) GetRoleByName(ctx context.Context, name string) (rbac.Role, error) {
	r, ok := m.roles[name]
	if !ok {
		return rbac.Role{}, rbac.ErrRoleNotFound
	}
	return *r, nil
}

func (m *memRBACRepo) UpsertRole(ctx context.Context, name, description string) (rbac.Role, error) {
	if r, ok := m.roles[name]; ok {
		r.Description = description
		return *r, nil
	}
	r := &rbac.Role{ID: m.nextRoleID, Name: name, Description: description}
	m.nextRoleID++
	m.roles[name] = r
	return *r, nil
}

func (m *memRBACRepo) AttachPermission(ctx context.Context, roleID, permissionID int64) error {
	var permName string
	for _, p := range m.perms {
		if p.ID == permissionID {
			permName = p.Name
		}
	}
	for _, r := range m.roles {
		if r.ID != roleID {
			continue
		}
		for _, existing := range r.Permissions {
			if existing == permName {
				return nil
			}
		}
		r.Permissions = append(r.Permissions, permName)
		return nil
	}
	return rbac.ErrRoleNotFound
}

func (m *memRBACRepo) DetachPermission(ctx context.Context, roleID, permissionID int64) error {
	return nil
}

func (m *memRBACRepo) DeleteRole(ctx context.Context, id int64) error {
	return rbac.ErrRoleNotFound
}

type memUserStore struct {
	created    []users.CreateParams
	emails     map[string]struct{}
	roleCounts map[int64]int64
	createErr  error
}

func newMemUserStore() *memUserStore {
	return &memUserStore{emails: make(map[string]struct{}), roleCounts: make(map[int64]int64)}
}

func (m *memUserStore) CountByRole(ctx context.Context, roleID int64) (int64, error) {
	return m.roleCounts[roleID], nil
}

func (m *memUserStore) Create(ctx context.Context, params users.CreateParams) (users.User, error) {
	if m.createErr != nil {
		return users.User{}, m.createErr
	}
	if _, ok := m.emails[params.Email]; ok {
		return users.User{}, httpx.ErrDuplicate
	}
	m.emails[params.Email] = struct{}{}
	m.created = append(m.created, params)
	m.roleCounts[params.RoleID]++
	return users.User{ID: int64(len(m.created)), RoleID: params.RoleID, Email: params.Email}, nil
}

const permissionSeed = `{
	"scopes": {
		"users.view": "Read users",
		"users.manage": "Write users",
		"roles.view": "Read roles",
		"roles.manage": "Write roles",
		"permissions.view": "Read permissions",
		"permissions.manage": "Write permissions"
	},
	"roles": {
		"Super Admin": {"description": "Everything", "permissions": ["users.view", "users.manage", "roles.view", "roles.manage", "permissions.view", "permissions.manage"]},
		"User": {"permissions": []}
	}
}`

const adminSeed = `{
	"super_admin": {
		"email": "Root@Example.com",
		"first_name": "Site",
		"last_name": "Admin",
		"password": "bootstrapped"
	}
}`

func newBootstrapFixture(t *testing.T) (*Sequencer, *memUserStore, *rbac.Service) {
	t.Helper()
	rbacService := rbac.NewService(newMemRBACRepo(), rbac.NewRegistry(), slog.New(slog.DiscardHandler))
	store := newMemUserStore()
	return NewSequencer(rbacService, store, slog.New(slog.DiscardHandler)), store, rbacService
}

func TestRunSeedsAndCreatesSuperAdmin(t *testing.T) {
	seq, store, rbacService := newBootstrapFixture(t)
	ctx := context.Background()

	require.NoError(t, seq.Run(ctx, []byte(permissionSeed), []byte(adminSeed)))

	granted, err := rbacService.Registry().HasPermission("Super Admin", "users.manage")
	require.NoError(t, err)
	require.True(t, granted)

	require.Len(t, store.created, 1)
	admin := store.created[0]
	require.Equal(t, "root@example.com", admin.Email)
	require.True(t, admin.IsVerified)
	require.True(t, auth.VerifyPassword(admin.PasswordHash, "bootstrapped"))
}

func TestRunIsIdempotent(t *testing.T) {
	seq, store, _ := newBootstrapFixture(t)
	ctx := context.Background()

	require.NoError(t, seq.Run(ctx, []byte(permissionSeed), []byte(adminSeed)))
	require.NoError(t, seq.Run(ctx, []byte(permissionSeed), []byte(adminSeed)))

	require.Len(t, store.created, 1)
}

func TestRunTreatsInsertRaceAsNoOp(t *testing.T) {
	seq, store, _ := newBootstrapFixture(t)
	ctx := context.Background()

	// Another instance wins the insert between the count and the create.
	store.createErr = httpx.ErrDuplicate
	require.NoError(t, seq.Run(ctx, []byte(permissionSeed), []byte(adminSeed)))
	require.Empty(t, store.created)
}

func TestRunFailsOnMalformedPermissionSeed(t *testing.T) {
	seq, _, _ := newBootstrapFixture(t)

	err := seq.Run(context.Background(), []byte(`{"scopes": `), []byte(adminSeed))
	var bootErr *Error
	require.ErrorAs(t, err, &bootErr)
	require.Equal(t, "parse permission seed", bootErr.Step)
	var formatErr *rbac.SeedFormatError
	require.ErrorAs(t, err, &formatErr)
}

func TestRunFailsOnUnknownPermissionInSeed(t *testing.T) {
	seq, _, _ := newBootstrapFixture(t)
	bad := `{
		"scopes": {"users.view": "Read users"},
		"roles": {"Super Admin": {"permissions": ["missing.perm"]}}
	}`

	err := seq.Run(context.Background(), []byte(bad), []byte(adminSeed))
	var bootErr *Error
	require.ErrorAs(t, err, &bootErr)
	require.Equal(t, "load permission seed", bootErr.Step)
	var unknown *rbac.UnknownPermissionError
	require.ErrorAs(t, err, &unknown)
}

func TestRunFailsWithoutSuperAdminRole(t *testing.T) {
	seq, _, _ := newBootstrapFixture(t)
	noRole := `{
		"scopes": {
			"users.view": "Read users",
			"users.manage": "Write users",
			"roles.view": "Read roles",
			"roles.manage": "Write roles",
			"permissions.view": "Read permissions",
			"permissions.manage": "Write permissions"
		},
		"roles": {"User": {"permissions": []}}
	}`

	err := seq.Run(context.Background(), []byte(noRole), []byte(adminSeed))
	var bootErr *Error
	require.ErrorAs(t, err, &bootErr)
	require.Equal(t, "ensure super admin", bootErr.Step)
	require.ErrorIs(t, err, rbac.ErrRoleNotFound)
}

func TestRunFailsWhenSeedOmitsCoreScopes(t *testing.T) {
	seq, _, _ := newBootstrapFixture(t)
	trimmed := `{
		"scopes": {"users.view": "Read users"},
		"roles": {"Super Admin": {"permissions": ["users.view"]}}
	}`

	err := seq.Run(context.Background(), []byte(trimmed), []byte(adminSeed))
	var bootErr *Error
	require.ErrorAs(t, err, &bootErr)
	require.Equal(t, "verify core scopes", bootErr.Step)
}

func TestParseAdminSeedValidation(t *testing.T) {
	_, err := ParseAdminSeed([]byte(`{"super_admin": {"email": "", "password": "p"}}`))
	require.Error(t, err)

	_, err = ParseAdminSeed([]byte(`{"super_admin": {"email": "a@b.c", "password": ""}}`))
	require.Error(t, err)

	_, err = ParseAdminSeed([]byte(`{"super_admin": {"email": "a@b.c", "password": "p"}, "extra": 1}`))
	require.Error(t, err)

	seed, err := ParseAdminSeed([]byte(adminSeed))
	require.NoError(t, err)
	require.Equal(t, "Root@Example.com", seed.SuperAdmin.Email)
}
