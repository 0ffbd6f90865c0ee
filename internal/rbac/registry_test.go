package rbac

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type testPrincipal struct {
	role string
}

func (p testPrincipal) GetRoleName() string { return p.role }

func seededRegistry() *Registry {
	r := NewRegistry()
	r.Replace(
		[]Permission{
			{ID: 1, Name: "users.view"},
			{ID: 2, Name: "users.manage"},
			{ID: 3, Name: "roles.view"},
		},
		[]Role{
			{ID: 1, Name: "Admin", Permissions: []string{"users.view", "users.manage"}},
			{ID: 2, Name: "Viewer", Permissions: []string{"users.view"}},
			{ID: 3, Name: "Empty", Permissions: nil},
		},
	)
	return r
}

func TestRegistryPermissionExists(t *testing.T) {
	r := seededRegistry()

	require.True(t, r.PermissionExists("users.view"))
	require.False(t, r.PermissionExists("billing.manage"))
}

func TestRegistryPermissionsSorted(t *testing.T) {
	r := seededRegistry()

	perms := r.Permissions()
	require.Len(t, perms, 3)
	require.Equal(t, "roles.view", perms[0].Name)
	require.Equal(t, "users.manage", perms[1].Name)
	require.Equal(t, "users.view", perms[2].Name)
}

func TestRegistryRolePermissions(t *testing.T) {
	r := seededRegistry()

	keys, err := r.RolePermissions("Admin")
	require.NoError(t, err)
	require.Equal(t, []string{"users.manage", "users.view"}, keys)

	keys, err = r.RolePermissions("Empty")
	require.NoError(t, err)
	require.Empty(t, keys)

	_, err = r.RolePermissions("Ghost")
	require.ErrorIs(t, err, ErrRoleNotFound)
}

func TestRegistryHasPermission(t *testing.T) {
	r := seededRegistry()

	granted, err := r.HasPermission("Viewer", "users.view")
	require.NoError(t, err)
	require.True(t, granted)

	granted, err = r.HasPermission("Viewer", "users.manage")
	require.NoError(t, err)
	require.False(t, granted)

	_, err = r.HasPermission("Ghost", "users.view")
	require.ErrorIs(t, err, ErrRoleNotFound)
}

func TestRegistryAuthorizeFailsClosed(t *testing.T) {
	r := seededRegistry()

	require.True(t, r.Authorize(testPrincipal{role: "Admin"}, "users.manage"))
	require.False(t, r.Authorize(testPrincipal{role: "Viewer"}, "users.manage"))
	require.False(t, r.Authorize(nil, "users.view"))
	require.False(t, r.Authorize(testPrincipal{role: ""}, "users.view"))
	require.False(t, r.Authorize(testPrincipal{role: "  "}, "users.view"))
	require.False(t, r.Authorize(testPrincipal{role: "Ghost"}, "users.view"))
	require.False(t, r.Authorize(testPrincipal{role: "Admin"}, ""))
}

func TestRegistryReplaceIsAtomicUnderConcurrentReads(t *testing.T) {
	r := seededRegistry()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				keys, err := r.RolePermissions("Admin")
				if err == nil {
					// Every published snapshot grants Admin both or neither.
					if len(keys) != 0 && len(keys) != 2 {
						t.Errorf("partial role observed: %v", keys)
						return
					}
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		perms := []Permission{{ID: 1, Name: "users.view"}, {ID: 2, Name: "users.manage"}}
		if i%2 == 0 {
			r.Replace(perms, []Role{{ID: 1, Name: "Admin", Permissions: []string{"users.view", "users.manage"}}})
		} else {
			r.Replace(perms, []Role{{ID: 1, Name: "Admin", Permissions: nil}})
		}
	}
	close(stop)
	wg.Wait()
}

func TestRegistryReplaceDropsStaleEntries(t *testing.T) {
	r := seededRegistry()
	r.Replace(
		[]Permission{{ID: 9, Name: "reports.view"}},
		[]Role{{ID: 9, Name: "Analyst", Permissions: []string{"reports.view"}}},
	)

	require.False(t, r.PermissionExists("users.view"))
	_, err := r.RolePermissions("Admin")
	require.ErrorIs(t, err, ErrRoleNotFound)

	granted, err := r.HasPermission("Analyst", "reports.view")
	require.NoError(t, err)
	require.True(t, granted)
}
