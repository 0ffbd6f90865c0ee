package shared

// Core platform permissions.
const (
	PermUsersView   = "users.view"
	PermUsersManage = "users.manage"

	PermRolesView   = "roles.view"
	PermRolesManage = "roles.manage"

	PermPermissionsView   = "permissions.view"
	PermPermissionsManage = "permissions.manage"
)

// SuperAdminRole is the highest-privilege role created at bootstrap.
const SuperAdminRole = "Super Admin"

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersManage,
		PermRolesView,
		PermRolesManage,
		PermPermissionsView,
		PermPermissionsManage,
	}
}
