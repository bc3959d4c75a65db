package shared

// Permission names follow the resource:action convention.
const (
	PermUsersRead  = "users:read"
	PermUsersWrite = "users:write"

	PermRolesRead  = "roles:read"
	PermRolesWrite = "roles:write"

	PermPermissionsRead = "permissions:read"

	PermSuppliersRead  = "suppliers:read"
	PermSuppliersWrite = "suppliers:write"

	PermPOsRead    = "pos:read"
	PermPOsWrite   = "pos:write"
	PermPOsApprove = "pos:approve"
)

// CoreScopes lists every permission seeded with the platform.
func CoreScopes() []string {
	return []string{
		PermUsersRead,
		PermUsersWrite,
		PermRolesRead,
		PermRolesWrite,
		PermPermissionsRead,
		PermSuppliersRead,
		PermSuppliersWrite,
		PermPOsRead,
		PermPOsWrite,
		PermPOsApprove,
	}
}
