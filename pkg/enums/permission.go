package enums

import "fmt"

// PermissionName is a member of the fixed permission catalog.
type PermissionName string

const (
	PermissionViewDashboard PermissionName = "view_dashboard"
	PermissionCreateSearch  PermissionName = "create_search"
	PermissionViewLeads     PermissionName = "view_leads"
	PermissionExportLeads   PermissionName = "export_leads"
	PermissionManageUsers   PermissionName = "manage_users"
	PermissionManageRoles   PermissionName = "manage_roles"
	PermissionApproveUsers  PermissionName = "approve_users"
)

// RoleSuperadmin is the protected singleton role that implicitly holds every permission.
const RoleSuperadmin = "superadmin"

// RoleUser is the default role seeded for regular accounts.
const RoleUser = "user"

var permissionCatalog = []struct {
	name        PermissionName
	description string
}{
	{PermissionViewDashboard, "View dashboard"},
	{PermissionCreateSearch, "Create searches"},
	{PermissionViewLeads, "View leads"},
	{PermissionExportLeads, "Export leads"},
	{PermissionManageUsers, "Manage users"},
	{PermissionManageRoles, "Manage roles"},
	{PermissionApproveUsers, "Approve users"},
}

// PermissionNames returns the full catalog in seeding order.
func PermissionNames() []PermissionName {
	out := make([]PermissionName, 0, len(permissionCatalog))
	for _, entry := range permissionCatalog {
		out = append(out, entry.name)
	}
	return out
}

// DefaultUserPermissions are granted to the seeded "user" role.
func DefaultUserPermissions() []PermissionName {
	return []PermissionName{
		PermissionViewDashboard,
		PermissionCreateSearch,
		PermissionViewLeads,
		PermissionExportLeads,
	}
}

// String implements fmt.Stringer.
func (p PermissionName) String() string {
	return string(p)
}

// Description returns the catalog description for the permission.
func (p PermissionName) Description() string {
	for _, entry := range permissionCatalog {
		if entry.name == p {
			return entry.description
		}
	}
	return ""
}

// IsValid reports whether the value is part of the catalog.
func (p PermissionName) IsValid() bool {
	return p.Description() != ""
}

// ParsePermissionName converts raw input into a PermissionName.
func ParsePermissionName(value string) (PermissionName, error) {
	candidate := PermissionName(value)
	if !candidate.IsValid() {
		return "", fmt.Errorf("invalid permission %q", value)
	}
	return candidate, nil
}
