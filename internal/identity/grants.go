package identity

import (
	"sort"

	"github.com/ideasdevops/lead-ia/pkg/db/models"
	"github.com/ideasdevops/lead-ia/pkg/enums"
)

// PermissionSet is the effective grant set of a user.
type PermissionSet map[enums.PermissionName]struct{}

// Has reports whether p is granted.
func (s PermissionSet) Has(p enums.PermissionName) bool {
	_, ok := s[p]
	return ok
}

// Names returns the sorted permission names.
func (s PermissionSet) Names() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}

// Grants computes the union of permissions over the user's roles. Holding the superadmin
// role grants the whole catalog regardless of what the role row is linked to.
// Roles and their permissions must be preloaded.
func Grants(u models.User) PermissionSet {
	set := PermissionSet{}
	for _, role := range u.Roles {
		if role.Name == enums.RoleSuperadmin {
			for _, p := range enums.PermissionNames() {
				set[p] = struct{}{}
			}
		}
		for _, perm := range role.Permissions {
			set[enums.PermissionName(perm.Name)] = struct{}{}
		}
	}
	return set
}

// IsSuperadmin reports whether the preloaded roles include superadmin.
func IsSuperadmin(u models.User) bool {
	return u.HasRole(enums.RoleSuperadmin)
}
