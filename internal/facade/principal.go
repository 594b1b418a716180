package facade

import (
	"github.com/ideasdevops/lead-ia/internal/identity"
	"github.com/ideasdevops/lead-ia/pkg/enums"
	pkgerrors "github.com/ideasdevops/lead-ia/pkg/errors"
)

// Principal is the authenticated caller of every facade operation.
type Principal struct {
	UserID      uint
	Permissions identity.PermissionSet
	Superadmin  bool
}

// PrincipalFromAccess builds a principal from resolved grants.
func PrincipalFromAccess(a *identity.Access) Principal {
	if a == nil {
		return Principal{}
	}
	return Principal{UserID: a.UserID, Permissions: a.Permissions, Superadmin: a.Superadmin}
}

// Can reports whether the principal holds perm. Superadmins hold everything.
func (p Principal) Can(perm enums.PermissionName) bool {
	return p.Superadmin || p.Permissions.Has(perm)
}

// owns is true when the principal may see resources owned by userID.
func (p Principal) owns(userID uint) bool {
	return p.Superadmin || p.UserID == userID
}

// ownerScope returns nil for superadmins and the caller's id otherwise.
func (p Principal) ownerScope() *uint {
	if p.Superadmin {
		return nil
	}
	id := p.UserID
	return &id
}

func requirePermission(p Principal, perm enums.PermissionName) error {
	if p.UserID == 0 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !p.Can(perm) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "missing permission").
			WithDetails(map[string]any{"permission": perm})
	}
	return nil
}

func requireSuperadmin(p Principal) error {
	if p.UserID == 0 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !p.Superadmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "superadmin required")
	}
	return nil
}
