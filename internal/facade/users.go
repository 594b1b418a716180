package facade

import (
	"context"
	"strings"

	"github.com/ideasdevops/lead-ia/internal/identity"
	"github.com/ideasdevops/lead-ia/pkg/db/models"
	"github.com/ideasdevops/lead-ia/pkg/enums"
	pkgerrors "github.com/ideasdevops/lead-ia/pkg/errors"
	"github.com/ideasdevops/lead-ia/pkg/pagination"
)

func (f *Facade) ListUsers(ctx context.Context, p Principal, filter identity.UserFilter) (pagination.Page[models.User], error) {
	if err := requirePermission(p, enums.PermissionManageUsers); err != nil {
		return pagination.Page[models.User]{}, err
	}
	return f.identity.ListUsers(ctx, filter)
}

func (f *Facade) GetUser(ctx context.Context, p Principal, userID uint) (*models.User, error) {
	if err := requirePermission(p, enums.PermissionManageUsers); err != nil {
		return nil, err
	}
	return f.identity.GetUser(ctx, userID)
}

// UpdateUser lets manage_users holders edit accounts. Only a superadmin may edit a superadmin
// or hand out the superadmin role.
func (f *Facade) UpdateUser(ctx context.Context, p Principal, userID uint, in identity.UpdateUserInput) (*models.User, error) {
	if err := requirePermission(p, enums.PermissionManageUsers); err != nil {
		return nil, err
	}
	if !p.Superadmin {
		target, err := f.identity.GetUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if identity.IsSuperadmin(*target) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only a superadmin can edit a superadmin")
		}
		if in.Roles != nil {
			for _, name := range *in.Roles {
				if strings.EqualFold(strings.TrimSpace(name), enums.RoleSuperadmin) {
					return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only a superadmin can grant the superadmin role")
				}
			}
		}
	}
	in.GrantSuperadmin = p.Superadmin
	return f.identity.UpdateUser(ctx, userID, in)
}

func (f *Facade) DeleteUser(ctx context.Context, p Principal, userID uint) error {
	if err := requireSuperadmin(p); err != nil {
		return err
	}
	return f.identity.DeleteUser(ctx, userID)
}

func (f *Facade) ListPendingUsers(ctx context.Context, p Principal) ([]models.User, error) {
	if err := requirePermission(p, enums.PermissionApproveUsers); err != nil {
		return nil, err
	}
	return f.identity.ListPendingUsers(ctx)
}

func (f *Facade) ApproveUser(ctx context.Context, p Principal, userID uint) (*models.User, error) {
	if err := requirePermission(p, enums.PermissionApproveUsers); err != nil {
		return nil, err
	}
	return f.identity.ApproveUser(ctx, userID)
}

func (f *Facade) ListRoles(ctx context.Context, p Principal) ([]models.Role, error) {
	if err := requirePermission(p, enums.PermissionManageRoles); err != nil {
		return nil, err
	}
	return f.identity.ListRoles(ctx)
}

func (f *Facade) GetRole(ctx context.Context, p Principal, roleID uint) (*models.Role, error) {
	if err := requirePermission(p, enums.PermissionManageRoles); err != nil {
		return nil, err
	}
	return f.identity.GetRole(ctx, roleID)
}

func (f *Facade) CreateRole(ctx context.Context, p Principal, name, description string, permissions []string) (*models.Role, error) {
	if err := requirePermission(p, enums.PermissionManageRoles); err != nil {
		return nil, err
	}
	return f.identity.CreateRole(ctx, name, description, permissions)
}

func (f *Facade) UpdateRole(ctx context.Context, p Principal, roleID uint, in identity.UpdateRoleInput) (*models.Role, error) {
	if err := requirePermission(p, enums.PermissionManageRoles); err != nil {
		return nil, err
	}
	return f.identity.UpdateRole(ctx, roleID, in)
}

func (f *Facade) DeleteRole(ctx context.Context, p Principal, roleID uint) error {
	if err := requirePermission(p, enums.PermissionManageRoles); err != nil {
		return err
	}
	return f.identity.DeleteRole(ctx, roleID)
}

func (f *Facade) ListPermissions(ctx context.Context, p Principal) ([]models.Permission, error) {
	if err := requirePermission(p, enums.PermissionManageRoles); err != nil {
		return nil, err
	}
	return f.identity.ListPermissions(ctx)
}
