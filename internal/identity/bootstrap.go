package identity

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ideasdevops/lead-ia/pkg/db/models"
	"github.com/ideasdevops/lead-ia/pkg/enums"
	pkgerrors "github.com/ideasdevops/lead-ia/pkg/errors"
)

const (
	superadminRoleDescription = "Full access to every feature"
	userRoleDescription       = "Regular dashboard user"
)

// Bootstrap seeds the permission catalog, the superadmin and user roles, and the superadmin
// account. It is safe to call on every start: existing rows and role grants are left alone.
func (s *Service) Bootstrap(ctx context.Context, in BootstrapInput) error {
	email := normalizeEmail(in.Email)
	var passwordHash string
	if email != "" {
		if in.Password == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "bootstrap password is required")
		}
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash bootstrap password")
		}
		passwordHash = hash
	}

	var adminID uint
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)

		byName := make(map[enums.PermissionName]models.Permission, len(enums.PermissionNames()))
		all := make([]models.Permission, 0, len(enums.PermissionNames()))
		for _, name := range enums.PermissionNames() {
			perm, err := repo.EnsurePermission(ctx, name.String(), name.Description())
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "seed permission")
			}
			byName[name] = *perm
			all = append(all, *perm)
		}

		superadmin, err := seedRole(ctx, repo, enums.RoleSuperadmin, superadminRoleDescription, all)
		if err != nil {
			return err
		}

		defaults := make([]models.Permission, 0, len(enums.DefaultUserPermissions()))
		for _, name := range enums.DefaultUserPermissions() {
			defaults = append(defaults, byName[name])
		}
		if _, err := seedRole(ctx, repo, enums.RoleUser, userRoleDescription, defaults); err != nil {
			return err
		}

		if email == "" {
			return nil
		}
		admin, err := repo.FindUserByEmail(ctx, email)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			admin = &models.User{
				Email:        email,
				PasswordHash: passwordHash,
				IsActive:     true,
				IsApproved:   true,
			}
			if err := repo.CreateUser(ctx, admin); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create superadmin user")
			}
		case err != nil:
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load superadmin user")
		default:
			if err := repo.UpdateUserColumns(ctx, admin.ID, map[string]any{"is_active": true, "is_approved": true}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "activate superadmin user")
			}
		}
		if !admin.HasRole(enums.RoleSuperadmin) {
			if err := tx.WithContext(ctx).Model(admin).Association("Roles").Append(superadmin); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "grant superadmin role")
			}
		}
		adminID = admin.ID
		return nil
	})
	if err != nil {
		return err
	}

	if adminID != 0 {
		s.resolver.Invalidate(ctx, adminID)
		if s.logg != nil {
			s.logg.Info(s.logg.WithField(ctx, "user_id", adminID), "superadmin bootstrap complete")
		}
	}
	return nil
}

// seedRole creates the role when missing and links perms only if it has none yet.
func seedRole(ctx context.Context, repo *Repository, name, description string, perms []models.Permission) (*models.Role, error) {
	if _, err := repo.EnsureRole(ctx, name, description); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "seed role")
	}
	role, err := repo.FindRoleByName(ctx, name)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seeded role")
	}
	if len(role.Permissions) == 0 && len(perms) > 0 {
		if err := repo.ReplaceRolePermissions(ctx, role, perms); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "link seeded role permissions")
		}
	}
	return role, nil
}
