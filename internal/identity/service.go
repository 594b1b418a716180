package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/ideasdevops/lead-ia/pkg/db"
	"github.com/ideasdevops/lead-ia/pkg/db/models"
	"github.com/ideasdevops/lead-ia/pkg/enums"
	pkgerrors "github.com/ideasdevops/lead-ia/pkg/errors"
	"github.com/ideasdevops/lead-ia/pkg/logger"
	"github.com/ideasdevops/lead-ia/pkg/pagination"
	"github.com/ideasdevops/lead-ia/pkg/security"
)

// DefaultUsersPerPage is used when ListUsers gets no per_page.
const DefaultUsersPerPage = 20

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams bundles the dependencies required to build the identity service.
type ServiceParams struct {
	DB         *db.Client
	Hasher     *security.Hasher
	Resolver   *PermissionResolver
	MaxPerPage int
	Logger     *logger.Logger
}

// Service owns users, roles and permissions.
type Service struct {
	tx         txRunner
	repo       *Repository
	hasher     *security.Hasher
	resolver   *PermissionResolver
	maxPerPage int
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}
	if params.Hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	repo := NewRepository(params.DB.DB())
	resolver := params.Resolver
	if resolver == nil {
		resolver = NewPermissionResolver(repo, nil, 0, params.Logger)
	}
	maxPerPage := params.MaxPerPage
	if maxPerPage <= 0 {
		maxPerPage = pagination.DefaultMaxPerPage
	}
	return &Service{
		tx:         params.DB,
		repo:       repo,
		hasher:     params.Hasher,
		resolver:   resolver,
		maxPerPage: maxPerPage,
		logg:       params.Logger,
	}, nil
}

// Repository exposes the non-transactional repository for read paths.
func (s *Service) Repository() *Repository { return s.repo }

// Resolver returns the permission resolver shared with the HTTP layer.
func (s *Service) Resolver() *PermissionResolver { return s.resolver }

// Hasher returns the configured password hasher.
func (s *Service) Hasher() *security.Hasher { return s.hasher }

// CreateUser stores a new active, unapproved user without roles.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if in.PasswordHash == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password is required")
	}

	var user *models.User
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		taken, err := repo.EmailTaken(ctx, email, 0)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		user = &models.User{
			Email:        email,
			PasswordHash: in.PasswordHash,
			FirstName:    strings.TrimSpace(in.FirstName),
			LastName:     strings.TrimSpace(in.LastName),
			IsActive:     true,
			IsApproved:   false,
		}
		if err := repo.CreateUser(ctx, user); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser loads a user with roles and permissions.
func (s *Service) GetUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.repo.FindUserByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "user not found", "load user")
	}
	return user, nil
}

// ApproveUser marks the user approved. Approving twice is a no-op.
func (s *Service) ApproveUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsApproved {
		return user, nil
	}
	if err := s.repo.UpdateUserColumns(ctx, id, map[string]any{"is_approved": true}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "approve user")
	}
	s.resolver.Invalidate(ctx, id)
	return s.GetUser(ctx, id)
}

// UpdateUser applies the provided fields; a role replacement happens in the same transaction.
func (s *Service) UpdateUser(ctx context.Context, id uint, in UpdateUserInput) (*models.User, error) {
	var passwordHash string
	if in.Password != nil {
		if len(*in.Password) < security.MinPasswordLength {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", security.MinPasswordLength))
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		passwordHash = hash
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		user, err := repo.FindUserByID(ctx, id)
		if err != nil {
			return notFoundOrInternal(err, "user not found", "load user")
		}

		cols := map[string]any{}
		if in.Email != nil {
			email := normalizeEmail(*in.Email)
			if email == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "email cannot be empty")
			}
			if email != user.Email {
				if IsSuperadmin(*user) {
					return pkgerrors.New(pkgerrors.CodeForbidden, "superadmin email cannot be changed")
				}
				taken, err := repo.EmailTaken(ctx, email, id)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
				}
				if taken {
					return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
				}
				cols["email"] = email
			}
		}
		if in.FirstName != nil {
			cols["first_name"] = strings.TrimSpace(*in.FirstName)
		}
		if in.LastName != nil {
			cols["last_name"] = strings.TrimSpace(*in.LastName)
		}
		if in.IsActive != nil {
			cols["is_active"] = *in.IsActive
		}
		if in.IsApproved != nil {
			cols["is_approved"] = *in.IsApproved
		}
		if passwordHash != "" {
			cols["password_hash"] = passwordHash
		}
		if err := repo.UpdateUserColumns(ctx, id, cols); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update user")
		}

		if in.Roles != nil {
			names := uniqueNames(*in.Roles)
			roles, err := repo.FindRolesByNames(ctx, names)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load roles")
			}
			if len(roles) != len(names) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "role not found").
					WithDetails(map[string]any{"unknown": missingNames(names, roleNames(roles))})
			}
			if !in.GrantSuperadmin && !IsSuperadmin(*user) && containsSuperadmin(roles) {
				return pkgerrors.New(pkgerrors.CodeForbidden, "only a superadmin can grant the superadmin role")
			}
			if err := repo.ReplaceUserRoles(ctx, user, roles); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replace user roles")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.resolver.Invalidate(ctx, id)
	return s.GetUser(ctx, id)
}

// DeleteUser removes a non-superadmin user. Their searches stay with a dangling owner id.
func (s *Service) DeleteUser(ctx context.Context, id uint) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		user, err := repo.FindUserByID(ctx, id)
		if err != nil {
			return notFoundOrInternal(err, "user not found", "load user")
		}
		if IsSuperadmin(*user) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "superadmin users cannot be deleted")
		}
		if err := repo.DeleteUser(ctx, user); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete user")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.resolver.Invalidate(ctx, id)
	return nil
}

// ListUsers validates paging before querying.
func (s *Service) ListUsers(ctx context.Context, filter UserFilter) (pagination.Page[models.User], error) {
	params := pagination.Params{Page: filter.Page, PerPage: filter.PerPage}
	if params.Page == 0 {
		params.Page = 1
	}
	if params.PerPage == 0 {
		params.PerPage = DefaultUsersPerPage
	}
	if err := params.Validate(s.maxPerPage); err != nil {
		return pagination.Page[models.User]{}, err
	}
	users, total, err := s.repo.ListUsers(ctx, filter.Search, params)
	if err != nil {
		return pagination.Page[models.User]{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	return pagination.NewPage(users, total, params), nil
}

func (s *Service) ListPendingUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.repo.ListPendingUsers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list pending users")
	}
	return users, nil
}

// CreateRole inserts a role linked to the named permissions.
func (s *Service) CreateRole(ctx context.Context, name, description string, permissionNames []string) (*models.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "role name is required")
	}
	var roleID uint
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		taken, err := repo.RoleNameTaken(ctx, name, 0)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check role name")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, "role name already exists")
		}
		perms, err := resolvePermissions(ctx, repo, permissionNames)
		if err != nil {
			return err
		}
		role := &models.Role{Name: name, Description: strings.TrimSpace(description)}
		if err := repo.CreateRole(ctx, role); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "role name already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create role")
		}
		if len(perms) > 0 {
			if err := repo.ReplaceRolePermissions(ctx, role, perms); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "link role permissions")
			}
		}
		roleID = role.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetRole(ctx, roleID)
}

func (s *Service) GetRole(ctx context.Context, id uint) (*models.Role, error) {
	role, err := s.repo.FindRoleByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "role not found", "load role")
	}
	return role, nil
}

func (s *Service) ListRoles(ctx context.Context) ([]models.Role, error) {
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list roles")
	}
	return roles, nil
}

// UpdateRole renames or re-describes a role and optionally replaces its permissions.
// The superadmin role keeps its name but its description and permissions stay editable.
func (s *Service) UpdateRole(ctx context.Context, id uint, in UpdateRoleInput) (*models.Role, error) {
	var holders []uint
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		role, err := repo.FindRoleByID(ctx, id)
		if err != nil {
			return notFoundOrInternal(err, "role not found", "load role")
		}

		cols := map[string]any{}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "role name is required")
			}
			if name != role.Name {
				if role.Name == enums.RoleSuperadmin {
					return pkgerrors.New(pkgerrors.CodeForbidden, "superadmin role cannot be renamed")
				}
				taken, err := repo.RoleNameTaken(ctx, name, id)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check role name")
				}
				if taken {
					return pkgerrors.New(pkgerrors.CodeConflict, "role name already exists")
				}
				cols["name"] = name
			}
		}
		if in.Description != nil {
			cols["description"] = strings.TrimSpace(*in.Description)
		}
		if err := repo.UpdateRoleColumns(ctx, id, cols); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "role name already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update role")
		}
		if in.Permissions != nil {
			perms, err := resolvePermissions(ctx, repo, *in.Permissions)
			if err != nil {
				return err
			}
			if err := repo.ReplaceRolePermissions(ctx, role, perms); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replace role permissions")
			}
		}
		holders, err = repo.UserIDsWithRole(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list role holders")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.resolver.Invalidate(ctx, holders...)
	return s.GetRole(ctx, id)
}

// DeleteRole removes any role except superadmin.
func (s *Service) DeleteRole(ctx context.Context, id uint) error {
	var holders []uint
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		role, err := repo.FindRoleByID(ctx, id)
		if err != nil {
			return notFoundOrInternal(err, "role not found", "load role")
		}
		if role.Name == enums.RoleSuperadmin {
			return pkgerrors.New(pkgerrors.CodeForbidden, "superadmin role cannot be deleted")
		}
		holders, err = repo.UserIDsWithRole(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list role holders")
		}
		if err := repo.DeleteRole(ctx, role); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete role")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.resolver.Invalidate(ctx, holders...)
	return nil
}

func (s *Service) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list permissions")
	}
	return perms, nil
}

// HasPermission is true when any role grants permission or the user is a superadmin.
// Unknown users have no permissions.
func (s *Service) HasPermission(ctx context.Context, userID uint, permission enums.PermissionName) (bool, error) {
	access, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return access.Superadmin || access.Permissions.Has(permission), nil
}

func resolvePermissions(ctx context.Context, repo *Repository, names []string) ([]models.Permission, error) {
	names = uniqueNames(names)
	perms, err := repo.FindPermissionsByNames(ctx, names)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load permissions")
	}
	if len(perms) != len(names) {
		found := make([]string, 0, len(perms))
		for _, p := range perms {
			found = append(found, p.Name)
		}
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "permission not found").
			WithDetails(map[string]any{"unknown": missingNames(names, found)})
	}
	return perms, nil
}

func notFoundOrInternal(err error, notFoundMsg, internalMsg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, internalMsg)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func uniqueNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func containsSuperadmin(roles []models.Role) bool {
	for _, r := range roles {
		if r.Name == enums.RoleSuperadmin {
			return true
		}
	}
	return false
}

func missingNames(want, found []string) []string {
	have := make(map[string]bool, len(found))
	for _, f := range found {
		have[f] = true
	}
	var missing []string
	for _, w := range want {
		if !have[w] {
			missing = append(missing, w)
		}
	}
	return missing
}

func roleNames(roles []models.Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.Name)
	}
	return out
}
