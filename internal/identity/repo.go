package identity

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ideasdevops/lead-ia/internal/repo"
	"github.com/ideasdevops/lead-ia/pkg/db/models"
	"github.com/ideasdevops/lead-ia/pkg/pagination"
)

// Repository exposes user, role and permission persistence.
type Repository struct {
	repo.Base
}

// NewRepository binds the repository to db, which may be a transaction.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func preloadGrants(q *gorm.DB) *gorm.DB {
	return q.Preload("Roles.Permissions")
}

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return r.DB(ctx).Create(user).Error
}

// FindUserByID loads a user with roles and their permissions.
func (r *Repository) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).Scopes(preloadGrants).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindUserByEmail matches the stored lowercased email.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.DB(ctx).Scopes(preloadGrants).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EmailTaken reports whether another user already owns email.
func (r *Repository) EmailTaken(ctx context.Context, email string, exceptID uint) (bool, error) {
	var n int64
	q := r.DB(ctx).Model(&models.User{}).Where("email = ?", strings.ToLower(strings.TrimSpace(email)))
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

// likeEscaper makes %, _ and the escape character itself match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListUsers returns a page ordered by created_at desc then id desc.
func (r *Repository) ListUsers(ctx context.Context, search string, params pagination.Params) ([]models.User, int64, error) {
	q := r.DB(ctx).Model(&models.User{})
	if term := strings.ToLower(strings.TrimSpace(search)); term != "" {
		like := "%" + likeEscaper.Replace(term) + "%"
		q = q.Where(`LOWER(email) LIKE ? ESCAPE '\' OR LOWER(first_name) LIKE ? ESCAPE '\' OR LOWER(last_name) LIKE ? ESCAPE '\'`, like, like, like)
	}
	q = q.Order("created_at DESC").Order("id DESC")

	var users []models.User
	total, err := repo.Paginate(q, params, &users, func(q *gorm.DB) *gorm.DB { return q.Preload("Roles") })
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *Repository) ListPendingUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.DB(ctx).Preload("Roles").
		Where("is_approved = ?", false).
		Order("created_at ASC").Order("id ASC").
		Find(&users).Error
	return users, err
}

// UpdateUserColumns writes the given columns and bumps updated_at.
func (r *Repository) UpdateUserColumns(ctx context.Context, id uint, cols map[string]any) error {
	if len(cols) == 0 {
		return nil
	}
	cols["updated_at"] = time.Now().UTC()
	return r.DB(ctx).Model(&models.User{}).Where("id = ?", id).Updates(cols).Error
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.DB(ctx).Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login", at).Error
}

// ReplaceUserRoles swaps the role set of user for roles.
func (r *Repository) ReplaceUserRoles(ctx context.Context, user *models.User, roles []models.Role) error {
	assoc := r.DB(ctx).Model(user).Association("Roles")
	if len(roles) == 0 {
		return assoc.Clear()
	}
	return assoc.Replace(roles)
}

// DeleteUser removes the user and its role links. Searches keep the owner id.
func (r *Repository) DeleteUser(ctx context.Context, user *models.User) error {
	if err := r.DB(ctx).Model(user).Association("Roles").Clear(); err != nil {
		return err
	}
	return r.DB(ctx).Delete(&models.User{}, user.ID).Error
}

func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

func (r *Repository) CreateRole(ctx context.Context, role *models.Role) error {
	return r.DB(ctx).Create(role).Error
}

func (r *Repository) FindRoleByID(ctx context.Context, id uint) (*models.Role, error) {
	var role models.Role
	if err := r.DB(ctx).Preload("Permissions").First(&role, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *Repository) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	if err := r.DB(ctx).Preload("Permissions").Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// FindRolesByNames returns the roles found; callers compare lengths to detect unknown names.
func (r *Repository) FindRolesByNames(ctx context.Context, names []string) ([]models.Role, error) {
	var roles []models.Role
	if len(names) == 0 {
		return roles, nil
	}
	err := r.DB(ctx).Where("name IN ?", names).Order("id ASC").Find(&roles).Error
	return roles, err
}

func (r *Repository) RoleNameTaken(ctx context.Context, name string, exceptID uint) (bool, error) {
	var n int64
	q := r.DB(ctx).Model(&models.Role{}).Where("name = ?", name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

func (r *Repository) ListRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	err := r.DB(ctx).Preload("Permissions").Order("id ASC").Find(&roles).Error
	return roles, err
}

func (r *Repository) UpdateRoleColumns(ctx context.Context, id uint, cols map[string]any) error {
	if len(cols) == 0 {
		return nil
	}
	return r.DB(ctx).Model(&models.Role{}).Where("id = ?", id).Updates(cols).Error
}

func (r *Repository) ReplaceRolePermissions(ctx context.Context, role *models.Role, perms []models.Permission) error {
	assoc := r.DB(ctx).Model(role).Association("Permissions")
	if len(perms) == 0 {
		return assoc.Clear()
	}
	return assoc.Replace(perms)
}

// UserIDsWithRole lists holders of the role, for cache invalidation.
func (r *Repository) UserIDsWithRole(ctx context.Context, roleID uint) ([]uint, error) {
	var ids []uint
	err := r.DB(ctx).Table("user_roles").Where("role_id = ?", roleID).Pluck("user_id", &ids).Error
	return ids, err
}

// DeleteRole unlinks the role from users and permissions, then removes it.
func (r *Repository) DeleteRole(ctx context.Context, role *models.Role) error {
	if err := r.DB(ctx).Model(role).Association("Permissions").Clear(); err != nil {
		return err
	}
	if err := r.DB(ctx).Exec("DELETE FROM user_roles WHERE role_id = ?", role.ID).Error; err != nil {
		return err
	}
	return r.DB(ctx).Delete(&models.Role{}, role.ID).Error
}

func (r *Repository) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	var perms []models.Permission
	err := r.DB(ctx).Order("id ASC").Find(&perms).Error
	return perms, err
}

func (r *Repository) FindPermissionsByNames(ctx context.Context, names []string) ([]models.Permission, error) {
	var perms []models.Permission
	if len(names) == 0 {
		return perms, nil
	}
	err := r.DB(ctx).Where("name IN ?", names).Order("id ASC").Find(&perms).Error
	return perms, err
}

// EnsurePermission returns the named permission, inserting it when missing.
func (r *Repository) EnsurePermission(ctx context.Context, name, description string) (*models.Permission, error) {
	perm := models.Permission{Name: name, Description: description}
	if err := r.DB(ctx).Where(models.Permission{Name: name}).FirstOrCreate(&perm).Error; err != nil {
		return nil, err
	}
	return &perm, nil
}

// EnsureRole returns the named role, inserting it with description when missing.
func (r *Repository) EnsureRole(ctx context.Context, name, description string) (*models.Role, error) {
	role := models.Role{Name: name, Description: description}
	if err := r.DB(ctx).Where(models.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}
