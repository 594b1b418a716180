package identity

import (
	"time"

	"github.com/ideasdevops/lead-ia/pkg/db/models"
)

// UserDTO is the transport shape that omits credentials.
type UserDTO struct {
	ID          uint       `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	IsActive    bool       `json:"is_active"`
	IsApproved  bool       `json:"is_approved"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	Roles       []string   `json:"roles"`
	Permissions []string   `json:"permissions,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// RoleDTO describes a role with its permission names.
type RoleDTO struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

// PermissionDTO describes a catalog entry.
type PermissionDTO struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateUserInput carries an already-hashed password.
type CreateUserInput struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
}

// UpdateUserInput applies only the non-nil fields. A non-nil Roles replaces the whole role set.
// GrantSuperadmin must be set for a role set that hands superadmin to a user who lacks it.
type UpdateUserInput struct {
	Email           *string
	FirstName       *string
	LastName        *string
	Password        *string
	IsActive        *bool
	IsApproved      *bool
	Roles           *[]string
	GrantSuperadmin bool
}

// UpdateRoleInput applies only the non-nil fields. A non-nil Permissions replaces the whole set.
type UpdateRoleInput struct {
	Name        *string
	Description *string
	Permissions *[]string
}

// UserFilter narrows ListUsers. Search matches email and names case-insensitively.
type UserFilter struct {
	Search  string
	Page    int
	PerPage int
}

// BootstrapInput names the superadmin account seeded on first start.
type BootstrapInput struct {
	Email    string
	Password string
}

// UserFromModel maps a user with preloaded roles. Permissions are filled when role permissions are preloaded.
func UserFromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	dto := &UserDTO{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		IsActive:   u.IsActive,
		IsApproved: u.IsApproved,
		LastLogin:  u.LastLogin,
		Roles:      u.RoleNames(),
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
	if grants := Grants(*u); len(grants) > 0 {
		dto.Permissions = grants.Names()
	}
	return dto
}

func RoleFromModel(r *models.Role) *RoleDTO {
	if r == nil {
		return nil
	}
	return &RoleDTO{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Permissions: r.PermissionNames(),
		CreatedAt:   r.CreatedAt,
	}
}

func PermissionFromModel(p models.Permission) PermissionDTO {
	return PermissionDTO{ID: p.ID, Name: p.Name, Description: p.Description}
}
