package models

import "time"

// User is an account that can sign in once approved.
type User struct {
	ID           uint       `gorm:"column:id;primaryKey;autoIncrement"`
	Email        string     `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	FirstName    string     `gorm:"column:first_name"`
	LastName     string     `gorm:"column:last_name"`
	IsActive     bool       `gorm:"column:is_active;not null"`
	IsApproved   bool       `gorm:"column:is_approved;not null"`
	LastLogin    *time.Time `gorm:"column:last_login"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`

	Roles []Role `gorm:"many2many:user_roles"`
}

// RoleNames returns the names of the preloaded roles.
func (u User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		names = append(names, role.Name)
	}
	return names
}

// HasRole reports whether a preloaded role carries the given name.
func (u User) HasRole(name string) bool {
	for _, role := range u.Roles {
		if role.Name == name {
			return true
		}
	}
	return false
}
