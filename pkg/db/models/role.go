package models

import "time"

// Role groups permissions and is granted to users.
type Role struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string    `gorm:"column:name;not null;uniqueIndex"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`

	Permissions []Permission `gorm:"many2many:role_permissions"`
}

// PermissionNames returns the names of the preloaded permissions.
func (r Role) PermissionNames() []string {
	names := make([]string, 0, len(r.Permissions))
	for _, perm := range r.Permissions {
		names = append(names, perm.Name)
	}
	return names
}
