package permissions

import "time"

// Permission is one effective grant. FromRole is empty for permissions
// granted to the user directly.
type Permission struct {
	Permission string `json:"permission"`
	FromRole   string `json:"from_role"`
}

type UserRole struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_user_roles_user_role"`
	Role      string    `json:"role" gorm:"size:255;not null;uniqueIndex:idx_user_roles_user_role"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserRole) TableName() string {
	return "user_roles"
}

type UserPermission struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_user_permissions_user_permission"`
	Permission string    `json:"permission" gorm:"size:255;not null;uniqueIndex:idx_user_permissions_user_permission"`
	CreatedAt  time.Time `json:"created_at"`
}

func (UserPermission) TableName() string {
	return "user_permissions"
}

type RolePermission struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Role       string    `json:"role" gorm:"size:255;not null;uniqueIndex:idx_role_permissions_role_permission"`
	Permission string    `json:"permission" gorm:"size:255;not null;uniqueIndex:idx_role_permissions_role_permission"`
	CreatedAt  time.Time `json:"created_at"`
}

func (RolePermission) TableName() string {
	return "role_permissions"
}

func Models() []any {
	return []any{&UserRole{}, &UserPermission{}, &RolePermission{}}
}
