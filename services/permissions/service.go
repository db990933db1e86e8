package permissions

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/tech-arch1tect/authority/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrEmptyName = errors.New("role and permission names cannot be empty")

type Service struct {
	db     *gorm.DB
	logger *logging.Service
}

func NewService(db *gorm.DB, logger *logging.Service) *Service {
	return &Service{db: db, logger: logger}
}

// FetchRoles returns the roles assigned to a user, sorted by name.
func (s *Service) FetchRoles(ctx context.Context, userID uint) ([]string, error) {
	var roles []string
	err := s.db.WithContext(ctx).
		Model(&UserRole{}).
		Where("user_id = ?", userID).
		Order("role").
		Pluck("role", &roles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}

	return roles, nil
}

// FetchPermissions returns the effective permission set of a user: direct
// grants plus everything carried by the user's roles.
func (s *Service) FetchPermissions(ctx context.Context, userID uint) ([]Permission, error) {
	db := s.db.WithContext(ctx)

	var direct []string
	if err := db.Model(&UserPermission{}).
		Where("user_id = ?", userID).
		Pluck("permission", &direct).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch user permissions: %w", err)
	}

	var viaRoles []Permission
	if err := db.Model(&RolePermission{}).
		Select("role_permissions.permission AS permission, role_permissions.role AS from_role").
		Joins("JOIN user_roles ON user_roles.role = role_permissions.role").
		Where("user_roles.user_id = ?", userID).
		Scan(&viaRoles).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch role permissions: %w", err)
	}

	seen := make(map[Permission]struct{}, len(direct)+len(viaRoles))
	result := make([]Permission, 0, len(direct)+len(viaRoles))

	add := func(p Permission) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		result = append(result, p)
	}

	for _, p := range direct {
		add(Permission{Permission: p})
	}
	for _, p := range viaRoles {
		add(p)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Permission != result[j].Permission {
			return result[i].Permission < result[j].Permission
		}
		return result[i].FromRole < result[j].FromRole
	})

	return result, nil
}

func (s *Service) AssignRole(ctx context.Context, userID uint, role string) error {
	return s.AssignRoles(ctx, userID, []string{role})
}

func (s *Service) AssignRoles(ctx context.Context, userID uint, roles []string) error {
	if len(roles) == 0 {
		return nil
	}

	rows := make([]UserRole, 0, len(roles))
	for _, role := range roles {
		if role == "" {
			return ErrEmptyName
		}
		rows = append(rows, UserRole{UserID: userID, Role: role})
	}

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to assign roles: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("roles assigned", zap.Uint("user_id", userID), zap.Strings("roles", roles))
	}

	return nil
}

func (s *Service) UnassignRole(ctx context.Context, userID uint, role string) error {
	return s.UnassignRoles(ctx, userID, []string{role})
}

func (s *Service) UnassignRoles(ctx context.Context, userID uint, roles []string) error {
	if len(roles) == 0 {
		return nil
	}

	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND role IN ?", userID, roles).
		Delete(&UserRole{}).Error; err != nil {
		return fmt.Errorf("failed to unassign roles: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("roles unassigned", zap.Uint("user_id", userID), zap.Strings("roles", roles))
	}

	return nil
}

func (s *Service) GrantToUser(ctx context.Context, userID uint, permission string) error {
	if permission == "" {
		return ErrEmptyName
	}

	row := UserPermission{UserID: userID, Permission: permission}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to grant permission to user: %w", err)
	}

	return nil
}

func (s *Service) RevokeFromUser(ctx context.Context, userID uint, permission string) error {
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND permission = ?", userID, permission).
		Delete(&UserPermission{}).Error; err != nil {
		return fmt.Errorf("failed to revoke permission from user: %w", err)
	}

	return nil
}

func (s *Service) GrantToRole(ctx context.Context, role, permission string) error {
	return s.GrantManyToRole(ctx, role, []string{permission})
}

func (s *Service) GrantManyToRole(ctx context.Context, role string, permissions []string) error {
	if role == "" {
		return ErrEmptyName
	}
	if len(permissions) == 0 {
		return nil
	}

	rows := make([]RolePermission, 0, len(permissions))
	for _, p := range permissions {
		if p == "" {
			return ErrEmptyName
		}
		rows = append(rows, RolePermission{Role: role, Permission: p})
	}

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to grant permissions to role: %w", err)
	}

	return nil
}

func (s *Service) RevokeFromRole(ctx context.Context, role, permission string) error {
	if err := s.db.WithContext(ctx).
		Where("role = ? AND permission = ?", role, permission).
		Delete(&RolePermission{}).Error; err != nil {
		return fmt.Errorf("failed to revoke permission from role: %w", err)
	}

	return nil
}

func (s *Service) RevokeAllFromRole(ctx context.Context, role string) error {
	if err := s.db.WithContext(ctx).
		Where("role = ?", role).
		Delete(&RolePermission{}).Error; err != nil {
		return fmt.Errorf("failed to revoke permissions from role: %w", err)
	}

	return nil
}

// DeleteAllForUser removes every role and direct grant of a user.
func (s *Service) DeleteAllForUser(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&UserRole{}).Error; err != nil {
			return fmt.Errorf("failed to delete user roles: %w", err)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&UserPermission{}).Error; err != nil {
			return fmt.Errorf("failed to delete user permissions: %w", err)
		}
		return nil
	})
}
