package rbac

import (
	"context"
	"fmt"
	"strings"

	"github.com/procurio-erp/procurio/internal/shared"
)

// RepositoryPort describes the persistence operations used by Service.
type RepositoryPort interface {
	UserEffectivePermissions(ctx context.Context, userID int64) ([]string, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	CreatePermission(ctx context.Context, p Permission) (Permission, error)
	UpdatePermissionDescription(ctx context.Context, id int64, description string) error
	ListRolePermissionIDs(ctx context.Context, roleID int64) ([]int64, error)
	AttachPermissionToRole(ctx context.Context, roleID, permissionID int64) error
	DetachPermissionFromRole(ctx context.Context, roleID, permissionID int64) error
	ListUserRoleIDs(ctx context.Context, userID int64) ([]int64, error)
	AssignRoleToUser(ctx context.Context, userID, roleID int64) error
	RemoveRoleFromUser(ctx context.Context, userID, roleID int64) error
	CountRoleAssignments(ctx context.Context, roleID int64) (int, error)
}

// Service orchestrates RBAC operations. It holds no state of its own: every
// check reads the store, so permission changes take effect on the next request.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// EffectivePermissions returns deduplicated permission names for a user.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	return s.repo.UserEffectivePermissions(ctx, userID)
}

// HasPermission runs the permission-gate for a single named capability.
func (s *Service) HasPermission(ctx context.Context, userID int64, permission string) (Decision, error) {
	granted, err := s.EffectivePermissions(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	return AuthorizePermission(granted, permission), nil
}

// ListPermissions returns all permissions ordered by name.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// CreatePermission validates and inserts a permission. The name must match
// the resource:action convention.
func (s *Service) CreatePermission(ctx context.Context, resource, action, description string) (Permission, error) {
	resource = strings.TrimSpace(strings.ToLower(resource))
	action = strings.TrimSpace(strings.ToLower(action))
	if resource == "" || action == "" {
		return Permission{}, fmt.Errorf("%w: permission resource and action required", shared.ErrValidation)
	}
	return s.repo.CreatePermission(ctx, Permission{
		Name:        resource + ":" + action,
		Resource:    resource,
		Action:      action,
		Description: strings.TrimSpace(description),
	})
}

// UpdatePermissionDescription changes the description text only.
func (s *Service) UpdatePermissionDescription(ctx context.Context, id int64, description string) error {
	return s.repo.UpdatePermissionDescription(ctx, id, strings.TrimSpace(description))
}

// SetRolePermissions replaces the permission set of a role. Assignments are
// diffed so untouched rows keep their audit timestamps.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	current, err := s.repo.ListRolePermissionIDs(ctx, roleID)
	if err != nil {
		return err
	}
	existing := make(map[int64]struct{}, len(current))
	for _, id := range current {
		existing[id] = struct{}{}
	}
	keep := make(map[int64]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		keep[id] = struct{}{}
		if _, ok := existing[id]; !ok {
			if err := s.repo.AttachPermissionToRole(ctx, roleID, id); err != nil {
				return err
			}
		}
	}
	for id := range existing {
		if _, ok := keep[id]; !ok {
			if err := s.repo.DetachPermissionFromRole(ctx, roleID, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetUserRoles replaces the role set of a user with the same diff approach.
func (s *Service) SetUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	current, err := s.repo.ListUserRoleIDs(ctx, userID)
	if err != nil {
		return err
	}
	existing := make(map[int64]struct{}, len(current))
	for _, id := range current {
		existing[id] = struct{}{}
	}
	keep := make(map[int64]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		keep[id] = struct{}{}
		if _, ok := existing[id]; !ok {
			if err := s.repo.AssignRoleToUser(ctx, userID, id); err != nil {
				return err
			}
		}
	}
	for id := range existing {
		if _, ok := keep[id]; !ok {
			if err := s.repo.RemoveRoleFromUser(ctx, userID, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// UserRoleIDs returns the roles actively assigned to a user.
func (s *Service) UserRoleIDs(ctx context.Context, userID int64) ([]int64, error) {
	return s.repo.ListUserRoleIDs(ctx, userID)
}

// RolePermissionIDs returns the permissions actively assigned to a role.
func (s *Service) RolePermissionIDs(ctx context.Context, roleID int64) ([]int64, error) {
	return s.repo.ListRolePermissionIDs(ctx, roleID)
}

// RoleInUse reports whether any active user-role assignment references the role.
func (s *Service) RoleInUse(ctx context.Context, roleID int64) (bool, error) {
	count, err := s.repo.CountRoleAssignments(ctx, roleID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
