package roles

import (
	"context"
	"fmt"
	"strings"

	"github.com/procurio-erp/procurio/internal/shared"
)

// RepositoryPort describes the persistence operations used by Service.
type RepositoryPort interface {
	List(ctx context.Context) ([]Role, error)
	Get(ctx context.Context, id int64) (Role, error)
	Create(ctx context.Context, role Role) (Role, error)
	Update(ctx context.Context, role Role) (Role, error)
	SoftDelete(ctx context.Context, id int64) error
}

// AssignmentPort answers role-membership questions from the RBAC module.
type AssignmentPort interface {
	RoleInUse(ctx context.Context, roleID int64) (bool, error)
	RolePermissionIDs(ctx context.Context, roleID int64) ([]int64, error)
	SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service implements role management rules.
type Service struct {
	repo        RepositoryPort
	assignments AssignmentPort
	audit       AuditPort
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, assignments AssignmentPort, audit AuditPort) *Service {
	return &Service{repo: repo, assignments: assignments, audit: audit}
}

// List returns all live roles.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.repo.List(ctx)
}

// Get returns a role together with its permission IDs.
func (s *Service) Get(ctx context.Context, id int64) (Role, []int64, error) {
	role, err := s.repo.Get(ctx, id)
	if err != nil {
		return Role{}, nil, err
	}
	permIDs, err := s.assignments.RolePermissionIDs(ctx, id)
	if err != nil {
		return Role{}, nil, err
	}
	return role, permIDs, nil
}

// Create validates and inserts a custom role.
func (s *Service) Create(ctx context.Context, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", shared.ErrValidation)
	}
	role, err := s.repo.Create(ctx, Role{Name: name, Description: strings.TrimSpace(description)})
	if err != nil {
		return Role{}, err
	}
	s.recordAudit(ctx, "create", role.ID)
	return role, nil
}

// Update changes name and description. System roles may be renamed but keep
// their flag.
func (s *Service) Update(ctx context.Context, id int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", shared.ErrValidation)
	}
	role, err := s.repo.Update(ctx, Role{ID: id, Name: name, Description: strings.TrimSpace(description)})
	if err != nil {
		return Role{}, err
	}
	s.recordAudit(ctx, "update", role.ID)
	return role, nil
}

// Delete soft-deletes a role. System roles and roles still assigned to
// users are refused.
func (s *Service) Delete(ctx context.Context, id int64) error {
	role, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return ErrSystemRole
	}
	inUse, err := s.assignments.RoleInUse(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return ErrRoleInUse
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "delete", id)
	return nil
}

// SetPermissions replaces the permission set of an existing role.
func (s *Service) SetPermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	if _, err := s.repo.Get(ctx, roleID); err != nil {
		return err
	}
	if err := s.assignments.SetRolePermissions(ctx, roleID, permissionIDs); err != nil {
		return err
	}
	s.recordAudit(ctx, "set_permissions", roleID)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, roleID int64) {
	if s.audit == nil {
		return
	}
	principal, _ := shared.PrincipalFromContext(ctx)
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: principal.ID, Action: "ROLE_" + strings.ToUpper(action), Entity: "role", EntityID: fmt.Sprintf("%d", roleID)})
}
