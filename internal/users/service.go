package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/procurio-erp/procurio/internal/shared"
)

// RepositoryPort describes the persistence operations used by Service.
type RepositoryPort interface {
	List(ctx context.Context, filters ListFilters) ([]User, shared.Pagination, error)
	Get(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, user User) (User, error)
	Update(ctx context.Context, user User) (User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	SoftDelete(ctx context.Context, id int64) error
}

// RolesPort manages dynamic role assignments via the RBAC module.
type RolesPort interface {
	UserRoleIDs(ctx context.Context, userID int64) ([]int64, error)
	SetUserRoles(ctx context.Context, userID int64, roleIDs []int64) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CreateInput carries the fields needed to open an account.
type CreateInput struct {
	Email              string
	Name               string
	Password           string
	Role               string
	Division           string
	SpendingLimitCents int64
}

// UpdateInput carries the mutable profile fields.
type UpdateInput struct {
	Email              string
	Name               string
	Role               string
	Division           string
	SpendingLimitCents int64
	IsActive           bool
}

// Service implements user management rules.
type Service struct {
	repo  RepositoryPort
	roles RolesPort
	audit AuditPort
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, roles RolesPort, audit AuditPort) *Service {
	return &Service{repo: repo, roles: roles, audit: audit}
}

// List returns live users matching the filters.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]User, shared.Pagination, error) {
	if filters.Role != "" && !shared.KnownRole(filters.Role) {
		return nil, shared.Pagination{}, fmt.Errorf("%w: unknown role %q", shared.ErrValidation, filters.Role)
	}
	return s.repo.List(ctx, filters)
}

// Get returns a user together with their dynamic role IDs.
func (s *Service) Get(ctx context.Context, id int64) (User, []int64, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, nil, err
	}
	roleIDs, err := s.roles.UserRoleIDs(ctx, id)
	if err != nil {
		return User{}, nil, err
	}
	return user, roleIDs, nil
}

// Create validates input, hashes the password and inserts the account.
func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return User{}, fmt.Errorf("%w: email required", shared.ErrValidation)
	}
	if err := validateAccount(in.Role, in.SpendingLimitCents); err != nil {
		return User{}, err
	}
	if len(in.Password) < 8 {
		return User{}, fmt.Errorf("%w: password must be at least 8 characters", shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.Create(ctx, User{
		Email:              email,
		Name:               strings.TrimSpace(in.Name),
		PasswordHash:       string(hash),
		Role:               in.Role,
		Division:           strings.TrimSpace(in.Division),
		SpendingLimitCents: in.SpendingLimitCents,
		IsActive:           true,
	})
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, "create", user.ID)
	return user, nil
}

// Update rewrites profile fields, including the role, division and
// spending limit.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return User{}, fmt.Errorf("%w: email required", shared.ErrValidation)
	}
	if err := validateAccount(in.Role, in.SpendingLimitCents); err != nil {
		return User{}, err
	}
	user, err := s.repo.Update(ctx, User{
		ID:                 id,
		Email:              email,
		Name:               strings.TrimSpace(in.Name),
		Role:               in.Role,
		Division:           strings.TrimSpace(in.Division),
		SpendingLimitCents: in.SpendingLimitCents,
		IsActive:           in.IsActive,
	})
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, "update", user.ID)
	return user, nil
}

// ChangePassword replaces the stored hash for a live user.
func (s *Service) ChangePassword(ctx context.Context, id int64, password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", shared.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, id, string(hash)); err != nil {
		return err
	}
	s.recordAudit(ctx, "change_password", id)
	return nil
}

// Delete soft-deletes a user. Their dynamic role assignments stay in place
// but stop resolving because the joins filter deleted rows.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "delete", id)
	return nil
}

// SetRoles replaces the dynamic role set of an existing user.
func (s *Service) SetRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	if _, err := s.repo.Get(ctx, userID); err != nil {
		return err
	}
	if err := s.roles.SetUserRoles(ctx, userID, roleIDs); err != nil {
		return err
	}
	s.recordAudit(ctx, "set_roles", userID)
	return nil
}

func validateAccount(role string, limitCents int64) error {
	if !shared.KnownRole(role) {
		return fmt.Errorf("%w: unknown role %q", shared.ErrValidation, role)
	}
	if limitCents < 0 {
		return fmt.Errorf("%w: spending limit cannot be negative", shared.ErrValidation)
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action string, userID int64) {
	if s.audit == nil {
		return
	}
	principal, _ := shared.PrincipalFromContext(ctx)
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: principal.ID, Action: "USER_" + strings.ToUpper(action), Entity: "user", EntityID: fmt.Sprintf("%d", userID)})
}
