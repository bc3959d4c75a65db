package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/procurio-erp/procurio/internal/shared"
)

const pgUniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence for permissions and the
// role/permission and user/role join tables. All reads exclude soft-deleted
// rows at every level of the join.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UserEffectivePermissions resolves the permission names reachable from a
// user through non-deleted user-role and role-permission assignments, where
// the user, role and permission rows themselves are non-deleted. The result
// is the deduplicated union across every role the user holds.
func (r *Repository) UserEffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
SELECT DISTINCT p.name
FROM user_roles ur
JOIN users u ON u.id = ur.user_id AND u.deleted_at IS NULL
JOIN roles ro ON ro.id = ur.role_id AND ro.deleted_at IS NULL
JOIN role_permissions rp ON rp.role_id = ur.role_id AND rp.deleted_at IS NULL
JOIN permissions p ON p.id = rp.permission_id AND p.deleted_at IS NULL
WHERE ur.user_id = $1 AND ur.deleted_at IS NULL
ORDER BY p.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		perms = append(perms, name)
	}
	return perms, rows.Err()
}

// ListPermissions returns all non-deleted permissions ordered by name.
func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, name, resource, action, description, created_at, updated_at
FROM permissions WHERE deleted_at IS NULL ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Resource, &p.Action, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// CreatePermission inserts a new permission. Conflicts on name or on the
// resource+action pair surface as shared.ErrDuplicate.
func (r *Repository) CreatePermission(ctx context.Context, p Permission) (Permission, error) {
	err := r.pool.QueryRow(ctx, `
INSERT INTO permissions (name, resource, action, description)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, updated_at`, p.Name, p.Resource, p.Action, p.Description).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return Permission{}, shared.ErrDuplicate
		}
		return Permission{}, err
	}
	return p, nil
}

// UpdatePermissionDescription changes only the description text. Permissions
// referenced by roles stay immutable otherwise.
func (r *Repository) UpdatePermissionDescription(ctx context.Context, id int64, description string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE permissions SET description = $1, updated_at = NOW()
WHERE id = $2 AND deleted_at IS NULL`, description, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRolePermissionIDs returns the ids of permissions actively assigned to a role.
func (r *Repository) ListRolePermissionIDs(ctx context.Context, roleID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
SELECT permission_id FROM role_permissions
WHERE role_id = $1 AND deleted_at IS NULL ORDER BY permission_id`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AttachPermissionToRole creates the assignment, reviving a soft-deleted row
// if one exists.
func (r *Repository) AttachPermissionToRole(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO role_permissions (role_id, permission_id)
VALUES ($1, $2)
ON CONFLICT (role_id, permission_id) DO UPDATE SET deleted_at = NULL`, roleID, permissionID)
	return err
}

// DetachPermissionFromRole soft-deletes the assignment.
func (r *Repository) DetachPermissionFromRole(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `
UPDATE role_permissions SET deleted_at = NOW()
WHERE role_id = $1 AND permission_id = $2 AND deleted_at IS NULL`, roleID, permissionID)
	return err
}

// ListUserRoleIDs returns the ids of roles actively assigned to a user.
func (r *Repository) ListUserRoleIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
SELECT role_id FROM user_roles
WHERE user_id = $1 AND deleted_at IS NULL ORDER BY role_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AssignRoleToUser creates the assignment, reviving a soft-deleted row if
// one exists.
func (r *Repository) AssignRoleToUser(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO user_roles (user_id, role_id)
VALUES ($1, $2)
ON CONFLICT (user_id, role_id) DO UPDATE SET deleted_at = NULL`, userID, roleID)
	return err
}

// RemoveRoleFromUser soft-deletes the assignment.
func (r *Repository) RemoveRoleFromUser(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `
UPDATE user_roles SET deleted_at = NOW()
WHERE user_id = $1 AND role_id = $2 AND deleted_at IS NULL`, userID, roleID)
	return err
}

// CountRoleAssignments counts non-deleted users actively holding the role.
// Assignments left behind by a soft-deleted user do not keep a role in use.
func (r *Repository) CountRoleAssignments(ctx context.Context, roleID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM user_roles ur
JOIN users u ON u.id = ur.user_id AND u.deleted_at IS NULL
WHERE ur.role_id = $1 AND ur.deleted_at IS NULL`, roleID).Scan(&count)
	return count, err
}
