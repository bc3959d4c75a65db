package rbac

import (
	"fmt"
	"time"

	"github.com/procurio-erp/procurio/internal/shared"
)

// Permission represents an atomic capability. Name is globally unique and
// follows the resource:action convention; the resource+action pair is
// unique on its own.
type Permission struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Assignment ties a permission to a role.
type Assignment struct {
	RoleID       int64
	PermissionID int64
	CreatedAt    time.Time
}

// UserRole links a user to a role.
type UserRole struct {
	UserID    int64
	RoleID    int64
	CreatedAt time.Time
}

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = fmt.Errorf("rbac: permission %w", shared.ErrNotFound)
