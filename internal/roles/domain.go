package roles

import (
	"fmt"
	"time"

	"github.com/procurio-erp/procurio/internal/shared"
)

// Role groups permissions under a shared name. System roles ship with the
// application and cannot be deleted.
type Role struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	IsSystem    bool       `json:"is_system"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"-"`
}

var (
	ErrNotFound      = fmt.Errorf("roles: role %w", shared.ErrNotFound)
	ErrDuplicateName = fmt.Errorf("roles: name %w", shared.ErrDuplicate)
	ErrSystemRole    = fmt.Errorf("%w: system roles cannot be deleted", shared.ErrValidation)
	ErrRoleInUse     = fmt.Errorf("%w: role is assigned to users", shared.ErrValidation)
)
