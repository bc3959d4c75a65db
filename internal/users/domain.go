package users

import (
	"fmt"
	"time"

	"github.com/procurio-erp/procurio/internal/shared"
)

// User is the management view of an account. The password hash never
// leaves the module.
type User struct {
	ID                 int64      `json:"id"`
	Email              string     `json:"email"`
	Name               string     `json:"name"`
	PasswordHash       string     `json:"-"`
	Role               string     `json:"role"`
	Division           string     `json:"division"`
	SpendingLimitCents int64      `json:"spending_limit_cents"`
	IsActive           bool       `json:"is_active"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	DeletedAt          *time.Time `json:"-"`
}

var (
	ErrNotFound       = fmt.Errorf("users: user %w", shared.ErrNotFound)
	ErrDuplicateEmail = fmt.Errorf("users: email %w", shared.ErrDuplicate)
)
