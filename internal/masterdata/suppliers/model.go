package suppliers

import (
	"fmt"
	"time"

	internalShared "github.com/procurio-erp/procurio/internal/shared"
)

// Supplier represents a supplier entity.
type Supplier struct {
	ID        int64      `json:"id"`
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	Address   string     `json:"address"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
}

var (
	ErrNotFound      = fmt.Errorf("suppliers: supplier %w", internalShared.ErrNotFound)
	ErrDuplicateCode = fmt.Errorf("suppliers: code %w", internalShared.ErrDuplicate)
)
