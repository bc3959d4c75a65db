package suppliers

import (
	"context"
	"fmt"

	"github.com/procurio-erp/procurio/internal/masterdata/shared"
	internalShared "github.com/procurio-erp/procurio/internal/shared"
)

// Service implements supplier master-data rules.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns live suppliers matching the filters.
func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, int, error) {
	return s.repo.List(ctx, filters)
}

// Get returns a single live supplier.
func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, fmt.Errorf("%w: invalid supplier id", internalShared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create validates and inserts a supplier.
func (s *Service) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	supplier, err := s.validate(supplier)
	if err != nil {
		return Supplier{}, err
	}
	return s.repo.Create(ctx, supplier)
}

// Update rewrites a live supplier.
func (s *Service) Update(ctx context.Context, id int64, supplier Supplier) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, fmt.Errorf("%w: invalid supplier id", internalShared.ErrValidation)
	}
	supplier, err := s.validate(supplier)
	if err != nil {
		return Supplier{}, err
	}
	return s.repo.Update(ctx, id, supplier)
}

// Delete soft-deletes a supplier. Existing purchase orders keep their
// reference.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid supplier id", internalShared.ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}
