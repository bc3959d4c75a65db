package suppliers

import (
	"fmt"
	"strings"

	internalShared "github.com/procurio-erp/procurio/internal/shared"
)

func (s *Service) validate(sup Supplier) (Supplier, error) {
	sup.Code = strings.ToUpper(strings.TrimSpace(sup.Code))
	sup.Name = strings.TrimSpace(sup.Name)
	if sup.Code == "" {
		return Supplier{}, fmt.Errorf("%w: supplier code is required", internalShared.ErrValidation)
	}
	if sup.Name == "" {
		return Supplier{}, fmt.Errorf("%w: supplier name is required", internalShared.ErrValidation)
	}
	return sup, nil
}
