package procurement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/procurio-erp/procurio/internal/rbac"
	"github.com/procurio-erp/procurio/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	Create(ctx context.Context, po PurchaseOrder, lines []Line) (PurchaseOrder, error)
	Get(ctx context.Context, id int64) (PurchaseOrder, error)
	List(ctx context.Context, filters ListFilters) ([]PurchaseOrder, int, error)
	UpdateStatus(ctx context.Context, id int64, from, to Status, actorID int64) (bool, error)
	UpdateDraft(ctx context.Context, po PurchaseOrder, lines []Line) error
	SoftDelete(ctx context.Context, id, actorID int64) error
	SupplierExists(ctx context.Context, supplierID int64) (bool, error)
}

// AuthzPort runs the permission-gate for call-site checks.
type AuthzPort interface {
	HasPermission(ctx context.Context, userID int64, permission string) (rbac.Decision, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates purchase-order flows. It is stateless; all durable
// state lives in the store.
type Service struct {
	repo  RepositoryPort
	authz AuthzPort
	audit AuditPort
}

// NewService constructs the procurement service.
func NewService(repo RepositoryPort, authz AuthzPort, audit AuditPort) *Service {
	return &Service{repo: repo, authz: authz, audit: audit}
}

// LineInput describes an ordered item. TotalPrice is supplied independently
// and stored as-is.
type LineInput struct {
	Description string
	Qty         decimal.Decimal
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
}

// CreateInput describes the creation payload.
type CreateInput struct {
	Number     string
	SupplierID int64
	Currency   string
	Note       string
	Lines      []LineInput
}

// Create validates the payload, runs the spending-limit gate and persists a
// new order in draft.
func (s *Service) Create(ctx context.Context, principal shared.Principal, input CreateInput) (PurchaseOrder, error) {
	if len(input.Lines) == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: at least one line required", ErrValidation)
	}
	if input.SupplierID <= 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: supplier required", ErrValidation)
	}
	exists, err := s.repo.SupplierExists(ctx, input.SupplierID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if !exists {
		return PurchaseOrder{}, fmt.Errorf("%w: unknown supplier", ErrValidation)
	}

	code, err := currency.ParseISO(defaultString(input.Currency, "USD"))
	if err != nil {
		return PurchaseOrder{}, fmt.Errorf("%w: invalid currency code %q", ErrValidation, input.Currency)
	}

	total := decimal.Zero
	lines := make([]Line, 0, len(input.Lines))
	for _, line := range input.Lines {
		if strings.TrimSpace(line.Description) == "" {
			return PurchaseOrder{}, fmt.Errorf("%w: line description required", ErrValidation)
		}
		if line.Qty.LessThanOrEqual(decimal.Zero) {
			return PurchaseOrder{}, fmt.Errorf("%w: line qty must be positive", ErrValidation)
		}
		if line.UnitPrice.IsNegative() || line.TotalPrice.IsNegative() {
			return PurchaseOrder{}, fmt.Errorf("%w: line prices must not be negative", ErrValidation)
		}
		total = total.Add(line.TotalPrice)
		lines = append(lines, Line{
			Description: strings.TrimSpace(line.Description),
			Qty:         line.Qty,
			UnitPrice:   line.UnitPrice,
			TotalPrice:  line.TotalPrice,
		})
	}

	if err := rbac.AuthorizeSpending(principal, total).Err(); err != nil {
		return PurchaseOrder{}, err
	}

	po := PurchaseOrder{
		Number:      defaultString(strings.TrimSpace(input.Number), generateNumber("PO")),
		SupplierID:  input.SupplierID,
		Status:      StatusDraft,
		Currency:    code.String(),
		TotalAmount: total,
		Note:        strings.TrimSpace(input.Note),
		CreatedBy:   principal.ID,
	}
	created, err := s.repo.Create(ctx, po, lines)
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, principal.ID, "PO_CREATE", created.ID, map[string]any{"number": created.Number, "total": created.TotalAmount.String()})
	return created, nil
}

// Get fetches one order.
func (s *Service) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.repo.Get(ctx, id)
}

// List returns filtered orders with pagination metadata.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]PurchaseOrder, shared.Pagination, error) {
	if filters.Status != "" && !filters.Status.Known() {
		return nil, shared.Pagination{}, fmt.Errorf("%w: unknown status %q", ErrValidation, filters.Status)
	}
	if filters.PerPage <= 0 {
		filters.PerPage = 20
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}
	orders, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return orders, shared.NewPagination(filters.Page, filters.PerPage, total), nil
}

// ChangeStatus moves an order along the lifecycle. Entering approved
// additionally requires the pos:approve capability; the transition itself
// is checked against the table and then applied as an atomic conditional
// update so concurrent losers get a clean rejection.
func (s *Service) ChangeStatus(ctx context.Context, principal shared.Principal, id int64, target Status) (PurchaseOrder, error) {
	po, err := s.repo.Get(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if !target.Known() {
		return PurchaseOrder{}, &TransitionError{From: po.Status, To: target}
	}
	if target == StatusApproved {
		decision, err := s.authz.HasPermission(ctx, principal.ID, shared.PermPOsApprove)
		if err != nil {
			return PurchaseOrder{}, err
		}
		if err := decision.Err(); err != nil {
			return PurchaseOrder{}, err
		}
	}
	if err := Transition(po.Status, target); err != nil {
		return PurchaseOrder{}, err
	}
	updated, err := s.repo.UpdateStatus(ctx, id, po.Status, target, principal.ID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if !updated {
		// Lost a race or the row vanished; re-read to report the truth.
		fresh, err := s.repo.Get(ctx, id)
		if err != nil {
			return PurchaseOrder{}, err
		}
		return PurchaseOrder{}, &TransitionError{From: fresh.Status, To: target}
	}
	s.recordAudit(ctx, principal.ID, "PO_STATUS", id, map[string]any{"from": string(po.Status), "to": string(target)})
	po.Status = target
	po.UpdatedBy = principal.ID
	po.UpdatedAt = time.Now()
	return po, nil
}

// UpdateInput carries draft mutations.
type UpdateInput struct {
	SupplierID int64
	Currency   string
	Note       string
	Lines      []LineInput
}

// Update rewrites a draft order. Orders past draft are immutable except for
// status transitions.
func (s *Service) Update(ctx context.Context, principal shared.Principal, id int64, input UpdateInput) (PurchaseOrder, error) {
	po, err := s.repo.Get(ctx, id)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if po.Status != StatusDraft {
		return PurchaseOrder{}, ErrImmutable
	}
	if len(input.Lines) == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: at least one line required", ErrValidation)
	}
	code, err := currency.ParseISO(defaultString(input.Currency, po.Currency))
	if err != nil {
		return PurchaseOrder{}, fmt.Errorf("%w: invalid currency code %q", ErrValidation, input.Currency)
	}
	if input.SupplierID > 0 && input.SupplierID != po.SupplierID {
		exists, err := s.repo.SupplierExists(ctx, input.SupplierID)
		if err != nil {
			return PurchaseOrder{}, err
		}
		if !exists {
			return PurchaseOrder{}, fmt.Errorf("%w: unknown supplier", ErrValidation)
		}
		po.SupplierID = input.SupplierID
	}

	total := decimal.Zero
	lines := make([]Line, 0, len(input.Lines))
	for _, line := range input.Lines {
		if strings.TrimSpace(line.Description) == "" {
			return PurchaseOrder{}, fmt.Errorf("%w: line description required", ErrValidation)
		}
		if line.Qty.LessThanOrEqual(decimal.Zero) {
			return PurchaseOrder{}, fmt.Errorf("%w: line qty must be positive", ErrValidation)
		}
		if line.UnitPrice.IsNegative() || line.TotalPrice.IsNegative() {
			return PurchaseOrder{}, fmt.Errorf("%w: line prices must not be negative", ErrValidation)
		}
		total = total.Add(line.TotalPrice)
		lines = append(lines, Line{
			POID:        id,
			Description: strings.TrimSpace(line.Description),
			Qty:         line.Qty,
			UnitPrice:   line.UnitPrice,
			TotalPrice:  line.TotalPrice,
		})
	}
	if err := rbac.AuthorizeSpending(principal, total).Err(); err != nil {
		return PurchaseOrder{}, err
	}

	po.Currency = code.String()
	po.TotalAmount = total
	po.Note = strings.TrimSpace(input.Note)
	po.UpdatedBy = principal.ID
	if err := s.repo.UpdateDraft(ctx, po, lines); err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, principal.ID, "PO_UPDATE", id, map[string]any{"total": total.String()})
	return s.repo.Get(ctx, id)
}

// Delete soft-deletes an order.
func (s *Service) Delete(ctx context.Context, principal shared.Principal, id int64) error {
	if err := s.repo.SoftDelete(ctx, id, principal.ID); err != nil {
		return err
	}
	s.recordAudit(ctx, principal.ID, "PO_DELETE", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "purchase_order", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
