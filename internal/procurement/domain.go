package procurement

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/procurio-erp/procurio/internal/shared"
)

// Status enumerates the purchase-order lifecycle states. The set is closed;
// the database mirrors it with a CHECK constraint.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusOrdered   Status = "ordered"
	StatusReceived  Status = "received"
	StatusCancelled Status = "cancelled"
)

// transitions is the complete table: every live state has exactly one
// advance edge and one abort edge to cancelled. Everything not listed is
// rejected, including self-transitions and any edge out of a terminal state.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusPending, StatusCancelled},
	StatusPending:   {StatusApproved, StatusCancelled},
	StatusApproved:  {StatusOrdered, StatusCancelled},
	StatusOrdered:   {StatusReceived, StatusCancelled},
	StatusReceived:  {},
	StatusCancelled: {},
}

// Known reports whether s belongs to the closed status set.
func (s Status) Known() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether s has no outbound edges.
func (s Status) Terminal() bool {
	return s.Known() && len(transitions[s]) == 0
}

// Transition decides whether current → next is a legal lifecycle edge.
// On rejection the returned error carries both statuses.
func Transition(current, next Status) error {
	if !current.Known() || !next.Known() {
		return &TransitionError{From: current, To: next}
	}
	for _, allowed := range transitions[current] {
		if next == allowed {
			return nil
		}
	}
	return &TransitionError{From: current, To: next}
}

// TransitionError reports an illegal status transition with both the
// current and the attempted status for debuggability.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("procurement: invalid transition from %q to %q", e.From, e.To)
}

// Status implements httpx.ProblemError.
func (e *TransitionError) Status() int { return http.StatusConflict }

// ReasonCode implements httpx.ProblemError.
func (e *TransitionError) ReasonCode() string { return "invalid_transition" }

// PurchaseOrder domain model. TotalAmount and the line totals are stored as
// supplied; line totals are never recomputed from qty times unit price.
type PurchaseOrder struct {
	ID          int64           `json:"id"`
	Number      string          `json:"po_number"`
	SupplierID  int64           `json:"supplier_id"`
	Status      Status          `json:"status"`
	Currency    string          `json:"currency"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Note        string          `json:"note"`
	CreatedBy   int64           `json:"created_by"`
	UpdatedBy   int64           `json:"updated_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Lines       []Line          `json:"lines,omitempty"`
}

// Line represents an ordered item.
type Line struct {
	ID          int64           `json:"id"`
	POID        int64           `json:"po_id"`
	Description string          `json:"description"`
	Qty         decimal.Decimal `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// Sentinels wrap the shared taxonomy so the HTTP layer maps them without
// package-specific knowledge.
var (
	// ErrNotFound indicates record missing or soft-deleted.
	ErrNotFound = fmt.Errorf("procurement: purchase order %w", shared.ErrNotFound)
	// ErrValidation indicates invalid input.
	ErrValidation = fmt.Errorf("procurement: %w", shared.ErrValidation)
	// ErrDuplicateNumber indicates a po_number conflict among non-deleted rows.
	ErrDuplicateNumber = fmt.Errorf("procurement: po number %w", shared.ErrDuplicate)
	// ErrImmutable indicates a mutation attempted outside draft.
	ErrImmutable = fmt.Errorf("procurement: only draft orders can be modified: %w", shared.ErrValidation)
)
