package rbac

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/procurio-erp/procurio/internal/shared"
)

// Reason identifies why an authorization decision denied a request.
type Reason string

const (
	ReasonUnauthenticated        Reason = "unauthenticated"
	ReasonForbiddenRole          Reason = "forbidden_role"
	ReasonForbiddenPermission    Reason = "forbidden_permission"
	ReasonForbiddenSpendingLimit Reason = "forbidden_spending_limit"
)

// Decision is the outcome of an authorization check. Requirement names the
// unmet requirement when the decision denies.
type Decision struct {
	Allowed     bool
	Reason      Reason
	Requirement string
}

// Allow is the positive decision.
var Allow = Decision{Allowed: true}

// Deny builds a negative decision carrying the unmet requirement.
func Deny(reason Reason, requirement string) Decision {
	return Decision{Reason: reason, Requirement: requirement}
}

// Err converts a denying decision into a ForbiddenError. Returns nil for
// allowing decisions.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &ForbiddenError{Reason: d.Reason, Requirement: d.Requirement}
}

// UnauthenticatedError is returned when no valid credential accompanies the
// request. It is distinct from ForbiddenError: the caller is unknown, not
// merely lacking a grant.
type UnauthenticatedError struct {
	Detail string
}

func (e *UnauthenticatedError) Error() string {
	if e.Detail == "" {
		return "rbac: unauthenticated"
	}
	return "rbac: unauthenticated: " + e.Detail
}

// Status implements httpx.ProblemError.
func (e *UnauthenticatedError) Status() int { return http.StatusUnauthorized }

// ReasonCode implements httpx.ProblemError.
func (e *UnauthenticatedError) ReasonCode() string { return string(ReasonUnauthenticated) }

// ForbiddenError is returned when an authenticated principal fails a gate.
// The reason and requirement are always surfaced, never masked.
type ForbiddenError struct {
	Reason      Reason
	Requirement string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("rbac: %s (requires %s)", e.Reason, e.Requirement)
}

// Status implements httpx.ProblemError.
func (e *ForbiddenError) Status() int { return http.StatusForbidden }

// ReasonCode implements httpx.ProblemError.
func (e *ForbiddenError) ReasonCode() string { return string(e.Reason) }

// AuthorizeRole is the role-gate: exact membership of the principal's role
// in the endpoint's allowed set. There is no hierarchy; a role not listed
// is denied regardless of seniority.
func AuthorizeRole(p shared.Principal, allowed ...string) Decision {
	for _, role := range allowed {
		if p.Role == role {
			return Allow
		}
	}
	return Deny(ReasonForbiddenRole, fmt.Sprintf("one of %v", allowed))
}

// AuthorizePermission is the permission-gate: membership of required in the
// principal's resolved permission set (the union across all held roles).
func AuthorizePermission(granted []string, required string) Decision {
	for _, p := range granted {
		if p == required {
			return Allow
		}
	}
	return Deny(ReasonForbiddenPermission, required)
}

// AuthorizeSpending is the spending-limit gate for purchase-order creation.
// Admins are exempt regardless of their configured limit; for everyone else
// the boundary is inclusive (total equal to the limit is allowed).
func AuthorizeSpending(p shared.Principal, total decimal.Decimal) Decision {
	if p.Role == shared.RoleAdmin {
		return Allow
	}
	limit := decimal.New(p.SpendingLimitCents, -2)
	if total.GreaterThan(limit) {
		return Deny(ReasonForbiddenSpendingLimit, fmt.Sprintf("total %s exceeds limit %s", total, limit))
	}
	return Allow
}
