package procurement

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/procurio-erp/procurio/internal/rbac"
	"github.com/procurio-erp/procurio/internal/shared"
)

type memoryPORepo struct {
	orders    map[int64]PurchaseOrder
	lines     map[int64][]Line
	suppliers map[int64]bool
	deleted   map[int64]bool
	nextID    int64
}

func newMemoryPORepo() *memoryPORepo {
	return &memoryPORepo{
		orders:    make(map[int64]PurchaseOrder),
		lines:     make(map[int64][]Line),
		suppliers: map[int64]bool{1: true},
		deleted:   make(map[int64]bool),
	}
}

func (r *memoryPORepo) Create(ctx context.Context, po PurchaseOrder, lines []Line) (PurchaseOrder, error) {
	for id, existing := range r.orders {
		if !r.deleted[id] && existing.Number == po.Number {
			return PurchaseOrder{}, ErrDuplicateNumber
		}
	}
	r.nextID++
	po.ID = r.nextID
	r.orders[po.ID] = po
	r.lines[po.ID] = lines
	po.Lines = lines
	return po, nil
}

func (r *memoryPORepo) Get(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, ok := r.orders[id]
	if !ok || r.deleted[id] {
		return PurchaseOrder{}, ErrNotFound
	}
	po.Lines = append([]Line(nil), r.lines[id]...)
	return po, nil
}

func (r *memoryPORepo) List(ctx context.Context, filters ListFilters) ([]PurchaseOrder, int, error) {
	var orders []PurchaseOrder
	for id, po := range r.orders {
		if r.deleted[id] {
			continue
		}
		if filters.Status != "" && po.Status != filters.Status {
			continue
		}
		orders = append(orders, po)
	}
	return orders, len(orders), nil
}

func (r *memoryPORepo) UpdateStatus(ctx context.Context, id int64, from, to Status, actorID int64) (bool, error) {
	po, ok := r.orders[id]
	if !ok || r.deleted[id] || po.Status != from {
		return false, nil
	}
	po.Status = to
	po.UpdatedBy = actorID
	r.orders[id] = po
	return true, nil
}

func (r *memoryPORepo) UpdateDraft(ctx context.Context, po PurchaseOrder, lines []Line) error {
	current, ok := r.orders[po.ID]
	if !ok || r.deleted[po.ID] || current.Status != StatusDraft {
		return ErrImmutable
	}
	current.SupplierID = po.SupplierID
	current.Currency = po.Currency
	current.TotalAmount = po.TotalAmount
	current.Note = po.Note
	current.UpdatedBy = po.UpdatedBy
	r.orders[po.ID] = current
	r.lines[po.ID] = lines
	return nil
}

func (r *memoryPORepo) SoftDelete(ctx context.Context, id, actorID int64) error {
	if _, ok := r.orders[id]; !ok || r.deleted[id] {
		return ErrNotFound
	}
	r.deleted[id] = true
	return nil
}

func (r *memoryPORepo) SupplierExists(ctx context.Context, supplierID int64) (bool, error) {
	return r.suppliers[supplierID], nil
}

type stubAuthz struct {
	perms []string
}

func (s *stubAuthz) HasPermission(ctx context.Context, userID int64, permission string) (rbac.Decision, error) {
	return rbac.AuthorizePermission(s.perms, permission), nil
}

func manager() shared.Principal {
	return shared.Principal{ID: 10, Role: shared.RoleManager, SpendingLimitCents: 100000}
}

func poLines(total string) []LineInput {
	return []LineInput{{
		Description: "Steel brackets",
		Qty:         decimal.NewFromInt(10),
		UnitPrice:   decimal.RequireFromString("1.00"),
		TotalPrice:  decimal.RequireFromString(total),
	}}
}

func TestCreateStartsInDraft(t *testing.T) {
	repo := newMemoryPORepo()
	svc := NewService(repo, &stubAuthz{perms: shared.CoreScopes()}, nil)

	po, err := svc.Create(context.Background(), manager(), CreateInput{
		SupplierID: 1,
		Currency:   "EUR",
		Lines:      poLines("25.00"),
	})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, po.Status)
	require.Equal(t, "EUR", po.Currency)
	require.True(t, po.TotalAmount.Equal(decimal.RequireFromString("25.00")))
	require.NotEmpty(t, po.Number)
}

func TestCreateRejectsUnknownSupplierAndCurrency(t *testing.T) {
	repo := newMemoryPORepo()
	svc := NewService(repo, &stubAuthz{}, nil)

	_, err := svc.Create(context.Background(), manager(), CreateInput{SupplierID: 99, Lines: poLines("1.00")})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), manager(), CreateInput{SupplierID: 1, Currency: "ZZZ", Lines: poLines("1.00")})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateDuplicateNumberConflicts(t *testing.T) {
	repo := newMemoryPORepo()
	svc := NewService(repo, &stubAuthz{}, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, manager(), CreateInput{Number: "PO-1001", SupplierID: 1, Lines: poLines("5.00")})
	require.NoError(t, err)

	_, err = svc.Create(ctx, manager(), CreateInput{Number: "PO-1001", SupplierID: 1, Lines: poLines("5.00")})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestCreateSpendingLimit(t *testing.T) {
	repo := newMemoryPORepo()
	svc := NewService(repo, &stubAuthz{}, nil)
	ctx := context.Background()
	basic := shared.Principal{ID: 3, Role: shared.RoleBasic, SpendingLimitCents: 1000} // 10.00

	// Boundary amount is allowed.
	_, err := svc.Create(ctx, basic, CreateInput{SupplierID: 1, Lines: poLines("10.00")})
	require.NoError(t, err)

	_, err = svc.Create(ctx, basic, CreateInput{SupplierID: 1, Lines: poLines("10.01")})
	var fe *rbac.ForbiddenError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, rbac.ReasonForbiddenSpendingLimit, fe.Reason)

	// Admins are exempt regardless of their configured limit.
	admin := shared.Principal{ID: 4, Role: shared.RoleAdmin, SpendingLimitCents: 0}
	_, err = svc.Create(ctx, admin, CreateInput{SupplierID: 1, Lines: poLines("999999.99")})
	require.NoError(t, err)
}

func TestLifecycleHappyPath(t *testing.T) {
	repo := newMemoryPORepo()
	svc := NewService(repo, &stubAuthz{perms: []string{shared.PermPOsApprove}}, nil)
	ctx := context.Background()
	actor := manager()

	po, err := svc.Create(ctx, actor, CreateInput{SupplierID: 1, Lines: poLines("10.00")})
	require.NoError(t, err)

	// Skipping pending is rejected; draft's only live edges are pending and cancelled.
	_, err = svc.ChangeStatus(ctx, actor, po.ID, StatusApproved)
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	require.Equal(t, StatusDraft, te.From)
	require.Equal(t, StatusApproved, te.To)

	for _, next := range []Status{StatusPending, StatusApproved} {
		po, err = svc.ChangeStatus(ctx, actor, po.ID, next)
		require.NoError(t, err)
		require.Equal(t, next, po.Status)
	}

	// Must pass through ordered before received.
	_, err = svc.ChangeStatus(ctx, actor, po.ID, StatusReceived)
	require.True(t, errors.As(err, &te))
	require.Equal(t, StatusApproved, te.From)

	po, err = svc.ChangeStatus(ctx, actor, po.ID, StatusOrdered)
	require.NoError(t, err)
	po, err = svc.ChangeStatus(ctx, actor, po.ID, StatusReceived)
	require.NoError(t, err)
	require.Equal(t, StatusReceived, po.Status)

	// Terminal: nothing leaves received, not even cancellation.
	_, err = svc.ChangeStatus(ctx, actor, po.ID, StatusCancelled)
	require.Error(t, err)
}

func TestApproveRequiresPermission(t *testing.T) {
	repo := newMemoryPORepo()
	svc := NewService(repo, &stubAuthz{perms: []string{shared.PermPOsWrite}}, nil)
	ctx := context.Background()
	actor := manager()

	po, err := svc.Create(ctx, actor, CreateInput{SupplierID: 1, Lines: poLines("10.00")})
	require.NoError(t, err)
	_, err = svc.ChangeStatus(ctx, actor, po.ID, StatusPending)
	require.NoError(t, err)

	_, err = svc.ChangeStatus(ctx, actor, po.ID, StatusApproved)
	var fe *rbac.ForbiddenError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, rbac.ReasonForbiddenPermission, fe.Reason)
	require.Equal(t, shared.PermPOsApprove, fe.Requirement)
}

func TestChangeStatusLostRaceRejectedCleanly(t *testing.T) {
	repo := newMemoryPORepo()
	svc := NewService(repo, &stubAuthz{}, nil)
	ctx := context.Background()
	actor := manager()

	po, err := svc.Create(ctx, actor, CreateInput{SupplierID: 1, Lines: poLines("10.00")})
	require.NoError(t, err)

	// Simulate a concurrent winner advancing the row between the read and
	// the conditional update.
	winner, _ := repo.UpdateStatus(ctx, po.ID, StatusDraft, StatusCancelled, 99)
	require.True(t, winner)

	_, err = svc.ChangeStatus(ctx, actor, po.ID, StatusPending)
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	require.Equal(t, StatusCancelled, te.From)
}

func TestUpdateOnlyDraft(t *testing.T) {
	repo := newMemoryPORepo()
	svc := NewService(repo, &stubAuthz{}, nil)
	ctx := context.Background()
	actor := manager()

	po, err := svc.Create(ctx, actor, CreateInput{SupplierID: 1, Lines: poLines("10.00")})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, actor, po.ID, UpdateInput{Note: "rush order", Lines: poLines("12.00")})
	require.NoError(t, err)
	require.Equal(t, "rush order", updated.Note)
	require.True(t, updated.TotalAmount.Equal(decimal.RequireFromString("12.00")))

	_, err = svc.ChangeStatus(ctx, actor, po.ID, StatusPending)
	require.NoError(t, err)
	_, err = svc.Update(ctx, actor, po.ID, UpdateInput{Lines: poLines("13.00")})
	require.ErrorIs(t, err, ErrImmutable)
}

func TestUpdateValidatesLinesLikeCreate(t *testing.T) {
	repo := newMemoryPORepo()
	svc := NewService(repo, &stubAuthz{}, nil)
	ctx := context.Background()
	actor := manager()

	po, err := svc.Create(ctx, actor, CreateInput{SupplierID: 1, Lines: poLines("10.00")})
	require.NoError(t, err)

	_, err = svc.Update(ctx, actor, po.ID, UpdateInput{Lines: []LineInput{{
		Description: "  ",
		Qty:         decimal.NewFromInt(1),
		UnitPrice:   decimal.RequireFromString("5.00"),
		TotalPrice:  decimal.RequireFromString("5.00"),
	}}})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Update(ctx, actor, po.ID, UpdateInput{Lines: []LineInput{{
		Description: "Credit line",
		Qty:         decimal.NewFromInt(1),
		UnitPrice:   decimal.RequireFromString("-5.00"),
		TotalPrice:  decimal.RequireFromString("-5.00"),
	}}})
	require.ErrorIs(t, err, shared.ErrValidation)

	// Nothing persisted from the rejected payloads.
	fresh, err := svc.Get(ctx, po.ID)
	require.NoError(t, err)
	require.True(t, fresh.TotalAmount.Equal(decimal.RequireFromString("10.00")))
	require.Equal(t, "Steel brackets", fresh.Lines[0].Description)
}

func TestChangeStatusUnknownTargetReportsCurrent(t *testing.T) {
	repo := newMemoryPORepo()
	svc := NewService(repo, &stubAuthz{}, nil)
	ctx := context.Background()
	actor := manager()

	po, err := svc.Create(ctx, actor, CreateInput{SupplierID: 1, Lines: poLines("10.00")})
	require.NoError(t, err)

	_, err = svc.ChangeStatus(ctx, actor, po.ID, Status("invoiced"))
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	require.Equal(t, StatusDraft, te.From)
	require.Equal(t, Status("invoiced"), te.To)

	// A missing order still surfaces as not found, not a bogus transition.
	_, err = svc.ChangeStatus(ctx, actor, 404, Status("invoiced"))
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteBehavesLikeNeverExisted(t *testing.T) {
	repo := newMemoryPORepo()
	svc := NewService(repo, &stubAuthz{}, nil)
	ctx := context.Background()
	actor := manager()

	po, err := svc.Create(ctx, actor, CreateInput{SupplierID: 1, Lines: poLines("10.00")})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, actor, po.ID))
	_, err = svc.Get(ctx, po.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, actor, po.ID), shared.ErrNotFound)
}

func TestLineTotalsNotRecomputed(t *testing.T) {
	repo := newMemoryPORepo()
	svc := NewService(repo, &stubAuthz{}, nil)

	// qty x unit price would be 10.00, but the supplied total wins.
	po, err := svc.Create(context.Background(), manager(), CreateInput{
		SupplierID: 1,
		Lines: []LineInput{{
			Description: "Fasteners",
			Qty:         decimal.NewFromInt(10),
			UnitPrice:   decimal.RequireFromString("1.00"),
			TotalPrice:  decimal.RequireFromString("9.50"),
		}},
	})
	require.NoError(t, err)
	require.True(t, po.TotalAmount.Equal(decimal.RequireFromString("9.50")))
	require.True(t, po.Lines[0].TotalPrice.Equal(decimal.RequireFromString("9.50")))
}
