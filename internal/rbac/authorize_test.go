package rbac

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/procurio-erp/procurio/internal/shared"
)

func TestAuthorizeRoleExactMembership(t *testing.T) {
	manager := shared.Principal{ID: 1, Role: shared.RoleManager}

	require.True(t, AuthorizeRole(manager, shared.RoleAdmin, shared.RoleManager).Allowed)

	// No implicit hierarchy: manager is denied on an admin-only endpoint
	// even though it is informally "more senior" than basic.
	decision := AuthorizeRole(manager, shared.RoleAdmin)
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonForbiddenRole, decision.Reason)
	require.NotEmpty(t, decision.Requirement)

	admin := shared.Principal{ID: 2, Role: shared.RoleAdmin}
	require.False(t, AuthorizeRole(admin, shared.RoleBasic, shared.RoleManager).Allowed)
}

func TestAuthorizeRoleEmptySetDeniesAll(t *testing.T) {
	require.False(t, AuthorizeRole(shared.Principal{Role: shared.RoleAdmin}).Allowed)
}

func TestAuthorizePermissionUnion(t *testing.T) {
	// Union across roles: the grant may come from any held role.
	granted := []string{shared.PermPOsRead, shared.PermSuppliersRead, shared.PermPOsApprove}

	require.True(t, AuthorizePermission(granted, shared.PermPOsApprove).Allowed)

	decision := AuthorizePermission(granted, shared.PermPOsWrite)
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonForbiddenPermission, decision.Reason)
	require.Equal(t, shared.PermPOsWrite, decision.Requirement)
}

func TestAuthorizePermissionReadOnlyRole(t *testing.T) {
	readOnly := []string{
		shared.PermUsersRead,
		shared.PermRolesRead,
		shared.PermPermissionsRead,
		shared.PermSuppliersRead,
		shared.PermPOsRead,
	}

	require.True(t, AuthorizePermission(readOnly, shared.PermPOsRead).Allowed)
	require.False(t, AuthorizePermission(readOnly, shared.PermPOsWrite).Allowed)
	require.False(t, AuthorizePermission(readOnly, shared.PermPOsApprove).Allowed)
}

func TestAuthorizeSpending(t *testing.T) {
	basic := shared.Principal{ID: 1, Role: shared.RoleBasic, SpendingLimitCents: 50000} // 500.00

	require.True(t, AuthorizeSpending(basic, decimal.RequireFromString("499.99")).Allowed)
	// Boundary is inclusive.
	require.True(t, AuthorizeSpending(basic, decimal.RequireFromString("500.00")).Allowed)

	decision := AuthorizeSpending(basic, decimal.RequireFromString("500.01"))
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonForbiddenSpendingLimit, decision.Reason)
}

func TestAuthorizeSpendingAdminExempt(t *testing.T) {
	admin := shared.Principal{ID: 1, Role: shared.RoleAdmin, SpendingLimitCents: 0}
	require.True(t, AuthorizeSpending(admin, decimal.RequireFromString("1000000000.00")).Allowed)
}

func TestDecisionErr(t *testing.T) {
	require.NoError(t, Allow.Err())

	err := Deny(ReasonForbiddenPermission, shared.PermPOsApprove).Err()
	require.Error(t, err)
	fe, ok := err.(*ForbiddenError)
	require.True(t, ok)
	require.Equal(t, 403, fe.Status())
	require.Equal(t, "forbidden_permission", fe.ReasonCode())
}
