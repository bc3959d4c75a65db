package rbac

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/procurio-erp/procurio/internal/shared"
)

type stubPerms struct {
	perms map[int64][]string
}

func (s *stubPerms) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	return s.perms[userID], nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func requestAs(p *shared.Principal) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if p != nil {
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), *p))
	}
	return req
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRequireRoleUnauthenticated(t *testing.T) {
	mw := Middleware{Perms: &stubPerms{}}
	rec := httptest.NewRecorder()

	mw.RequireRole(shared.RoleAdmin)(okHandler()).ServeHTTP(rec, requestAs(nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "unauthenticated", decodeProblem(t, rec)["code"])
}

func TestRequireRoleForbidden(t *testing.T) {
	mw := Middleware{Perms: &stubPerms{}}
	rec := httptest.NewRecorder()
	principal := &shared.Principal{ID: 7, Role: shared.RoleManager}

	mw.RequireRole(shared.RoleAdmin)(okHandler()).ServeHTTP(rec, requestAs(principal))

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "forbidden_role", decodeProblem(t, rec)["code"])
}

func TestRequireRoleAllowed(t *testing.T) {
	mw := Middleware{Perms: &stubPerms{}}
	rec := httptest.NewRecorder()
	principal := &shared.Principal{ID: 7, Role: shared.RoleManager}

	mw.RequireRole(shared.RoleAdmin, shared.RoleManager)(okHandler()).ServeHTTP(rec, requestAs(principal))

	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequirePermission(t *testing.T) {
	perms := &stubPerms{perms: map[int64][]string{
		7: {shared.PermPOsRead},
	}}
	mw := Middleware{Perms: perms}
	principal := &shared.Principal{ID: 7, Role: shared.RoleBasic}

	rec := httptest.NewRecorder()
	mw.RequirePermission(shared.PermPOsRead)(okHandler()).ServeHTTP(rec, requestAs(principal))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	mw.RequirePermission(shared.PermPOsWrite)(okHandler()).ServeHTTP(rec, requestAs(principal))
	require.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeProblem(t, rec)
	require.Equal(t, "forbidden_permission", body["code"])
	// The unmet requirement is spelled out for diagnostics.
	require.Contains(t, body["detail"], shared.PermPOsWrite)
}

func TestRequirePermissionUnauthenticated(t *testing.T) {
	mw := Middleware{Perms: &stubPerms{}}
	rec := httptest.NewRecorder()

	mw.RequirePermission(shared.PermPOsRead)(okHandler()).ServeHTTP(rec, requestAs(nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
