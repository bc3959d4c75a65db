package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/procurio-erp/procurio/internal/platform/httpx"
	"github.com/procurio-erp/procurio/internal/rbac"
	"github.com/procurio-erp/procurio/internal/shared"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the token claims stored by the middleware.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(Claims)
	return claims, ok
}

// Middleware attaches the authenticated principal to request contexts.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Require rejects requests without a valid bearer token.
func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			httpx.RespondError(w, &rbac.UnauthenticatedError{Detail: "missing bearer token"})
			return
		}
		principal, claims, err := m.Service.Verify(r.Context(), raw)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Debug("token rejected", "error", err)
			}
			httpx.RespondError(w, err)
			return
		}
		ctx := shared.ContextWithPrincipal(r.Context(), principal)
		ctx = context.WithValue(ctx, claimsContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
