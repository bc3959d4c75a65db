package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/procurio-erp/procurio/internal/platform/httpx"
	"github.com/procurio-erp/procurio/internal/shared"
)

// PermissionSource resolves the effective permission set for a user.
type PermissionSource interface {
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}

// DenialRecorder counts authorization denials by reason code.
type DenialRecorder interface {
	RecordDenial(reason string)
}

// Middleware wires authorization gates for HTTP handlers. The principal is
// expected in the request context, placed there by the auth middleware.
type Middleware struct {
	Perms   PermissionSource
	Logger  *slog.Logger
	Denials DenialRecorder
}

func (m Middleware) deny(w http.ResponseWriter, err error) {
	if m.Denials != nil {
		var pe httpx.ProblemError
		if errors.As(err, &pe) {
			m.Denials.RecordDenial(pe.ReasonCode())
		}
	}
	httpx.RespondError(w, err)
}

// RequireRole gates an endpoint on exact role-set membership.
func (m Middleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				m.deny(w, &UnauthenticatedError{})
				return
			}
			if decision := AuthorizeRole(principal, roles...); !decision.Allowed {
				m.deny(w, decision.Err())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission gates an endpoint on a single named capability resolved
// from the store on every request.
func (m Middleware) RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				m.deny(w, &UnauthenticatedError{})
				return
			}
			granted, err := m.Perms.EffectivePermissions(r.Context(), principal.ID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac resolve permissions", slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			if decision := AuthorizePermission(granted, permission); !decision.Allowed {
				m.deny(w, decision.Err())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
