package suppliers

import (
	"github.com/go-chi/chi/v5"

	internalShared "github.com/procurio-erp/procurio/internal/shared"
)

// MountRoutes registers supplier routes gated by the matching permissions.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(internalShared.PermSuppliersRead))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(internalShared.PermSuppliersWrite))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}
