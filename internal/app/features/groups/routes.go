// internal/app/features/groups/routes.go
package groups

import (
	"net/http"

	"github.com/dalemusser/groupshare/internal/app/system/auth"
	"github.com/dalemusser/groupshare/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the groups API, typically at /groups. auditRoutes, when
// non-nil, is mounted at /{groupID}/audit behind the same checks.
func Routes(h *Handler, guard *auth.Guard, auditRoutes http.Handler) chi.Router {
	r := chi.NewRouter()

	// CREATE needs only the refresh cookie: a user without groups has no
	// access credential.
	r.Post("/", h.HandleCreateGroup)

	r.Group(func(pr chi.Router) {
		pr.Use(guard.RequireAccess)

		pr.Route("/{groupID}", func(gr chi.Router) {
			gr.Use(auth.RequireGroupParam("groupID"))

			gr.Get("/members", h.ServeMembers)
			gr.Put("/preferences", h.HandlePreferences)

			gr.Group(func(ar chi.Router) {
				ar.Use(auth.RequirePermission(authz.PermManageMembers))
				ar.Put("/members/{userID}/role", h.HandleChangeRole)
				ar.Delete("/members/{userID}", h.HandleRemoveMember)
			})

			gr.With(auth.RequirePermission(authz.PermDeleteGroup)).Delete("/", h.HandleDeleteGroup)

			if auditRoutes != nil {
				gr.Mount("/audit", auditRoutes)
			}
		})
	})

	return r
}
