// internal/app/features/photos/routes.go
package photos

import (
	"github.com/dalemusser/groupshare/internal/app/system/auth"
	"github.com/dalemusser/groupshare/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the photos API, typically at /photos. Every route acts on
// the active group named by the access credential.
func Routes(h *Handler, guard *auth.Guard) chi.Router {
	r := chi.NewRouter()
	r.Use(guard.RequireAccess)

	r.Get("/", h.ServeList)
	r.With(auth.RequirePermission(authz.PermUploadPhoto)).Post("/", h.HandleCreate)
	r.Get("/{photoID}", h.ServePhoto)
	r.With(auth.RequirePermission(authz.PermDeletePhoto)).Delete("/{photoID}", h.HandleDelete)

	return r
}
