// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/groupshare/internal/app/system/auth"
	"github.com/dalemusser/groupshare/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the audit listing where this router is mounted, normally
// /groups/{groupID}/audit inside the groups router (which has already run
// RequireAccess and RequireGroupParam).
//
// Access is restricted to the group's admins and owner.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.With(auth.RequirePermission(authz.PermManageMembers)).Get("/", h.ServeList)
	return r
}
