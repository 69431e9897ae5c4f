// internal/app/features/authapi/routes.go
package authapi

import (
	"github.com/dalemusser/groupshare/internal/app/system/auth"
	"github.com/dalemusser/groupshare/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the auth API, typically at /auth.
//
// Magic link and refresh-cookie endpoints are public; everything acting on
// an active group needs an access credential.
func Routes(h *Handler, guard *auth.Guard) chi.Router {
	r := chi.NewRouter()

	r.Post("/send-login-link", h.HandleSendLoginLink)
	r.Post("/verify-magic-link", h.HandleVerify)
	r.Post("/refresh", h.HandleRefresh)
	r.Post("/select-group", h.HandleSelectGroup)
	r.Post("/resolve", h.HandleResolve)

	r.Group(func(pr chi.Router) {
		pr.Use(guard.RequireAccess)

		pr.Post("/switch-group", h.HandleSwitchGroup)
		pr.Post("/logout", h.HandleLogout)
		pr.Get("/me", h.ServeMe)
		pr.Patch("/me", h.HandleUpdateMe)

		pr.With(auth.RequirePermission(authz.PermInvite)).Post("/send-invite", h.HandleSendInvite)
	})

	return r
}
