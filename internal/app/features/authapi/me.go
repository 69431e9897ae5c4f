// internal/app/features/authapi/me.go
package authapi

import (
	"errors"
	"fmt"
	"net/http"

	userstore "github.com/dalemusser/groupshare/internal/app/store/users"
	"github.com/dalemusser/groupshare/internal/app/system/apperr"
	"github.com/dalemusser/groupshare/internal/app/system/auth"
	"github.com/dalemusser/groupshare/internal/app/system/htmlsanitize"
	"github.com/dalemusser/groupshare/internal/app/system/httpjson"
	"github.com/dalemusser/groupshare/internal/app/system/inputval"
	"github.com/dalemusser/groupshare/internal/app/system/membership"
	"github.com/dalemusser/groupshare/internal/app/system/timeouts"
)

// ServeMe handles GET /auth/me: the caller, the active group as currently
// stored and every group they belong to.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.ScopeFrom(r)
	if !ok {
		httpjson.Error(w, h.Log, apperr.ErrUnauthenticated)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "me")
	defer cancel()

	u, err := h.Users.GetByID(ctx, scope.UserID)
	if errors.Is(err, userstore.ErrNotFound) {
		httpjson.Error(w, h.Log, apperr.ErrUnauthenticated)
		return
	}
	if err != nil {
		httpjson.Error(w, h.Log, fmt.Errorf("load user: %w", err))
		return
	}

	current, err := h.Dir.Lookup(ctx, scope.UserID, scope.GroupID)
	if errors.Is(err, membership.ErrNoMembership) {
		httpjson.Error(w, h.Log, apperr.ErrNoLongerAMember)
		return
	}
	if err != nil {
		httpjson.Error(w, h.Log, fmt.Errorf("lookup membership: %w", err))
		return
	}

	groups, err := h.Dir.GroupsFor(ctx, scope.UserID)
	if err != nil {
		httpjson.Error(w, h.Log, fmt.Errorf("list groups: %w", err))
		return
	}
	groups = membership.Land(groups, nil).Groups

	httpjson.Write(w, http.StatusOK, meResponse{User: u, CurrentGroup: current, Groups: groups})
}

// HandleUpdateMe handles PATCH /auth/me. Absent fields are left unchanged.
func (h *Handler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.ScopeFrom(r)
	if !ok {
		httpjson.Error(w, h.Log, apperr.ErrUnauthenticated)
		return
	}
	var req updateMeRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	var name, color string
	if req.Name != nil {
		if name = htmlsanitize.Name(*req.Name); name == "" {
			httpjson.Error(w, h.Log, apperr.ErrNameRequired)
			return
		}
	}
	if req.ProfileColor != nil {
		if color = *req.ProfileColor; !inputval.IsHexColor(color) {
			httpjson.Error(w, h.Log, fmt.Errorf("profile color %q: %w", color, apperr.ErrBadRequest))
			return
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update profile")
	defer cancel()

	if err := h.Users.UpdateProfile(ctx, scope.UserID, name, color); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			httpjson.Error(w, h.Log, apperr.ErrUnauthenticated)
			return
		}
		httpjson.Error(w, h.Log, fmt.Errorf("update profile: %w", err))
		return
	}
	u, err := h.Users.GetByID(ctx, scope.UserID)
	if err != nil {
		httpjson.Error(w, h.Log, fmt.Errorf("reload user: %w", err))
		return
	}
	httpjson.Write(w, http.StatusOK, u)
}
