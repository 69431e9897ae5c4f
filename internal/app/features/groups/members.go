// internal/app/features/groups/members.go
package groups

import (
	"errors"
	"net/http"

	"github.com/dalemusser/groupshare/internal/app/system/apperr"
	"github.com/dalemusser/groupshare/internal/app/system/auth"
	"github.com/dalemusser/groupshare/internal/app/system/httpjson"
	"github.com/dalemusser/groupshare/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeMembers handles GET /groups/{groupID}/members.
func (h *Handler) ServeMembers(w http.ResponseWriter, r *http.Request) {
	scope, groupID, ok := h.target(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list members")
	defer cancel()

	members, err := h.Admin.ListMembers(ctx, scope, groupID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, membersResponse{Members: members})
}

// HandleChangeRole handles PUT /groups/{groupID}/members/{userID}/role.
func (h *Handler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	scope, groupID, ok := h.target(w, r)
	if !ok {
		return
	}
	userID, ok := h.memberParam(w, r)
	if !ok {
		return
	}
	var req changeRoleRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "change role")
	defer cancel()

	if err := h.Admin.ChangeRole(ctx, scope, groupID, userID, req.Role); err != nil {
		h.refused(r, scope, userID, err)
		httpjson.Error(w, h.Log, err)
		return
	}
	h.Audit.MemberRoleChanged(ctx, r, scope.UserID, userID, groupID, req.Role)
	httpjson.Write(w, http.StatusOK, okResponse{OK: true})
}

// HandleRemoveMember handles DELETE /groups/{groupID}/members/{userID}.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	scope, groupID, ok := h.target(w, r)
	if !ok {
		return
	}
	userID, ok := h.memberParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "remove member")
	defer cancel()

	if err := h.Admin.RemoveMember(ctx, scope, groupID, userID); err != nil {
		h.refused(r, scope, userID, err)
		httpjson.Error(w, h.Log, err)
		return
	}
	h.Audit.MemberRemovedFromGroup(ctx, r, scope.UserID, userID, groupID)
	httpjson.Write(w, http.StatusOK, okResponse{OK: true})
}

// HandlePreferences handles PUT /groups/{groupID}/preferences for the
// caller's own membership.
func (h *Handler) HandlePreferences(w http.ResponseWriter, r *http.Request) {
	scope, groupID, ok := h.target(w, r)
	if !ok {
		return
	}
	var req preferencesRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if req.CommentsEnabled == nil {
		httpjson.Error(w, h.Log, apperr.ErrBadRequest)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update preferences")
	defer cancel()

	if err := h.Admin.SetCommentsEnabled(ctx, scope, groupID, *req.CommentsEnabled); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, okResponse{OK: true})
}

// target returns the caller's scope and the {groupID} path value.
// RequireGroupParam has already matched them.
func (h *Handler) target(w http.ResponseWriter, r *http.Request) (auth.Scope, primitive.ObjectID, bool) {
	scope, ok := auth.ScopeFrom(r)
	if !ok {
		httpjson.Error(w, h.Log, apperr.ErrUnauthenticated)
		return auth.Scope{}, primitive.NilObjectID, false
	}
	groupID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "groupID"))
	if err != nil {
		httpjson.Error(w, h.Log, apperr.ErrNotFound)
		return auth.Scope{}, primitive.NilObjectID, false
	}
	return scope, groupID, true
}

func (h *Handler) memberParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		httpjson.Error(w, h.Log, apperr.ErrNotFound)
		return primitive.NilObjectID, false
	}
	return id, true
}

// refused records admin changes rejected by a group invariant.
func (h *Handler) refused(r *http.Request, scope auth.Scope, target primitive.ObjectID, err error) {
	switch {
	case errors.Is(err, apperr.ErrLastAdminProtection),
		errors.Is(err, apperr.ErrCannotModifyOwner),
		errors.Is(err, apperr.ErrMembershipChanged):
		h.Audit.AdminChangeRefused(r.Context(), r, scope.UserID, target, scope.GroupID, apperr.From(err).Code)
	}
}
