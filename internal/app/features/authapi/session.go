// internal/app/features/authapi/session.go
package authapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dalemusser/groupshare/internal/app/system/apperr"
	"github.com/dalemusser/groupshare/internal/app/system/auth"
	"github.com/dalemusser/groupshare/internal/app/system/httpjson"
	"github.com/dalemusser/groupshare/internal/app/system/session"
	"github.com/dalemusser/groupshare/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// refreshToken returns the refresh credential from the cookie, falling back
// to the encoded cookie value in the body for clients that cannot send
// cookies. A raw credential in the body is never accepted.
func (h *Handler) refreshToken(r *http.Request, body string) string {
	if tok, ok := h.Cookies.Read(r); ok {
		return tok
	}
	tok, _ := h.Cookies.Decode(body)
	return tok
}

// issue writes the rotated refresh cookie and the access credential.
func (h *Handler) issue(w http.ResponseWriter, r *http.Request, creds session.Credentials, body any) {
	if err := h.Cookies.Write(w, r, creds.RefreshToken); err != nil {
		httpjson.Error(w, h.Log, fmt.Errorf("write refresh cookie: %w", err))
		return
	}
	httpjson.Write(w, http.StatusOK, body)
}

// refreshFailed reports a refresh-cookie failure. A dead credential is
// cleared so the client stops presenting it.
func (h *Handler) refreshFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, apperr.ErrInvalidRefresh) {
		h.Audit.RefreshRejected(r.Context(), r, apperr.ErrInvalidRefresh.Code)
		if cerr := h.Cookies.Clear(w, r); cerr != nil {
			h.Log.Warn("clear refresh cookie failed", zap.Error(cerr))
		}
	}
	httpjson.Error(w, h.Log, err)
}

// HandleRefresh handles POST /auth/refresh. The presented credential is
// rotated and a new access credential minted for the session's active group
// with the role as stored now.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "refresh")
	defer cancel()

	creds, err := h.Sessions.Refresh(ctx, h.refreshToken(r, req.RefreshToken))
	if err != nil {
		h.refreshFailed(w, r, err)
		return
	}
	h.issue(w, r, creds, credentials(creds))
}

// HandleSwitchGroup handles POST /auth/switch-group.
func (h *Handler) HandleSwitchGroup(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.ScopeFrom(r)
	if !ok {
		httpjson.Error(w, h.Log, apperr.ErrUnauthenticated)
		return
	}
	var req switchGroupRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	target, err := primitive.ObjectIDFromHex(req.GroupID)
	if err != nil {
		httpjson.Error(w, h.Log, apperr.ErrNotAMember)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "switch group")
	defer cancel()

	raw, _ := h.Cookies.Read(r)
	creds, err := h.Sessions.SwitchGroup(ctx, scope, raw, target)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	h.Audit.GroupSwitched(ctx, r, scope.UserID, scope.GroupID, target)
	h.issue(w, r, creds, credentials(creds))
}

// HandleSelectGroup handles POST /auth/select-group for a caller holding
// only the refresh cookie.
func (h *Handler) HandleSelectGroup(w http.ResponseWriter, r *http.Request) {
	var req selectGroupRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		httpjson.Error(w, h.Log, fmt.Errorf("user id %q: %w", req.UserID, apperr.ErrBadRequest))
		return
	}
	groupID, err := primitive.ObjectIDFromHex(req.GroupID)
	if err != nil {
		httpjson.Error(w, h.Log, apperr.ErrNotAMember)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "select group")
	defer cancel()

	raw, _ := h.Cookies.Read(r)
	creds, err := h.Sessions.SelectGroup(ctx, raw, userID, groupID)
	if err != nil {
		h.refreshFailed(w, r, err)
		return
	}

	h.Audit.GroupSelected(ctx, r, userID, groupID)
	h.issue(w, r, creds, credentials(creds))
}

// HandleResolve handles POST /auth/resolve: the landing state for the
// holder of the refresh cookie, as after sign-in. A single group is
// selected automatically.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "resolve landing")
	defer cancel()

	raw, _ := h.Cookies.Read(r)
	creds, l, err := h.Sessions.Resolve(ctx, raw)
	if err != nil {
		h.refreshFailed(w, r, err)
		return
	}

	resp := landing(creds, l, nil)
	if u, err := h.Users.GetByID(ctx, creds.UserID); err == nil {
		resp.User = &u
	}
	h.issue(w, r, creds, resp)
}

// HandleLogout handles POST /auth/logout. The refresh credential is revoked
// and its cookie cleared; outstanding access credentials lapse on their own.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.ScopeFrom(r)
	if !ok {
		httpjson.Error(w, h.Log, apperr.ErrUnauthenticated)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "logout")
	defer cancel()

	raw, _ := h.Cookies.Read(r)
	if err := h.Sessions.Logout(ctx, raw); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if err := h.Cookies.Clear(w, r); err != nil {
		h.Log.Warn("clear refresh cookie failed", zap.Error(err))
	}

	h.Audit.Logout(ctx, r, &scope.UserID)
	httpjson.Write(w, http.StatusOK, okResponse{OK: true})
}
