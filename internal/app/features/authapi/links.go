// internal/app/features/authapi/links.go
package authapi

import (
	"fmt"
	"net/http"

	"github.com/dalemusser/groupshare/internal/app/system/apperr"
	"github.com/dalemusser/groupshare/internal/app/system/auth"
	"github.com/dalemusser/groupshare/internal/app/system/httpjson"
	"github.com/dalemusser/groupshare/internal/app/system/magiclink"
	"github.com/dalemusser/groupshare/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// HandleSendLoginLink handles POST /auth/send-login-link.
//
// The response is {"ok":true} whether or not a link was sent, so the
// endpoint cannot be used to discover who belongs to a group.
func (h *Handler) HandleSendLoginLink(w http.ResponseWriter, r *http.Request) {
	var req sendLoginLinkRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "send login link")
	defer cancel()

	groupID, err := primitive.ObjectIDFromHex(req.GroupID)
	if err != nil {
		h.Audit.LoginLinkRefused(ctx, r, primitive.NilObjectID, req.Email, "bad_group_id")
		httpjson.Write(w, http.StatusOK, okResponse{OK: true})
		return
	}

	issued, err := h.Issuer.IssueLogin(ctx, groupID, req.Email)
	if err != nil {
		reason := apperr.From(err).Code
		if !apperr.Classified(err) {
			h.Log.Error("send login link failed", zap.String("group_id", groupID.Hex()), zap.Error(err))
		}
		h.Audit.LoginLinkRefused(ctx, r, groupID, req.Email, reason)
		httpjson.Write(w, http.StatusOK, okResponse{OK: true})
		return
	}

	h.Audit.LoginLinkSent(ctx, r, issued.UserID, groupID)
	httpjson.Write(w, http.StatusOK, okResponse{OK: true})
}

// HandleSendInvite handles POST /auth/send-invite into the caller's active
// group.
func (h *Handler) HandleSendInvite(w http.ResponseWriter, r *http.Request) {
	scope, ok := auth.ScopeFrom(r)
	if !ok {
		httpjson.Error(w, h.Log, apperr.ErrUnauthenticated)
		return
	}
	var req sendInviteRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "send invite")
	defer cancel()

	issued, err := h.Issuer.IssueInvite(ctx, scope, req.Email, req.Role, req.Name)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	h.Audit.InviteSent(ctx, r, scope.UserID, scope.GroupID, issued.Email, req.Role)
	httpjson.Write(w, http.StatusOK, inviteResponse{OK: true, Email: issued.Email, ExpiresAt: issued.ExpiresAt})
}

// HandleVerify handles POST /auth/verify-magic-link.
//
// An invite for a new identity without a name answers {"needsName":true}
// and leaves the token usable; the client asks for a name and resubmits.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "verify magic link")
	defer cancel()

	out, err := h.Verifier.Verify(ctx, req.Token, req.Name)
	if err != nil {
		h.Audit.MagicLinkRejected(ctx, r, apperr.From(err).Code)
		httpjson.Error(w, h.Log, err)
		return
	}

	if out.Kind == magiclink.OutcomeNeedsName {
		httpjson.Write(w, http.StatusOK, needsNameResponse{NeedsName: true, Email: out.Email})
		return
	}

	if err := h.Cookies.Write(w, r, out.Credentials.RefreshToken); err != nil {
		httpjson.Error(w, h.Log, fmt.Errorf("write refresh cookie: %w", err))
		return
	}

	h.Audit.MagicLinkUsed(ctx, r, out.User.ID, out.GroupID, out.TokenType, out.Kind == magiclink.OutcomeUserCreated)
	if out.MembershipCreated {
		role := ""
		if out.Landing.Current != nil && out.Landing.Current.GroupID == out.GroupID {
			role = out.Landing.Current.Role.MembershipRole()
		}
		h.Audit.MemberAddedToGroup(ctx, r, out.User.ID, out.GroupID, role)
	}

	resp := landing(out.Credentials, out.Landing, &out.User)
	resp.Outcome = out.Kind.String()
	httpjson.Write(w, http.StatusOK, resp)
}
