// internal/app/features/groups/create.go
package groups

import (
	"fmt"
	"net/http"

	"github.com/dalemusser/groupshare/internal/app/system/httpjson"
	"github.com/dalemusser/groupshare/internal/app/system/timeouts"
)

// HandleCreateGroup handles POST /groups. The caller, identified by the
// refresh cookie, becomes owner and is switched into the new group.
func (h *Handler) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create group")
	defer cancel()

	raw, _ := h.Cookies.Read(r)
	userID, err := h.Sessions.Identify(ctx, raw)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	g, err := h.Admin.CreateGroup(ctx, userID, req.Name)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	h.Audit.GroupCreated(ctx, r, userID, g.ID, g.Name)

	creds, err := h.Sessions.SelectGroup(ctx, raw, userID, g.ID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if err := h.Cookies.Write(w, r, creds.RefreshToken); err != nil {
		httpjson.Error(w, h.Log, fmt.Errorf("write refresh cookie: %w", err))
		return
	}

	httpjson.Write(w, http.StatusCreated, createGroupResponse{
		Group:           g,
		AccessToken:     creds.AccessToken,
		AccessExpiresAt: creds.AccessExpiresAt,
		CurrentGroup:    creds.Group,
	})
}
