// internal/app/features/groups/delete.go
package groups

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/dalemusser/groupshare/internal/app/system/httpjson"
	"github.com/dalemusser/groupshare/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// HandleDeleteGroup handles DELETE /groups/{groupID}. After the cascade the
// caller's session is resolved again, so the response says where they land.
func (h *Handler) HandleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	scope, groupID, ok := h.target(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete group")
	defer cancel()

	res, err := h.Admin.DeleteGroup(ctx, scope, groupID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	h.Audit.GroupDeleted(ctx, r, scope.UserID, groupID, map[string]string{
		"memberships": strconv.FormatInt(res.Memberships, 10),
		"magic_links": strconv.FormatInt(res.MagicLinks, 10),
		"photos":      strconv.FormatInt(res.Photos, 10),
	})

	resp := deleteGroupResponse{Deleted: res}
	raw, ok := h.Cookies.Read(r)
	if !ok {
		httpjson.Write(w, http.StatusOK, resp)
		return
	}
	creds, l, err := h.Sessions.Resolve(ctx, raw)
	if err != nil {
		h.Log.Info("no landing after group delete", zap.String("group_id", groupID.Hex()), zap.Error(err))
		httpjson.Write(w, http.StatusOK, resp)
		return
	}
	if err := h.Cookies.Write(w, r, creds.RefreshToken); err != nil {
		httpjson.Error(w, h.Log, fmt.Errorf("write refresh cookie: %w", err))
		return
	}

	resp.AccessToken = creds.AccessToken
	resp.CurrentGroup = creds.Group
	resp.Groups = l.Groups
	resp.NeedsGroupSelection = l.NeedsGroupSelection
	resp.State = l.State
	httpjson.Write(w, http.StatusOK, resp)
}
