// internal/app/features/groups/types.go
package groups

import (
	"time"

	"github.com/dalemusser/groupshare/internal/app/system/groupadmin"
	"github.com/dalemusser/groupshare/internal/app/system/membership"
	"github.com/dalemusser/groupshare/internal/domain/models"
)

type createGroupRequest struct {
	Name string `json:"name"`
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

type preferencesRequest struct {
	CommentsEnabled *bool `json:"commentsEnabled"`
}

type createGroupResponse struct {
	Group           models.Group             `json:"group"`
	AccessToken     string                   `json:"accessToken"`
	AccessExpiresAt time.Time                `json:"accessExpiresAt"`
	CurrentGroup    *membership.GroupSummary `json:"currentGroup"`
}

type membersResponse struct {
	Members []groupadmin.Member `json:"members"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// deleteGroupResponse reports what was removed and where the caller lands
// next. Landing is absent when the caller presented no refresh cookie.
type deleteGroupResponse struct {
	Deleted             groupadmin.DeleteResult   `json:"deleted"`
	AccessToken         string                    `json:"accessToken,omitempty"`
	CurrentGroup        *membership.GroupSummary  `json:"currentGroup"`
	Groups              []membership.GroupSummary `json:"groups,omitempty"`
	NeedsGroupSelection bool                      `json:"needsGroupSelection"`
	State               membership.State          `json:"state,omitempty"`
}
