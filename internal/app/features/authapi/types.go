// internal/app/features/authapi/types.go
package authapi

import (
	"time"

	"github.com/dalemusser/groupshare/internal/app/system/membership"
	"github.com/dalemusser/groupshare/internal/app/system/session"
	"github.com/dalemusser/groupshare/internal/domain/models"
)

type sendLoginLinkRequest struct {
	GroupID string `json:"groupId"`
	Email   string `json:"email"`
}

type sendInviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	Name  string `json:"name"`
}

type verifyRequest struct {
	Token string `json:"token"`
	Name  string `json:"name"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type switchGroupRequest struct {
	GroupID string `json:"groupId"`
}

type selectGroupRequest struct {
	UserID  string `json:"userId"`
	GroupID string `json:"groupId"`
}

type updateMeRequest struct {
	Name         *string `json:"name"`
	ProfileColor *string `json:"profileColor"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type inviteResponse struct {
	OK        bool      `json:"ok"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type needsNameResponse struct {
	NeedsName bool   `json:"needsName"`
	Email     string `json:"email"`
}

// credentialsResponse carries the access credential only; the refresh
// credential goes in the cookie.
type credentialsResponse struct {
	AccessToken     string                   `json:"accessToken,omitempty"`
	AccessExpiresAt *time.Time               `json:"accessExpiresAt,omitempty"`
	CurrentGroup    *membership.GroupSummary `json:"currentGroup"`
}

type landingResponse struct {
	credentialsResponse
	User                *models.User              `json:"user,omitempty"`
	Groups              []membership.GroupSummary `json:"groups"`
	NeedsGroupSelection bool                      `json:"needsGroupSelection"`
	State               membership.State          `json:"state"`
	Outcome             string                    `json:"outcome,omitempty"`
}

type meResponse struct {
	User         models.User               `json:"user"`
	CurrentGroup membership.GroupSummary   `json:"currentGroup"`
	Groups       []membership.GroupSummary `json:"groups"`
}

func credentials(c session.Credentials) credentialsResponse {
	out := credentialsResponse{AccessToken: c.AccessToken, CurrentGroup: c.Group}
	if c.AccessToken != "" {
		exp := c.AccessExpiresAt
		out.AccessExpiresAt = &exp
	}
	return out
}

func landing(c session.Credentials, l membership.Landing, user *models.User) landingResponse {
	return landingResponse{
		credentialsResponse: credentials(c),
		User:                user,
		Groups:              l.Groups,
		NeedsGroupSelection: l.NeedsGroupSelection,
		State:               l.State,
	}
}
