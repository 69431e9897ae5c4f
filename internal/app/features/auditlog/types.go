// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/dalemusser/groupshare/internal/app/store/audit"
)

// listItem is one audit event with user IDs resolved to names.
type listItem struct {
	ID         string            `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	Category   string            `json:"category"`
	EventType  string            `json:"eventType"`
	ActorName  string            `json:"actorName,omitempty"`  // resolved from ActorID
	TargetName string            `json:"targetName,omitempty"` // resolved from UserID
	Success    bool              `json:"success"`
	Reason     string            `json:"reason,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
}

type listResponse struct {
	Items      []listItem `json:"items"`
	Page       int        `json:"page"`
	TotalPages int        `json:"totalPages"`
	Total      int64      `json:"total"`
}

// eventTypesForCategory returns the event types for a given category.
// If category is empty, returns all event types.
func eventTypesForCategory(category string) []string {
	authEvents := []string{
		audit.EventLoginLinkSent,
		audit.EventLoginLinkRefused,
		audit.EventInviteSent,
		audit.EventMagicLinkUsed,
		audit.EventMagicLinkRejected,
		audit.EventRefreshRejected,
		audit.EventGroupSwitched,
		audit.EventGroupSelected,
		audit.EventLogout,
	}

	adminEvents := []string{
		audit.EventGroupCreated,
		audit.EventGroupDeleted,
		audit.EventMemberAddedToGroup,
		audit.EventMemberRoleChanged,
		audit.EventMemberRemovedFromGroup,
		audit.EventAdminChangeRefused,
	}

	switch category {
	case audit.CategoryAuth:
		return authEvents
	case audit.CategoryAdmin:
		return adminEvents
	case "":
		all := make([]string, 0, len(authEvents)+len(adminEvents))
		all = append(all, authEvents...)
		all = append(all, adminEvents...)
		return all
	default:
		return nil
	}
}

func knownEventType(category, eventType string) bool {
	for _, e := range eventTypesForCategory(category) {
		if e == eventType {
			return true
		}
	}
	return false
}
