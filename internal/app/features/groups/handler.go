// internal/app/features/groups/handler.go
package groups

import (
	"github.com/dalemusser/groupshare/internal/app/system/auditlog"
	"github.com/dalemusser/groupshare/internal/app/system/auth"
	"github.com/dalemusser/groupshare/internal/app/system/groupadmin"
	"github.com/dalemusser/groupshare/internal/app/system/session"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the groups feature:
// creating and deleting groups and managing their members.
type Handler struct {
	Admin    *groupadmin.Admin
	Sessions *session.Manager
	Cookies  *auth.RefreshCookies
	Audit    *auditlog.Logger
	Log      *zap.Logger
}

// NewHandler constructs a new groups Handler. It is typically called
// from the bootstrap BuildHandler function.
func NewHandler(admin *groupadmin.Admin, sessions *session.Manager, cookies *auth.RefreshCookies, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Admin:    admin,
		Sessions: sessions,
		Cookies:  cookies,
		Audit:    audit,
		Log:      logger,
	}
}
