// internal/app/features/authapi/handler.go
package authapi

import (
	userstore "github.com/dalemusser/groupshare/internal/app/store/users"
	"github.com/dalemusser/groupshare/internal/app/system/auditlog"
	"github.com/dalemusser/groupshare/internal/app/system/auth"
	"github.com/dalemusser/groupshare/internal/app/system/magiclink"
	"github.com/dalemusser/groupshare/internal/app/system/session"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the /auth endpoints: magic links, the refresh cycle,
// group selection and the signed-in user's profile.
type Handler struct {
	Issuer   *magiclink.Issuer
	Verifier *magiclink.Verifier
	Sessions *session.Manager
	Dir      session.Directory
	Users    *userstore.Store
	Cookies  *auth.RefreshCookies
	Audit    *auditlog.Logger
	Log      *zap.Logger
}

// NewHandler constructs the auth API handler. It is called from bootstrap
// once the services it fronts are built.
func NewHandler(db *mongo.Database, issuer *magiclink.Issuer, verifier *magiclink.Verifier, sessions *session.Manager, dir session.Directory, cookies *auth.RefreshCookies, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Issuer:   issuer,
		Verifier: verifier,
		Sessions: sessions,
		Dir:      dir,
		Users:    userstore.New(db),
		Cookies:  cookies,
		Audit:    audit,
		Log:      logger,
	}
}
