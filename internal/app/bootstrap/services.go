// internal/app/bootstrap/services.go
package bootstrap

import (
	"fmt"

	"github.com/dalemusser/groupshare/internal/app/store/audit"
	"github.com/dalemusser/groupshare/internal/app/store/refreshsessions"
	"github.com/dalemusser/groupshare/internal/app/system/auditlog"
	"github.com/dalemusser/groupshare/internal/app/system/auth"
	"github.com/dalemusser/groupshare/internal/app/system/groupadmin"
	"github.com/dalemusser/groupshare/internal/app/system/keys"
	"github.com/dalemusser/groupshare/internal/app/system/magiclink"
	"github.com/dalemusser/groupshare/internal/app/system/mailer"
	"github.com/dalemusser/groupshare/internal/app/system/membership"
	"github.com/dalemusser/groupshare/internal/app/system/metrics"
	"github.com/dalemusser/groupshare/internal/app/system/session"
	"github.com/dalemusser/groupshare/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Services are the long-lived components shared by the HTTP features.
type Services struct {
	Tokens    *auth.Tokens
	Guard     *auth.Guard
	Cookies   *auth.RefreshCookies
	Metrics   *metrics.Metrics
	Mail      mailer.Sender
	Directory *membership.Resolver
	Sessions  *session.Manager
	Issuer    *magiclink.Issuer
	Verifier  *magiclink.Verifier
	Admin     *groupadmin.Admin
	Audit     *auditlog.Logger
	Cleanup   *workers.RefreshCleanup
}

// buildServices wires every service from config. mail overrides the
// configured sender when non-nil.
func buildServices(appCfg AppConfig, prod bool, db *mongo.Database, mail mailer.Sender, logger *zap.Logger) (*Services, error) {
	k, err := keys.Derive(appCfg.SessionKey)
	if err != nil {
		return nil, fmt.Errorf("derive keys: %w", err)
	}

	if mail == nil {
		mail = mailer.New(mailer.Config{
			Mode:     appCfg.MailMode,
			Host:     appCfg.MailSMTPHost,
			Port:     appCfg.MailSMTPPort,
			User:     appCfg.MailSMTPUser,
			Pass:     appCfg.MailSMTPPass,
			From:     appCfg.MailFrom,
			FromName: appCfg.MailFromName,
		}, logger)
	}

	s := &Services{Mail: mail}
	s.Metrics = metrics.New()
	s.Tokens = auth.NewTokens(k.JWT, appCfg.AccessTokenTTL)
	s.Guard = auth.NewGuard(s.Tokens, logger)
	s.Cookies = auth.NewRefreshCookies(k.CookieHash, k.CookieBlock,
		appCfg.RefreshCookieName, appCfg.SessionDomain, appCfg.RefreshTokenTTL, prod, logger)
	s.Directory = membership.NewResolver(db)

	refresh := refreshsessions.New(db)
	s.Sessions = session.NewManager(s.Tokens, refresh, s.Directory, s.Metrics, logger, appCfg.RefreshTokenTTL)
	s.Issuer = magiclink.NewIssuer(db, mail, magiclink.IssuerConfig{
		BaseURL:  appCfg.BaseURL,
		SiteName: appCfg.SiteName,
		TTL:      appCfg.MagicLinkTTL,
	}, s.Metrics, logger)
	s.Verifier = magiclink.NewVerifier(db, s.Sessions, s.Directory, s.Metrics, logger)
	s.Admin = groupadmin.New(db, s.Metrics, logger)
	s.Audit = auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})
	s.Cleanup = workers.NewRefreshCleanup(refresh, s.Metrics, logger,
		appCfg.SessionCleanupInterval, appCfg.SessionRetention)
	return s, nil
}
