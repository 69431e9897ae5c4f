// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/groupshare/internal/app/system/auth"
	"github.com/dalemusser/groupshare/internal/app/system/mailer"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// minProdSessionKey is the shortest session key accepted in production.
const minProdSessionKey = 32

// appConfigKeys defines the configuration keys for groupshare.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_key, etc.
//   - Environment variables: GROUPSHARE_MONGO_URI, GROUPSHARE_SESSION_KEY, etc.
//   - Command-line flags: --mongo_uri, --session_key, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "groupshare", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Credentials
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Root secret for access tokens and refresh cookies (must be strong in production)"},
	{Name: "refresh_cookie_name", Default: auth.DefaultRefreshCookieName, Desc: "Refresh cookie name"},
	{Name: "session_domain", Default: "", Desc: "Refresh cookie domain (blank means current host)"},
	{Name: "access_token_ttl", Default: "15m", Desc: "Access credential lifetime"},
	{Name: "refresh_token_ttl", Default: "720h", Desc: "Refresh credential lifetime, extended on every rotation"},
	{Name: "magic_link_ttl", Default: "15m", Desc: "Magic link lifetime"},

	// Links
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL for email links"},
	{Name: "site_name", Default: "GroupShare", Desc: "Product name used in emails"},

	// Email/SMTP configuration
	{Name: "mail_mode", Default: mailer.ModeLog, Desc: "Mail delivery: 'smtp' or 'log'"},
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@groupshare.local", Desc: "From email address"},
	{Name: "mail_from_name", Default: "GroupShare", Desc: "From display name"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// CORS
	{Name: "cors_allowed_origins", Default: "http://localhost:3000", Desc: "Comma-separated browser origins allowed to call the API"},

	// Refresh session cleanup
	{Name: "session_cleanup_interval", Default: "1h", Desc: "How often rotated/revoked refresh sessions are purged"},
	{Name: "session_retention", Default: "168h", Desc: "How long rotated/revoked refresh sessions are kept"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, GROUPSHARE_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "GROUPSHARE", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:        appValues.String("session_key"),
		RefreshCookieName: appValues.String("refresh_cookie_name"),
		SessionDomain:     appValues.String("session_domain"),
		AccessTokenTTL:    appValues.Duration("access_token_ttl", 15*time.Minute),
		RefreshTokenTTL:   appValues.Duration("refresh_token_ttl", 720*time.Hour),
		MagicLinkTTL:      appValues.Duration("magic_link_ttl", 15*time.Minute),

		BaseURL:  appValues.String("base_url"),
		SiteName: appValues.String("site_name"),

		MailMode:     appValues.String("mail_mode"),
		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		CORSAllowedOrigins: splitList(appValues.String("cors_allowed_origins")),

		SessionCleanupInterval: appValues.Duration("session_cleanup_interval", time.Hour),
		SessionRetention:       appValues.Duration("session_retention", 7*24*time.Hour),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateApp(coreCfg.Env == "prod", appCfg)
}

// validateApp checks the settings that do not depend on WAFFLE core.
func validateApp(prod bool, appCfg AppConfig) error {
	if strings.TrimSpace(appCfg.SessionKey) == "" {
		return fmt.Errorf("session_key is required")
	}
	if prod && len(appCfg.SessionKey) < minProdSessionKey {
		return fmt.Errorf("session_key must be at least %d characters in prod", minProdSessionKey)
	}

	u, err := url.Parse(appCfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute URL, got %q", appCfg.BaseURL)
	}

	switch appCfg.MailMode {
	case mailer.ModeSMTP:
		if appCfg.MailSMTPHost == "" || appCfg.MailFrom == "" {
			return fmt.Errorf("mail_mode=smtp requires mail_smtp_host and mail_from")
		}
	case mailer.ModeLog:
		if prod {
			return fmt.Errorf("mail_mode=log prints magic links to the log and is not allowed in prod")
		}
	default:
		return fmt.Errorf("mail_mode must be 'smtp' or 'log', got %q", appCfg.MailMode)
	}

	for key, v := range map[string]string{
		"audit_log_auth":  appCfg.AuditLogAuth,
		"audit_log_admin": appCfg.AuditLogAdmin,
	} {
		switch v {
		case "all", "db", "log", "off":
		default:
			return fmt.Errorf("%s must be one of all, db, log, off; got %q", key, v)
		}
	}

	for key, d := range map[string]time.Duration{
		"access_token_ttl":         appCfg.AccessTokenTTL,
		"refresh_token_ttl":        appCfg.RefreshTokenTTL,
		"magic_link_ttl":           appCfg.MagicLinkTTL,
		"session_cleanup_interval": appCfg.SessionCleanupInterval,
		"session_retention":        appCfg.SessionRetention,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	if appCfg.AccessTokenTTL >= appCfg.RefreshTokenTTL {
		return fmt.Errorf("access_token_ttl must be shorter than refresh_token_ttl")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
