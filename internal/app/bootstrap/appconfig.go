// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like HTTP ports,
// TLS, logging level and the environment name ("dev", "prod").
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Credentials. SessionKey is the root secret; the JWT key and the
	// refresh cookie keys are derived from it.
	SessionKey        string
	RefreshCookieName string // default: groupshare-refresh
	SessionDomain     string // cookie domain (blank means current host)
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	MagicLinkTTL      time.Duration

	// Base URL for magic links, e.g. "https://groupshare.example.com"
	BaseURL  string
	SiteName string

	// Email/SMTP configuration
	MailMode     string // "smtp" or "log"
	MailSMTPHost string // SMTP server host (e.g., localhost for Mailpit)
	MailSMTPPort int    // SMTP server port (e.g., 1025 for Mailpit, 587 for SES)
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string // From email address (e.g., noreply@groupshare.example.com)
	MailFromName string

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAuth  string
	AuditLogAdmin string

	// Browser origins allowed to call the API with credentials.
	CORSAllowedOrigins []string

	// Refresh session cleanup worker
	SessionCleanupInterval time.Duration
	SessionRetention       time.Duration
}
