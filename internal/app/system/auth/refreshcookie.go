// internal/app/system/auth/refreshcookie.go
package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// DefaultRefreshCookieName is used when no name is configured.
const DefaultRefreshCookieName = "groupshare-refresh"

const refreshTokenKey = "refresh_token"

// RefreshCookies carries the refresh credential in an encrypted, HTTP-only
// cookie. The credential is never written to a response body.
type RefreshCookies struct {
	store *sessions.CookieStore
	name  string
	log   *zap.Logger
}

// NewRefreshCookies creates the cookie codec. The `secure` flag controls
// whether cookies are marked Secure and which SameSite mode is used.
//
// In production (secure=true), cookies are Secure + SameSite=None so the
// browser client can call the API cross-site over HTTPS.
// In local dev over http://localhost, use secure=false so cookies are accepted.
func NewRefreshCookies(hashKey, blockKey []byte, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) *RefreshCookies {
	if name == "" {
		name = DefaultRefreshCookieName
	}
	store := sessions.NewCookieStore(hashKey, blockKey)
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts
	store.MaxAge(opts.MaxAge)

	logger.Info("refresh cookie store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &RefreshCookies{store: store, name: name, log: logger}
}

// Read returns the refresh credential carried by r. A missing, tampered or
// undecodable cookie reads as absent.
func (c *RefreshCookies) Read(r *http.Request) (string, bool) {
	sess, err := c.store.Get(r, c.name)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			c.log.Debug("refresh cookie could not be decoded", zap.Error(err))
		} else {
			c.log.Warn("refresh cookie read failed", zap.Error(err))
		}
		return "", false
	}
	tok, _ := sess.Values[refreshTokenKey].(string)
	return tok, tok != ""
}

// Decode returns the refresh credential carried by an encoded cookie value,
// as held by clients that replay the cookie outside a browser.
func (c *RefreshCookies) Decode(value string) (string, bool) {
	if value == "" {
		return "", false
	}
	values := make(map[interface{}]interface{})
	if err := securecookie.DecodeMulti(c.name, value, &values, c.store.Codecs...); err != nil {
		c.log.Debug("refresh value could not be decoded", zap.Error(err))
		return "", false
	}
	tok, _ := values[refreshTokenKey].(string)
	return tok, tok != ""
}

// Write stores token in the refresh cookie.
func (c *RefreshCookies) Write(w http.ResponseWriter, r *http.Request, token string) error {
	sess, _ := c.store.Get(r, c.name)
	sess.Values[refreshTokenKey] = token
	return sess.Save(r, w)
}

// Clear expires the refresh cookie.
func (c *RefreshCookies) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, _ := c.store.Get(r, c.name)
	opts := *c.store.Options
	opts.MaxAge = -1
	sess.Options = &opts
	delete(sess.Values, refreshTokenKey)
	return sess.Save(r, w)
}
