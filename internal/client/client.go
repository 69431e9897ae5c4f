// Package client is a Go client for the groupshare API. It holds the
// session in an explicit SessionStore, sends the access credential on every
// call, and exchanges the refresh cookie once when a call answers 401.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultCookieName matches the server's default refresh cookie name.
const DefaultCookieName = "groupshare-refresh"

// MaxResponseSize bounds how much of a response body is read.
const MaxResponseSize = 1 << 20

var (
	// ErrNotSignedIn means the store holds no session.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrSessionExpired means the refresh credential was rejected and the
	// stored session has been cleared. Sign in again with a magic link.
	ErrSessionExpired = errors.New("session expired; request a new sign-in link")
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("groupshare: %d %s: %s", e.Status, e.Code, e.Message)
}

// IsCode reports whether err is an APIError with the given code.
func IsCode(err error, code string) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Code == code
}

// Client talks to one groupshare server.
type Client struct {
	baseURL    *url.URL
	http       *http.Client
	store      SessionStore
	cookieName string
	log        *zap.Logger

	// refreshMu serializes refresh exchanges; a rotated cookie is single use.
	refreshMu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithCookieName(name string) Option {
	return func(c *Client) { c.cookieName = name }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New returns a Client for baseURL that keeps its session in store.
func New(baseURL string, store SessionStore, opts ...Option) (*Client, error) {
	if store == nil {
		return nil, errors.New("client: session store is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("client: base URL must be absolute, got %q", baseURL)
	}
	c := &Client{
		baseURL:    u,
		http:       &http.Client{Timeout: 15 * time.Second},
		store:      store,
		cookieName: DefaultCookieName,
		log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Session returns the stored session.
func (c *Client) Session() (Session, error) {
	s, err := c.store.Get()
	if errors.Is(err, ErrNoSession) {
		return Session{}, ErrNotSignedIn
	}
	return s, err
}

// Do performs an authenticated JSON call. in may be nil; out, when non-nil,
// receives the decoded 2xx body. A 401 triggers one refresh and one retry.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	sess, err := c.Session()
	if err != nil {
		return err
	}
	if sess.AccessToken == "" {
		if err := c.refreshAfter(ctx, ""); err != nil {
			return err
		}
	}

	resp, used, err := c.roundTrip(ctx, method, path, in, true)
	if err != nil {
		return err
	}
	if resp.status == http.StatusUnauthorized {
		c.log.Debug("access credential rejected; refreshing", zap.String("path", path))
		if err := c.refreshAfter(ctx, used); err != nil {
			return err
		}
		if resp, _, err = c.roundTrip(ctx, method, path, in, true); err != nil {
			return err
		}
	}
	return resp.decode(out)
}

// roundTrip sends one request with the stored refresh cookie and, when
// withBearer is set, the stored access credential, which it also returns.
// A refresh cookie set or expired by the server is persisted.
func (c *Client) roundTrip(ctx context.Context, method, path string, in any, withBearer bool) (response, string, error) {
	sess, err := c.store.Get()
	if err != nil && !errors.Is(err, ErrNoSession) {
		return response{}, "", err
	}
	bearer := ""
	if withBearer {
		bearer = sess.AccessToken
	}

	resp, err := c.send(ctx, method, path, in, bearer, sess.RefreshCookie)
	if err != nil {
		return response{}, bearer, err
	}
	switch {
	case resp.cleared:
		if err := c.store.Clear(); err != nil {
			return response{}, bearer, err
		}
	case resp.cookie != "":
		if err := c.update(func(s *Session) { s.RefreshCookie = resp.cookie }); err != nil {
			return response{}, bearer, err
		}
	}
	return resp, bearer, nil
}

// update applies fn to the stored session, starting from an empty one.
func (c *Client) update(fn func(*Session)) error {
	s, err := c.store.Get()
	if err != nil && !errors.Is(err, ErrNoSession) {
		return err
	}
	fn(&s)
	return c.store.Set(s)
}

type response struct {
	status int
	body   []byte
	// cookie is the refresh cookie the server set; cleared means it
	// expired the cookie instead.
	cookie  string
	cleared bool
}

func (r response) decode(out any) error {
	if r.status >= 400 {
		var body struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(r.body, &body)
		if body.Error == "" {
			body.Error = strings.ToLower(strings.ReplaceAll(http.StatusText(r.status), " ", "_"))
		}
		return &APIError{Status: r.status, Code: body.Error, Message: body.Message}
	}
	if out == nil || len(r.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// send performs one request. bearer and cookie are attached when non-empty.
func (c *Client) send(ctx context.Context, method, path string, in any, bearer, cookie string) (response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return response{}, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: c.cookieName, Value: cookie})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return response{}, fmt.Errorf("read response: %w", err)
	}

	out := response{status: resp.StatusCode, body: data}
	for _, ck := range resp.Cookies() {
		if ck.Name != c.cookieName {
			continue
		}
		if ck.MaxAge < 0 || ck.Value == "" {
			out.cleared = true
		} else {
			out.cookie = ck.Value
		}
	}
	return out, nil
}
