package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// User is the signed-in identity.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	ProfileColor string `json:"profileColor,omitempty"`
}

// Landing is where a sign-in, resolve or group deletion leaves the user.
type Landing struct {
	// NeedsName is set when an invite for a new identity needs a display
	// name. Call Verify again with the same token and a name.
	NeedsName bool
	Email     string

	User                *User
	Group               *Group
	Groups              []Group
	NeedsGroupSelection bool
	State               string
	Outcome             string
}

// Me is the current user with their groups.
type Me struct {
	User         User    `json:"user"`
	CurrentGroup Group   `json:"currentGroup"`
	Groups       []Group `json:"groups"`
}

type credentialsBody struct {
	AccessToken     string     `json:"accessToken"`
	AccessExpiresAt *time.Time `json:"accessExpiresAt"`
	CurrentGroup    *Group     `json:"currentGroup"`
}

type landingBody struct {
	credentialsBody
	User                *User   `json:"user"`
	Groups              []Group `json:"groups"`
	NeedsGroupSelection bool    `json:"needsGroupSelection"`
	State               string  `json:"state"`
	Outcome             string  `json:"outcome"`
	NeedsName           bool    `json:"needsName"`
	Email               string  `json:"email"`
}

// apply copies credentials into s. A response without an access credential
// leaves the session without an active group.
func (b credentialsBody) apply(s *Session) {
	s.AccessToken = b.AccessToken
	s.AccessExpiresAt = time.Time{}
	if b.AccessExpiresAt != nil {
		s.AccessExpiresAt = *b.AccessExpiresAt
	}
	s.Group = b.CurrentGroup
}

func (b landingBody) landing() Landing {
	return Landing{
		NeedsName:           b.NeedsName,
		Email:               b.Email,
		User:                b.User,
		Group:               b.CurrentGroup,
		Groups:              b.Groups,
		NeedsGroupSelection: b.NeedsGroupSelection,
		State:               b.State,
		Outcome:             b.Outcome,
	}
}

// SendLoginLink asks the server to email a sign-in link for the group. The
// server answers the same way whether or not the membership exists.
func (c *Client) SendLoginLink(ctx context.Context, groupID, email string) error {
	resp, err := c.send(ctx, http.MethodPost, "/auth/send-login-link",
		map[string]string{"groupId": groupID, "email": email}, "", "")
	if err != nil {
		return err
	}
	return resp.decode(nil)
}

// SendInvite emails an invite into the active group and returns when the
// link expires.
func (c *Client) SendInvite(ctx context.Context, email, role, name string) (time.Time, error) {
	var out struct {
		ExpiresAt time.Time `json:"expiresAt"`
	}
	err := c.Do(ctx, http.MethodPost, "/auth/send-invite",
		map[string]string{"email": email, "role": role, "name": name}, &out)
	return out.ExpiresAt, err
}

// Verify redeems a magic-link token and stores the resulting session.
func (c *Client) Verify(ctx context.Context, token, name string) (Landing, error) {
	resp, err := c.send(ctx, http.MethodPost, "/auth/verify-magic-link",
		map[string]string{"token": token, "name": name}, "", "")
	if err != nil {
		return Landing{}, err
	}
	var body landingBody
	if err := resp.decode(&body); err != nil {
		return Landing{}, err
	}
	if body.NeedsName {
		return body.landing(), nil
	}
	if resp.cookie == "" {
		return Landing{}, errors.New("verify: server set no refresh cookie")
	}

	s := Session{RefreshCookie: resp.cookie}
	if body.User != nil {
		s.UserID = body.User.ID
	}
	body.credentialsBody.apply(&s)
	if err := c.store.Set(s); err != nil {
		return Landing{}, fmt.Errorf("store session: %w", err)
	}
	return body.landing(), nil
}

// Refresh exchanges the refresh cookie for a new access credential.
func (c *Client) Refresh(ctx context.Context) error {
	return c.refreshAfter(ctx, "")
}

// refreshAfter refreshes unless another caller already replaced the access
// credential that failed. An empty failed forces the exchange.
func (c *Client) refreshAfter(ctx context.Context, failed string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	sess, err := c.Session()
	if err != nil {
		return err
	}
	if failed != "" && sess.AccessToken != "" && sess.AccessToken != failed {
		return nil
	}
	if sess.RefreshCookie == "" {
		return ErrNotSignedIn
	}

	resp, _, err := c.roundTrip(ctx, http.MethodPost, "/auth/refresh", nil, false)
	if err != nil {
		return err
	}
	var body credentialsBody
	if err := resp.decode(&body); err != nil {
		if resp.status == http.StatusUnauthorized {
			_ = c.store.Clear()
			return fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		// Removed from the active group: the credential still works for
		// SelectGroup, but no access credential is held.
		_ = c.update(func(s *Session) { credentialsBody{}.apply(s) })
		return err
	}
	return c.update(body.apply)
}

// SwitchGroup moves the session to another group the user belongs to.
func (c *Client) SwitchGroup(ctx context.Context, groupID string) error {
	var body credentialsBody
	if err := c.Do(ctx, http.MethodPost, "/auth/switch-group", map[string]string{"groupId": groupID}, &body); err != nil {
		return err
	}
	return c.update(body.apply)
}

// SelectGroup picks the active group using only the refresh cookie, for a
// session that has none or lost it.
func (c *Client) SelectGroup(ctx context.Context, groupID string) error {
	sess, err := c.Session()
	if err != nil {
		return err
	}
	resp, _, err := c.roundTrip(ctx, http.MethodPost, "/auth/select-group",
		map[string]string{"userId": sess.UserID, "groupId": groupID}, false)
	if err != nil {
		return err
	}
	var body credentialsBody
	if err := resp.decode(&body); err != nil {
		return err
	}
	return c.update(body.apply)
}

// Resolve asks where the session should land now, auto-selecting when the
// user belongs to exactly one group.
func (c *Client) Resolve(ctx context.Context) (Landing, error) {
	if _, err := c.Session(); err != nil {
		return Landing{}, err
	}
	resp, _, err := c.roundTrip(ctx, http.MethodPost, "/auth/resolve", nil, false)
	if err != nil {
		return Landing{}, err
	}
	var body landingBody
	if err := resp.decode(&body); err != nil {
		return Landing{}, err
	}
	if err := c.update(body.credentialsBody.apply); err != nil {
		return Landing{}, err
	}
	return body.landing(), nil
}

// CreateGroup creates a group owned by the signed-in user and makes it the
// active group.
func (c *Client) CreateGroup(ctx context.Context, name string) (Group, error) {
	if _, err := c.Session(); err != nil {
		return Group{}, err
	}
	resp, _, err := c.roundTrip(ctx, http.MethodPost, "/groups", map[string]string{"name": name}, false)
	if err != nil {
		return Group{}, err
	}
	var body credentialsBody
	if err := resp.decode(&body); err != nil {
		return Group{}, err
	}
	if err := c.update(body.apply); err != nil {
		return Group{}, err
	}
	if body.CurrentGroup == nil {
		return Group{}, errors.New("create group: no current group in response")
	}
	return *body.CurrentGroup, nil
}

// Me returns the signed-in user and their groups.
func (c *Client) Me(ctx context.Context) (Me, error) {
	var out Me
	err := c.Do(ctx, http.MethodGet, "/auth/me", nil, &out)
	return out, err
}

// Logout revokes the refresh credential on the server and clears the
// store. The store is cleared even when the server cannot be reached.
func (c *Client) Logout(ctx context.Context) error {
	sess, err := c.Session()
	if errors.Is(err, ErrNotSignedIn) {
		return nil
	}
	if err != nil {
		return err
	}
	resp, err := c.send(ctx, http.MethodPost, "/auth/logout", nil, sess.AccessToken, sess.RefreshCookie)
	if cerr := c.store.Clear(); cerr != nil {
		return cerr
	}
	if err != nil {
		return err
	}
	if resp.status == http.StatusUnauthorized {
		return nil
	}
	return resp.decode(nil)
}
