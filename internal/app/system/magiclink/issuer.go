// Package magiclink issues single-use sign-in and invitation links and
// verifies them into a session.
package magiclink

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	groupstore "github.com/dalemusser/groupshare/internal/app/store/groups"
	"github.com/dalemusser/groupshare/internal/app/store/magiclinks"
	membershipstore "github.com/dalemusser/groupshare/internal/app/store/memberships"
	userstore "github.com/dalemusser/groupshare/internal/app/store/users"
	"github.com/dalemusser/groupshare/internal/app/system/apperr"
	"github.com/dalemusser/groupshare/internal/app/system/auth"
	"github.com/dalemusser/groupshare/internal/app/system/authz"
	"github.com/dalemusser/groupshare/internal/app/system/htmlsanitize"
	"github.com/dalemusser/groupshare/internal/app/system/inputval"
	"github.com/dalemusser/groupshare/internal/app/system/keys"
	"github.com/dalemusser/groupshare/internal/app/system/mailer"
	"github.com/dalemusser/groupshare/internal/app/system/metrics"
	"github.com/dalemusser/groupshare/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultTTL is how long an issued link stays valid.
const DefaultTTL = 15 * time.Minute

// VerifyPath is the client route the emailed link points at.
const VerifyPath = "/auth/verify"

// IssuerConfig configures link construction.
type IssuerConfig struct {
	BaseURL  string // e.g. https://groupshare.example.com
	SiteName string
	TTL      time.Duration
}

// Issued describes a link that was minted and dispatched. Token is the raw
// credential; it leaves the server only inside Link.
type Issued struct {
	Token     string
	Link      string
	Email     string
	GroupID   primitive.ObjectID
	UserID    primitive.ObjectID // login links only
	ExpiresAt time.Time
}

// Issuer mints login and invite links.
type Issuer struct {
	tokens  *magiclinks.Store
	users   *userstore.Store
	groups  *groupstore.Store
	members *membershipstore.Store
	mail    mailer.Sender
	metrics *metrics.Metrics
	log     *zap.Logger
	cfg     IssuerConfig
	now     func() time.Time
}

// NewIssuer creates an Issuer. A non-positive cfg.TTL uses DefaultTTL.
func NewIssuer(db *mongo.Database, mail mailer.Sender, cfg IssuerConfig, m *metrics.Metrics, logger *zap.Logger) *Issuer {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.SiteName == "" {
		cfg.SiteName = "GroupShare"
	}
	return &Issuer{
		tokens:  magiclinks.New(db),
		users:   userstore.New(db),
		groups:  groupstore.New(db),
		members: membershipstore.New(db),
		mail:    mail,
		metrics: m,
		log:     logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// SetClock replaces the time source used for expiry.
func (i *Issuer) SetClock(now func() time.Time) {
	i.now = now
}

// IssueLogin mints a login link for an existing member of groupID. Unknown
// emails, groups and non-members all yield ErrNoSuchMembership, so a link
// that could never succeed is never created.
func (i *Issuer) IssueLogin(ctx context.Context, groupID primitive.ObjectID, email string) (Issued, error) {
	email = userstore.NormalizeEmail(email)
	if !inputval.IsValidEmail(email) {
		return Issued{}, fmt.Errorf("login email %q: %w", email, apperr.ErrBadRequest)
	}

	user, err := i.users.GetByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		return Issued{}, fmt.Errorf("no user: %w", apperr.ErrNoSuchMembership)
	}
	if err != nil {
		return Issued{}, fmt.Errorf("load user: %w", err)
	}
	group, err := i.groups.GetByID(ctx, groupID)
	if errors.Is(err, groupstore.ErrNotFound) {
		return Issued{}, fmt.Errorf("no group: %w", apperr.ErrNoSuchMembership)
	}
	if err != nil {
		return Issued{}, fmt.Errorf("load group: %w", err)
	}
	if _, err := i.members.Get(ctx, groupID, user.ID); err != nil {
		if errors.Is(err, membershipstore.ErrNotFound) {
			return Issued{}, fmt.Errorf("not a member: %w", apperr.ErrNoSuchMembership)
		}
		return Issued{}, fmt.Errorf("load membership: %w", err)
	}

	issued, err := i.mint(ctx, models.MagicLinkToken{
		GroupID: groupID,
		Email:   email,
		Type:    models.TokenTypeLogin,
	})
	if err != nil {
		return Issued{}, err
	}
	issued.UserID = user.ID

	msg := mailer.BuildLoginEmail(mailer.LinkEmailData{
		SiteName:  i.cfg.SiteName,
		GroupName: group.Name,
		MagicLink: issued.Link,
		ExpiresIn: humanize(i.cfg.TTL),
	})
	msg.To = email
	if err := i.mail.Send(msg); err != nil {
		return Issued{}, fmt.Errorf("send login link: %w", err)
	}
	i.metrics.LinkIssued(models.TokenTypeLogin)
	return issued, nil
}

// IssueInvite mints an invitation into the caller's active group. The
// caller's membership and role are re-read, so a demoted or removed admin
// cannot invite on the strength of a cached access credential. The invited
// user need not exist yet.
func (i *Issuer) IssueInvite(ctx context.Context, scope auth.Scope, email, role, name string) (Issued, error) {
	caller, err := i.members.Get(ctx, scope.GroupID, scope.UserID)
	if errors.Is(err, membershipstore.ErrNotFound) {
		return Issued{}, fmt.Errorf("inviter: %w", apperr.ErrNoLongerAMember)
	}
	if err != nil {
		return Issued{}, fmt.Errorf("load inviter membership: %w", err)
	}
	group, err := i.groups.GetByID(ctx, scope.GroupID)
	if errors.Is(err, groupstore.ErrNotFound) {
		return Issued{}, fmt.Errorf("inviter group: %w", apperr.ErrNoLongerAMember)
	}
	if err != nil {
		return Issued{}, fmt.Errorf("load group: %w", err)
	}
	callerRole, err := authz.Derive(caller.Role, group.IsOwner(scope.UserID))
	if err != nil {
		return Issued{}, err
	}
	if !callerRole.CanInvite() {
		return Issued{}, fmt.Errorf("invite as %s: %w", callerRole, apperr.ErrForbidden)
	}

	email = userstore.NormalizeEmail(email)
	if !inputval.IsValidEmail(email) {
		return Issued{}, fmt.Errorf("invite email %q: %w", email, apperr.ErrBadRequest)
	}
	role = strings.TrimSpace(role)
	if !models.ValidMembershipRole(role) {
		return Issued{}, fmt.Errorf("invite role %q: %w", role, apperr.ErrBadRequest)
	}

	tok := models.MagicLinkToken{
		GroupID:    scope.GroupID,
		Email:      email,
		Type:       models.TokenTypeInvite,
		InviteRole: &role,
	}
	if name = htmlsanitize.Name(name); name != "" {
		tok.InviteName = &name
	}

	issued, err := i.mint(ctx, tok)
	if err != nil {
		return Issued{}, err
	}

	data := mailer.LinkEmailData{
		SiteName:  i.cfg.SiteName,
		GroupName: group.Name,
		Role:      role,
		MagicLink: issued.Link,
		ExpiresIn: humanize(i.cfg.TTL),
	}
	if inviter, err := i.users.GetByID(ctx, scope.UserID); err == nil {
		data.InviterName = inviter.Name
	}
	msg := mailer.BuildInviteEmail(data)
	msg.To = email
	if err := i.mail.Send(msg); err != nil {
		return Issued{}, fmt.Errorf("send invite: %w", err)
	}
	i.metrics.LinkIssued(models.TokenTypeInvite)
	return issued, nil
}

// mint stores a fresh token row built from tok and returns the link.
func (i *Issuer) mint(ctx context.Context, tok models.MagicLinkToken) (Issued, error) {
	raw, err := keys.NewToken()
	if err != nil {
		return Issued{}, err
	}
	now := i.now().UTC()
	tok.TokenHash = keys.Hash(raw)
	tok.CreatedAt = now
	tok.ExpiresAt = now.Add(i.cfg.TTL)

	if _, err := i.tokens.Create(ctx, tok); err != nil {
		return Issued{}, fmt.Errorf("store magic link: %w", err)
	}
	return Issued{
		Token:     raw,
		Link:      i.link(raw),
		Email:     tok.Email,
		GroupID:   tok.GroupID,
		ExpiresAt: tok.ExpiresAt,
	}, nil
}

func (i *Issuer) link(raw string) string {
	return strings.TrimRight(i.cfg.BaseURL, "/") + VerifyPath + "?token=" + url.QueryEscape(raw)
}

// humanize renders a link lifetime for email copy.
func humanize(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if h := int(d / time.Hour); h != 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "1 hour"
	case d >= time.Minute:
		if m := int(d / time.Minute); m != 1 {
			return fmt.Sprintf("%d minutes", m)
		}
		return "1 minute"
	default:
		return d.String()
	}
}
