package magiclink

import (
	"context"
	"errors"
	"fmt"
	"time"

	groupstore "github.com/dalemusser/groupshare/internal/app/store/groups"
	"github.com/dalemusser/groupshare/internal/app/store/magiclinks"
	membershipstore "github.com/dalemusser/groupshare/internal/app/store/memberships"
	userstore "github.com/dalemusser/groupshare/internal/app/store/users"
	"github.com/dalemusser/groupshare/internal/app/system/apperr"
	"github.com/dalemusser/groupshare/internal/app/system/htmlsanitize"
	"github.com/dalemusser/groupshare/internal/app/system/keys"
	"github.com/dalemusser/groupshare/internal/app/system/membership"
	"github.com/dalemusser/groupshare/internal/app/system/metrics"
	"github.com/dalemusser/groupshare/internal/app/system/session"
	"github.com/dalemusser/groupshare/internal/app/system/txn"
	"github.com/dalemusser/groupshare/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Outcome tags a successful verification.
type Outcome int

const (
	// OutcomeLoggedIn: an existing user signed in.
	OutcomeLoggedIn Outcome = iota + 1
	// OutcomeUserCreated: an invite created a new user, who is now signed in.
	OutcomeUserCreated
	// OutcomeNeedsName: an invite for a new identity arrived without a
	// name. Nothing was consumed; resubmit the token with a name.
	OutcomeNeedsName
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoggedIn:
		return "logged_in"
	case OutcomeUserCreated:
		return "user_created"
	case OutcomeNeedsName:
		return "needs_name"
	default:
		return "unknown"
	}
}

// VerifyOutcome is the result of a successful Verify. For OutcomeNeedsName
// only Kind and Email are set.
type VerifyOutcome struct {
	Kind      Outcome
	Email     string
	TokenType string
	GroupID   primitive.ObjectID

	User        models.User
	Credentials session.Credentials
	Landing     membership.Landing

	// MembershipCreated reports that an invite added the user to GroupID
	// (false when the membership already existed).
	MembershipCreated bool
}

// Verifier consumes magic links.
type Verifier struct {
	client   *mongo.Client
	tokens   *magiclinks.Store
	users    *userstore.Store
	groups   *groupstore.Store
	members  *membershipstore.Store
	dir      session.Directory
	sessions *session.Manager
	metrics  *metrics.Metrics
	log      *zap.Logger
	now      func() time.Time
}

// NewVerifier creates a Verifier.
func NewVerifier(db *mongo.Database, sessions *session.Manager, dir session.Directory, m *metrics.Metrics, logger *zap.Logger) *Verifier {
	return &Verifier{
		client:   db.Client(),
		tokens:   magiclinks.New(db),
		users:    userstore.New(db),
		groups:   groupstore.New(db),
		members:  membershipstore.New(db),
		dir:      dir,
		sessions: sessions,
		metrics:  m,
		log:      logger,
		now:      time.Now,
	}
}

// SetClock replaces the time source used for expiry and consumption.
func (v *Verifier) SetClock(now func() time.Time) {
	v.now = now
}

// Verify exchanges a raw token for a session. name is only used when an
// invite creates a new user; it overrides the name given at invite time.
//
// A token is either expired, consumed or usable. Expired tokens are never
// consumed. Of any number of concurrent presentations of one usable token,
// exactly one succeeds and the rest get ErrTokenAlreadyUsed.
func (v *Verifier) Verify(ctx context.Context, raw, name string) (VerifyOutcome, error) {
	out, err := v.verify(ctx, raw, name)
	if err != nil {
		v.metrics.Verification(apperr.From(err).Code)
		return VerifyOutcome{}, err
	}
	v.metrics.Verification(out.Kind.String())
	return out, nil
}

func (v *Verifier) verify(ctx context.Context, raw, name string) (VerifyOutcome, error) {
	if raw == "" {
		return VerifyOutcome{}, fmt.Errorf("empty token: %w", apperr.ErrInvalidToken)
	}
	hash := keys.Hash(raw)
	now := v.now().UTC()

	tok, err := v.tokens.GetByHash(ctx, hash)
	if err != nil {
		return VerifyOutcome{}, tokenError(err)
	}
	if err := magiclinks.Classify(tok, now); err != nil {
		return VerifyOutcome{}, tokenError(err)
	}

	// An invite for someone without an account needs a name before the
	// token is spent.
	name = htmlsanitize.Name(name)
	var createName string
	if tok.Type == models.TokenTypeInvite {
		_, err := v.users.GetByEmail(ctx, tok.Email)
		switch {
		case errors.Is(err, userstore.ErrNotFound):
			createName = name
			if createName == "" && tok.InviteName != nil {
				createName = *tok.InviteName
			}
			if createName == "" {
				return VerifyOutcome{Kind: OutcomeNeedsName, Email: tok.Email, TokenType: tok.Type, GroupID: tok.GroupID}, nil
			}
		case err != nil:
			return VerifyOutcome{}, fmt.Errorf("load invitee: %w", err)
		}
	}

	tok, err = v.tokens.Consume(ctx, hash, now)
	if err != nil {
		return VerifyOutcome{}, tokenError(err)
	}

	out := VerifyOutcome{Kind: OutcomeLoggedIn, Email: tok.Email, TokenType: tok.Type, GroupID: tok.GroupID}
	switch tok.Type {
	case models.TokenTypeInvite:
		if err := v.acceptInvite(ctx, tok, createName, &out); err != nil {
			return VerifyOutcome{}, err
		}
	case models.TokenTypeLogin:
		if err := v.acceptLogin(ctx, tok, &out); err != nil {
			return VerifyOutcome{}, err
		}
	default:
		return VerifyOutcome{}, fmt.Errorf("token type %q: %w", tok.Type, apperr.ErrInvalidToken)
	}

	groups, err := v.dir.GroupsFor(ctx, out.User.ID)
	if err != nil {
		return VerifyOutcome{}, fmt.Errorf("list groups: %w", err)
	}
	out.Landing = membership.Land(groups, &tok.GroupID)

	var current *primitive.ObjectID
	if out.Landing.Current != nil {
		id := out.Landing.Current.GroupID
		current = &id
	}
	out.Credentials, err = v.sessions.Issue(ctx, out.User.ID, current)
	if err != nil {
		return VerifyOutcome{}, fmt.Errorf("issue session: %w", err)
	}
	return out, nil
}

// acceptInvite resolves or creates the invitee and ensures the membership.
// An existing membership is left as it is, whatever its role.
func (v *Verifier) acceptInvite(ctx context.Context, tok models.MagicLinkToken, createName string, out *VerifyOutcome) error {
	if _, err := v.groups.GetByID(ctx, tok.GroupID); err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			return fmt.Errorf("invite group gone: %w", apperr.ErrInvalidToken)
		}
		return fmt.Errorf("load group: %w", err)
	}

	if createName == "" {
		// The user existed at peek time; GetOrCreate only needs a name if it
		// has since been deleted.
		createName = tok.Email
	}
	user, created, err := v.users.GetOrCreate(ctx, tok.Email, createName)
	if err != nil {
		return fmt.Errorf("resolve invitee: %w", err)
	}
	out.User = user
	if created {
		out.Kind = OutcomeUserCreated
	}

	role := models.MembershipRoleMember
	if tok.InviteRole != nil && models.ValidMembershipRole(*tok.InviteRole) {
		role = *tok.InviteRole
	}

	return txn.Run(ctx, v.client, v.log, func(ctx context.Context) error {
		out.MembershipCreated = false
		_, err := v.members.Add(ctx, tok.GroupID, user.ID, role)
		if errors.Is(err, membershipstore.ErrDuplicateMembership) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("add membership: %w", err)
		}
		if role == models.MembershipRoleAdmin {
			if err := v.groups.AddAdminSlot(ctx, tok.GroupID); err != nil {
				return fmt.Errorf("count admin: %w", err)
			}
		}
		out.MembershipCreated = true
		return nil
	})
}

// acceptLogin requires the user and the membership the link was issued for
// to still exist.
func (v *Verifier) acceptLogin(ctx context.Context, tok models.MagicLinkToken, out *VerifyOutcome) error {
	user, err := v.users.GetByEmail(ctx, tok.Email)
	if errors.Is(err, userstore.ErrNotFound) {
		return fmt.Errorf("login user gone: %w", apperr.ErrNoLongerAMember)
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if _, err := v.members.Get(ctx, tok.GroupID, user.ID); err != nil {
		if errors.Is(err, membershipstore.ErrNotFound) {
			return fmt.Errorf("login membership gone: %w", apperr.ErrNoLongerAMember)
		}
		return fmt.Errorf("load membership: %w", err)
	}
	out.User = user
	return nil
}

// tokenError maps token store errors onto the credential taxonomy.
func tokenError(err error) error {
	switch {
	case errors.Is(err, magiclinks.ErrNotFound):
		return fmt.Errorf("unknown token: %w", apperr.ErrInvalidToken)
	case errors.Is(err, magiclinks.ErrExpired):
		return fmt.Errorf("token: %w", apperr.ErrExpiredToken)
	case errors.Is(err, magiclinks.ErrConsumed):
		return fmt.Errorf("token: %w", apperr.ErrTokenAlreadyUsed)
	default:
		return fmt.Errorf("load token: %w", err)
	}
}
