// Package session issues and rotates the credential pair a signed-in user
// holds: a long-lived refresh credential bound to a server-side row and a
// short-lived access credential scoped to one group.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/groupshare/internal/app/store/refreshsessions"
	"github.com/dalemusser/groupshare/internal/app/system/apperr"
	"github.com/dalemusser/groupshare/internal/app/system/auth"
	"github.com/dalemusser/groupshare/internal/app/system/keys"
	"github.com/dalemusser/groupshare/internal/app/system/membership"
	"github.com/dalemusser/groupshare/internal/app/system/metrics"
	"github.com/dalemusser/groupshare/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefaultRefreshTTL is the lifetime of a refresh credential. Each rotation
// starts a new lifetime.
const DefaultRefreshTTL = 30 * 24 * time.Hour

// Directory is the membership view the manager re-reads on every mint.
type Directory interface {
	Lookup(ctx context.Context, userID, groupID primitive.ObjectID) (membership.GroupSummary, error)
	GroupsFor(ctx context.Context, userID primitive.ObjectID) ([]membership.GroupSummary, error)
}

// Credentials is the result of any sign-in, refresh or group change.
// AccessToken is empty when no group is active.
type Credentials struct {
	UserID           primitive.ObjectID
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	Group            *membership.GroupSummary
}

// Manager owns the refresh_sessions lifecycle.
type Manager struct {
	tokens     *auth.Tokens
	store      *refreshsessions.Store
	dir        Directory
	metrics    *metrics.Metrics
	log        *zap.Logger
	refreshTTL time.Duration
	now        func() time.Time
}

// NewManager creates a Manager. A non-positive refreshTTL uses
// DefaultRefreshTTL; metrics may be nil.
func NewManager(tokens *auth.Tokens, store *refreshsessions.Store, dir Directory, m *metrics.Metrics, logger *zap.Logger, refreshTTL time.Duration) *Manager {
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &Manager{
		tokens:     tokens,
		store:      store,
		dir:        dir,
		metrics:    m,
		log:        logger,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// SetClock replaces the time source used for refresh rows.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// RefreshTTL returns the refresh credential lifetime.
func (m *Manager) RefreshTTL() time.Duration {
	return m.refreshTTL
}

// Issue starts a new logical session for userID. With a nil groupID only a
// refresh credential is issued.
func (m *Manager) Issue(ctx context.Context, userID primitive.ObjectID, groupID *primitive.ObjectID) (Credentials, error) {
	var group *membership.GroupSummary
	if groupID != nil {
		g, err := m.lookup(ctx, userID, *groupID, apperr.ErrNotAMember)
		if err != nil {
			return Credentials{}, err
		}
		group = &g
	}

	raw, row, err := m.newRow(userID, uuid.NewString(), groupID)
	if err != nil {
		return Credentials{}, err
	}
	if _, err := m.store.Create(ctx, row); err != nil {
		return Credentials{}, fmt.Errorf("store refresh session: %w", err)
	}
	return m.credentials(userID, raw, row, group)
}

// Refresh exchanges a live refresh credential for a rotated one and a fresh
// access credential for the session's active group, re-reading the role.
// When the active group is gone or unset the credential is left untouched
// and ErrNoLongerAMember returned, so the client can select another group.
func (m *Manager) Refresh(ctx context.Context, raw string) (Credentials, error) {
	sess, err := m.live(ctx, raw)
	if err != nil {
		m.metrics.Refresh("invalid")
		return Credentials{}, err
	}
	if sess.ActiveGroupID == nil {
		m.metrics.Refresh("no_group")
		return Credentials{}, fmt.Errorf("refresh without active group: %w", apperr.ErrNoLongerAMember)
	}

	group, err := m.lookup(ctx, sess.UserID, *sess.ActiveGroupID, apperr.ErrNoLongerAMember)
	if err != nil {
		m.metrics.Refresh("no_longer_a_member")
		return Credentials{}, err
	}

	creds, err := m.rotate(ctx, sess, &group)
	if err != nil {
		m.metrics.Refresh("invalid")
		return Credentials{}, err
	}
	m.metrics.Refresh("ok")
	return creds, nil
}

// SwitchGroup moves an authenticated user to target. The presented refresh
// session is rotated when it is live and belongs to the caller; otherwise a
// new logical session is started. Access credentials already issued for the
// previous group stay valid until they expire.
func (m *Manager) SwitchGroup(ctx context.Context, scope auth.Scope, raw string, target primitive.ObjectID) (Credentials, error) {
	group, err := m.lookup(ctx, scope.UserID, target, apperr.ErrNotAMember)
	if err != nil {
		return Credentials{}, err
	}

	if raw != "" {
		sess, err := m.store.GetLive(ctx, keys.Hash(raw), m.now())
		if err == nil && sess.UserID == scope.UserID {
			creds, err := m.rotate(ctx, sess, &group)
			if err == nil {
				m.metrics.GroupChange("switch")
				return creds, nil
			}
			if !errors.Is(err, apperr.ErrInvalidRefresh) {
				return Credentials{}, err
			}
		} else if err != nil && !isGone(err) {
			return Credentials{}, fmt.Errorf("load refresh session: %w", err)
		}
	}

	creds, err := m.Issue(ctx, scope.UserID, &target)
	if err != nil {
		return Credentials{}, err
	}
	m.metrics.GroupChange("switch")
	return creds, nil
}

// SelectGroup is SwitchGroup for a caller that holds only a refresh
// credential, as after sign-in with several groups or after the active
// group was deleted.
func (m *Manager) SelectGroup(ctx context.Context, raw string, userID, groupID primitive.ObjectID) (Credentials, error) {
	sess, err := m.live(ctx, raw)
	if err != nil {
		return Credentials{}, err
	}
	if sess.UserID != userID {
		return Credentials{}, fmt.Errorf("select for another user: %w", apperr.ErrNotAMember)
	}

	group, err := m.lookup(ctx, userID, groupID, apperr.ErrNotAMember)
	if err != nil {
		return Credentials{}, err
	}
	creds, err := m.rotate(ctx, sess, &group)
	if err != nil {
		return Credentials{}, err
	}
	m.metrics.GroupChange("select")
	return creds, nil
}

// Resolve computes the landing state for the holder of a refresh
// credential. The session is rotated onto the landing's current group (or
// onto no group), and an access credential is minted when there is one.
func (m *Manager) Resolve(ctx context.Context, raw string) (Credentials, membership.Landing, error) {
	sess, err := m.live(ctx, raw)
	if err != nil {
		return Credentials{}, membership.Landing{}, err
	}

	groups, err := m.dir.GroupsFor(ctx, sess.UserID)
	if err != nil {
		return Credentials{}, membership.Landing{}, fmt.Errorf("list groups: %w", err)
	}
	landing := membership.Land(groups, sess.ActiveGroupID)

	creds, err := m.rotate(ctx, sess, landing.Current)
	if err != nil {
		return Credentials{}, membership.Landing{}, err
	}
	return creds, landing, nil
}

// Identify returns the user behind a live refresh credential without
// rotating it.
func (m *Manager) Identify(ctx context.Context, raw string) (primitive.ObjectID, error) {
	sess, err := m.live(ctx, raw)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return sess.UserID, nil
}

// Logout ends the logical session behind raw by revoking every live row of
// its family. An empty, unknown or no longer live credential is not an
// error and revokes nothing.
func (m *Manager) Logout(ctx context.Context, raw string) error {
	if raw == "" {
		return nil
	}
	sess, err := m.store.GetLive(ctx, keys.Hash(raw), m.now())
	if isGone(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load refresh session: %w", err)
	}
	n, err := m.store.RevokeFamily(ctx, sess.FamilyID, m.now())
	if err != nil {
		return fmt.Errorf("revoke refresh family: %w", err)
	}
	m.log.Debug("refresh family revoked",
		zap.String("user_id", sess.UserID.Hex()),
		zap.String("family_id", sess.FamilyID),
		zap.Int64("rows", n))
	return nil
}

// live loads the row behind raw and requires it to be exchangeable.
func (m *Manager) live(ctx context.Context, raw string) (models.RefreshSession, error) {
	if raw == "" {
		return models.RefreshSession{}, fmt.Errorf("no refresh credential: %w", apperr.ErrInvalidRefresh)
	}
	sess, err := m.store.GetLive(ctx, keys.Hash(raw), m.now())
	switch {
	case errors.Is(err, refreshsessions.ErrNotFound):
		return models.RefreshSession{}, fmt.Errorf("unknown refresh credential: %w", apperr.ErrInvalidRefresh)
	case errors.Is(err, refreshsessions.ErrNotLive):
		if sess.RotatedAt != nil {
			m.metrics.Replay()
			m.log.Warn("rotated refresh credential presented again",
				zap.String("user_id", sess.UserID.Hex()),
				zap.String("family_id", sess.FamilyID))
		}
		return models.RefreshSession{}, fmt.Errorf("refresh credential not live: %w", apperr.ErrInvalidRefresh)
	case err != nil:
		return models.RefreshSession{}, fmt.Errorf("load refresh session: %w", err)
	}
	return sess, nil
}

// lookup reads the live membership, mapping its absence to missing.
func (m *Manager) lookup(ctx context.Context, userID, groupID primitive.ObjectID, missing error) (membership.GroupSummary, error) {
	g, err := m.dir.Lookup(ctx, userID, groupID)
	if errors.Is(err, membership.ErrNoMembership) {
		return membership.GroupSummary{}, fmt.Errorf("group %s: %w", groupID.Hex(), missing)
	}
	if err != nil {
		return membership.GroupSummary{}, fmt.Errorf("lookup membership: %w", err)
	}
	return g, nil
}

// rotate replaces sess with a successor in the same family scoped to group.
func (m *Manager) rotate(ctx context.Context, sess models.RefreshSession, group *membership.GroupSummary) (Credentials, error) {
	var groupID *primitive.ObjectID
	if group != nil {
		id := group.GroupID
		groupID = &id
	}

	raw, next, err := m.newRow(sess.UserID, sess.FamilyID, groupID)
	if err != nil {
		return Credentials{}, err
	}
	next, err = m.store.Rotate(ctx, sess.TokenHash, next, m.now())
	if errors.Is(err, refreshsessions.ErrNotLive) {
		return Credentials{}, fmt.Errorf("lost rotation race: %w", apperr.ErrInvalidRefresh)
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("rotate refresh session: %w", err)
	}
	return m.credentials(sess.UserID, raw, next, group)
}

func (m *Manager) newRow(userID primitive.ObjectID, family string, groupID *primitive.ObjectID) (string, models.RefreshSession, error) {
	raw, err := keys.NewToken()
	if err != nil {
		return "", models.RefreshSession{}, err
	}
	now := m.now().UTC()
	return raw, models.RefreshSession{
		ID:            primitive.NewObjectID(),
		TokenHash:     keys.Hash(raw),
		FamilyID:      family,
		UserID:        userID,
		ActiveGroupID: groupID,
		CreatedAt:     now,
		ExpiresAt:     now.Add(m.refreshTTL),
	}, nil
}

func (m *Manager) credentials(userID primitive.ObjectID, raw string, row models.RefreshSession, group *membership.GroupSummary) (Credentials, error) {
	creds := Credentials{
		UserID:           userID,
		RefreshToken:     raw,
		RefreshExpiresAt: row.ExpiresAt,
		Group:            group,
	}
	if group == nil {
		return creds, nil
	}
	access, exp, err := m.tokens.Mint(auth.Scope{UserID: userID, GroupID: group.GroupID, Role: group.Role})
	if err != nil {
		return Credentials{}, err
	}
	creds.AccessToken = access
	creds.AccessExpiresAt = exp
	return creds, nil
}

func isGone(err error) bool {
	return errors.Is(err, refreshsessions.ErrNotFound) || errors.Is(err, refreshsessions.ErrNotLive)
}
