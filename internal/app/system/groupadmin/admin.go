// Package groupadmin creates and deletes groups and manages their members
// while keeping two rules: the owner cannot be demoted or removed, and a
// group never loses its last admin.
package groupadmin

import (
	"context"
	"errors"
	"fmt"
	"time"

	groupstore "github.com/dalemusser/groupshare/internal/app/store/groups"
	"github.com/dalemusser/groupshare/internal/app/store/magiclinks"
	membershipstore "github.com/dalemusser/groupshare/internal/app/store/memberships"
	photostore "github.com/dalemusser/groupshare/internal/app/store/photos"
	userstore "github.com/dalemusser/groupshare/internal/app/store/users"
	"github.com/dalemusser/groupshare/internal/app/system/apperr"
	"github.com/dalemusser/groupshare/internal/app/system/auth"
	"github.com/dalemusser/groupshare/internal/app/system/authz"
	"github.com/dalemusser/groupshare/internal/app/system/htmlsanitize"
	"github.com/dalemusser/groupshare/internal/app/system/metrics"
	"github.com/dalemusser/groupshare/internal/app/system/txn"
	"github.com/dalemusser/groupshare/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Member is one row of a group's member list.
type Member struct {
	UserID          primitive.ObjectID `json:"userId"`
	Name            string             `json:"name"`
	Email           string             `json:"email"`
	ProfileColor    string             `json:"profileColor,omitempty"`
	Role            authz.Role         `json:"role"`
	CommentsEnabled bool               `json:"commentsEnabled"`
	JoinedAt        time.Time          `json:"joinedAt"`
}

// DeleteResult counts what a group deletion removed.
type DeleteResult struct {
	Memberships int64 `json:"memberships"`
	MagicLinks  int64 `json:"magicLinks"`
	Photos      int64 `json:"photos"`
}

// Admin performs group administration.
type Admin struct {
	client  *mongo.Client
	groups  *groupstore.Store
	members *membershipstore.Store
	users   *userstore.Store
	tokens  *magiclinks.Store
	photos  *photostore.Store
	metrics *metrics.Metrics
	log     *zap.Logger
}

func New(db *mongo.Database, m *metrics.Metrics, logger *zap.Logger) *Admin {
	return &Admin{
		client:  db.Client(),
		groups:  groupstore.New(db),
		members: membershipstore.New(db),
		users:   userstore.New(db),
		tokens:  magiclinks.New(db),
		photos:  photostore.New(db),
		metrics: m,
		log:     logger,
	}
}

// CreateGroup creates a group owned by userID. The owner also gets an admin
// membership, so the group starts with one admin.
func (a *Admin) CreateGroup(ctx context.Context, userID primitive.ObjectID, name string) (models.Group, error) {
	name = htmlsanitize.Name(name)
	if name == "" {
		return models.Group{}, fmt.Errorf("group name: %w", apperr.ErrNameRequired)
	}

	var g models.Group
	err := txn.Run(ctx, a.client, a.log, func(ctx context.Context) error {
		var err error
		g, err = a.groups.Create(ctx, name, userID)
		if err != nil {
			return fmt.Errorf("create group: %w", err)
		}
		if _, err := a.members.Add(ctx, g.ID, userID, models.MembershipRoleAdmin); err != nil {
			_ = a.groups.Delete(ctx, g.ID)
			return fmt.Errorf("add owner membership: %w", err)
		}
		return nil
	})
	a.record("create_group", err)
	if err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// ListMembers returns groupID's members ordered by join time. groupID must
// be the caller's active group.
func (a *Admin) ListMembers(ctx context.Context, scope auth.Scope, groupID primitive.ObjectID) ([]Member, error) {
	g, _, err := a.callerRole(ctx, scope, groupID)
	if err != nil {
		return nil, err
	}

	ms, err := a.members.ListByGroup(ctx, groupID, "")
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	ids := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.UserID)
	}
	users, err := a.users.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	out := make([]Member, 0, len(ms))
	for _, m := range ms {
		u, ok := users[m.UserID]
		if !ok {
			continue
		}
		role, err := authz.Derive(m.Role, g.IsOwner(m.UserID))
		if err != nil {
			continue
		}
		out = append(out, Member{
			UserID:          u.ID,
			Name:            u.Name,
			Email:           u.Email,
			ProfileColor:    u.ProfileColor,
			Role:            role,
			CommentsEnabled: m.CommentsEnabled,
			JoinedAt:        m.JoinedAt,
		})
	}
	return out, nil
}

// ChangeRole sets target's membership role in groupID. Demoting an admin
// first claims an admin slot on the group document, so concurrent demotions
// cannot leave the group without an admin.
func (a *Admin) ChangeRole(ctx context.Context, scope auth.Scope, groupID, target primitive.ObjectID, newRole string) error {
	err := a.changeRole(ctx, scope, groupID, target, newRole)
	a.record("change_role", err)
	return err
}

func (a *Admin) changeRole(ctx context.Context, scope auth.Scope, groupID, target primitive.ObjectID, newRole string) error {
	if !models.ValidMembershipRole(newRole) {
		return fmt.Errorf("role %q: %w", newRole, apperr.ErrBadRequest)
	}
	cur, err := a.prepareMemberChange(ctx, scope, groupID, target)
	if err != nil {
		return err
	}
	if cur.Role == newRole {
		return nil
	}

	return txn.Run(ctx, a.client, a.log, func(ctx context.Context) error {
		if cur.Role == models.MembershipRoleAdmin {
			if err := a.releaseAdmin(ctx, groupID); err != nil {
				return err
			}
			ok, err := a.members.UpdateRoleIf(ctx, groupID, target, cur.Role, newRole)
			if err != nil || !ok {
				a.restoreAdmin(ctx, groupID)
				return changed(err)
			}
			return nil
		}

		ok, err := a.members.UpdateRoleIf(ctx, groupID, target, cur.Role, newRole)
		if err != nil || !ok {
			return changed(err)
		}
		if err := a.groups.AddAdminSlot(ctx, groupID); err != nil {
			return fmt.Errorf("count admin: %w", err)
		}
		return nil
	})
}

// RemoveMember deletes target's membership in groupID. The user record is
// left alone.
func (a *Admin) RemoveMember(ctx context.Context, scope auth.Scope, groupID, target primitive.ObjectID) error {
	err := a.removeMember(ctx, scope, groupID, target)
	a.record("remove_member", err)
	return err
}

func (a *Admin) removeMember(ctx context.Context, scope auth.Scope, groupID, target primitive.ObjectID) error {
	cur, err := a.prepareMemberChange(ctx, scope, groupID, target)
	if err != nil {
		return err
	}

	return txn.Run(ctx, a.client, a.log, func(ctx context.Context) error {
		isAdmin := cur.Role == models.MembershipRoleAdmin
		if isAdmin {
			if err := a.releaseAdmin(ctx, groupID); err != nil {
				return err
			}
		}
		ok, err := a.members.RemoveIf(ctx, groupID, target, cur.Role)
		if err != nil || !ok {
			if isAdmin {
				a.restoreAdmin(ctx, groupID)
			}
			return changed(err)
		}
		return nil
	})
}

// DeleteGroup removes groupID with its memberships, magic links and photo
// metadata. Only the owner may do it. Users are untouched.
func (a *Admin) DeleteGroup(ctx context.Context, scope auth.Scope, groupID primitive.ObjectID) (DeleteResult, error) {
	res, err := a.deleteGroup(ctx, scope, groupID)
	a.record("delete_group", err)
	return res, err
}

func (a *Admin) deleteGroup(ctx context.Context, scope auth.Scope, groupID primitive.ObjectID) (DeleteResult, error) {
	_, role, err := a.callerRole(ctx, scope, groupID)
	if err != nil {
		return DeleteResult{}, err
	}
	if !role.CanDeleteGroup() {
		return DeleteResult{}, fmt.Errorf("delete group as %s: %w", role, apperr.ErrForbidden)
	}

	var res DeleteResult
	err = txn.Run(ctx, a.client, a.log, func(ctx context.Context) error {
		res = DeleteResult{}
		var err error
		if res.Memberships, err = a.members.DeleteByGroup(ctx, groupID); err != nil {
			return fmt.Errorf("delete memberships: %w", err)
		}
		if res.MagicLinks, err = a.tokens.DeleteByGroup(ctx, groupID); err != nil {
			return fmt.Errorf("delete magic links: %w", err)
		}
		if res.Photos, err = a.photos.DeleteByGroup(ctx, groupID); err != nil {
			return fmt.Errorf("delete photos: %w", err)
		}
		if err := a.groups.Delete(ctx, groupID); err != nil && !errors.Is(err, groupstore.ErrNotFound) {
			return fmt.Errorf("delete group: %w", err)
		}
		return nil
	})
	if err != nil {
		return DeleteResult{}, err
	}
	return res, nil
}

// SetCommentsEnabled sets the caller's own comment preference in groupID.
func (a *Admin) SetCommentsEnabled(ctx context.Context, scope auth.Scope, groupID primitive.ObjectID, enabled bool) error {
	if groupID != scope.GroupID {
		return fmt.Errorf("group %s: %w", groupID.Hex(), apperr.ErrNotFound)
	}
	err := a.members.SetCommentsEnabled(ctx, groupID, scope.UserID, enabled)
	if errors.Is(err, membershipstore.ErrNotFound) {
		return fmt.Errorf("preferences: %w", apperr.ErrNoLongerAMember)
	}
	return err
}

// ReconcileAdminCount recounts groupID's admin memberships and stores the
// result on the group.
func (a *Admin) ReconcileAdminCount(ctx context.Context, groupID primitive.ObjectID) (int, error) {
	n, err := a.members.CountByGroup(ctx, groupID, models.MembershipRoleAdmin)
	if err != nil {
		return 0, err
	}
	if err := a.groups.SetAdminCount(ctx, groupID, int(n)); err != nil {
		return 0, err
	}
	return int(n), nil
}

// callerRole re-reads the caller's live role in groupID. A group other than
// the active one reads as not found, like a group that does not exist.
func (a *Admin) callerRole(ctx context.Context, scope auth.Scope, groupID primitive.ObjectID) (models.Group, authz.Role, error) {
	if groupID != scope.GroupID {
		return models.Group{}, authz.RoleNone, fmt.Errorf("group %s: %w", groupID.Hex(), apperr.ErrNotFound)
	}
	g, err := a.groups.GetByID(ctx, groupID)
	if errors.Is(err, groupstore.ErrNotFound) {
		return models.Group{}, authz.RoleNone, fmt.Errorf("group gone: %w", apperr.ErrNoLongerAMember)
	}
	if err != nil {
		return models.Group{}, authz.RoleNone, fmt.Errorf("load group: %w", err)
	}
	m, err := a.members.Get(ctx, groupID, scope.UserID)
	if errors.Is(err, membershipstore.ErrNotFound) {
		return models.Group{}, authz.RoleNone, fmt.Errorf("caller: %w", apperr.ErrNoLongerAMember)
	}
	if err != nil {
		return models.Group{}, authz.RoleNone, fmt.Errorf("load caller membership: %w", err)
	}
	role, err := authz.Derive(m.Role, g.IsOwner(scope.UserID))
	if err != nil {
		return models.Group{}, authz.RoleNone, err
	}
	return g, role, nil
}

// prepareMemberChange runs the checks shared by ChangeRole and RemoveMember
// and returns target's current membership.
func (a *Admin) prepareMemberChange(ctx context.Context, scope auth.Scope, groupID, target primitive.ObjectID) (models.Membership, error) {
	g, role, err := a.callerRole(ctx, scope, groupID)
	if err != nil {
		return models.Membership{}, err
	}
	if !role.CanManageMembers() {
		return models.Membership{}, fmt.Errorf("manage members as %s: %w", role, apperr.ErrForbidden)
	}
	if g.IsOwner(target) {
		return models.Membership{}, apperr.ErrCannotModifyOwner
	}
	cur, err := a.members.Get(ctx, groupID, target)
	if errors.Is(err, membershipstore.ErrNotFound) {
		return models.Membership{}, fmt.Errorf("target member: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return models.Membership{}, fmt.Errorf("load target membership: %w", err)
	}
	return cur, nil
}

func (a *Admin) releaseAdmin(ctx context.Context, groupID primitive.ObjectID) error {
	err := a.groups.ReleaseAdminSlot(ctx, groupID)
	switch {
	case errors.Is(err, groupstore.ErrLastAdmin):
		return apperr.ErrLastAdminProtection
	case errors.Is(err, groupstore.ErrNotFound):
		return fmt.Errorf("group gone: %w", apperr.ErrNotFound)
	case err != nil:
		return fmt.Errorf("release admin slot: %w", err)
	}
	return nil
}

// restoreAdmin gives back a slot claimed by releaseAdmin when the membership
// write did not happen. If that fails too the counter is rebuilt.
func (a *Admin) restoreAdmin(ctx context.Context, groupID primitive.ObjectID) {
	if err := a.groups.AddAdminSlot(ctx, groupID); err == nil {
		return
	}
	if n, err := a.ReconcileAdminCount(ctx, groupID); err != nil {
		a.log.Error("admin count drifted and could not be rebuilt",
			zap.String("group_id", groupID.Hex()), zap.Error(err))
	} else {
		a.log.Warn("admin count rebuilt", zap.String("group_id", groupID.Hex()), zap.Int("admin_count", n))
	}
}

func changed(err error) error {
	if err != nil {
		return fmt.Errorf("update membership: %w", err)
	}
	return apperr.ErrMembershipChanged
}

func (a *Admin) record(action string, err error) {
	result := "ok"
	if err != nil {
		result = apperr.From(err).Code
	}
	a.metrics.AdminChange(action, result)
}
