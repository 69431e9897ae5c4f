// Package membership answers which groups a user belongs to, with what role,
// and which landing state that implies.
package membership

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	groupstore "github.com/dalemusser/groupshare/internal/app/store/groups"
	membershipstore "github.com/dalemusser/groupshare/internal/app/store/memberships"
	"github.com/dalemusser/groupshare/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNoMembership is returned by Lookup when the user holds no membership in
// the group, or the group no longer exists.
var ErrNoMembership = errors.New("no membership in group")

// GroupSummary is one group as seen by one user.
type GroupSummary struct {
	GroupID primitive.ObjectID `json:"groupId"`
	Name    string             `json:"name"`
	Role    authz.Role         `json:"role"`
	IsOwner bool               `json:"isOwner"`
}

// Resolver reads memberships and groups to build summaries.
type Resolver struct {
	members *membershipstore.Store
	groups  *groupstore.Store
}

func NewResolver(db *mongo.Database) *Resolver {
	return &Resolver{
		members: membershipstore.New(db),
		groups:  groupstore.New(db),
	}
}

// GroupsFor returns every group the user belongs to, in no particular
// order. Memberships whose group has disappeared are skipped.
func (r *Resolver) GroupsFor(ctx context.Context, userID primitive.ObjectID) ([]GroupSummary, error) {
	ms, err := r.members.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	ids := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.GroupID)
	}
	groups, err := r.groups.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load groups: %w", err)
	}

	out := make([]GroupSummary, 0, len(ms))
	for _, m := range ms {
		g, ok := groups[m.GroupID]
		if !ok {
			continue
		}
		role, err := authz.Derive(m.Role, g.IsOwner(userID))
		if err != nil {
			continue
		}
		out = append(out, GroupSummary{GroupID: g.ID, Name: g.Name, Role: role, IsOwner: role.IsOwner()})
	}
	return out, nil
}

// Lookup returns the live summary for one (user, group) pair. It is what
// every credential mint re-reads, so role changes take effect there.
func (r *Resolver) Lookup(ctx context.Context, userID, groupID primitive.ObjectID) (GroupSummary, error) {
	m, err := r.members.Get(ctx, groupID, userID)
	if errors.Is(err, membershipstore.ErrNotFound) {
		return GroupSummary{}, ErrNoMembership
	}
	if err != nil {
		return GroupSummary{}, fmt.Errorf("load membership: %w", err)
	}
	g, err := r.groups.GetByID(ctx, groupID)
	if errors.Is(err, groupstore.ErrNotFound) {
		return GroupSummary{}, ErrNoMembership
	}
	if err != nil {
		return GroupSummary{}, fmt.Errorf("load group: %w", err)
	}
	role, err := authz.Derive(m.Role, g.IsOwner(userID))
	if err != nil {
		return GroupSummary{}, err
	}
	return GroupSummary{GroupID: g.ID, Name: g.Name, Role: role, IsOwner: role.IsOwner()}, nil
}

// State is the landing state after sign-in or a group change.
type State string

const (
	// StateNoGroups: authenticated, but no tenant to act in.
	StateNoGroups State = "no_groups"
	// StateAutoSelected: exactly one group; it is the current group.
	StateAutoSelected State = "auto_selected"
	// StateChooseGroup: two or more groups; the user must pick one.
	StateChooseGroup State = "choose_group"
)

// Landing is what the client renders after sign-in.
type Landing struct {
	State               State          `json:"state"`
	Groups              []GroupSummary `json:"groups"`
	Current             *GroupSummary  `json:"currentGroup"`
	NeedsGroupSelection bool           `json:"needsGroupSelection"`
}

// Land computes the landing state from a user's groups. With two or more
// groups, preferred (when it is one of them) is kept as the provisional
// current group, as after verifying a link for that group. Groups are
// returned sorted by name for display.
func Land(groups []GroupSummary, preferred *primitive.ObjectID) Landing {
	sorted := append([]GroupSummary(nil), groups...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := strings.ToLower(sorted[i].Name), strings.ToLower(sorted[j].Name)
		if a != b {
			return a < b
		}
		return sorted[i].GroupID.Hex() < sorted[j].GroupID.Hex()
	})

	switch len(sorted) {
	case 0:
		return Landing{State: StateNoGroups, Groups: []GroupSummary{}}
	case 1:
		cur := sorted[0]
		return Landing{State: StateAutoSelected, Groups: sorted, Current: &cur}
	default:
		l := Landing{State: StateChooseGroup, Groups: sorted, NeedsGroupSelection: true}
		if preferred != nil {
			for _, g := range sorted {
				if g.GroupID == *preferred {
					cur := g
					l.Current = &cur
					break
				}
			}
		}
		return l
	}
}
