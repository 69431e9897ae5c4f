package membership_test

import (
	"errors"
	"testing"

	"github.com/dalemusser/groupshare/internal/app/system/authz"
	"github.com/dalemusser/groupshare/internal/app/system/membership"
	"github.com/dalemusser/groupshare/internal/domain/models"
	"github.com/dalemusser/groupshare/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestResolver_GroupsFor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ann := fx.CreateUser(ctx, "Ann", "ann@example.com")
	bob := fx.CreateUser(ctx, "Bob", "bob@example.com")

	owned := fx.CreateGroup(ctx, "Owned", ann.ID)
	other := fx.CreateGroup(ctx, "Other", bob.ID)
	third := fx.CreateGroup(ctx, "Third", bob.ID)
	fx.CreateMember(ctx, ann.ID, other.ID)
	fx.AddAdmin(ctx, ann.ID, third.ID)

	// A membership whose group is gone is skipped.
	fx.CreateMember(ctx, ann.ID, primitive.NewObjectID())

	r := membership.NewResolver(db)
	groups, err := r.GroupsFor(ctx, ann.ID)
	if err != nil {
		t.Fatalf("GroupsFor failed: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}

	want := map[primitive.ObjectID]authz.Role{
		owned.ID: authz.RoleOwner,
		other.ID: authz.RoleMember,
		third.ID: authz.RoleAdmin,
	}
	for _, g := range groups {
		if g.Role != want[g.GroupID] {
			t.Errorf("%s: role %v, want %v", g.Name, g.Role, want[g.GroupID])
		}
		if g.IsOwner != (g.GroupID == owned.ID) {
			t.Errorf("%s: IsOwner %v", g.Name, g.IsOwner)
		}
	}
}

func TestResolver_GroupsFor_None(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	groups, err := membership.NewResolver(db).GroupsFor(ctx, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("GroupsFor failed: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("expected no groups, got %d", len(groups))
	}
}

func TestResolver_Lookup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Owner", "o@example.com")
	member := fx.CreateUser(ctx, "Member", "m@example.com")
	stranger := fx.CreateUser(ctx, "Stranger", "s@example.com")
	g := fx.CreateGroup(ctx, "G", owner.ID)
	fx.CreateMember(ctx, member.ID, g.ID)

	r := membership.NewResolver(db)

	got, err := r.Lookup(ctx, owner.ID, g.ID)
	if err != nil {
		t.Fatalf("Lookup owner failed: %v", err)
	}
	if got.Role != authz.RoleOwner || got.Name != "G" {
		t.Errorf("owner summary: %+v", got)
	}

	got, err = r.Lookup(ctx, member.ID, g.ID)
	if err != nil || got.Role != authz.RoleMember {
		t.Errorf("member summary: %+v, %v", got, err)
	}

	if _, err := r.Lookup(ctx, stranger.ID, g.ID); !errors.Is(err, membership.ErrNoMembership) {
		t.Errorf("stranger: got %v, want ErrNoMembership", err)
	}

	// Membership row left behind by a deleted group.
	orphan := fx.CreateMembership(ctx, member.ID, primitive.NewObjectID(), models.MembershipRoleMember)
	if _, err := r.Lookup(ctx, member.ID, orphan.GroupID); !errors.Is(err, membership.ErrNoMembership) {
		t.Errorf("orphan: got %v, want ErrNoMembership", err)
	}
}
