package magiclink_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/groupshare/internal/app/system/apperr"
	"github.com/dalemusser/groupshare/internal/app/system/auth"
	"github.com/dalemusser/groupshare/internal/app/system/authz"
	"github.com/dalemusser/groupshare/internal/app/system/magiclink"
	"github.com/dalemusser/groupshare/internal/app/system/membership"
	"github.com/dalemusser/groupshare/internal/domain/models"
	"github.com/dalemusser/groupshare/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
)

func TestVerify_Login(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := h.fx.CreateUser(ctx, "Ann", "ann@example.com")
	g := h.fx.CreateGroup(ctx, "G", u.ID)
	issued, err := h.issuer.IssueLogin(ctx, g.ID, u.Email)
	if err != nil {
		t.Fatalf("IssueLogin failed: %v", err)
	}

	out, err := h.verifier.Verify(ctx, issued.Token, "ignored")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if out.Kind != magiclink.OutcomeLoggedIn {
		t.Errorf("Kind: got %v", out.Kind)
	}
	if out.User.ID != u.ID || out.User.Name != "Ann" {
		t.Errorf("user: %+v", out.User)
	}
	if out.Landing.State != membership.StateAutoSelected {
		t.Errorf("landing: %q", out.Landing.State)
	}
	s, err := h.tokens.Parse(out.Credentials.AccessToken)
	if err != nil {
		t.Fatalf("access credential: %v", err)
	}
	if s.GroupID != g.ID || s.Role != authz.RoleOwner {
		t.Errorf("scope: %+v", s)
	}
	if out.Credentials.RefreshToken == "" {
		t.Error("expected a refresh credential")
	}

	if _, err := h.verifier.Verify(ctx, issued.Token, ""); !errors.Is(err, apperr.ErrTokenAlreadyUsed) {
		t.Errorf("second verify: got %v, want ErrTokenAlreadyUsed", err)
	}
}

func TestVerify_SingleUseUnderConcurrency(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := h.fx.CreateUser(ctx, "Ann", "ann@example.com")
	g := h.fx.CreateGroup(ctx, "G", u.ID)
	issued, err := h.issuer.IssueLogin(ctx, g.ID, u.Email)
	if err != nil {
		t.Fatalf("IssueLogin failed: %v", err)
	}

	const n = 12
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		used int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.verifier.Verify(ctx, issued.Token, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, apperr.ErrTokenAlreadyUsed):
				used++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || used != n-1 {
		t.Errorf("got %d successes and %d already-used, want 1 and %d", ok, used, n-1)
	}
}

func TestVerify_Expiry(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := h.fx.CreateUser(ctx, "Ann", "ann@example.com")
	g := h.fx.CreateGroup(ctx, "G", u.ID)
	issued, err := h.issuer.IssueLogin(ctx, g.ID, u.Email)
	if err != nil {
		t.Fatalf("IssueLogin failed: %v", err)
	}

	h.verifier.SetClock(func() time.Time { return issued.ExpiresAt.Add(time.Second) })
	if _, err := h.verifier.Verify(ctx, issued.Token, ""); !errors.Is(err, apperr.ErrExpiredToken) {
		t.Errorf("got %v, want ErrExpiredToken", err)
	}

	// Expiry does not consume; it stays expired rather than used.
	if _, err := h.verifier.Verify(ctx, issued.Token, ""); !errors.Is(err, apperr.ErrExpiredToken) {
		t.Errorf("second attempt: got %v, want ErrExpiredToken", err)
	}
}

func TestVerify_UnknownToken(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, raw := range []string{"", "definitely-not-issued"} {
		if _, err := h.verifier.Verify(ctx, raw, ""); !errors.Is(err, apperr.ErrInvalidToken) {
			t.Errorf("Verify(%q): got %v, want ErrInvalidToken", raw, err)
		}
	}
}

func TestVerify_InviteCreatesAdmin(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := h.fx.CreateUser(ctx, "Owner", "o@example.com")
	g := h.fx.CreateGroup(ctx, "G1", owner.ID)
	scope := auth.Scope{UserID: owner.ID, GroupID: g.ID, Role: authz.RoleOwner}

	issued, err := h.issuer.IssueInvite(ctx, scope, "a@x.test", "admin", "")
	if err != nil {
		t.Fatalf("IssueInvite failed: %v", err)
	}

	out, err := h.verifier.Verify(ctx, issued.Token, "A")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if out.Kind != magiclink.OutcomeUserCreated || !out.MembershipCreated {
		t.Errorf("outcome: kind %v, membershipCreated %v", out.Kind, out.MembershipCreated)
	}
	if out.User.Name != "A" || out.User.Email != "a@x.test" {
		t.Errorf("user: %+v", out.User)
	}

	var m models.Membership
	if err := h.db.Collection("group_memberships").FindOne(ctx, bson.M{"group_id": g.ID, "user_id": out.User.ID}).Decode(&m); err != nil {
		t.Fatalf("membership not created: %v", err)
	}
	if m.Role != models.MembershipRoleAdmin {
		t.Errorf("role: %q", m.Role)
	}
	if got := h.fx.GroupAdminCount(ctx, g.ID); got != 2 {
		t.Errorf("admin_count: got %d, want 2", got)
	}

	if _, err := h.verifier.Verify(ctx, issued.Token, "A"); !errors.Is(err, apperr.ErrTokenAlreadyUsed) {
		t.Errorf("re-verify: got %v, want ErrTokenAlreadyUsed", err)
	}
}

func TestVerify_InviteNeedsName(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := h.fx.CreateUser(ctx, "Owner", "o@example.com")
	g := h.fx.CreateGroup(ctx, "G", owner.ID)
	scope := auth.Scope{UserID: owner.ID, GroupID: g.ID, Role: authz.RoleOwner}
	issued, _ := h.issuer.IssueInvite(ctx, scope, "new@example.com", "member", "")

	out, err := h.verifier.Verify(ctx, issued.Token, "   ")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if out.Kind != magiclink.OutcomeNeedsName || out.Email != "new@example.com" {
		t.Errorf("outcome: %+v", out)
	}
	if out.Credentials.RefreshToken != "" {
		t.Error("no session before a name is given")
	}

	// The token was not spent.
	out, err = h.verifier.Verify(ctx, issued.Token, "Newt")
	if err != nil {
		t.Fatalf("Verify with name failed: %v", err)
	}
	if out.Kind != magiclink.OutcomeUserCreated || out.User.Name != "Newt" {
		t.Errorf("outcome: %+v", out)
	}
}

func TestVerify_InviteUsesInviteName(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := h.fx.CreateUser(ctx, "Owner", "o@example.com")
	g := h.fx.CreateGroup(ctx, "G", owner.ID)
	scope := auth.Scope{UserID: owner.ID, GroupID: g.ID, Role: authz.RoleOwner}
	issued, _ := h.issuer.IssueInvite(ctx, scope, "new@example.com", "member", "Preset")

	out, err := h.verifier.Verify(ctx, issued.Token, "")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if out.Kind != magiclink.OutcomeUserCreated || out.User.Name != "Preset" {
		t.Errorf("outcome: %+v", out)
	}
}

func TestVerify_InviteExistingMember(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := h.fx.CreateUser(ctx, "Owner", "o@example.com")
	u := h.fx.CreateUser(ctx, "Ann", "ann@example.com")
	g := h.fx.CreateGroup(ctx, "G", owner.ID)
	h.fx.CreateGroup(ctx, "Other", u.ID)
	h.fx.CreateMember(ctx, u.ID, g.ID)

	scope := auth.Scope{UserID: owner.ID, GroupID: g.ID, Role: authz.RoleOwner}
	issued, _ := h.issuer.IssueInvite(ctx, scope, u.Email, "admin", "")

	out, err := h.verifier.Verify(ctx, issued.Token, "Renamed")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if out.Kind != magiclink.OutcomeLoggedIn || out.MembershipCreated {
		t.Errorf("outcome: kind %v, membershipCreated %v", out.Kind, out.MembershipCreated)
	}
	if out.User.Name != "Ann" {
		t.Errorf("existing name must be kept, got %q", out.User.Name)
	}
	if got := h.fx.GroupAdminCount(ctx, g.ID); got != 1 {
		t.Errorf("existing membership must keep its role, admin_count %d", got)
	}

	// Two groups: the invite's group is provisional until one is chosen.
	if !out.Landing.NeedsGroupSelection || out.Landing.Current == nil || out.Landing.Current.GroupID != g.ID {
		t.Errorf("landing: %+v", out.Landing)
	}
	if len(out.Landing.Groups) != 2 {
		t.Errorf("expected 2 groups, got %d", len(out.Landing.Groups))
	}
}

func TestVerify_LoginAfterRemoval(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := h.fx.CreateUser(ctx, "Owner", "o@example.com")
	u := h.fx.CreateUser(ctx, "Ann", "ann@example.com")
	g := h.fx.CreateGroup(ctx, "G", owner.ID)
	h.fx.CreateMember(ctx, u.ID, g.ID)

	issued, err := h.issuer.IssueLogin(ctx, g.ID, u.Email)
	if err != nil {
		t.Fatalf("IssueLogin failed: %v", err)
	}
	h.db.Collection("group_memberships").DeleteOne(ctx, bson.M{"group_id": g.ID, "user_id": u.ID})

	if _, err := h.verifier.Verify(ctx, issued.Token, ""); !errors.Is(err, apperr.ErrNoLongerAMember) {
		t.Errorf("got %v, want ErrNoLongerAMember", err)
	}
}
