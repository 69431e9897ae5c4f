package refreshsessions_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/groupshare/internal/app/store/refreshsessions"
	"github.com/dalemusser/groupshare/internal/domain/models"
	"github.com/dalemusser/groupshare/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func row(hash, family string, user primitive.ObjectID, now time.Time) models.RefreshSession {
	return models.RefreshSession{
		TokenHash: hash,
		FamilyID:  family,
		UserID:    user,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestStore_GetLive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := refreshsessions.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}

	now := time.Now().UTC()
	user := primitive.NewObjectID()
	if _, err := store.Create(ctx, row("h", "f", user, now)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.GetLive(ctx, "h", now)
	if err != nil {
		t.Fatalf("GetLive failed: %v", err)
	}
	if got.UserID != user {
		t.Errorf("UserID: got %v, want %v", got.UserID, user)
	}

	if _, err := store.GetLive(ctx, "h", now.Add(2*time.Hour)); !errors.Is(err, refreshsessions.ErrNotLive) {
		t.Errorf("after expiry: got %v, want ErrNotLive", err)
	}
	if _, err := store.GetLive(ctx, "unknown", now); !errors.Is(err, refreshsessions.ErrNotFound) {
		t.Errorf("unknown: got %v, want ErrNotFound", err)
	}
}

func TestStore_Rotate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := refreshsessions.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	user := primitive.NewObjectID()
	store.Create(ctx, row("old", "fam", user, now))

	next, err := store.Rotate(ctx, "old", row("new", "fam", user, now), now)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if next.TokenHash != "new" {
		t.Errorf("successor hash: got %q", next.TokenHash)
	}

	old, _ := store.GetByHash(ctx, "old")
	if old.RotatedAt == nil || old.ReplacedBy != "new" {
		t.Errorf("old row not marked rotated: %+v", old)
	}
	if _, err := store.GetLive(ctx, "new", now); err != nil {
		t.Errorf("successor should be live: %v", err)
	}
}

func TestStore_Rotate_Replay(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := refreshsessions.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	user := primitive.NewObjectID()
	store.Create(ctx, row("old", "fam", user, now))
	if _, err := store.Rotate(ctx, "old", row("new1", "fam", user, now), now); err != nil {
		t.Fatalf("first Rotate failed: %v", err)
	}

	_, err := store.Rotate(ctx, "old", row("new2", "fam", user, now), now)
	if !errors.Is(err, refreshsessions.ErrNotLive) {
		t.Fatalf("replayed Rotate: got %v, want ErrNotLive", err)
	}
	if _, err := store.GetByHash(ctx, "new2"); !errors.Is(err, refreshsessions.ErrNotFound) {
		t.Errorf("losing successor should be removed, got %v", err)
	}
}

func TestStore_Rotate_Concurrent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := refreshsessions.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}

	now := time.Now().UTC()
	user := primitive.NewObjectID()
	store.Create(ctx, row("old", "fam", user, now))

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
		losers  []string
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(hash string) {
			defer wg.Done()
			_, err := store.Rotate(ctx, "old", row(hash, "fam", user, now), now)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, hash)
			case errors.Is(err, refreshsessions.ErrNotLive):
				losers = append(losers, hash)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(fmt.Sprintf("next-%d", i))
	}
	wg.Wait()

	if len(winners) != 1 || len(losers) != n-1 {
		t.Fatalf("got %d winners and %d losers, want 1 and %d", len(winners), len(losers), n-1)
	}
	old, _ := store.GetByHash(ctx, "old")
	if old.ReplacedBy != winners[0] {
		t.Errorf("old row replaced by %q, want %q", old.ReplacedBy, winners[0])
	}
	if _, err := store.GetLive(ctx, winners[0], now); err != nil {
		t.Errorf("winning successor should be live: %v", err)
	}
	for _, h := range losers {
		if _, err := store.GetByHash(ctx, h); !errors.Is(err, refreshsessions.ErrNotFound) {
			t.Errorf("losing successor %s should be removed, got %v", h, err)
		}
	}
}

func TestStore_Revoke(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := refreshsessions.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	store.Create(ctx, row("h", "f", primitive.NewObjectID(), now))

	if err := store.Revoke(ctx, "h", now); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if err := store.Revoke(ctx, "h", now); err != nil {
		t.Errorf("second Revoke should be a no-op: %v", err)
	}
	if err := store.Revoke(ctx, "unknown", now); err != nil {
		t.Errorf("unknown Revoke should be a no-op: %v", err)
	}
	if _, err := store.GetLive(ctx, "h", now); !errors.Is(err, refreshsessions.ErrNotLive) {
		t.Errorf("revoked: got %v, want ErrNotLive", err)
	}
}

func TestStore_RevokeFamily(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := refreshsessions.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	user := primitive.NewObjectID()
	store.Create(ctx, row("a", "fam", user, now))
	store.Create(ctx, row("b", "other", user, now))

	n, err := store.RevokeFamily(ctx, "fam", now)
	if err != nil {
		t.Fatalf("RevokeFamily failed: %v", err)
	}
	if n != 1 {
		t.Errorf("revoked: got %d, want 1", n)
	}
	if _, err := store.GetLive(ctx, "b", now); err != nil {
		t.Errorf("other family should stay live: %v", err)
	}
}

func TestStore_PurgeStale(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := refreshsessions.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	user := primitive.NewObjectID()
	old := now.Add(-48 * time.Hour)

	store.Create(ctx, row("stale", "f1", user, old))
	store.Revoke(ctx, "stale", old)
	store.Create(ctx, row("recent", "f2", user, now))
	store.Revoke(ctx, "recent", now)
	store.Create(ctx, row("live", "f3", user, now))

	n, err := store.PurgeStale(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeStale failed: %v", err)
	}
	if n != 1 {
		t.Errorf("purged: got %d, want 1", n)
	}
	for _, h := range []string{"recent", "live"} {
		if _, err := store.GetByHash(ctx, h); err != nil {
			t.Errorf("%s should remain: %v", h, err)
		}
	}
}
