package photostore_test

import (
	"errors"
	"testing"
	"time"

	photostore "github.com/dalemusser/groupshare/internal/app/store/photos"
	"github.com/dalemusser/groupshare/internal/domain/models"
	"github.com/dalemusser/groupshare/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create_RequiresStorageKey(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := photostore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Create(ctx, models.Photo{GroupID: primitive.NewObjectID()})
	if err == nil {
		t.Error("expected error without storage key")
	}
}

func TestStore_TenantIsolation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := photostore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	groupA, groupB := primitive.NewObjectID(), primitive.NewObjectID()
	p, err := store.Create(ctx, models.Photo{GroupID: groupA, UploaderID: primitive.NewObjectID(), StorageKey: "k"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := store.GetInGroup(ctx, groupA, p.ID); err != nil {
		t.Errorf("own group lookup failed: %v", err)
	}
	if _, err := store.GetInGroup(ctx, groupB, p.ID); !errors.Is(err, photostore.ErrNotFound) {
		t.Errorf("cross-group lookup: got %v, want ErrNotFound", err)
	}
	if err := store.DeleteInGroup(ctx, groupB, p.ID); !errors.Is(err, photostore.ErrNotFound) {
		t.Errorf("cross-group delete: got %v, want ErrNotFound", err)
	}
	if err := store.DeleteInGroup(ctx, groupA, p.ID); err != nil {
		t.Errorf("own group delete failed: %v", err)
	}
}

func TestStore_ListByGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := photostore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := primitive.NewObjectID()
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		store.Create(ctx, models.Photo{GroupID: g, StorageKey: "k", Caption: string(rune('a' + i)), CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	store.Create(ctx, models.Photo{GroupID: primitive.NewObjectID(), StorageKey: "k"})

	got, err := store.ListByGroup(ctx, g, 2)
	if err != nil {
		t.Fatalf("ListByGroup failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 photos, got %d", len(got))
	}
	if got[0].Caption != "c" {
		t.Errorf("newest first: got %q, want %q", got[0].Caption, "c")
	}

	empty, err := store.ListByGroup(ctx, primitive.NewObjectID(), 0)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("empty group: got %v, %v", empty, err)
	}

	n, err := store.DeleteByGroup(ctx, g)
	if err != nil || n != 3 {
		t.Errorf("DeleteByGroup = %d, %v; want 3", n, err)
	}
}
