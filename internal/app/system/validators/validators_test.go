package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/groupshare/internal/app/system/validators"
	"github.com/dalemusser/groupshare/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("first EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	expectedCollections := []string{
		"users",
		"groups",
		"group_memberships",
		"photos",
		"magic_link_tokens",
		"refresh_sessions",
		"audit_events",
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}

	collMap := make(map[string]bool)
	for _, name := range names {
		collMap[name] = true
	}

	for _, expected := range expectedCollections {
		if !collMap[expected] {
			t.Errorf("expected collection %q to exist", expected)
		}
	}
}

func TestValidators(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	now := time.Now().UTC()
	hash := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

	tests := []struct {
		name    string
		coll    string
		doc     bson.M
		wantErr bool
	}{
		{"user valid", "users", bson.M{"email": "a@example.com", "name": "Ann", "created_at": now}, false},
		{"user blank name", "users", bson.M{"email": "a@example.com", "name": "  ", "created_at": now}, true},
		{"user missing email", "users", bson.M{"name": "Ann", "created_at": now}, true},

		{"group valid", "groups", bson.M{"name": "Fam", "name_ci": "fam", "owner_id": primitive.NewObjectID(), "admin_count": 1}, false},
		{"group zero admins", "groups", bson.M{"name": "Fam", "name_ci": "fam", "owner_id": primitive.NewObjectID(), "admin_count": 0}, true},
		{"group missing owner", "groups", bson.M{"name": "Fam", "name_ci": "fam", "admin_count": 1}, true},

		{"membership valid", "group_memberships", bson.M{"user_id": primitive.NewObjectID(), "group_id": primitive.NewObjectID(), "role": "member"}, false},
		{"membership owner role", "group_memberships", bson.M{"user_id": primitive.NewObjectID(), "group_id": primitive.NewObjectID(), "role": "owner"}, true},

		{"photo valid", "photos", bson.M{"group_id": primitive.NewObjectID(), "uploader_id": primitive.NewObjectID(), "storage_key": "k", "created_at": now}, false},
		{"photo missing key", "photos", bson.M{"group_id": primitive.NewObjectID(), "uploader_id": primitive.NewObjectID(), "created_at": now}, true},

		{"token valid", "magic_link_tokens", bson.M{"token_hash": hash, "group_id": primitive.NewObjectID(), "email": "a@example.com", "type": "invite", "invite_role": "admin", "expires_at": now}, false},
		{"token raw value", "magic_link_tokens", bson.M{"token_hash": "short", "group_id": primitive.NewObjectID(), "email": "a@example.com", "type": "login", "expires_at": now}, true},
		{"token bad type", "magic_link_tokens", bson.M{"token_hash": hash, "group_id": primitive.NewObjectID(), "email": "a@example.com", "type": "reset", "expires_at": now}, true},

		{"refresh valid", "refresh_sessions", bson.M{"token_hash": hash, "family_id": "f", "user_id": primitive.NewObjectID(), "expires_at": now}, false},
		{"refresh missing user", "refresh_sessions", bson.M{"token_hash": hash, "family_id": "f", "expires_at": now}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Collection(tt.coll).InsertOne(ctx, tt.doc)
			if (err != nil) != tt.wantErr {
				t.Errorf("insert error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
