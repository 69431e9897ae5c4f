package testutil

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/groupshare/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
// Calling it again on the returned request adds to the same route context.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a test user. The email is stored as given.
func (f *Fixtures) CreateUser(ctx context.Context, name, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:        primitive.NewObjectID(),
		Email:     strings.TrimSpace(email),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateGroup creates a group owned by owner, together with the owner's
// admin membership, the same shape group creation produces.
func (f *Fixtures) CreateGroup(ctx context.Context, name string, owner primitive.ObjectID) models.Group {
	f.t.Helper()

	g := f.insertGroup(ctx, name, owner, 1)
	f.CreateMembership(ctx, owner, g.ID, models.MembershipRoleAdmin)
	return g
}

// CreateBareGroup creates a group with no memberships at all. The caller
// adds memberships with CreateMembership and sets adminCount to the number
// of admin memberships it intends to add.
func (f *Fixtures) CreateBareGroup(ctx context.Context, name string, owner primitive.ObjectID, adminCount int) models.Group {
	f.t.Helper()
	return f.insertGroup(ctx, name, owner, adminCount)
}

func (f *Fixtures) insertGroup(ctx context.Context, name string, owner primitive.ObjectID, adminCount int) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.Group{
		ID:         primitive.NewObjectID(),
		Name:       name,
		NameCI:     text.Fold(name),
		OwnerID:    owner,
		AdminCount: adminCount,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return g
}

// CreateMembership adds userID to groupID with role. It does not touch the
// group's admin count; use AddAdmin for an extra admin.
func (f *Fixtures) CreateMembership(ctx context.Context, userID, groupID primitive.ObjectID, role string) models.Membership {
	f.t.Helper()

	m := models.Membership{
		ID:              primitive.NewObjectID(),
		UserID:          userID,
		GroupID:         groupID,
		Role:            role,
		CommentsEnabled: true,
		JoinedAt:        time.Now().UTC(),
	}
	if _, err := f.db.Collection("group_memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test membership: %v", err)
	}
	return m
}

// AddAdmin adds an admin membership and bumps the group's admin count.
func (f *Fixtures) AddAdmin(ctx context.Context, userID, groupID primitive.ObjectID) models.Membership {
	f.t.Helper()

	m := f.CreateMembership(ctx, userID, groupID, models.MembershipRoleAdmin)
	_, err := f.db.Collection("groups").UpdateOne(ctx,
		bson.M{"_id": groupID},
		bson.M{"$inc": bson.M{"admin_count": 1}},
	)
	if err != nil {
		f.t.Fatalf("failed to bump admin count: %v", err)
	}
	return m
}

// CreateMember adds a plain member.
func (f *Fixtures) CreateMember(ctx context.Context, userID, groupID primitive.ObjectID) models.Membership {
	f.t.Helper()
	return f.CreateMembership(ctx, userID, groupID, models.MembershipRoleMember)
}

// CreatePhoto creates photo metadata in groupID.
func (f *Fixtures) CreatePhoto(ctx context.Context, groupID, uploaderID primitive.ObjectID, caption string) models.Photo {
	f.t.Helper()

	p := models.Photo{
		ID:         primitive.NewObjectID(),
		GroupID:    groupID,
		UploaderID: uploaderID,
		Caption:    caption,
		StorageKey: "photos/" + primitive.NewObjectID().Hex() + ".jpg",
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := f.db.Collection("photos").InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test photo: %v", err)
	}
	return p
}

// CreateMagicLink stores a token row for hash. Callers pick the expiry to
// drive the verifier's state machine.
func (f *Fixtures) CreateMagicLink(ctx context.Context, hash string, groupID primitive.ObjectID, email, tokenType string, expiresAt time.Time) models.MagicLinkToken {
	f.t.Helper()

	tok := models.MagicLinkToken{
		ID:        primitive.NewObjectID(),
		TokenHash: hash,
		GroupID:   groupID,
		Email:     email,
		Type:      tokenType,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
	if _, err := f.db.Collection("magic_link_tokens").InsertOne(ctx, tok); err != nil {
		f.t.Fatalf("failed to create test magic link: %v", err)
	}
	return tok
}

// GroupAdminCount reads the stored admin_count of a group.
func (f *Fixtures) GroupAdminCount(ctx context.Context, groupID primitive.ObjectID) int {
	f.t.Helper()

	var g models.Group
	if err := f.db.Collection("groups").FindOne(ctx, bson.M{"_id": groupID}).Decode(&g); err != nil {
		f.t.Fatalf("failed to load group: %v", err)
	}
	return g.AdminCount
}
