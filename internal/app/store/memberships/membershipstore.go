// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/groupshare/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("group_memberships")}
}

var (
	ErrNotFound            = errors.New("membership not found")
	ErrDuplicateMembership = errors.New("user is already a member of this group")
	errBadRole             = errors.New(`role must be "admin" or "member"`)
)

// EnsureIndexes enforces one membership per (user, group).
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "group_id", Value: 1}},
			Options: options.Index().SetName("uniq_membership_user_group").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "role", Value: 1}},
			Options: options.Index().SetName("idx_membership_group_role"),
		},
	})
	return err
}

// Add creates a membership. Returns ErrDuplicateMembership if (user, group)
// already exists.
func (s *Store) Add(ctx context.Context, groupID, userID primitive.ObjectID, role string) (models.Membership, error) {
	if !models.ValidMembershipRole(role) {
		return models.Membership{}, errBadRole
	}
	m := models.Membership{
		ID:              primitive.NewObjectID(),
		UserID:          userID,
		GroupID:         groupID,
		Role:            role,
		CommentsEnabled: true,
		JoinedAt:        time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Membership{}, ErrDuplicateMembership
		}
		return models.Membership{}, err
	}
	return m, nil
}

// Get returns the membership for (groupID, userID).
func (s *Store) Get(ctx context.Context, groupID, userID primitive.ObjectID) (models.Membership, error) {
	var m models.Membership
	err := s.c.FindOne(ctx, bson.M{"group_id": groupID, "user_id": userID}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return models.Membership{}, ErrNotFound
	}
	return m, err
}

// ListByUser returns every membership the user holds.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Membership, error) {
	return s.find(ctx, bson.M{"user_id": userID}, nil)
}

// ListByGroup returns all memberships for a group, oldest first, optionally
// filtered by role. If role is empty, returns all memberships.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, role string) ([]models.Membership, error) {
	filter := bson.M{"group_id": groupID}
	if role != "" {
		filter["role"] = role
	}
	return s.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "joined_at", Value: 1}}))
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Membership, error) {
	if opts == nil {
		opts = options.Find()
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Membership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateRoleIf sets role to "to" only while the stored role is still "from".
// Returns false when the membership is missing or its role already changed.
func (s *Store) UpdateRoleIf(ctx context.Context, groupID, userID primitive.ObjectID, from, to string) (bool, error) {
	if !models.ValidMembershipRole(to) {
		return false, errBadRole
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"group_id": groupID, "user_id": userID, "role": from},
		bson.M{"$set": bson.M{"role": to}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// RemoveIf deletes the membership only while its role is still role.
func (s *Store) RemoveIf(ctx context.Context, groupID, userID primitive.ObjectID, role string) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"group_id": groupID, "user_id": userID, "role": role})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

// SetCommentsEnabled updates the member's comment preference for the group.
func (s *Store) SetCommentsEnabled(ctx context.Context, groupID, userID primitive.ObjectID, enabled bool) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"group_id": groupID, "user_id": userID},
		bson.M{"$set": bson.M{"comments_enabled": enabled}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByGroup removes all memberships for a group.
// Returns the number of documents deleted.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountByGroup returns the count of memberships for a group, optionally filtered by role.
// If role is empty, counts all memberships.
func (s *Store) CountByGroup(ctx context.Context, groupID primitive.ObjectID, role string) (int64, error) {
	filter := bson.M{"group_id": groupID}
	if role != "" {
		filter["role"] = role
	}
	return s.c.CountDocuments(ctx, filter)
}
