// internal/app/store/photos/photostore.go
package photostore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/groupshare/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no photo matches in the given group.
var ErrNotFound = errors.New("photo not found")

// Store manages photo metadata. Every lookup is filtered by group_id.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("photos")}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_photos_group_created"),
		},
	})
	return err
}

// Create inserts photo metadata. StorageKey identifies the bytes in external
// storage and is required.
func (s *Store) Create(ctx context.Context, p models.Photo) (models.Photo, error) {
	if strings.TrimSpace(p.StorageKey) == "" {
		return models.Photo{}, errors.New("storage key is required")
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Photo{}, err
	}
	return p, nil
}

// GetInGroup returns the photo only if it belongs to groupID. A photo in
// another group is reported as ErrNotFound.
func (s *Store) GetInGroup(ctx context.Context, groupID, photoID primitive.ObjectID) (models.Photo, error) {
	var p models.Photo
	err := s.c.FindOne(ctx, bson.M{"_id": photoID, "group_id": groupID}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return models.Photo{}, ErrNotFound
	}
	return p, err
}

// ListByGroup returns the group's photos, newest first.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, limit int64) ([]models.Photo, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Photo{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteInGroup removes the photo only if it belongs to groupID.
func (s *Store) DeleteInGroup(ctx context.Context, groupID, photoID primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": photoID, "group_id": groupID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByGroup removes all photos for a group.
// Returns the number of documents deleted.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
