// internal/app/store/refreshsessions/store.go
package refreshsessions

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/groupshare/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no session has the presented hash.
	ErrNotFound = errors.New("refresh session not found")
	// ErrNotLive is returned when the session was rotated, revoked or expired.
	ErrNotLive = errors.New("refresh session is not live")
)

// Store manages refresh sessions.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("refresh_sessions")}
}

// EnsureIndexes creates the unique hash index, a family index and a TTL
// index that removes rows once they expire.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token_hash", Value: 1}},
			Options: options.Index().SetName("uniq_refresh_token_hash").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "family_id", Value: 1}},
			Options: options.Index().SetName("idx_refresh_family"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_refresh_user"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("idx_refresh_expires_ttl").SetExpireAfterSeconds(0),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Create inserts a session row.
func (s *Store) Create(ctx context.Context, sess models.RefreshSession) (models.RefreshSession, error) {
	if sess.ID.IsZero() {
		sess.ID = primitive.NewObjectID()
	}
	if _, err := s.c.InsertOne(ctx, sess); err != nil {
		return models.RefreshSession{}, err
	}
	return sess, nil
}

// GetByHash returns the row for hash in whatever state it is in.
func (s *Store) GetByHash(ctx context.Context, hash string) (models.RefreshSession, error) {
	var sess models.RefreshSession
	err := s.c.FindOne(ctx, bson.M{"token_hash": hash}).Decode(&sess)
	if err == mongo.ErrNoDocuments {
		return models.RefreshSession{}, ErrNotFound
	}
	return sess, err
}

// GetLive returns the row for hash only if it can still be exchanged at now.
func (s *Store) GetLive(ctx context.Context, hash string, now time.Time) (models.RefreshSession, error) {
	sess, err := s.GetByHash(ctx, hash)
	if err != nil {
		return models.RefreshSession{}, err
	}
	if !sess.Live(now) {
		return sess, ErrNotLive
	}
	return sess, nil
}

// Rotate replaces the live row oldHash with next. The successor is written
// first, then the old row is marked rotated in one compare-and-set; if the
// old row is no longer live the successor is removed and ErrNotLive
// returned. A crash between the two steps leaves both rows live, never none.
func (s *Store) Rotate(ctx context.Context, oldHash string, next models.RefreshSession, now time.Time) (models.RefreshSession, error) {
	next, err := s.Create(ctx, next)
	if err != nil {
		return models.RefreshSession{}, err
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"token_hash": oldHash,
			"rotated_at": nil,
			"revoked_at": nil,
			"expires_at": bson.M{"$gt": now},
		},
		bson.M{"$set": bson.M{"rotated_at": now, "replaced_by": next.TokenHash}},
	)
	if err == nil && res.MatchedCount == 1 {
		return next, nil
	}

	_, _ = s.c.DeleteOne(ctx, bson.M{"_id": next.ID})
	if err != nil {
		return models.RefreshSession{}, err
	}
	return models.RefreshSession{}, ErrNotLive
}

// Revoke marks the row revoked. Revoking an unknown or already revoked row
// is not an error.
func (s *Store) Revoke(ctx context.Context, hash string, now time.Time) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"token_hash": hash, "revoked_at": nil},
		bson.M{"$set": bson.M{"revoked_at": now}},
	)
	return err
}

// RevokeFamily revokes every live row of a logical session.
func (s *Store) RevokeFamily(ctx context.Context, familyID string, now time.Time) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"family_id": familyID, "revoked_at": nil, "rotated_at": nil},
		bson.M{"$set": bson.M{"revoked_at": now}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// PurgeStale deletes rotated or revoked rows older than cutoff.
// Returns the number of documents deleted.
func (s *Store) PurgeStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"$or": []bson.M{
		{"rotated_at": bson.M{"$lt": cutoff}},
		{"revoked_at": bson.M{"$lt": cutoff}},
	}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
