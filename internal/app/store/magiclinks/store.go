// internal/app/store/magiclinks/store.go
package magiclinks

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

// Rows are kept for a day past expiry so late presentations still classify
// as expired rather than unknown.
const retainAfterExpiry = 24 * time.Hour

var (
	// ErrNotFound is returned when no token has the presented hash.
	ErrNotFound = errors.New("magic link not found")
	// ErrExpired is returned when the token is past its expiry.
	ErrExpired = errors.New("magic link expired")
	// ErrConsumed is returned when the token was already used.
	ErrConsumed = errors.New("magic link already used")
)

// Store manages magic link tokens.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("magic_link_tokens")}
}

// EnsureIndexes creates the unique hash index and the TTL cleanup index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token_hash", Value: 1}},
			Options: options.Index().SetName("uniq_magiclink_token_hash").SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().
				SetName("idx_magiclink_expires_ttl").
				SetExpireAfterSeconds(int32(retainAfterExpiry.Seconds())),
		},
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}},
			Options: options.Index().SetName("idx_magiclink_group"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Create inserts a token. The caller supplies the hash and expiry.
func (s *Store) Create(ctx context.Context, t models.MagicLinkToken) (models.MagicLinkToken, error) {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	t.ConsumedAt = nil
	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.MagicLinkToken{}, err
	}
	return t, nil
}

// GetByHash returns the token without changing it.
func (s *Store) GetByHash(ctx context.Context, hash string) (models.MagicLinkToken, error) {
	var t models.MagicLinkToken
	err := s.c.FindOne(ctx, bson.M{"token_hash": hash}).Decode(&t)
	if err == mongo.ErrNoDocuments {
		return models.MagicLinkToken{}, ErrNotFound
	}
	return t, err
}

// Consume marks the token used in a single compare-and-set. Exactly one of
// any number of concurrent callers succeeds; the rest get ErrConsumed.
// Expired tokens are never consumed.
func (s *Store) Consume(ctx context.Context, hash string, now time.Time) (models.MagicLinkToken, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var t models.MagicLinkToken
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{
			"token_hash":  hash,
			"consumed_at": nil,
			"expires_at":  bson.M{"$gte": now},
		},
		bson.M{"$set": bson.M{"consumed_at": now}},
		opts,
	).Decode(&t)
	if err == nil {
		return t, nil
	}
	if err != mongo.ErrNoDocuments {
		return models.MagicLinkToken{}, err
	}

	// Lost the CAS: classify what the caller presented.
	cur, err := s.GetByHash(ctx, hash)
	if err != nil {
		return models.MagicLinkToken{}, err
	}
	return models.MagicLinkToken{}, Classify(cur, now)
}

// Classify returns the error a presentation of t at now would produce, or
// nil if t is still usable. Expiry is reported before consumption.
func Classify(t models.MagicLinkToken, now time.Time) error {
	switch {
	case t.Expired(now):
		return ErrExpired
	case t.Consumed():
		return ErrConsumed
	default:
		return nil
	}
}

// DeleteByGroup removes all tokens for a group.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
