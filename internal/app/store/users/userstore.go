package userstore

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/dalemusser/groupshare/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	errNameRequired   = errors.New("name is required")
	errEmailRequired  = errors.New("email is required")
)

// profileColors is the palette new users are assigned from.
var profileColors = []string{
	"#ef4444", "#f97316", "#eab308", "#22c55e",
	"#14b8a6", "#3b82f6", "#6366f1", "#a855f7", "#ec4899",
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// EnsureIndexes creates the unique email index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName("uniq_users_email").SetUnique(true),
	})
	return err
}

// NormalizeEmail trims surrounding whitespace. Emails are otherwise stored
// and compared exactly as entered.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return models.User{}, ErrNotFound
	}
	return u, err
}

// GetByEmail looks up a user by exact email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"email": NormalizeEmail(email)}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return models.User{}, ErrNotFound
	}
	return u, err
}

// GetMany loads users by ID, keyed by ID. Missing IDs are absent from the map.
func (s *Store) GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	out := make(map[primitive.ObjectID]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, cur.Err()
}

// Create inserts a new user. Name must already be sanitized and non-empty.
func (s *Store) Create(ctx context.Context, email, name string) (models.User, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" {
		return models.User{}, errEmailRequired
	}
	if name == "" {
		return models.User{}, errNameRequired
	}

	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		Email:        email,
		Name:         name,
		ProfileColor: profileColors[rand.IntN(len(profileColors))],
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// GetOrCreate returns the user with email, creating it with name when absent.
// created reports whether this call inserted the user. A concurrent insert
// of the same email is resolved by re-reading.
func (s *Store) GetOrCreate(ctx context.Context, email, name string) (u models.User, created bool, err error) {
	u, err = s.GetByEmail(ctx, email)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return models.User{}, false, err
	}

	u, err = s.Create(ctx, email, name)
	if errors.Is(err, ErrDuplicateEmail) {
		u, err = s.GetByEmail(ctx, email)
		return u, false, err
	}
	if err != nil {
		return models.User{}, false, err
	}
	return u, true, nil
}

// UpdateProfile sets the display name and/or color. Empty values are left unchanged.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, name, color string) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if name = strings.TrimSpace(name); name != "" {
		set["name"] = name
	}
	if color = strings.TrimSpace(color); color != "" {
		set["profile_color"] = color
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
