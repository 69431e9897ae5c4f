// internal/domain/models/magiclinktoken.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Magic link purposes.
const (
	TokenTypeLogin  = "login"
	TokenTypeInvite = "invite"
)

// MagicLinkToken is a single-use credential delivered by email.
//
// Only the SHA-256 of the opaque token value is stored; the raw value exists
// in the emailed link and nowhere else. A token is terminal once ConsumedAt
// is set or ExpiresAt has passed. There is no revoked state.
type MagicLinkToken struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	TokenHash  string             `bson:"token_hash"`
	GroupID    primitive.ObjectID `bson:"group_id"`
	Email      string             `bson:"email"`
	Type       string             `bson:"type"`                  // "login" | "invite"
	InviteRole *string            `bson:"invite_role,omitempty"` // invite only
	InviteName *string            `bson:"invite_name,omitempty"` // invite only
	CreatedAt  time.Time          `bson:"created_at"`
	ExpiresAt  time.Time          `bson:"expires_at"`
	ConsumedAt *time.Time         `bson:"consumed_at,omitempty"`
}

// Expired reports whether the token is past its expiry at now.
func (t MagicLinkToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Consumed reports whether the token has been used.
func (t MagicLinkToken) Consumed() bool {
	return t.ConsumedAt != nil
}
