// internal/domain/models/refreshsession.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RefreshSession is the server-side record behind one refresh credential.
//
// A logical session (FamilyID) is a chain of rows: each rotation marks the
// presented row rotated and inserts its replacement, so at most one row per
// family is live. ActiveGroupID is the group the next refresh re-derives an
// access credential for; nil means no group has been selected.
type RefreshSession struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty"`
	TokenHash     string              `bson:"token_hash"`
	FamilyID      string              `bson:"family_id"`
	UserID        primitive.ObjectID  `bson:"user_id"`
	ActiveGroupID *primitive.ObjectID `bson:"active_group_id,omitempty"`

	CreatedAt  time.Time  `bson:"created_at"`
	ExpiresAt  time.Time  `bson:"expires_at"`
	RotatedAt  *time.Time `bson:"rotated_at,omitempty"`
	ReplacedBy string     `bson:"replaced_by,omitempty"` // token_hash of the successor
	RevokedAt  *time.Time `bson:"revoked_at,omitempty"`
}

// Live reports whether the row can still be exchanged at now.
func (s RefreshSession) Live(now time.Time) bool {
	return s.RotatedAt == nil && s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
