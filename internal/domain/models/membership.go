// internal/domain/models/membership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Membership roles as stored. Owner is not a stored role.
const (
	MembershipRoleAdmin  = "admin"
	MembershipRoleMember = "member"
)

// ValidMembershipRole reports whether role is a storable membership role.
func ValidMembershipRole(role string) bool {
	return role == MembershipRoleAdmin || role == MembershipRoleMember
}

// Membership is the authoritative join between users and groups.
// Exactly one document per (user_id, group_id).
type Membership struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID          primitive.ObjectID `bson:"user_id" json:"userId"`
	GroupID         primitive.ObjectID `bson:"group_id" json:"groupId"`
	Role            string             `bson:"role" json:"role"` // "admin" | "member"
	CommentsEnabled bool               `bson:"comments_enabled" json:"commentsEnabled"`
	JoinedAt        time.Time          `bson:"joined_at" json:"joinedAt"`
}
