// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group is a tenant. Every photo, membership and magic link belongs to
// exactly one group.
//
// NOTE:
//   - OwnerID is permanent. Ownership is derived (OwnerID == userID) and is
//     never stored as a membership role.
//   - AdminCount mirrors the number of memberships with role "admin" and is
//     the document every admin demotion/removal conditionally decrements.
type Group struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	Name       string             `bson:"name" json:"name"`
	NameCI     string             `bson:"name_ci" json:"-"`
	OwnerID    primitive.ObjectID `bson:"owner_id" json:"ownerId"`
	AdminCount int                `bson:"admin_count" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsOwner reports whether userID owns the group.
func (g Group) IsOwner(userID primitive.ObjectID) bool {
	return g.OwnerID == userID
}
