// internal/domain/models/photo.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Photo is the metadata of an uploaded image. The bytes live in external
// storage under StorageKey.
type Photo struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	GroupID    primitive.ObjectID `bson:"group_id" json:"groupId"`
	UploaderID primitive.ObjectID `bson:"uploader_id" json:"uploaderId"`
	Caption    string             `bson:"caption" json:"caption"`
	StorageKey string             `bson:"storage_key" json:"storageKey"`
	CreatedAt  time.Time          `bson:"created_at" json:"createdAt"`
}
