// internal/app/features/photos/handler.go
package photos

import (
	photostore "github.com/dalemusser/groupshare/internal/app/store/photos"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves photo metadata for the caller's active group. The bytes
// themselves live in external storage; only StorageKey is recorded here.
type Handler struct {
	Photos *photostore.Store
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Photos: photostore.New(db),
		Log:    logger,
	}
}
