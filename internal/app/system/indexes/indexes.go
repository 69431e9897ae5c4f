// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/groupshare/internal/app/store/audit"
	groupstore "github.com/dalemusser/groupshare/internal/app/store/groups"
	"github.com/dalemusser/groupshare/internal/app/store/magiclinks"
	membershipstore "github.com/dalemusser/groupshare/internal/app/store/memberships"
	photostore "github.com/dalemusser/groupshare/internal/app/store/photos"
	"github.com/dalemusser/groupshare/internal/app/store/refreshsessions"
	userstore "github.com/dalemusser/groupshare/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type ensurer interface {
	EnsureIndexes(ctx context.Context) error
}

/*
EnsureAll is called at startup. Each store owns its index definitions and
its EnsureIndexes is idempotent. Errors are aggregated so every problem is
visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	stores := []struct {
		coll string
		s    ensurer
	}{
		{"users", userstore.New(db)},
		{"groups", groupstore.New(db)},
		{"group_memberships", membershipstore.New(db)},
		{"magic_link_tokens", magiclinks.New(db)},
		{"refresh_sessions", refreshsessions.New(db)},
		{"photos", photostore.New(db)},
		{"audit_events", audit.New(db)},
	}

	var problems []string
	for _, st := range stores {
		start := time.Now()
		if err := st.s.EnsureIndexes(ctx); err != nil {
			logger.Error("ensure indexes failed", zap.String("collection", st.coll), zap.Error(err))
			problems = append(problems, st.coll+": "+err.Error())
			continue
		}
		logger.Debug("indexes ensured",
			zap.String("collection", st.coll),
			zap.Duration("took", time.Since(start)))
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
