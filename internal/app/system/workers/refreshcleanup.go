// internal/app/system/workers/refreshcleanup.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/groupshare/internal/app/store/refreshsessions"
	"github.com/dalemusser/groupshare/internal/app/system/metrics"
	"github.com/dalemusser/groupshare/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// RefreshCleanup is a background worker that purges rotated and revoked
// refresh sessions. Expired rows are removed by the TTL index.
type RefreshCleanup struct {
	sessions  *refreshsessions.Store
	metrics   *metrics.Metrics
	log       *zap.Logger
	interval  time.Duration
	retention time.Duration
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewRefreshCleanup creates a new refresh session cleanup worker.
//
// Parameters:
//   - store: the refresh sessions store
//   - m: metrics (may be nil)
//   - logger: zap logger for logging
//   - interval: how often to run cleanup (e.g., 1 hour)
//   - retention: how long rotated/revoked rows are kept for replay diagnosis (e.g., 7 days)
func NewRefreshCleanup(store *refreshsessions.Store, m *metrics.Metrics, logger *zap.Logger, interval, retention time.Duration) *RefreshCleanup {
	return &RefreshCleanup{
		sessions:  store,
		metrics:   m,
		log:       logger,
		interval:  interval,
		retention: retention,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the background cleanup loop.
func (w *RefreshCleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("refresh session cleanup worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("retention", w.retention))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *RefreshCleanup) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("refresh session cleanup worker stopped")
}

func (w *RefreshCleanup) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce(context.Background())
		}
	}
}

// RunOnce performs a single purge pass and returns the number of rows removed.
func (w *RefreshCleanup) RunOnce(parent context.Context) int64 {
	ctx, cancel := context.WithTimeout(parent, timeouts.Long())
	defer cancel()

	count, err := w.sessions.PurgeStale(ctx, time.Now().UTC().Add(-w.retention))
	if err != nil {
		w.log.Error("failed to purge refresh sessions", zap.Error(err))
		return 0
	}

	if count > 0 {
		w.log.Info("purged stale refresh sessions", zap.Int64("count", count))
		w.metrics.Purged(count)
	}
	return count
}
