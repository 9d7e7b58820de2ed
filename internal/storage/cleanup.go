package storage

import (
	"context"
	"time"

	"github.com/dgellow/ortho-diary/internal/log"
)

// PurgeManager periodically removes soft-deleted photos once they are
// older than the retention window. A non-positive retention purges nothing.
type PurgeManager struct {
	storage   PhotoStore
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// NewPurgeManager creates a new purge manager
func NewPurgeManager(storage PhotoStore, interval, retention time.Duration) *PurgeManager {
	return &PurgeManager{
		storage:   storage,
		interval:  interval,
		retention: retention,
		now:       time.Now,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start begins the purge loop in a goroutine
func (pm *PurgeManager) Start(ctx context.Context) {
	log.LogInfoWithFields("purge", "Starting deleted photo purge manager", map[string]any{
		"interval":  pm.interval.String(),
		"retention": pm.retention.String(),
	})

	go pm.run(ctx)
}

// Stop gracefully stops the purge loop
func (pm *PurgeManager) Stop() {
	log.Logf("Stopping deleted photo purge manager...")
	close(pm.stopChan)
	<-pm.doneChan
	log.Logf("Deleted photo purge manager stopped")
}

func (pm *PurgeManager) run(ctx context.Context) {
	defer close(pm.doneChan)

	ticker := time.NewTicker(pm.interval)
	defer ticker.Stop()

	pm.purge(ctx)

	for {
		select {
		case <-ticker.C:
			pm.purge(ctx)
		case <-pm.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (pm *PurgeManager) purge(ctx context.Context) int {
	if pm.retention <= 0 {
		return 0
	}
	cutoff := pm.now().Add(-pm.retention)
	count, err := pm.storage.PurgeDeletedPhotos(ctx, cutoff)
	if err != nil {
		log.LogErrorWithFields("purge", "Failed to purge deleted photos", map[string]any{
			"error": err.Error(),
		})
		return count
	}

	if count > 0 {
		log.LogInfoWithFields("purge", "Purged deleted photos", map[string]any{
			"count":  count,
			"cutoff": cutoff.Format(time.RFC3339),
		})
	}
	return count
}
