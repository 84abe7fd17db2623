package relay

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"global-relay/pkg/model"
	"global-relay/pkg/store"
)

// Defaults for the liveness sweep: scan every minute, evict anything quiet
// for five.
const (
	SweepInterval = 60 * time.Second
	IdleTimeout   = 5 * time.Minute
)

// StartSweeper runs the periodic liveness sweep until ctx is done. Evicted
// nodes are audited and reported through onEvict (used to close any open
// notify socket). The sweep shares the Directory's own locking, so it never
// races a concurrent register or relay.
func StartSweeper(ctx context.Context, dir store.Directory, interval, idle time.Duration, onEvict func(nodeID string)) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				SweepOnce(dir, idle, onEvict)
			}
		}
	}()
}

// SweepOnce evicts every manifest idle longer than the timeout and returns
// the evicted node IDs. Split out so tests can drive the sweep directly.
func SweepOnce(dir store.Directory, idle time.Duration, onEvict func(nodeID string)) []string {
	cutoff := time.Now().Add(-idle).UnixMilli()
	evicted, err := dir.Sweep(cutoff)
	if err != nil {
		log.Printf("liveness sweep failed: %v", err)
		return nil
	}
	for _, id := range evicted {
		_ = dir.AppendAudit(model.AuditEntry{
			ID:        uuid.NewString(),
			Actor:     "sweeper",
			Action:    "evict",
			Target:    id,
			Detail:    "idle past liveness timeout",
			Timestamp: time.Now(),
		})
		if onEvict != nil {
			onEvict(id)
		}
	}
	if len(evicted) > 0 {
		log.Printf("liveness sweep evicted %d node(s): %v", len(evicted), evicted)
	}
	return evicted
}
