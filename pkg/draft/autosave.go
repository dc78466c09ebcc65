package draft

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-formstate/internal/metrics"
)

// DefaultAutosaveInterval matches the original runtime's 30-second cadence.
const DefaultAutosaveInterval = 30 * time.Second

// Autosaver triggers a save callback on a fixed period. The handle is owned
// by a single form session; Stop must be called on session teardown so no
// save fires into a torn-down context. Stop is idempotent.
type Autosaver struct {
	interval time.Duration
	save     func(context.Context)

	stop chan struct{}
	once sync.Once
}

// NewAutosaver builds an autosaver around the provided callback. The
// callback decides whether there is anything worth saving. A non-positive
// interval falls back to the default.
func NewAutosaver(interval time.Duration, save func(context.Context)) *Autosaver {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	return &Autosaver{
		interval: interval,
		save:     save,
		stop:     make(chan struct{}),
	}
}

// Start launches the periodic save loop. It returns immediately.
func (a *Autosaver) Start(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-a.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.AutosaveTicks.Inc()
				a.save(ctx)
			}
		}
	}()
}

// Stop cancels the loop. No save fires after Stop returns aside from one
// already in flight.
func (a *Autosaver) Stop() {
	a.once.Do(func() {
		close(a.stop)
	})
}
