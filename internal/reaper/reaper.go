// SPDX-License-Identifier: Apache-2.0

// Package reaper implements the Background Reaper: a periodic task that
// releases expired in-flight claims (redriving to a DLQ where policy
// requires it), purges retention-expired messages, and wakes the Wait
// Registry for any queue whose messages became visible again, per
// spec.md §4.4.
package reaper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lsqs/lsqs/internal/store"
	"github.com/lsqs/lsqs/internal/waitregistry"
)

// Reaper runs release_expired then purge_expired on a fixed interval.
// Multiple Reapers over the same store are correct (each operation is
// itself idempotent) but wasteful; run exactly one per process.
type Reaper struct {
	store    *store.Store
	waits    *waitregistry.Registry
	log      *zap.SugaredLogger
	interval time.Duration
}

func New(st *store.Store, waits *waitregistry.Registry, log *zap.SugaredLogger, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = time.Second
	}
	return &Reaper{store: st, waits: waits, log: log, interval: interval}
}

// Run blocks, ticking every r.interval, until ctx is canceled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Reaper) tick(ctx context.Context) {
	r.tickAt(ctx, time.Now().UTC())
}

// tickAt runs one reaper pass as of now; split out from tick so tests can
// drive it without waiting on the wall clock.
func (r *Reaper) tickAt(ctx context.Context, now time.Time) {
	released, err := r.store.ReleaseExpired(ctx, now)
	if err != nil {
		r.log.Errorw("release_expired failed", "error", err)
	} else {
		woken := make(map[string]bool, len(released))
		notify := func(name string) {
			if name == "" || woken[name] {
				return
			}
			woken[name] = true
			r.waits.Notify(name)
		}
		for _, rel := range released {
			notify(rel.QueueName)
			if rel.MovedToDLQ {
				notify(rel.DLQName)
			}
		}
	}

	if n, err := r.store.PurgeExpired(ctx, now); err != nil {
		r.log.Errorw("purge_expired failed", "error", err)
	} else if n > 0 {
		r.log.Debugw("purged expired messages", "count", n)
	}
}
