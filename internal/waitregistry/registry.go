// SPDX-License-Identifier: Apache-2.0

// Package waitregistry implements the Wait Registry: per-queue
// notification channels used to couple long-polling ReceiveMessage calls
// with producers, per spec.md §4.3.
//
// The registry holds no state beyond the current set of waiters; it is
// rebuildable at any time and never consulted for correctness, only for
// promptness — every waiter re-checks eligibility against the Storage
// Layer after waking.
package waitregistry

import "sync"

// Registry maps queue name to the set of channels currently blocked
// waiting for that queue's next "message available" event.
type Registry struct {
	mu      sync.Mutex
	waiters map[string]map[chan struct{}]struct{}
}

func New() *Registry {
	return &Registry{waiters: make(map[string]map[chan struct{}]struct{})}
}

// Wait registers a new waiter for queueName and returns a channel that
// receives a value (at most once) when Notify is next called for that
// queue, plus a cancel func the caller must invoke once done (on eligible
// message found, on timeout, or on client disconnect) to deregister and
// bound memory.
func (r *Registry) Wait(queueName string) (ch <-chan struct{}, cancel func()) {
	c := make(chan struct{}, 1)

	r.mu.Lock()
	set, ok := r.waiters[queueName]
	if !ok {
		set = make(map[chan struct{}]struct{})
		r.waiters[queueName] = set
	}
	set[c] = struct{}{}
	r.mu.Unlock()

	cancel = func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if set, ok := r.waiters[queueName]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(r.waiters, queueName)
			}
		}
	}
	return c, cancel
}

// Notify wakes every waiter currently blocked on queueName. Sends are
// non-blocking: a waiter that already has a pending wake (coalesced
// notifications) is left alone, per spec.md §4.3.
func (r *Registry) Notify(queueName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.waiters[queueName] {
		select {
		case c <- struct{}{}:
		default:
		}
	}
}
