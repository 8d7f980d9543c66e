// SPDX-License-Identifier: Apache-2.0

package waitregistry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitNotify(t *testing.T) {
	r := New()
	ch, cancel := r.Wait("orders")
	defer cancel()

	r.Notify("orders")

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected wake-up, got none")
	}
}

func TestNotifyWithNoWaiters(t *testing.T) {
	r := New()
	// must not panic or block when nobody is waiting
	r.Notify("orders")
}

func TestNotifyCoalesces(t *testing.T) {
	r := New()
	ch, cancel := r.Wait("orders")
	defer cancel()

	r.Notify("orders")
	r.Notify("orders") // second notify must not block on a full buffer-1 channel

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected at least one wake-up")
	}
}

func TestCancelDeregisters(t *testing.T) {
	r := New()
	_, cancel := r.Wait("orders")
	cancel()

	r.mu.Lock()
	_, ok := r.waiters["orders"]
	r.mu.Unlock()
	assert.False(t, ok, "cancel should remove the queue's waiter set once empty")
}

func TestMultipleWaitersAllWake(t *testing.T) {
	r := New()
	ch1, cancel1 := r.Wait("orders")
	defer cancel1()
	ch2, cancel2 := r.Wait("orders")
	defer cancel2()

	r.Notify("orders")

	for _, ch := range []<-chan struct{}{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			require.Fail(t, "expected both waiters to wake")
		}
	}
}
