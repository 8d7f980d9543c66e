// SPDX-License-Identifier: Apache-2.0

package reaper

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lsqs/lsqs/internal/store"
	"github.com/lsqs/lsqs/internal/waitregistry"
)

func TestTickReleasesExpiredAndWakesWaiters(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "lsqs-test.db")
	db, err := store.Open(ctx, dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	st := store.New(db, zap.NewNop().Sugar())
	waits := waitregistry.New()
	r := New(st, waits, zap.NewNop().Sugar(), time.Hour) // interval irrelevant; tickAt is called directly

	now := time.Now().UTC()
	_, err = st.CreateQueue(ctx, "orders", false, store.QueueAttrs{
		VisibilityTimeoutS: 30, MessageRetentionS: 345600, MaxMessageBytes: 262144,
	})
	require.NoError(t, err)
	_, err = st.Enqueue(ctx, "orders", store.MessageDraft{ID: "m1", Body: "hello"}, now)
	require.NoError(t, err)

	claimed, err := st.Claim(ctx, "orders", 10, now, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	waitCh, cancel := waits.Wait("orders")
	defer cancel()

	// tick with a "now" far enough past the 1s visibility timeout to expire the claim
	r.tickAt(ctx, now.Add(5*time.Second))

	select {
	case <-waitCh:
	case <-time.After(time.Second):
		t.Fatal("expected reaper to wake waiters on the released queue")
	}

	again, err := st.Claim(ctx, "orders", 10, now.Add(5*time.Second), 30)
	require.NoError(t, err)
	require.Len(t, again, 1, "message should be reclaimable after release")
}
