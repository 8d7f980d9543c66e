// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "lsqs-test.db")
	db, err := Open(ctx, dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, zap.NewNop().Sugar())
}

func stdAttrs() QueueAttrs {
	return QueueAttrs{
		VisibilityTimeoutS: 30,
		MessageRetentionS:  345600,
		MaxMessageBytes:    262144,
	}
}

func TestCreateQueueIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	row1, err := st.CreateQueue(ctx, "orders", false, stdAttrs())
	require.NoError(t, err)

	row2, err := st.CreateQueue(ctx, "orders", false, stdAttrs())
	require.NoError(t, err)
	require.Equal(t, row1.ID, row2.ID)
}

func TestCreateQueueNameCollisionDifferentAttrs(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.CreateQueue(ctx, "orders", false, stdAttrs())
	require.NoError(t, err)

	other := stdAttrs()
	other.VisibilityTimeoutS = 60
	_, err = st.CreateQueue(ctx, "orders", false, other)
	require.ErrorIs(t, err, ErrNameExists)
}

func TestDeleteQueueThenCreateRecentlyFails(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.CreateQueue(ctx, "orders", false, stdAttrs())
	require.NoError(t, err)
	require.NoError(t, st.DeleteQueue(ctx, "orders"))

	_, err = st.CreateQueue(ctx, "orders", false, stdAttrs())
	require.ErrorIs(t, err, ErrDeletedRecently)
}

func TestEnqueueClaimAckDeleteRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := st.CreateQueue(ctx, "orders", false, stdAttrs())
	require.NoError(t, err)

	res, err := st.Enqueue(ctx, "orders", MessageDraft{ID: "m1", Body: "hello"}, now)
	require.NoError(t, err)
	require.False(t, res.Deduplicated)

	claimed, err := st.Claim(ctx, "orders", 10, now, 30)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.Equal(t, "m1", claimed[0].ID)
	require.NotEmpty(t, claimed[0].ReceiptHandle)

	// already in-flight: a second claim must see nothing
	claimed2, err := st.Claim(ctx, "orders", 10, now, 30)
	require.NoError(t, err)
	require.Empty(t, claimed2)

	require.NoError(t, st.AckDelete(ctx, "orders", claimed[0].ReceiptHandle))

	claimed3, err := st.Claim(ctx, "orders", 10, now, 30)
	require.NoError(t, err)
	require.Empty(t, claimed3)
}

func TestChangeVisibilityZeroReleasesImmediately(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := st.CreateQueue(ctx, "orders", false, stdAttrs())
	require.NoError(t, err)
	_, err = st.Enqueue(ctx, "orders", MessageDraft{ID: "m1", Body: "hello"}, now)
	require.NoError(t, err)

	claimed, err := st.Claim(ctx, "orders", 10, now, 300)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	require.NoError(t, st.ChangeVisibility(ctx, "orders", claimed[0].ReceiptHandle, 0, now))

	again, err := st.Claim(ctx, "orders", 10, now, 30)
	require.NoError(t, err)
	require.Len(t, again, 1, "VisibilityTimeout=0 must make the message immediately reclaimable")
}

func TestFIFOHeadOfLineOrdering(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := st.CreateQueue(ctx, "orders.fifo", true, stdAttrs())
	require.NoError(t, err)

	for i, id := range []string{"m1", "m2", "m3"} {
		_, err := st.Enqueue(ctx, "orders.fifo", MessageDraft{
			ID: id, Body: "body", MessageGroupID: "g1", DeduplicationID: id,
		}, now.Add(time.Duration(i)*time.Millisecond))
		require.NoError(t, err)
	}

	// claim after all three enqueue times, so every message is visible
	later := now.Add(time.Second)

	// only the head of the group may be claimed
	claimed, err := st.Claim(ctx, "orders.fifo", 10, later, 30)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.Equal(t, "m1", claimed[0].ID)

	// group is blocked while m1 is in flight
	claimed2, err := st.Claim(ctx, "orders.fifo", 10, later, 30)
	require.NoError(t, err)
	require.Empty(t, claimed2)

	require.NoError(t, st.AckDelete(ctx, "orders.fifo", claimed[0].ReceiptHandle))

	claimed3, err := st.Claim(ctx, "orders.fifo", 10, later, 30)
	require.NoError(t, err)
	require.Len(t, claimed3, 1)
	require.Equal(t, "m2", claimed3[0].ID)
}

func TestContentDedupSuppressesReinsert(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := st.CreateQueue(ctx, "orders.fifo", true, stdAttrs())
	require.NoError(t, err)

	res1, err := st.Enqueue(ctx, "orders.fifo", MessageDraft{
		ID: "m1", Body: "same body", MessageGroupID: "g1", DeduplicationID: "dedup-1",
	}, now)
	require.NoError(t, err)
	require.False(t, res1.Deduplicated)

	res2, err := st.Enqueue(ctx, "orders.fifo", MessageDraft{
		ID: "m2", Body: "same body", MessageGroupID: "g1", DeduplicationID: "dedup-1",
	}, now.Add(time.Second))
	require.NoError(t, err)
	require.True(t, res2.Deduplicated)
	require.Equal(t, res1.MessageID, res2.MessageID)
}

func TestReleaseExpiredMovesToDLQAfterMaxReceiveCount(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	dlqAttrs := stdAttrs()
	_, err := st.CreateQueue(ctx, "orders-dlq", false, dlqAttrs)
	require.NoError(t, err)

	srcAttrs := stdAttrs()
	srcAttrs.RedrivePolicyJSON = `{"deadLetterTargetArn":"arn:aws:sqs:us-east-1:000000000000:orders-dlq","maxReceiveCount":1}`
	_, err = st.CreateQueue(ctx, "orders", false, srcAttrs)
	require.NoError(t, err)

	_, err = st.Enqueue(ctx, "orders", MessageDraft{ID: "m1", Body: "hello"}, now)
	require.NoError(t, err)

	claimed, err := st.Claim(ctx, "orders", 10, now, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	later := now.Add(2 * time.Second)
	released, err := st.ReleaseExpired(ctx, later)
	require.NoError(t, err)
	require.Len(t, released, 1)
	require.True(t, released[0].MovedToDLQ)
	require.Equal(t, "orders-dlq", released[0].DLQName)

	// message must be gone from the source queue...
	inSource, err := st.Claim(ctx, "orders", 10, later, 30)
	require.NoError(t, err)
	require.Empty(t, inSource)

	// ...and present in the DLQ
	inDLQ, err := st.Claim(ctx, "orders-dlq", 10, later, 30)
	require.NoError(t, err)
	require.Len(t, inDLQ, 1)
	require.Equal(t, "orders", inDLQ[0].SourceQueueName)
}

func TestReleaseExpiredWithoutRedrivePolicyReleasesInPlace(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := st.CreateQueue(ctx, "orders", false, stdAttrs())
	require.NoError(t, err)
	_, err = st.Enqueue(ctx, "orders", MessageDraft{ID: "m1", Body: "hello"}, now)
	require.NoError(t, err)

	claimed, err := st.Claim(ctx, "orders", 10, now, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	later := now.Add(2 * time.Second)
	released, err := st.ReleaseExpired(ctx, later)
	require.NoError(t, err)
	require.Len(t, released, 1)
	require.False(t, released[0].MovedToDLQ)

	again, err := st.Claim(ctx, "orders", 10, later, 30)
	require.NoError(t, err)
	require.Len(t, again, 1)
}

func TestPurgeExpiredRemovesRetentionElapsedMessages(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	attrs := stdAttrs()
	attrs.MessageRetentionS = 1
	_, err := st.CreateQueue(ctx, "orders", false, attrs)
	require.NoError(t, err)
	_, err = st.Enqueue(ctx, "orders", MessageDraft{ID: "m1", Body: "hello"}, now)
	require.NoError(t, err)

	n, err := st.PurgeExpired(ctx, now.Add(2*time.Second))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	claimed, err := st.Claim(ctx, "orders", 10, now.Add(2*time.Second), 30)
	require.NoError(t, err)
	require.Empty(t, claimed)
}

func TestEnqueueBatchInsertsOnlyGivenDrafts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := st.CreateQueue(ctx, "orders", false, stdAttrs())
	require.NoError(t, err)

	results, errs := st.EnqueueBatch(ctx, "orders", []MessageDraft{
		{ID: "m1", Body: "one"},
		{ID: "m2", Body: "two"},
	}, now)
	require.Len(t, results, 2)
	require.Len(t, errs, 2)
	for _, err := range errs {
		require.NoError(t, err)
	}

	claimed, err := st.Claim(ctx, "orders", 10, now, 30)
	require.NoError(t, err)
	require.Len(t, claimed, 2, "exactly the two drafts passed in should have been inserted")
}

func TestEnqueueBatchMissingQueueReturnsPerEntryErrors(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, errs := st.EnqueueBatch(ctx, "does-not-exist", []MessageDraft{
		{ID: "m1", Body: "one"},
	}, now)
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], ErrNotFound)
}
