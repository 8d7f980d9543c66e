// SPDX-License-Identifier: Apache-2.0

package queue

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

func newTestService(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "lsqs-test.db")
	db, err := store.Open(ctx, dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	st := store.New(db, zap.NewNop().Sugar())
	return New(st, waitregistry.New(), zap.NewNop().Sugar())
}

func TestCreateQueueDefaults(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	info, err := svc.CreateQueue(ctx, "orders", Attributes{})
	require.NoError(t, err)
	require.Equal(t, DefaultVisibilityTimeoutS, info.VisibilityTimeoutS)
	require.Equal(t, DefaultRetentionS, info.MessageRetentionS)
	require.False(t, info.IsFifo)
}

func TestCreateQueueRejectsBadName(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateQueue(ctx, "bad name!", Attributes{})
	require.Error(t, err)
}

func TestSendAndReceiveRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateQueue(ctx, "orders", Attributes{})
	require.NoError(t, err)

	out, err := svc.Send(ctx, "orders", SendInput{Body: "hello"})
	require.NoError(t, err)
	require.NotEmpty(t, out.MessageID)

	msgs, err := svc.Receive(ctx, "orders", ReceiveInput{MaxNumberOfMessages: 1})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "hello", msgs[0].Body)
	require.Equal(t, 1, msgs[0].ApproximateReceiveCount)

	require.NoError(t, svc.Delete(ctx, "orders", msgs[0].ReceiptHandle))

	again, err := svc.Receive(ctx, "orders", ReceiveInput{MaxNumberOfMessages: 1})
	require.NoError(t, err)
	require.Empty(t, again)
}

func TestReceiveLongPollWakesOnSend(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateQueue(ctx, "orders", Attributes{})
	require.NoError(t, err)

	wait := 2
	done := make(chan []ReceivedMessage, 1)
	errCh := make(chan error, 1)
	go func() {
		msgs, err := svc.Receive(ctx, "orders", ReceiveInput{MaxNumberOfMessages: 1, WaitTimeSeconds: &wait})
		if err != nil {
			errCh <- err
			return
		}
		done <- msgs
	}()

	time.Sleep(100 * time.Millisecond)
	_, err = svc.Send(ctx, "orders", SendInput{Body: "hello"})
	require.NoError(t, err)

	select {
	case msgs := <-done:
		require.Len(t, msgs, 1)
		require.Equal(t, "hello", msgs[0].Body)
	case err := <-errCh:
		t.Fatalf("Receive failed: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("long-poll Receive did not wake up after Send")
	}
}

func TestFIFORequiresGroupID(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateQueue(ctx, "orders.fifo", Attributes{})
	require.NoError(t, err)

	_, err = svc.Send(ctx, "orders.fifo", SendInput{Body: "hello"})
	require.Error(t, err)
}

func TestFIFOContentBasedDedup(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	dedup := true
	_, err := svc.CreateQueue(ctx, "orders.fifo", Attributes{ContentBasedDedup: &dedup})
	require.NoError(t, err)

	out1, err := svc.Send(ctx, "orders.fifo", SendInput{Body: "same", MessageGroupID: "g1"})
	require.NoError(t, err)
	out2, err := svc.Send(ctx, "orders.fifo", SendInput{Body: "same", MessageGroupID: "g1"})
	require.NoError(t, err)
	require.Equal(t, out1.MessageID, out2.MessageID)
}

func TestRedriveCycleRejected(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateQueue(ctx, "dlq-a", Attributes{})
	require.NoError(t, err)
	policyToA := &RedrivePolicy{DeadLetterTargetArn: "arn:aws:sqs:us-east-1:000000000000:dlq-a", MaxReceiveCount: 3}
	_, err = svc.CreateQueue(ctx, "dlq-b", Attributes{RedrivePolicy: policyToA})
	require.NoError(t, err)

	// dlq-b now has its own RedrivePolicy; a queue cannot target it as a DLQ
	policyToB := &RedrivePolicy{DeadLetterTargetArn: "arn:aws:sqs:us-east-1:000000000000:dlq-b", MaxReceiveCount: 3}
	_, err = svc.CreateQueue(ctx, "orders", Attributes{RedrivePolicy: policyToB})
	require.Error(t, err)
}

func TestSendBatchPartialValidationFailureDoesNotEnqueuePhantomMessage(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// A small per-queue message limit lets one entry be too long on its own
	// while the batch as a whole stays under MaxBatchRequestBytes.
	maxBytes := 1024
	_, err := svc.CreateQueue(ctx, "orders", Attributes{MaxMessageBytes: &maxBytes})
	require.NoError(t, err)

	big := make([]byte, maxBytes+1)
	outs, fails, err := svc.SendBatch(ctx, "orders", []SendInput{
		{Id: "1", Body: "hello"},
		{Id: "2", Body: string(big)},
	})
	require.NoError(t, err)
	require.Len(t, outs, 1)
	require.Equal(t, "1", outs[0].Id)
	require.Len(t, fails, 1)
	require.Equal(t, "2", fails[0].Id)
	require.Equal(t, "MessageTooLong", fails[0].Code)

	msgs, err := svc.Receive(ctx, "orders", ReceiveInput{MaxNumberOfMessages: 10})
	require.NoError(t, err)
	require.Len(t, msgs, 1, "only the valid entry should have been enqueued")
	require.Equal(t, "hello", msgs[0].Body)
}

func TestSendBatchMultipleValidationFailuresDoNotCollide(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateQueue(ctx, "orders.fifo", Attributes{})
	require.NoError(t, err)

	// Neither entry carries MessageGroupId, so both fail validation before
	// ever reaching the store; this must not collide on an empty draft ID.
	outs, fails, err := svc.SendBatch(ctx, "orders.fifo", []SendInput{
		{Id: "1", Body: "hello"},
		{Id: "2", Body: "world"},
	})
	require.NoError(t, err)
	require.Empty(t, outs)
	require.Len(t, fails, 2)
}

func TestSendBatchRejectsCombinedSizeOverLimit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateQueue(ctx, "orders", Attributes{})
	require.NoError(t, err)

	half := make([]byte, (MaxBatchRequestBytes/2)+1)
	_, _, err = svc.SendBatch(ctx, "orders", []SendInput{
		{Id: "1", Body: string(half)},
		{Id: "2", Body: string(half)},
	})
	require.Error(t, err)
	var qerr *Error
	require.ErrorAs(t, err, &qerr)
	require.Equal(t, "BatchRequestTooLong", qerr.Code)
}

func TestSendRejectsUnrecognizedMessageAttributeDataType(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateQueue(ctx, "orders", Attributes{})
	require.NoError(t, err)

	_, err = svc.Send(ctx, "orders", SendInput{
		Body: "hello",
		MessageAttributes: map[string]MessageAttributeValue{
			"Bogus": {DataType: "NotARealType", StringValue: "x"},
		},
	})
	require.Error(t, err)

	_, err = svc.Send(ctx, "orders", SendInput{
		Body: "hello",
		MessageAttributes: map[string]MessageAttributeValue{
			"Flavor": {DataType: "String.custom", StringValue: "x"},
		},
	})
	require.NoError(t, err)
}

func TestChangeVisibilityBatchPartialFailure(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateQueue(ctx, "orders", Attributes{})
	require.NoError(t, err)
	_, err = svc.Send(ctx, "orders", SendInput{Body: "hello"})
	require.NoError(t, err)

	msgs, err := svc.Receive(ctx, "orders", ReceiveInput{MaxNumberOfMessages: 1})
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	ok, fails, err := svc.ChangeVisibilityBatch(ctx, "orders", []ChangeVisibilityEntry{
		{Id: "1", ReceiptHandle: msgs[0].ReceiptHandle, VisibilityTimeout: 60},
		{Id: "2", ReceiptHandle: "not-a-real-handle", VisibilityTimeout: 60},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"1"}, ok)
	require.Len(t, fails, 1)
	require.Equal(t, "2", fails[0].Id)
}
