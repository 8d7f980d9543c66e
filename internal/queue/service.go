// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lsqs/lsqs/internal/store"
	"github.com/lsqs/lsqs/internal/waitregistry"
)

// Service implements SQS semantics on top of the Storage Layer: this is
// where spec.md §4.2's invariants live.
type Service struct {
	store *store.Store
	waits *waitregistry.Registry
	log   *zap.SugaredLogger

	// Queue URLs ("http(s)://<host>:<port>/<name>") are not rendered here:
	// the protocol layer builds them per request from the Host header,
	// since the canonical URL echoes whatever host the client used to
	// reach us.
}

func New(st *store.Store, waits *waitregistry.Registry, log *zap.SugaredLogger) *Service {
	return &Service{store: st, waits: waits, log: log}
}

func translateStoreErr(name string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrQueueDoesNotExist(name)
	case errors.Is(err, store.ErrNameExists):
		return ErrQueueNameExists(name)
	case errors.Is(err, store.ErrDeletedRecently):
		return ErrQueueDeletedRecently(name)
	case errors.Is(err, store.ErrStaleHandle):
		return ErrReceiptHandleIsInvalid("")
	default:
		var qerr *Error
		if errors.As(err, &qerr) {
			return qerr
		}
		return ErrInternalFailure(err)
	}
}

// CreateQueue creates a queue, validating names and FIFO-only attribute
// placement per spec.md §3's invariants.
func (s *Service) CreateQueue(ctx context.Context, name string, attrs Attributes) (*QueueInfo, error) {
	if err := ValidateQueueName(name); err != nil {
		return nil, err
	}
	isFifo := isFifoName(name) || attrs.FifoQueue
	if !isFifo && (attrs.ContentBasedDedup != nil) {
		return nil, ErrInvalidParameterValue("ContentBasedDeduplication is only valid for FIFO queues")
	}

	resolved, err := s.resolveAttrs(isFifo, attrs, defaultQueueAttrs())
	if err != nil {
		return nil, err
	}
	if err := s.checkRedriveCycle(ctx, resolved.RedrivePolicy); err != nil {
		return nil, err
	}

	row, err := s.store.CreateQueue(ctx, name, isFifo, *resolved.toStoreAttrs())
	if err != nil {
		return nil, translateStoreErr(name, err)
	}
	return rowToInfo(row), nil
}

// DeleteQueue removes a queue and all its messages.
func (s *Service) DeleteQueue(ctx context.Context, name string) error {
	if err := s.store.DeleteQueue(ctx, name); err != nil {
		return translateStoreErr(name, err)
	}
	return nil
}

// ListQueues returns queue names beginning with prefix.
func (s *Service) ListQueues(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.store.ListQueues(ctx, prefix)
	if err != nil {
		return nil, ErrInternalFailure(err)
	}
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.Name
	}
	return names, nil
}

// GetQueueAttributes returns a read-oriented view of the queue.
func (s *Service) GetQueueAttributes(ctx context.Context, name string) (*QueueInfo, error) {
	row, err := s.store.GetQueue(ctx, name)
	if err != nil {
		return nil, translateStoreErr(name, err)
	}
	info := rowToInfo(row)
	visible, notVisible, delayed, err := s.store.QueueDepth(ctx, name, time.Now().UTC())
	if err != nil {
		return nil, translateStoreErr(name, err)
	}
	info.ApproximateNumMessages = visible
	info.ApproximateNumNotVisible = notVisible
	info.ApproximateNumDelayed = delayed
	return info, nil
}

// SetQueueAttributes merges attrs into the queue's stored attributes.
func (s *Service) SetQueueAttributes(ctx context.Context, name string, attrs Attributes) error {
	row, err := s.store.GetQueue(ctx, name)
	if err != nil {
		return translateStoreErr(name, err)
	}
	current := storeAttrsToResolved(row)
	resolved, err := s.resolveAttrs(row.IsFifo, attrs, current)
	if err != nil {
		return err
	}
	if err := s.checkRedriveCycle(ctx, resolved.RedrivePolicy); err != nil {
		return err
	}
	if err := s.store.SetAttributes(ctx, name, *resolved.toStoreAttrs()); err != nil {
		return translateStoreErr(name, err)
	}
	return nil
}

// checkRedriveCycle forbids a redrive policy pointing at a queue that
// itself has a redrive policy, per spec.md §9's cycle-breaking rule.
func (s *Service) checkRedriveCycle(ctx context.Context, policy *RedrivePolicy) error {
	if policy == nil {
		return nil
	}
	dlqName := arnQueueName(policy.DeadLetterTargetArn)
	if dlqName == "" {
		return ErrInvalidParameterValue("RedrivePolicy.deadLetterTargetArn %q is not a valid queue ARN", policy.DeadLetterTargetArn)
	}
	dlqRow, err := s.store.GetQueue(ctx, dlqName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidParameterValue("dead-letter target queue %q does not exist", dlqName)
		}
		return ErrInternalFailure(err)
	}
	if dlqRow.RedrivePolicyJSON != "" {
		return ErrInvalidParameterValue(
			"queue %q cannot be used as a dead-letter queue because it has its own RedrivePolicy", dlqName)
	}
	return nil
}

func arnQueueName(arn string) string {
	idx := -1
	colons := 0
	for i, ch := range arn {
		if ch == ':' {
			colons++
			if colons == 5 {
				idx = i + 1
				break
			}
		}
	}
	if idx == -1 || idx >= len(arn) {
		return ""
	}
	return arn[idx:]
}

// Send inserts one message and wakes the Wait Registry on success.
func (s *Service) Send(ctx context.Context, queueName string, in SendInput) (*SendOutput, error) {
	row, err := s.store.GetQueue(ctx, queueName)
	if err != nil {
		return nil, translateStoreErr(queueName, err)
	}

	draft, err := s.buildDraft(row, in, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	res, err := s.store.Enqueue(ctx, queueName, draft, time.Now().UTC())
	if err != nil {
		return nil, translateStoreErr(queueName, err)
	}
	if !res.Deduplicated {
		s.waits.Notify(queueName)
	}

	attrsJSON := draft.AttributesJSON
	attrs, _ := decodeAttributesJSON(attrsJSON)
	return &SendOutput{
		Id:             in.Id,
		MessageID:      res.MessageID,
		MD5OfBody:      md5OfBody(in.Body),
		MD5OfAttrs:     md5OfAttributes(attrs),
		SequenceNumber: res.SequenceNumber,
	}, nil
}

// SendBatch sends each entry independently; failures don't abort siblings.
func (s *Service) SendBatch(ctx context.Context, queueName string, ins []SendInput) ([]SendOutput, []BatchFailure, error) {
	if err := validateBatchShape(len(ins), idsOf(ins)); err != nil {
		return nil, nil, err
	}
	if total := totalBodyBytes(ins); total > MaxBatchRequestBytes {
		return nil, nil, ErrBatchRequestTooLong(total, MaxBatchRequestBytes)
	}

	row, err := s.store.GetQueue(ctx, queueName)
	if err != nil {
		return nil, nil, translateStoreErr(queueName, err)
	}

	now := time.Now().UTC()
	drafts := make([]store.MessageDraft, 0, len(ins))
	draftInput := make([]SendInput, 0, len(ins))

	fails := make([]BatchFailure, 0)
	for _, in := range ins {
		d, err := s.buildDraft(row, in, now)
		if err != nil {
			var qerr *Error
			errors.As(err, &qerr)
			fails = append(fails, BatchFailure{Id: in.Id, Code: qerr.Code, Message: qerr.Message, SenderFault: true})
			continue
		}
		drafts = append(drafts, d)
		draftInput = append(draftInput, in)
	}

	// Only entries that built a real draft reach the store; a failed
	// validation never produces a row, so enqueueLocked can't insert one.
	results, storeErrs := s.store.EnqueueBatch(ctx, queueName, drafts, now)

	outs := make([]SendOutput, 0, len(ins))
	anyEnqueued := false
	for j, in := range draftInput {
		if storeErrs[j] != nil {
			fails = append(fails, *translateBatchStoreErr(in.Id, queueName, storeErrs[j]))
			continue
		}
		attrs, _ := decodeAttributesJSON(drafts[j].AttributesJSON)
		outs = append(outs, SendOutput{
			Id:             in.Id,
			MessageID:      results[j].MessageID,
			MD5OfBody:      md5OfBody(in.Body),
			MD5OfAttrs:     md5OfAttributes(attrs),
			SequenceNumber: results[j].SequenceNumber,
		})
		if !results[j].Deduplicated {
			anyEnqueued = true
		}
	}
	if anyEnqueued {
		s.waits.Notify(queueName)
	}
	return outs, fails, nil
}

func translateBatchStoreErr(id, queueName string, err error) *BatchFailure {
	qerr, ok := translateStoreErr(queueName, err).(*Error)
	if !ok {
		qerr = ErrInternalFailure(err)
	}
	return &BatchFailure{Id: id, Code: qerr.Code, Message: qerr.Message, SenderFault: qerr.Type == TypeSender}
}

func (s *Service) buildDraft(row *store.QueueRow, in SendInput, now time.Time) (store.MessageDraft, error) {
	if len(in.Body) < MinMessageBytes {
		return store.MessageDraft{}, ErrInvalidMessageContents("message body must not be empty")
	}
	if len(in.Body) > row.MaxMessageBytes {
		return store.MessageDraft{}, ErrMessageTooLong(len(in.Body), row.MaxMessageBytes)
	}

	delay := row.DelayS
	if in.DelaySeconds != nil {
		if row.IsFifo {
			return store.MessageDraft{}, ErrInvalidParameterValue("DelaySeconds is not supported on FIFO queues; set it on the queue instead")
		}
		if err := clampRange("DelaySeconds", *in.DelaySeconds, MinDelayS, MaxDelayS); err != nil {
			return store.MessageDraft{}, err
		}
		if *in.DelaySeconds > delay {
			delay = *in.DelaySeconds
		}
	}

	groupID := in.MessageGroupID
	dedupID := in.MessageDeduplicationID
	if row.IsFifo {
		if groupID == "" {
			return store.MessageDraft{}, ErrMissingRequiredParameter("MessageGroupId")
		}
		if dedupID == "" {
			if row.ContentBasedDedup {
				sum := sha256.Sum256([]byte(in.Body))
				dedupID = hex.EncodeToString(sum[:])
			} else {
				return store.MessageDraft{}, ErrMissingRequiredParameter("MessageDeduplicationId")
			}
		}
	}

	for name, v := range in.MessageAttributes {
		if err := validateMessageAttributeDataType(name, v.DataType); err != nil {
			return store.MessageDraft{}, err
		}
	}

	attrsJSON, err := encodeAttributesJSON(in.MessageAttributes)
	if err != nil {
		return store.MessageDraft{}, ErrInvalidParameterValue("invalid MessageAttributes: %v", err)
	}

	return store.MessageDraft{
		ID:              uuid.New().String(),
		Body:            in.Body,
		AttributesJSON:  attrsJSON,
		DelaySeconds:    delay,
		MessageGroupID:  groupID,
		DeduplicationID: dedupID,
	}, nil
}

// Receive blocks up to WaitTimeSeconds for at least one eligible message,
// re-checking eligibility after every wake since wakeups are spurious by
// design (spec.md §4.3).
func (s *Service) Receive(ctx context.Context, queueName string, in ReceiveInput) ([]ReceivedMessage, error) {
	row, err := s.store.GetQueue(ctx, queueName)
	if err != nil {
		return nil, translateStoreErr(queueName, err)
	}

	maxCount := in.MaxNumberOfMessages
	if maxCount == 0 {
		maxCount = 1
	}
	if err := clampRange("MaxNumberOfMessages", maxCount, MinBatchSize, MaxBatchSize); err != nil {
		return nil, err
	}

	visibility := row.VisibilityTimeoutS
	if in.VisibilityTimeoutS != nil {
		if err := clampRange("VisibilityTimeout", *in.VisibilityTimeoutS, MinVisibilityTimeoutS, MaxVisibilityTimeoutS); err != nil {
			return nil, err
		}
		visibility = *in.VisibilityTimeoutS
	}

	waitS := row.ReceiveWaitTimeS
	if in.WaitTimeSeconds != nil {
		if err := clampRange("WaitTimeSeconds", *in.WaitTimeSeconds, MinWaitTimeS, MaxWaitTimeS); err != nil {
			return nil, err
		}
		waitS = *in.WaitTimeSeconds
	}

	rows, err := s.store.Claim(ctx, queueName, maxCount, time.Now().UTC(), visibility)
	if err != nil {
		return nil, translateStoreErr(queueName, err)
	}
	if len(rows) > 0 || waitS <= 0 {
		return toReceivedMessages(rows), nil
	}

	deadline := time.NewTimer(time.Duration(waitS) * time.Second)
	defer deadline.Stop()

	for {
		ch, cancel := s.waits.Wait(queueName)
		select {
		case <-ctx.Done():
			cancel()
			return nil, nil
		case <-deadline.C:
			cancel()
			return nil, nil
		case <-ch:
			cancel()
			rows, err := s.store.Claim(ctx, queueName, maxCount, time.Now().UTC(), visibility)
			if err != nil {
				return nil, translateStoreErr(queueName, err)
			}
			if len(rows) > 0 {
				return toReceivedMessages(rows), nil
			}
			// spurious wakeup: message still delay-pending or taken by
			// another receiver; keep waiting out the remaining deadline.
		}
	}
}

func toReceivedMessages(rows []*store.MessageRow) []ReceivedMessage {
	out := make([]ReceivedMessage, len(rows))
	for i, m := range rows {
		attrs, _ := decodeAttributesJSON(m.AttributesJSON)
		out[i] = ReceivedMessage{
			MessageID:               m.ID,
			ReceiptHandle:           m.ReceiptHandle,
			Body:                    m.Body,
			MD5OfBody:               md5OfBody(m.Body),
			MD5OfAttrs:              md5OfAttributes(attrs),
			MessageAttributes:       attrs,
			ApproximateReceiveCount: m.ReceiveCount,
			SentTimestamp:           m.EnqueuedAt,
			MessageGroupID:          m.MessageGroupID,
			MessageDeduplicationID:  m.DeduplicationID,
			SequenceNumber:          m.SequenceNumber,
			DeadLetterSourceQueue:   m.SourceQueueName,
		}
	}
	return out
}

// Delete deletes one message by receipt handle.
func (s *Service) Delete(ctx context.Context, queueName, handle string) error {
	if handle == "" {
		return ErrMissingRequiredParameter("ReceiptHandle")
	}
	if err := s.store.AckDelete(ctx, queueName, handle); err != nil {
		return translateStoreErr(queueName, err)
	}
	return nil
}

// DeleteBatch deletes a batch of messages, per-entry.
func (s *Service) DeleteBatch(ctx context.Context, queueName string, entries []DeleteEntry) ([]string, []BatchFailure, error) {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.Id
	}
	if err := validateBatchShape(len(entries), ids); err != nil {
		return nil, nil, err
	}

	var ok []string
	var fails []BatchFailure
	for _, e := range entries {
		if e.ReceiptHandle == "" {
			fails = append(fails, BatchFailure{Id: e.Id, Code: "MissingRequiredParameter", Message: "ReceiptHandle is required", SenderFault: true})
			continue
		}
		if err := s.store.AckDelete(ctx, queueName, e.ReceiptHandle); err != nil {
			fails = append(fails, *translateBatchStoreErr(e.Id, queueName, err))
			continue
		}
		ok = append(ok, e.Id)
	}
	return ok, fails, nil
}

// ChangeVisibility updates one message's claim expiry; 0 immediately
// re-releases it (spec.md §4.2).
func (s *Service) ChangeVisibility(ctx context.Context, queueName, handle string, newVisibilityS int) error {
	if err := clampRange("VisibilityTimeout", newVisibilityS, MinVisibilityTimeoutS, MaxVisibilityTimeoutS); err != nil {
		return err
	}
	if err := s.store.ChangeVisibility(ctx, queueName, handle, newVisibilityS, time.Now().UTC()); err != nil {
		return translateStoreErr(queueName, err)
	}
	if newVisibilityS == 0 {
		s.waits.Notify(queueName)
	}
	return nil
}

// ChangeVisibilityBatch updates a batch of messages, per-entry.
func (s *Service) ChangeVisibilityBatch(ctx context.Context, queueName string, entries []ChangeVisibilityEntry) ([]string, []BatchFailure, error) {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.Id
	}
	if err := validateBatchShape(len(entries), ids); err != nil {
		return nil, nil, err
	}

	var ok []string
	var fails []BatchFailure
	zeroed := false
	for _, e := range entries {
		if err := clampRange("VisibilityTimeout", e.VisibilityTimeout, MinVisibilityTimeoutS, MaxVisibilityTimeoutS); err != nil {
			var qerr *Error
			errors.As(err, &qerr)
			fails = append(fails, BatchFailure{Id: e.Id, Code: qerr.Code, Message: qerr.Message, SenderFault: true})
			continue
		}
		if err := s.store.ChangeVisibility(ctx, queueName, e.ReceiptHandle, e.VisibilityTimeout, time.Now().UTC()); err != nil {
			fails = append(fails, *translateBatchStoreErr(e.Id, queueName, err))
			continue
		}
		if e.VisibilityTimeout == 0 {
			zeroed = true
		}
		ok = append(ok, e.Id)
	}
	if zeroed {
		s.waits.Notify(queueName)
	}
	return ok, fails, nil
}

// PurgeQueue removes all messages from a queue.
func (s *Service) PurgeQueue(ctx context.Context, queueName string) error {
	if err := s.store.PurgeQueue(ctx, queueName); err != nil {
		return translateStoreErr(queueName, err)
	}
	return nil
}

func validateBatchShape(n int, ids []string) error {
	if n == 0 {
		return ErrEmptyBatchRequest()
	}
	if n > MaxBatchSize {
		return ErrTooManyEntriesInBatchRequest(n)
	}
	seen := make(map[string]bool, n)
	for _, id := range ids {
		if seen[id] {
			return ErrBatchEntryIdsNotDistinct()
		}
		seen[id] = true
	}
	return nil
}

// totalBodyBytes sums message bodies across a batch: SendMessageBatch
// caps the combined size, not just each entry individually.
func totalBodyBytes(ins []SendInput) int {
	total := 0
	for _, in := range ins {
		total += len(in.Body)
	}
	return total
}

func idsOf(ins []SendInput) []string {
	out := make([]string, len(ins))
	for i, in := range ins {
		out[i] = in.Id
	}
	return out
}

func encodeAttributesJSON(attrs map[string]MessageAttributeValue) (string, error) {
	if len(attrs) == 0 {
		return "", nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeAttributesJSON(s string) (map[string]MessageAttributeValue, error) {
	if s == "" {
		return nil, nil
	}
	var attrs map[string]MessageAttributeValue
	if err := json.Unmarshal([]byte(s), &attrs); err != nil {
		return nil, fmt.Errorf("decoding stored message attributes: %w", err)
	}
	return attrs, nil
}
