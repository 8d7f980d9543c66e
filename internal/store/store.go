// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// QueueDeletedRecentlyWindow is how long create_queue refuses to reuse a
// name after delete_queue, per spec.md §9's resolved Open Question.
const QueueDeletedRecentlyWindow = 60 * time.Second

var (
	ErrNotFound         = errors.New("store: not found")
	ErrNameExists       = errors.New("store: queue name exists with different attributes")
	ErrDeletedRecently  = errors.New("store: queue deleted recently")
	ErrStaleHandle      = errors.New("store: receipt handle is invalid")
)

// QueueAttrs is the set of mutable, user-settable queue attributes.
type QueueAttrs struct {
	VisibilityTimeoutS int
	MessageRetentionS  int
	DelayS             int
	MaxMessageBytes    int
	ReceiveWaitTimeS   int
	RedrivePolicyJSON  string
	ContentBasedDedup  bool
}

// MessageDraft is the input to Enqueue/EnqueueBatch.
type MessageDraft struct {
	ID              string
	Body            string
	AttributesJSON  string
	DelaySeconds    int
	MessageGroupID  string
	DeduplicationID string
}

// EnqueueResult reports whether a draft was inserted or deduplicated away.
type EnqueueResult struct {
	MessageID      string
	SequenceNumber string
	Deduplicated   bool
}

// Store is the Storage Layer: durable, transactional persistence of
// queues and messages on top of an embedded sqlite database, serialized
// per queue the way the teacher's Queue guards its Messages slice with a
// sync.RWMutex.
type Store struct {
	db  *bun.DB
	log *zap.SugaredLogger

	mu     sync.Mutex // guards locks
	locks  map[string]*sync.Mutex
}

func New(db *bun.DB, log *zap.SugaredLogger) *Store {
	return &Store{
		db:    db,
		log:   log,
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *Store) lockFor(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

// withQueueLock serializes all writers on a single queue, as required by
// spec.md §4.1's concurrency contract, on top of the transactional
// guarantees sqlite already gives us.
func (s *Store) withQueueLock(name string, fn func() error) error {
	l := s.lockFor(name)
	l.Lock()
	defer l.Unlock()
	return fn()
}

func newReceiptHandle() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// CreateQueue creates a queue, or returns the existing one idempotently if
// its attributes match exactly (spec.md §4.1).
func (s *Store) CreateQueue(ctx context.Context, name string, isFifo bool, attrs QueueAttrs) (*QueueRow, error) {
	var result *QueueRow
	err := s.withQueueLock(name, func() error {
		return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			var tomb deletedQueueTombstone
			err := tx.NewSelect().Model(&tomb).Where("name = ?", name).Scan(ctx)
			if err == nil && time.Since(tomb.DeletedAt) < QueueDeletedRecentlyWindow {
				return ErrDeletedRecently
			}

			existing := new(QueueRow)
			err = tx.NewSelect().Model(existing).Where("name = ?", name).Scan(ctx)
			if err == nil {
				if sameAttrs(existing, isFifo, attrs) {
					result = existing
					return nil
				}
				return ErrNameExists
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("looking up queue: %w", err)
			}

			row := &QueueRow{
				Name:               name,
				IsFifo:             isFifo,
				VisibilityTimeoutS: attrs.VisibilityTimeoutS,
				MessageRetentionS:  attrs.MessageRetentionS,
				DelayS:             attrs.DelayS,
				MaxMessageBytes:    attrs.MaxMessageBytes,
				ReceiveWaitTimeS:   attrs.ReceiveWaitTimeS,
				RedrivePolicyJSON:  attrs.RedrivePolicyJSON,
				ContentBasedDedup:  attrs.ContentBasedDedup,
				CreatedAt:          time.Now().UTC(),
			}
			if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
				return fmt.Errorf("inserting queue: %w", err)
			}
			result = row
			return nil
		})
	})
	return result, err
}

func sameAttrs(row *QueueRow, isFifo bool, attrs QueueAttrs) bool {
	return row.IsFifo == isFifo &&
		row.VisibilityTimeoutS == attrs.VisibilityTimeoutS &&
		row.MessageRetentionS == attrs.MessageRetentionS &&
		row.DelayS == attrs.DelayS &&
		row.MaxMessageBytes == attrs.MaxMessageBytes &&
		row.ReceiveWaitTimeS == attrs.ReceiveWaitTimeS &&
		row.RedrivePolicyJSON == attrs.RedrivePolicyJSON &&
		row.ContentBasedDedup == attrs.ContentBasedDedup
}

// GetQueue fetches a queue by name.
func (s *Store) GetQueue(ctx context.Context, name string) (*QueueRow, error) {
	row := new(QueueRow)
	err := s.db.NewSelect().Model(row).Where("name = ?", name).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up queue %q: %w", name, err)
	}
	return row, nil
}

// DeleteQueue removes a queue and all its messages atomically, and
// tombstones the name for QueueDeletedRecentlyWindow.
func (s *Store) DeleteQueue(ctx context.Context, name string) error {
	return s.withQueueLock(name, func() error {
		return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			row := new(QueueRow)
			err := tx.NewSelect().Model(row).Where("name = ?", name).Scan(ctx)
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("looking up queue %q: %w", name, err)
			}

			if _, err := tx.NewDelete().Model((*MessageRow)(nil)).Where("queue_id = ?", row.ID).Exec(ctx); err != nil {
				return fmt.Errorf("deleting messages for queue %q: %w", name, err)
			}
			if _, err := tx.NewDelete().Model(row).WherePK().Exec(ctx); err != nil {
				return fmt.Errorf("deleting queue %q: %w", name, err)
			}

			tomb := &deletedQueueTombstone{Name: name, DeletedAt: time.Now().UTC()}
			_, err = tx.NewInsert().Model(tomb).
				On("CONFLICT (name) DO UPDATE SET deleted_at = EXCLUDED.deleted_at").
				Exec(ctx)
			return err
		})
	})
}

// ListQueues returns all queue names beginning with prefix.
func (s *Store) ListQueues(ctx context.Context, prefix string) ([]*QueueRow, error) {
	var rows []*QueueRow
	q := s.db.NewSelect().Model(&rows)
	if prefix != "" {
		q = q.Where("name LIKE ?", prefix+"%")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("listing queues: %w", err)
	}
	return rows, nil
}

// SetAttributes merges attrs into the queue's stored attributes.
func (s *Store) SetAttributes(ctx context.Context, name string, attrs QueueAttrs) error {
	return s.withQueueLock(name, func() error {
		res, err := s.db.NewUpdate().Model((*QueueRow)(nil)).
			Set("visibility_timeout_s = ?", attrs.VisibilityTimeoutS).
			Set("message_retention_s = ?", attrs.MessageRetentionS).
			Set("delay_s = ?", attrs.DelayS).
			Set("max_message_bytes = ?", attrs.MaxMessageBytes).
			Set("receive_wait_time_s = ?", attrs.ReceiveWaitTimeS).
			Set("redrive_policy_json = ?", attrs.RedrivePolicyJSON).
			Set("content_based_dedup = ?", attrs.ContentBasedDedup).
			Where("name = ?", name).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("updating queue %q attributes: %w", name, err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Enqueue inserts one message, allocating the next sequence number under
// the queue within the same transaction for FIFO queues, and suppressing
// the insert if a live dedup entry already exists.
func (s *Store) Enqueue(ctx context.Context, queueName string, draft MessageDraft, now time.Time) (EnqueueResult, error) {
	var out EnqueueResult
	err := s.withQueueLock(queueName, func() error {
		return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			row := new(QueueRow)
			if err := tx.NewSelect().Model(row).Where("name = ?", queueName).Scan(ctx); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return ErrNotFound
				}
				return fmt.Errorf("looking up queue %q: %w", queueName, err)
			}

			res, err := s.enqueueLocked(ctx, tx, row, draft, now)
			if err != nil {
				return err
			}
			out = res
			return nil
		})
	})
	return out, err
}

// EnqueueBatch enqueues each draft independently: a failure in one entry
// does not abort the others, but sequence-number allocation for FIFO
// queues is consistent across the whole batch (spec.md §4.1).
func (s *Store) EnqueueBatch(ctx context.Context, queueName string, drafts []MessageDraft, now time.Time) ([]EnqueueResult, []error) {
	results := make([]EnqueueResult, len(drafts))
	errs := make([]error, len(drafts))

	_ = s.withQueueLock(queueName, func() error {
		return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			row := new(QueueRow)
			if err := tx.NewSelect().Model(row).Where("name = ?", queueName).Scan(ctx); err != nil {
				for i := range drafts {
					if errors.Is(err, sql.ErrNoRows) {
						errs[i] = ErrNotFound
					} else {
						errs[i] = err
					}
				}
				return nil // per-entry errors, not a transaction abort
			}

			for i, draft := range drafts {
				res, err := s.enqueueLocked(ctx, tx, row, draft, now)
				if err != nil {
					errs[i] = err
					continue
				}
				results[i] = res
			}
			return nil
		})
	})
	return results, errs
}

func (s *Store) enqueueLocked(ctx context.Context, tx bun.Tx, row *QueueRow, draft MessageDraft, now time.Time) (EnqueueResult, error) {
	if row.IsFifo && draft.DeduplicationID != "" {
		existing := new(MessageRow)
		err := tx.NewSelect().Model(existing).
			Where("queue_id = ? AND message_group_id = ? AND deduplication_id = ? AND dedup_expires_at > ?",
				row.ID, draft.MessageGroupID, draft.DeduplicationID, now).
			Order("dedup_expires_at DESC").
			Limit(1).
			Scan(ctx)
		if err == nil {
			return EnqueueResult{MessageID: existing.ID, SequenceNumber: existing.SequenceNumber, Deduplicated: true}, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return EnqueueResult{}, fmt.Errorf("checking dedup cache: %w", err)
		}
	}

	visibleAt := now.Add(time.Duration(draft.DelaySeconds) * time.Second)
	expiresAt := now.Add(time.Duration(row.MessageRetentionS) * time.Second)

	msg := &MessageRow{
		ID:              draft.ID,
		QueueID:         row.ID,
		Body:            draft.Body,
		AttributesJSON:  draft.AttributesJSON,
		EnqueuedAt:      now,
		VisibleAt:       visibleAt,
		ExpiresAt:       expiresAt,
		MessageGroupID:  draft.MessageGroupID,
		DeduplicationID: draft.DeduplicationID,
	}

	if row.IsFifo {
		row.SequenceCounter++
		if _, err := tx.NewUpdate().Model(row).Column("sequence_counter").WherePK().Exec(ctx); err != nil {
			return EnqueueResult{}, fmt.Errorf("allocating sequence number: %w", err)
		}
		msg.SequenceNumber = fmt.Sprintf("%020d", row.SequenceCounter)
		if draft.DeduplicationID != "" {
			msg.DedupExpiresAt = now.Add(5 * time.Minute)
		}
	}

	if _, err := tx.NewInsert().Model(msg).Exec(ctx); err != nil {
		return EnqueueResult{}, fmt.Errorf("inserting message: %w", err)
	}
	return EnqueueResult{MessageID: msg.ID, SequenceNumber: msg.SequenceNumber}, nil
}

// Claim selects up to maxCount eligible messages and hands out fresh
// receipt handles, per the eligibility predicate in spec.md §4.2.
func (s *Store) Claim(ctx context.Context, queueName string, maxCount int, now time.Time, visibilityS int) ([]*MessageRow, error) {
	var claimed []*MessageRow
	err := s.withQueueLock(queueName, func() error {
		return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			row := new(QueueRow)
			if err := tx.NewSelect().Model(row).Where("name = ?", queueName).Scan(ctx); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return ErrNotFound
				}
				return fmt.Errorf("looking up queue %q: %w", queueName, err)
			}

			candidates, err := eligibleCandidates(ctx, tx, row, now)
			if err != nil {
				return err
			}

			for _, msg := range candidates {
				if len(claimed) >= maxCount {
					break
				}
				msg.ReceiptHandle = newReceiptHandle()
				msg.ClaimEpoch++
				msg.ClaimExpiresAt = now.Add(time.Duration(visibilityS) * time.Second)
				msg.ReceiveCount++
				if _, err := tx.NewUpdate().Model(msg).
					Column("receipt_handle", "claim_epoch", "claim_expires_at", "receive_count").
					WherePK().Exec(ctx); err != nil {
					return fmt.Errorf("claiming message %s: %w", msg.ID, err)
				}
				claimed = append(claimed, msg)
			}
			return nil
		})
	})
	return claimed, err
}

// eligibleCandidates returns messages eligible for claim, honoring FIFO
// per-group head-of-line ordering: within a group, only the
// lowest-sequence-number message that is not in-flight may be returned,
// and it is skipped entirely if an earlier message in its group is
// in-flight.
func eligibleCandidates(ctx context.Context, tx bun.Tx, row *QueueRow, now time.Time) ([]*MessageRow, error) {
	var all []*MessageRow
	err := tx.NewSelect().Model(&all).
		Where("queue_id = ? AND visible_at <= ? AND expires_at > ?", row.ID, now, now).
		Order("message_group_id ASC", "sequence_number ASC", "enqueued_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("selecting eligible messages: %w", err)
	}

	if !row.IsFifo {
		out := all[:0]
		for _, m := range all {
			if m.ReceiptHandle == "" {
				out = append(out, m)
			}
		}
		return out, nil
	}

	blockedGroups := make(map[string]bool)
	var inFlight []*MessageRow
	err = tx.NewSelect().Model(&inFlight).
		Where("queue_id = ? AND receipt_handle IS NOT NULL AND receipt_handle != ''", row.ID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("selecting in-flight messages: %w", err)
	}
	for _, m := range inFlight {
		blockedGroups[m.MessageGroupID] = true
	}

	var out []*MessageRow
	headSeen := make(map[string]bool)
	for _, m := range all {
		if blockedGroups[m.MessageGroupID] {
			continue
		}
		if m.ReceiptHandle != "" {
			blockedGroups[m.MessageGroupID] = true
			continue
		}
		if headSeen[m.MessageGroupID] {
			// a later, unclaimed message in a group whose head we already
			// selected: leave it for the next Claim once the head is gone.
			continue
		}
		headSeen[m.MessageGroupID] = true
		out = append(out, m)
	}
	return out, nil
}

// AckDelete removes a message if handle matches its live claim.
// Idempotent: deleting an already-gone message returns success.
func (s *Store) AckDelete(ctx context.Context, queueName, handle string) error {
	return s.withQueueLock(queueName, func() error {
		return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			row := new(QueueRow)
			if err := tx.NewSelect().Model(row).Where("name = ?", queueName).Scan(ctx); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return ErrNotFound
				}
				return fmt.Errorf("looking up queue %q: %w", queueName, err)
			}

			msg := new(MessageRow)
			err := tx.NewSelect().Model(msg).
				Where("queue_id = ? AND receipt_handle = ?", row.ID, handle).
				Scan(ctx)
			if errors.Is(err, sql.ErrNoRows) {
				return nil // already deleted or never existed: idempotent success
			}
			if err != nil {
				return fmt.Errorf("looking up message by handle: %w", err)
			}

			if _, err := tx.NewDelete().Model(msg).WherePK().Exec(ctx); err != nil {
				return fmt.Errorf("deleting message %s: %w", msg.ID, err)
			}
			return nil
		})
	})
}

// ChangeVisibility updates claim_expires_at for the message holding handle.
func (s *Store) ChangeVisibility(ctx context.Context, queueName, handle string, newVisibilityS int, now time.Time) error {
	return s.withQueueLock(queueName, func() error {
		return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			row := new(QueueRow)
			if err := tx.NewSelect().Model(row).Where("name = ?", queueName).Scan(ctx); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return ErrNotFound
				}
				return fmt.Errorf("looking up queue %q: %w", queueName, err)
			}

			msg := new(MessageRow)
			err := tx.NewSelect().Model(msg).
				Where("queue_id = ? AND receipt_handle = ?", row.ID, handle).
				Scan(ctx)
			if errors.Is(err, sql.ErrNoRows) {
				return ErrStaleHandle
			}
			if err != nil {
				return fmt.Errorf("looking up message by handle: %w", err)
			}

			if newVisibilityS <= 0 {
				msg.ReceiptHandle = ""
				msg.ClaimExpiresAt = time.Time{}
			} else {
				msg.ClaimExpiresAt = now.Add(time.Duration(newVisibilityS) * time.Second)
			}
			_, err = tx.NewUpdate().Model(msg).
				Column("receipt_handle", "claim_expires_at").
				WherePK().Exec(ctx)
			if err != nil {
				return fmt.Errorf("updating visibility for message %s: %w", msg.ID, err)
			}
			return nil
		})
	})
}

// PurgeQueue removes all messages irrespective of state.
func (s *Store) PurgeQueue(ctx context.Context, queueName string) error {
	return s.withQueueLock(queueName, func() error {
		return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			row := new(QueueRow)
			if err := tx.NewSelect().Model(row).Where("name = ?", queueName).Scan(ctx); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return ErrNotFound
				}
				return fmt.Errorf("looking up queue %q: %w", queueName, err)
			}
			_, err := tx.NewDelete().Model((*MessageRow)(nil)).Where("queue_id = ?", row.ID).Exec(ctx)
			return err
		})
	})
}

// ReleasedMessage describes a message whose in-flight claim expired, for
// the Reaper to use when deciding whether to wake waiters.
type ReleasedMessage struct {
	QueueName  string
	MovedToDLQ bool
	DLQName    string
}

// ReleaseExpired clears expired in-flight claims across all queues,
// delegating to moveToDLQLocked when the redrive policy's threshold is met.
func (s *Store) ReleaseExpired(ctx context.Context, now time.Time) ([]ReleasedMessage, error) {
	var expired []struct {
		MessageRow
		QueueName         string `bun:"queue_name"`
		RedrivePolicyJSON string `bun:"redrive_policy_json"`
	}
	err := s.db.NewSelect().Model((*MessageRow)(nil)).
		ColumnExpr("m.*").
		ColumnExpr("q.name AS queue_name").
		ColumnExpr("q.redrive_policy_json AS redrive_policy_json").
		Join("JOIN queues AS q ON q.id = m.queue_id").
		Where("m.claim_expires_at IS NOT NULL AND m.claim_expires_at <= ?", now).
		Scan(ctx, &expired)
	if err != nil {
		return nil, fmt.Errorf("selecting expired claims: %w", err)
	}

	var out []ReleasedMessage
	for _, e := range expired {
		moved, dlqName, err := s.releaseOne(ctx, e.QueueName, e.MessageRow.ID, e.RedrivePolicyJSON, now)
		if err != nil {
			s.log.Warnw("releasing expired claim", "queue", e.QueueName, "message_id", e.MessageRow.ID, "error", err)
			continue
		}
		out = append(out, ReleasedMessage{QueueName: e.QueueName, MovedToDLQ: moved, DLQName: dlqName})
	}
	return out, nil
}

func (s *Store) releaseOne(ctx context.Context, queueName, messageID, redrivePolicyJSON string, now time.Time) (moved bool, dlqName string, err error) {
	err = s.withQueueLock(queueName, func() error {
		return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			msg := new(MessageRow)
			err := tx.NewSelect().Model(msg).Where("id = ?", messageID).Scan(ctx)
			if errors.Is(err, sql.ErrNoRows) {
				return nil // already deleted/moved by a concurrent caller
			}
			if err != nil {
				return fmt.Errorf("reloading message %s: %w", messageID, err)
			}
			if msg.ClaimExpiresAt.IsZero() || msg.ClaimExpiresAt.After(now) {
				return nil // already re-released or re-claimed by a concurrent caller
			}

			maxReceive, dlq, ok := parseRedrivePolicy(redrivePolicyJSON)
			if ok && msg.ReceiveCount >= maxReceive {
				if err := s.moveToDLQLocked(ctx, tx, queueName, dlq, msg); err != nil {
					return err
				}
				moved = true
				dlqName = dlq
				return nil
			}

			msg.ReceiptHandle = ""
			msg.ClaimExpiresAt = time.Time{}
			_, err = tx.NewUpdate().Model(msg).
				Column("receipt_handle", "claim_expires_at").
				WherePK().Exec(ctx)
			return err
		})
	})
	return moved, dlqName, err
}

// moveToDLQLocked deletes msg from its source queue and enqueues a fresh
// copy into dlqName, recording the source queue in a system attribute.
// Assumes the source queue's lock is already held by the caller.
func (s *Store) moveToDLQLocked(ctx context.Context, tx bun.Tx, sourceQueueName, dlqName string, msg *MessageRow) error {
	dlq := new(QueueRow)
	err := tx.NewSelect().Model(dlq).Where("name = ?", dlqName).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		// DLQ removed since the policy was set: drop the message, per spec.md §4.1.
		s.log.Warnw("dead-letter queue missing, dropping message", "queue", sourceQueueName, "dlq", dlqName, "message_id", msg.ID)
		_, err := tx.NewDelete().Model(msg).WherePK().Exec(ctx)
		return err
	}
	if err != nil {
		return fmt.Errorf("looking up DLQ %q: %w", dlqName, err)
	}

	if _, err := tx.NewDelete().Model(msg).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("removing message %s from %q: %w", msg.ID, sourceQueueName, err)
	}

	now := time.Now().UTC()
	copyMsg := &MessageRow{
		ID:              newMessageID(),
		QueueID:         dlq.ID,
		Body:            msg.Body,
		AttributesJSON:  msg.AttributesJSON,
		EnqueuedAt:      now,
		VisibleAt:       now,
		ExpiresAt:       now.Add(time.Duration(dlq.MessageRetentionS) * time.Second),
		MessageGroupID:  msg.MessageGroupID,
		SourceQueueName: sourceQueueName,
	}
	if dlq.IsFifo {
		dlq.SequenceCounter++
		if _, err := tx.NewUpdate().Model(dlq).Column("sequence_counter").WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("allocating DLQ sequence number: %w", err)
		}
		copyMsg.SequenceNumber = fmt.Sprintf("%020d", dlq.SequenceCounter)
	}
	if _, err := tx.NewInsert().Model(copyMsg).Exec(ctx); err != nil {
		return fmt.Errorf("inserting DLQ copy: %w", err)
	}
	return nil
}

// PurgeExpired removes messages whose retention has elapsed.
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.NewDelete().Model((*MessageRow)(nil)).Where("expires_at <= ?", now).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("purging expired messages: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// QueueDepth returns the visible/in-flight/delayed message counts used for
// ApproximateNumberOfMessages* attributes.
func (s *Store) QueueDepth(ctx context.Context, queueName string, now time.Time) (visible, notVisible, delayed int, err error) {
	row := new(QueueRow)
	if err := s.db.NewSelect().Model(row).Where("name = ?", queueName).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, 0, ErrNotFound
		}
		return 0, 0, 0, fmt.Errorf("looking up queue %q: %w", queueName, err)
	}

	delayed, err = s.db.NewSelect().Model((*MessageRow)(nil)).
		Where("queue_id = ? AND visible_at > ?", row.ID, now).Count(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	notVisible, err = s.db.NewSelect().Model((*MessageRow)(nil)).
		Where("queue_id = ? AND visible_at <= ? AND receipt_handle IS NOT NULL AND receipt_handle != ''", row.ID, now).
		Count(ctx)
	if err != nil {
		return 0, 0, 0, err
	}
	visible, err = s.db.NewSelect().Model((*MessageRow)(nil)).
		Where("queue_id = ? AND visible_at <= ? AND (receipt_handle IS NULL OR receipt_handle = '')", row.ID, now).
		Count(ctx)
	return visible, notVisible, delayed, err
}
