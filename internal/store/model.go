// SPDX-License-Identifier: Apache-2.0

// Package store implements the Storage Layer: durable, transactional
// persistence of queues and messages on top of an embedded sqlite database.
package store

import (
	"time"

	"github.com/uptrace/bun"
)

// QueueRow is the persisted representation of a queue.
type QueueRow struct {
	bun.BaseModel `bun:"table:queues,alias:q"`

	ID                     int64     `bun:"id,pk,autoincrement"`
	Name                   string    `bun:"name,unique,notnull"`
	IsFifo                 bool      `bun:"is_fifo,notnull"`
	VisibilityTimeoutS     int       `bun:"visibility_timeout_s,notnull"`
	MessageRetentionS      int       `bun:"message_retention_s,notnull"`
	DelayS                 int       `bun:"delay_s,notnull"`
	MaxMessageBytes        int       `bun:"max_message_bytes,notnull"`
	ReceiveWaitTimeS       int       `bun:"receive_wait_time_s,notnull"`
	RedrivePolicyJSON      string    `bun:"redrive_policy_json"`
	ContentBasedDedup      bool      `bun:"content_based_dedup,notnull"`
	SequenceCounter        int64     `bun:"sequence_counter,notnull"`
	CreatedAt              time.Time `bun:"created_at,notnull"`
}

// MessageRow is the persisted representation of a message.
type MessageRow struct {
	bun.BaseModel `bun:"table:messages,alias:m"`

	ID                string    `bun:"id,pk"`
	QueueID           int64     `bun:"queue_id,notnull"`
	Body              string    `bun:"body,notnull"`
	AttributesJSON    string    `bun:"attributes_json"`
	EnqueuedAt        time.Time `bun:"enqueued_at,notnull"`
	VisibleAt         time.Time `bun:"visible_at,notnull"`
	ExpiresAt         time.Time `bun:"expires_at,notnull"`
	ReceiveCount      int       `bun:"receive_count,notnull"`
	ReceiptHandle     string    `bun:"receipt_handle"`
	ClaimEpoch        int64     `bun:"claim_epoch,notnull"`
	ClaimExpiresAt    time.Time `bun:"claim_expires_at,nullzero"`
	MessageGroupID    string    `bun:"message_group_id"`
	SequenceNumber    string    `bun:"sequence_number"`
	DeduplicationID   string    `bun:"deduplication_id"`
	DedupExpiresAt    time.Time `bun:"dedup_expires_at,nullzero"`
	SourceQueueName   string    `bun:"source_queue_name"`
}

// deletedQueueTombstone records the 60-second QueueDeletedRecently window.
type deletedQueueTombstone struct {
	bun.BaseModel `bun:"table:deleted_queues,alias:dq"`

	Name      string    `bun:"name,pk"`
	DeletedAt time.Time `bun:"deleted_at,notnull"`
}
