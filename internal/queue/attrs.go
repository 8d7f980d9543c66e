// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"encoding/json"

	"github.com/lsqs/lsqs/internal/store"
)

// resolvedAttrs is Attributes after defaults and validation have been
// applied, ready to persist.
type resolvedAttrs struct {
	VisibilityTimeoutS int
	MessageRetentionS  int
	DelaySeconds       int
	MaxMessageBytes    int
	ReceiveWaitTimeS   int
	RedrivePolicy      *RedrivePolicy
	ContentBasedDedup  bool
}

func defaultQueueAttrs() resolvedAttrs {
	return resolvedAttrs{
		VisibilityTimeoutS: DefaultVisibilityTimeoutS,
		MessageRetentionS:  DefaultRetentionS,
		DelaySeconds:       DefaultDelayS,
		MaxMessageBytes:    DefaultMaxMessageBytes,
		ReceiveWaitTimeS:   DefaultReceiveWaitTimeS,
	}
}

func storeAttrsToResolved(row *store.QueueRow) resolvedAttrs {
	r := resolvedAttrs{
		VisibilityTimeoutS: row.VisibilityTimeoutS,
		MessageRetentionS:  row.MessageRetentionS,
		DelaySeconds:       row.DelayS,
		MaxMessageBytes:    row.MaxMessageBytes,
		ReceiveWaitTimeS:   row.ReceiveWaitTimeS,
		ContentBasedDedup:  row.ContentBasedDedup,
	}
	if row.RedrivePolicyJSON != "" {
		var p RedrivePolicy
		if json.Unmarshal([]byte(row.RedrivePolicyJSON), &p) == nil {
			r.RedrivePolicy = &p
		}
	}
	return r
}

// resolveAttrs overlays a (possibly partial) Attributes request onto a
// base (defaults for CreateQueue, current values for SetQueueAttributes),
// validating every field against the SQS ranges spec.md §6 documents and
// rejecting FIFO-only fields on standard queues.
func (s *Service) resolveAttrs(isFifo bool, in Attributes, base resolvedAttrs) (resolvedAttrs, error) {
	out := base

	if in.VisibilityTimeoutS != nil {
		if err := clampRange("VisibilityTimeout", *in.VisibilityTimeoutS, MinVisibilityTimeoutS, MaxVisibilityTimeoutS); err != nil {
			return out, err
		}
		out.VisibilityTimeoutS = *in.VisibilityTimeoutS
	}
	if in.MessageRetentionS != nil {
		if err := clampRange("MessageRetentionPeriod", *in.MessageRetentionS, MinRetentionS, MaxRetentionS); err != nil {
			return out, err
		}
		out.MessageRetentionS = *in.MessageRetentionS
	}
	if in.DelaySeconds != nil {
		if err := clampRange("DelaySeconds", *in.DelaySeconds, MinDelayS, MaxDelayS); err != nil {
			return out, err
		}
		out.DelaySeconds = *in.DelaySeconds
	}
	if in.MaxMessageBytes != nil {
		if err := clampRange("MaximumMessageSize", *in.MaxMessageBytes, MinMessageBytes, MaxMessageBytes); err != nil {
			return out, err
		}
		out.MaxMessageBytes = *in.MaxMessageBytes
	}
	if in.ReceiveWaitTimeS != nil {
		if err := clampRange("ReceiveMessageWaitTimeSeconds", *in.ReceiveWaitTimeS, MinWaitTimeS, MaxWaitTimeS); err != nil {
			return out, err
		}
		out.ReceiveWaitTimeS = *in.ReceiveWaitTimeS
	}
	if in.RedrivePolicy != nil {
		out.RedrivePolicy = in.RedrivePolicy
	}
	if in.ContentBasedDedup != nil {
		if !isFifo {
			return out, ErrInvalidParameterValue("ContentBasedDeduplication is only valid for FIFO queues")
		}
		out.ContentBasedDedup = *in.ContentBasedDedup
	}

	return out, nil
}

func (r resolvedAttrs) toStoreAttrs() *store.QueueAttrs {
	policyJSON := ""
	if r.RedrivePolicy != nil {
		b, err := json.Marshal(r.RedrivePolicy)
		if err == nil {
			policyJSON = string(b)
		}
	}
	return &store.QueueAttrs{
		VisibilityTimeoutS: r.VisibilityTimeoutS,
		MessageRetentionS:  r.MessageRetentionS,
		DelayS:             r.DelaySeconds,
		MaxMessageBytes:    r.MaxMessageBytes,
		ReceiveWaitTimeS:   r.ReceiveWaitTimeS,
		RedrivePolicyJSON:  policyJSON,
		ContentBasedDedup:  r.ContentBasedDedup,
	}
}

func rowToInfo(row *store.QueueRow) *QueueInfo {
	return &QueueInfo{
		Name:               row.Name,
		IsFifo:             row.IsFifo,
		VisibilityTimeoutS: row.VisibilityTimeoutS,
		MessageRetentionS:  row.MessageRetentionS,
		DelaySeconds:       row.DelayS,
		MaxMessageBytes:    row.MaxMessageBytes,
		ReceiveWaitTimeS:   row.ReceiveWaitTimeS,
		RedrivePolicyJSON:  row.RedrivePolicyJSON,
		ContentBasedDedup:  row.ContentBasedDedup,
		CreatedAt:          row.CreatedAt,
	}
}
