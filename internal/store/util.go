// SPDX-License-Identifier: Apache-2.0

package store

import (
	"encoding/json"

	"github.com/google/uuid"
)

func newMessageID() string {
	return uuid.New().String()
}

type redrivePolicy struct {
	DeadLetterTargetArn string `json:"deadLetterTargetArn"`
	MaxReceiveCount     int    `json:"maxReceiveCount"`
}

// parseRedrivePolicy extracts the max receive count and DLQ queue name
// (the ARN's trailing segment) from a queue's stored RedrivePolicy JSON.
func parseRedrivePolicy(policyJSON string) (maxReceiveCount int, dlqName string, ok bool) {
	if policyJSON == "" {
		return 0, "", false
	}
	var p redrivePolicy
	if err := json.Unmarshal([]byte(policyJSON), &p); err != nil {
		return 0, "", false
	}
	name := arnQueueName(p.DeadLetterTargetArn)
	if name == "" || p.MaxReceiveCount <= 0 {
		return 0, "", false
	}
	return p.MaxReceiveCount, name, true
}

// arnQueueName extracts the queue name from an
// "arn:aws:sqs:<region>:<account>:<name>" ARN.
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
