// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"regexp"
	"strings"
)

var queueNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateQueueName enforces spec.md §6's queue-name rules: 1-80 chars of
// [A-Za-z0-9_-], optionally ending in ".fifo".
func ValidateQueueName(name string) error {
	if name == "" {
		return ErrMissingRequiredParameter("QueueName")
	}
	if len(name) > 80 {
		return ErrInvalidParameterValue("Queue name %q exceeds 80 characters", name)
	}
	base := strings.TrimSuffix(name, ".fifo")
	if base == "" || !queueNamePattern.MatchString(base) {
		return ErrInvalidParameterValue(
			"Queue name %q may only contain alphanumeric characters, hyphens and underscores", name)
	}
	return nil
}

func isFifoName(name string) bool {
	return strings.HasSuffix(name, ".fifo")
}

func clampRange(name string, v, min, max int) error {
	if v < min || v > max {
		return ErrInvalidParameterValue("%s must be between %d and %d, got %d", name, min, max, v)
	}
	return nil
}

// validMessageAttributeBaseTypes are the only base types spec.md §6 allows
// for a MessageAttributeValue.DataType; "String"/"Number"/"Binary" may
// optionally carry a dot-separated custom suffix, e.g. "Number.float".
var validMessageAttributeBaseTypes = map[string]bool{
	"String": true, "Number": true, "Binary": true,
}

// validateMessageAttributeDataType enforces spec.md §6's DataType enum.
func validateMessageAttributeDataType(name, dataType string) error {
	base := dataType
	if i := strings.Index(dataType, "."); i >= 0 {
		base = dataType[:i]
	}
	if base == "" || !validMessageAttributeBaseTypes[base] {
		return ErrInvalidParameterValue(
			"message attribute %q has unrecognized DataType %q; must be String, Number or Binary (optionally with a custom suffix)",
			name, dataType)
	}
	return nil
}
