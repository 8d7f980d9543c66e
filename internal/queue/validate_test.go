// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateQueueName(t *testing.T) {
	cases := []struct {
		name    string
		wantErr bool
	}{
		{"orders", false},
		{"orders.fifo", false},
		{"order_events-v2", false},
		{"", true},
		{"has a space", true},
		{"has/slash", true},
		{".fifo", true},
		{string(make([]byte, 81)), true},
	}

	for _, tc := range cases {
		err := ValidateQueueName(tc.name)
		if tc.wantErr {
			assert.Error(t, err, tc.name)
		} else {
			assert.NoError(t, err, tc.name)
		}
	}
}

func TestIsFifoName(t *testing.T) {
	assert.True(t, isFifoName("orders.fifo"))
	assert.False(t, isFifoName("orders"))
}

func TestClampRange(t *testing.T) {
	require.NoError(t, clampRange("x", 5, 0, 10))
	err := clampRange("x", 11, 0, 10)
	require.Error(t, err)
	qerr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, "InvalidParameterValue", qerr.Code)
}

func TestValidateMessageAttributeDataType(t *testing.T) {
	cases := []struct {
		dataType string
		wantErr  bool
	}{
		{"String", false},
		{"Number", false},
		{"Binary", false},
		{"String.custom-type", false},
		{"Number.float", false},
		{"", true},
		{"Bogus", true},
		{"string", true}, // case sensitive, like real SQS
	}
	for _, tc := range cases {
		err := validateMessageAttributeDataType("Attr", tc.dataType)
		if tc.wantErr {
			assert.Error(t, err, tc.dataType)
		} else {
			assert.NoError(t, err, tc.dataType)
		}
	}
}
