// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMD5OfBody(t *testing.T) {
	// Known MD5("hello world") = 5eb63bbbe01eeed093cb22bb8f5acdc3
	assert.Equal(t, "5eb63bbbe01eeed093cb22bb8f5acdc3", md5OfBody("hello world"))
}

func TestMD5OfAttributesEmpty(t *testing.T) {
	assert.Equal(t, "", md5OfAttributes(nil))
	assert.Equal(t, "", md5OfAttributes(map[string]MessageAttributeValue{}))
}

func TestMD5OfAttributesDeterministic(t *testing.T) {
	attrs := map[string]MessageAttributeValue{
		"b": {DataType: "String", StringValue: "2"},
		"a": {DataType: "String", StringValue: "1"},
	}
	// name-sorted processing means key insertion order must not matter
	got1 := md5OfAttributes(attrs)
	got2 := md5OfAttributes(map[string]MessageAttributeValue{
		"a": {DataType: "String", StringValue: "1"},
		"b": {DataType: "String", StringValue: "2"},
	})
	assert.Equal(t, got1, got2)
	assert.Len(t, got1, 32)
}

func TestMD5OfAttributesBinaryVsString(t *testing.T) {
	strAttrs := map[string]MessageAttributeValue{"k": {DataType: "String", StringValue: "v"}}
	binAttrs := map[string]MessageAttributeValue{"k": {DataType: "String", BinaryValue: []byte("v")}}
	assert.NotEqual(t, md5OfAttributes(strAttrs), md5OfAttributes(binAttrs))
}
