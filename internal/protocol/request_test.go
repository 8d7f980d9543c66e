// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeFormRequest(t *testing.T) {
	form := url.Values{
		"Action":      {"SendMessage"},
		"QueueUrl":    {"http://localhost:9324/orders"},
		"MessageBody": {"hello"},
	}
	r := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	req, err := decodeRequest(r)
	require.NoError(t, err)
	require.Equal(t, "SendMessage", req.action)
	require.Equal(t, framingForm, req.framing)
	require.Equal(t, "hello", req.messageBody)

	name, err := req.resolveQueueName()
	require.NoError(t, err)
	require.Equal(t, "orders", name)
}

func TestDecodeJSONRequest(t *testing.T) {
	body := `{"QueueUrl":"http://localhost:9324/orders","MessageBody":"hello"}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("X-Amz-Target", "AmazonSQS.SendMessage")
	r.Header.Set("Content-Type", "application/x-amz-json-1.0")

	req, err := decodeRequest(r)
	require.NoError(t, err)
	require.Equal(t, "SendMessage", req.action)
	require.Equal(t, framingJSON, req.framing)
	require.Equal(t, "hello", req.messageBody)
}

func TestDecodeJSONRequestQueryMode(t *testing.T) {
	body := `{"QueueUrl":"http://localhost:9324/orders"}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("X-Amz-Target", "AmazonSQS.GetQueueAttributes")
	r.Header.Set("x-amzn-query-mode", "true")

	req, err := decodeRequest(r)
	require.NoError(t, err)
	require.Equal(t, framingJSONQueryMode, req.framing)
}

func TestResolveQueueNameMismatchErrors(t *testing.T) {
	form := url.Values{
		"Action":   {"DeleteQueue"},
		"QueueUrl": {"http://localhost:9324/other-queue"},
	}
	r := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	req, err := decodeRequest(r)
	require.NoError(t, err)

	_, err = req.resolveQueueName()
	require.Error(t, err)
}

func TestDecodeAttributeNameSelectors(t *testing.T) {
	form := url.Values{
		"Action":                  {"ReceiveMessage"},
		"AttributeName.1":         {"SentTimestamp"},
		"AttributeName.2":         {"ApproximateReceiveCount"},
		"MessageAttributeName.1":  {"Flavor"},
	}
	r := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	req, err := decodeRequest(r)
	require.NoError(t, err)
	require.Equal(t, []string{"SentTimestamp", "ApproximateReceiveCount"}, req.attributeNames)
	require.Equal(t, []string{"Flavor"}, req.messageAttributeNames)
}

func TestDecodeJSONAttributeNameSelectors(t *testing.T) {
	body := `{"QueueUrl":"http://localhost:9324/orders","AttributeNames":["All"],"MessageAttributeNames":["Flavor","Size"]}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("X-Amz-Target", "AmazonSQS.ReceiveMessage")

	req, err := decodeRequest(r)
	require.NoError(t, err)
	require.Equal(t, []string{"All"}, req.attributeNames)
	require.Equal(t, []string{"Flavor", "Size"}, req.messageAttributeNames)
}

func TestParseFormEntriesBatch(t *testing.T) {
	form := url.Values{
		"Action":              {"DeleteMessageBatch"},
		"Entries.1.Id":        {"msg1"},
		"Entries.1.ReceiptHandle": {"handle1"},
		"Entries.2.Id":        {"msg2"},
		"Entries.2.ReceiptHandle": {"handle2"},
	}
	r := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	req, err := decodeRequest(r)
	require.NoError(t, err)
	require.Len(t, req.entries, 2)
	require.Equal(t, "msg1", req.entries[0].Id)
	require.Equal(t, "handle2", req.entries[1].ReceiptHandle)
}
