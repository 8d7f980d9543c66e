// SPDX-License-Identifier: Apache-2.0

// Package protocol is the HTTP front door: it decodes both the
// form/query-string ("Action=...") and JSON-with-X-Amz-Target framings
// into one canonical request shape, dispatches to the Queue Service, and
// encodes the matching XML or JSON response, per spec.md §4.5.
package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/lsqs/lsqs/internal/queue"
)

// framing identifies which wire framing a request arrived in, which
// determines both how it is decoded and how the response is encoded.
type framing int

const (
	framingForm framing = iota
	framingJSON
	framingJSONQueryMode // JSON request, XML-in-JSON-envelope response requested
)

// entry is the generic shape of one Entries.N element, used by every batch
// operation; each operation reads only the fields it needs.
type entry struct {
	Id                     string
	MessageBody            string
	DelaySeconds           *int
	MessageGroupID         string
	MessageDeduplicationID string
	MessageAttributes      map[string]queue.MessageAttributeValue
	ReceiptHandle          string
	VisibilityTimeout      *int
}

// request is the canonical, framing-independent view of an incoming SQS
// call.
type request struct {
	action  string
	framing framing

	queueURLPath string // queue name from the URL path, if any
	queueURL     string // QueueUrl param, if any

	queueName         string
	prefix            string
	attributes        map[string]string
	messageBody       string
	delaySeconds      *int
	messageGroupID    string
	messageDedupID    string
	messageAttributes map[string]queue.MessageAttributeValue
	maxMessages       *int
	visibilityTimeout *int
	waitTimeSeconds   *int
	receiptHandle     string
	entries           []entry

	attributeNames        []string // AttributeName.N / AttributeNames — which system attributes to return
	messageAttributeNames []string // MessageAttributeName.N / MessageAttributeNames
}

func decodeRequest(r *http.Request) (*request, error) {
	target := r.Header.Get("X-Amz-Target")
	if target == "" {
		return decodeFormRequest(r)
	}
	return decodeJSONRequest(r, target)
}

func decodeFormRequest(r *http.Request) (*request, error) {
	if err := r.ParseForm(); err != nil {
		return nil, queue.ErrInvalidParameterValue("failed to parse request: %v", err)
	}
	form := r.Form

	req := &request{
		action:            form.Get("Action"),
		framing:           framingForm,
		queueURLPath:      strings.TrimPrefix(r.URL.Path, "/"),
		queueURL:          form.Get("QueueUrl"),
		queueName:         form.Get("QueueName"),
		prefix:            form.Get("QueueNamePrefix"),
		attributes:        parseIndexedNameValue(form, "Attribute"),
		messageBody:       form.Get("MessageBody"),
		messageGroupID:    form.Get("MessageGroupId"),
		messageDedupID:    form.Get("MessageDeduplicationId"),
		messageAttributes: parseFormMessageAttributes(form, ""),
		receiptHandle:     form.Get("ReceiptHandle"),
	}
	req.delaySeconds = parseOptionalInt(form, "DelaySeconds")
	req.maxMessages = parseOptionalInt(form, "MaxNumberOfMessages")
	req.visibilityTimeout = parseOptionalInt(form, "VisibilityTimeout")
	req.waitTimeSeconds = parseOptionalInt(form, "WaitTimeSeconds")
	req.entries = parseFormEntries(form)
	req.attributeNames = parseIndexedList(form, "AttributeName")
	req.messageAttributeNames = parseIndexedList(form, "MessageAttributeName")
	return req, nil
}

func decodeJSONRequest(r *http.Request, target string) (*request, error) {
	parts := strings.SplitN(target, ".", 2)
	if len(parts) != 2 {
		return nil, queue.ErrInvalidParameterValue("malformed X-Amz-Target header %q", target)
	}
	action := parts[1]

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, queue.ErrInvalidParameterValue("failed to read request body: %v", err)
	}
	var raw map[string]json.RawMessage
	if len(body) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, queue.ErrInvalidParameterValue("failed to parse JSON request: %v", err)
		}
	}

	fr := framingJSON
	if strings.EqualFold(r.Header.Get("x-amzn-query-mode"), "true") {
		fr = framingJSONQueryMode
	}

	req := &request{
		action:       action,
		framing:      fr,
		queueURLPath: strings.TrimPrefix(r.URL.Path, "/"),
	}
	req.queueURL = jsonString(raw, "QueueUrl")
	req.queueName = jsonString(raw, "QueueName")
	req.prefix = jsonString(raw, "QueueNamePrefix")
	req.messageBody = jsonString(raw, "MessageBody")
	req.messageGroupID = jsonString(raw, "MessageGroupId")
	req.messageDedupID = jsonString(raw, "MessageDeduplicationId")
	req.receiptHandle = jsonString(raw, "ReceiptHandle")
	req.delaySeconds = jsonInt(raw, "DelaySeconds")
	req.maxMessages = jsonInt(raw, "MaxNumberOfMessages")
	req.visibilityTimeout = jsonInt(raw, "VisibilityTimeout")
	req.waitTimeSeconds = jsonInt(raw, "WaitTimeSeconds")

	if attrsRaw, ok := raw["Attributes"]; ok {
		var m map[string]string
		_ = json.Unmarshal(attrsRaw, &m)
		req.attributes = m
	}
	if attrsRaw, ok := raw["MessageAttributes"]; ok {
		req.messageAttributes = decodeJSONMessageAttributes(attrsRaw)
	}
	if entriesRaw, ok := raw["Entries"]; ok {
		req.entries = decodeJSONEntries(entriesRaw)
	}
	req.attributeNames = jsonStringArray(raw, "AttributeNames")
	req.messageAttributeNames = jsonStringArray(raw, "MessageAttributeNames")
	return req, nil
}

// --- form helpers ---

func parseIndexedNameValue(form url.Values, prefix string) map[string]string {
	attrs := make(map[string]string)
	for i := 1; ; i++ {
		name := form.Get(fmt.Sprintf("%s.%d.Name", prefix, i))
		if name == "" {
			break
		}
		attrs[name] = form.Get(fmt.Sprintf("%s.%d.Value", prefix, i))
	}
	return attrs
}

func parseFormMessageAttributes(form url.Values, entryPrefix string) map[string]queue.MessageAttributeValue {
	attrs := make(map[string]queue.MessageAttributeValue)
	prefix := "MessageAttribute"
	if entryPrefix != "" {
		prefix = entryPrefix + ".MessageAttribute"
	}
	for i := 1; ; i++ {
		name := form.Get(fmt.Sprintf("%s.%d.Name", prefix, i))
		if name == "" {
			break
		}
		v := queue.MessageAttributeValue{
			DataType:    form.Get(fmt.Sprintf("%s.%d.Value.DataType", prefix, i)),
			StringValue: form.Get(fmt.Sprintf("%s.%d.Value.StringValue", prefix, i)),
		}
		if b64 := form.Get(fmt.Sprintf("%s.%d.Value.BinaryValue", prefix, i)); b64 != "" {
			if decoded, err := base64.StdEncoding.DecodeString(b64); err == nil {
				v.BinaryValue = decoded
			}
		}
		attrs[name] = v
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

func parseFormEntries(form url.Values) []entry {
	var out []entry
	for i := 1; ; i++ {
		p := fmt.Sprintf("Entries.%d", i)
		id := form.Get(p + ".Id")
		if id == "" {
			break
		}
		e := entry{
			Id:                     id,
			MessageBody:            form.Get(p + ".MessageBody"),
			MessageGroupID:         form.Get(p + ".MessageGroupId"),
			MessageDeduplicationID: form.Get(p + ".MessageDeduplicationId"),
			ReceiptHandle:          form.Get(p + ".ReceiptHandle"),
			DelaySeconds:           parseOptionalInt(form, p+".DelaySeconds"),
			VisibilityTimeout:      parseOptionalInt(form, p+".VisibilityTimeout"),
			MessageAttributes:      parseFormMessageAttributes(form, p),
		}
		out = append(out, e)
	}
	return out
}

// parseIndexedList reads a "<prefix>.1", "<prefix>.2", ... sequence of
// plain values, as used by AttributeName.N / MessageAttributeName.N.
func parseIndexedList(form url.Values, prefix string) []string {
	var out []string
	for i := 1; ; i++ {
		v := form.Get(fmt.Sprintf("%s.%d", prefix, i))
		if v == "" {
			break
		}
		out = append(out, v)
	}
	return out
}

func parseOptionalInt(form url.Values, key string) *int {
	v := form.Get(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

// --- JSON helpers ---

func jsonString(raw map[string]json.RawMessage, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	var s string
	_ = json.Unmarshal(v, &s)
	return s
}

func jsonInt(raw map[string]json.RawMessage, key string) *int {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return nil
	}
	n := int(f)
	return &n
}

func jsonStringArray(raw map[string]json.RawMessage, key string) []string {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	var out []string
	_ = json.Unmarshal(v, &out)
	return out
}

func decodeJSONMessageAttributes(raw json.RawMessage) map[string]queue.MessageAttributeValue {
	var m map[string]struct {
		DataType    string `json:"DataType"`
		StringValue string `json:"StringValue"`
		BinaryValue []byte `json:"BinaryValue"`
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]queue.MessageAttributeValue, len(m))
	for k, v := range m {
		out[k] = queue.MessageAttributeValue{DataType: v.DataType, StringValue: v.StringValue, BinaryValue: v.BinaryValue}
	}
	return out
}

func decodeJSONEntries(raw json.RawMessage) []entry {
	var items []struct {
		Id                     string `json:"Id"`
		MessageBody            string `json:"MessageBody"`
		DelaySeconds           *int   `json:"DelaySeconds"`
		MessageGroupID         string `json:"MessageGroupId"`
		MessageDeduplicationID string `json:"MessageDeduplicationId"`
		ReceiptHandle          string `json:"ReceiptHandle"`
		VisibilityTimeout      *int   `json:"VisibilityTimeout"`
		MessageAttributes      json.RawMessage `json:"MessageAttributes"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]entry, len(items))
	for i, it := range items {
		out[i] = entry{
			Id:                     it.Id,
			MessageBody:            it.MessageBody,
			DelaySeconds:           it.DelaySeconds,
			MessageGroupID:         it.MessageGroupID,
			MessageDeduplicationID: it.MessageDeduplicationID,
			ReceiptHandle:          it.ReceiptHandle,
			VisibilityTimeout:      it.VisibilityTimeout,
		}
		if it.MessageAttributes != nil {
			out[i].MessageAttributes = decodeJSONMessageAttributes(it.MessageAttributes)
		}
	}
	return out
}

// resolveQueueName reconciles the URL path segment with an explicit
// QueueUrl/QueueName parameter, per spec.md §4.5: when both are given they
// must match.
func (req *request) resolveQueueName() (string, error) {
	fromURL := ""
	if req.queueURL != "" {
		if u, err := url.Parse(req.queueURL); err == nil {
			fromURL = strings.TrimPrefix(u.Path, "/")
		} else {
			fromURL = strings.TrimPrefix(req.queueURL, "/")
		}
	}

	switch {
	case fromURL != "" && req.queueURLPath != "" && req.queueURLPath != fromURL:
		return "", queue.ErrInvalidParameterValue(
			"QueueUrl path %q does not match request path %q", fromURL, req.queueURLPath)
	case fromURL != "":
		return fromURL, nil
	case req.queueURLPath != "":
		return req.queueURLPath, nil
	default:
		return "", queue.ErrMissingRequiredParameter("QueueUrl")
	}
}
