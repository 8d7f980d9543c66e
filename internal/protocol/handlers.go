// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"sort"

	"go.uber.org/zap"

	"github.com/lsqs/lsqs/internal/queue"
)

// Server wires the Queue Service into chi handlers.
type Server struct {
	svc *queue.Service
	log *zap.SugaredLogger
}

func NewServer(svc *queue.Service, log *zap.SugaredLogger) *Server {
	return &Server{svc: svc, log: log}
}

func (s *Server) queueURL(r *http.Request, name string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, r.Host, name)
}

// Dispatch decodes req, routes on its action, and writes the response.
func (s *Server) Dispatch(w http.ResponseWriter, r *http.Request) {
	requestID := newRequestID()
	req, err := decodeRequest(r)
	if err != nil {
		writeError(w, s.log, r.Header.Get("X-Amz-Target") == "", requestID, err)
		return
	}

	isForm := req.framing == framingForm
	var handlerErr error
	switch req.action {
	case "CreateQueue":
		handlerErr = s.createQueue(w, r, req, requestID)
	case "DeleteQueue":
		handlerErr = s.deleteQueue(w, r, req, requestID)
	case "ListQueues":
		handlerErr = s.listQueues(w, r, req, requestID)
	case "GetQueueUrl":
		handlerErr = s.getQueueURL(w, r, req, requestID)
	case "GetQueueAttributes":
		handlerErr = s.getQueueAttributes(w, r, req, requestID)
	case "SetQueueAttributes":
		handlerErr = s.setQueueAttributes(w, r, req, requestID)
	case "SendMessage":
		handlerErr = s.sendMessage(w, r, req, requestID)
	case "SendMessageBatch":
		handlerErr = s.sendMessageBatch(w, r, req, requestID)
	case "ReceiveMessage":
		handlerErr = s.receiveMessage(w, r, req, requestID)
	case "DeleteMessage":
		handlerErr = s.deleteMessage(w, r, req, requestID)
	case "DeleteMessageBatch":
		handlerErr = s.deleteMessageBatch(w, r, req, requestID)
	case "ChangeMessageVisibility":
		handlerErr = s.changeMessageVisibility(w, r, req, requestID)
	case "ChangeMessageVisibilityBatch":
		handlerErr = s.changeMessageVisibilityBatch(w, r, req, requestID)
	case "PurgeQueue":
		handlerErr = s.purgeQueue(w, r, req, requestID)
	default:
		handlerErr = queue.ErrInvalidParameterValue("unknown action %q", req.action)
	}

	if handlerErr != nil {
		writeError(w, s.log, isForm, requestID, handlerErr)
	}
}

func toAttributes(form map[string]string) queue.Attributes {
	var attrs queue.Attributes
	if v, ok := form["VisibilityTimeout"]; ok {
		attrs.VisibilityTimeoutS = atoiPtr(v)
	}
	if v, ok := form["MessageRetentionPeriod"]; ok {
		attrs.MessageRetentionS = atoiPtr(v)
	}
	if v, ok := form["DelaySeconds"]; ok {
		attrs.DelaySeconds = atoiPtr(v)
	}
	if v, ok := form["MaximumMessageSize"]; ok {
		attrs.MaxMessageBytes = atoiPtr(v)
	}
	if v, ok := form["ReceiveMessageWaitTimeSeconds"]; ok {
		attrs.ReceiveWaitTimeS = atoiPtr(v)
	}
	if v, ok := form["RedrivePolicy"]; ok && v != "" {
		attrs.RedrivePolicy = parseRedrivePolicyAttr(v)
	}
	if v, ok := form["FifoQueue"]; ok {
		attrs.FifoQueue = v == "true"
	}
	if v, ok := form["ContentBasedDeduplication"]; ok {
		b := v == "true"
		attrs.ContentBasedDedup = &b
	}
	return attrs
}

func parseRedrivePolicyAttr(s string) *queue.RedrivePolicy {
	var p queue.RedrivePolicy
	if jsonUnmarshalLoose(s, &p) {
		return &p
	}
	return nil
}

func atoiPtr(s string) *int {
	n := 0
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return nil
		}
		n = n*10 + int(ch-'0')
	}
	return &n
}

// --- CreateQueue ---

type createQueueResult struct {
	XMLName  xml.Name `xml:"CreateQueueResult"`
	QueueUrl string   `xml:"QueueUrl"`
}

func (s *Server) createQueue(w http.ResponseWriter, r *http.Request, req *request, requestID string) error {
	if req.queueName == "" {
		return queue.ErrMissingRequiredParameter("QueueName")
	}
	info, err := s.svc.CreateQueue(r.Context(), req.queueName, toAttributes(req.attributes))
	if err != nil {
		return err
	}
	url := s.queueURL(r, info.Name)
	writeResponse(w, req, "CreateQueueResponse",
		createQueueResult{QueueUrl: url},
		struct {
			QueueUrl string `json:"QueueUrl"`
		}{url},
		requestID)
	return nil
}

// --- DeleteQueue ---

func (s *Server) deleteQueue(w http.ResponseWriter, r *http.Request, req *request, requestID string) error {
	name, err := req.resolveQueueName()
	if err != nil {
		return err
	}
	if err := s.svc.DeleteQueue(r.Context(), name); err != nil {
		return err
	}
	writeResponse(w, req, "DeleteQueueResponse", struct {
		XMLName xml.Name `xml:"DeleteQueueResult"`
	}{}, struct{}{}, requestID)
	return nil
}

// --- ListQueues ---

type listQueuesResult struct {
	XMLName   xml.Name `xml:"ListQueuesResult"`
	QueueUrls []string `xml:"QueueUrl"`
}

func (s *Server) listQueues(w http.ResponseWriter, r *http.Request, req *request, requestID string) error {
	names, err := s.svc.ListQueues(r.Context(), req.prefix)
	if err != nil {
		return err
	}
	sort.Strings(names)
	urls := make([]string, len(names))
	for i, n := range names {
		urls[i] = s.queueURL(r, n)
	}
	writeResponse(w, req, "ListQueuesResponse",
		listQueuesResult{QueueUrls: urls},
		struct {
			QueueUrls []string `json:"QueueUrls"`
		}{urls},
		requestID)
	return nil
}

// --- GetQueueUrl ---

type getQueueURLResult struct {
	XMLName  xml.Name `xml:"GetQueueUrlResult"`
	QueueUrl string   `xml:"QueueUrl"`
}

func (s *Server) getQueueURL(w http.ResponseWriter, r *http.Request, req *request, requestID string) error {
	if req.queueName == "" {
		return queue.ErrMissingRequiredParameter("QueueName")
	}
	if _, err := s.svc.GetQueueAttributes(r.Context(), req.queueName); err != nil {
		return err
	}
	url := s.queueURL(r, req.queueName)
	writeResponse(w, req, "GetQueueUrlResponse",
		getQueueURLResult{QueueUrl: url},
		struct {
			QueueUrl string `json:"QueueUrl"`
		}{url},
		requestID)
	return nil
}

// --- GetQueueAttributes ---

type attributeXML struct {
	Name  string `xml:"Name"`
	Value string `xml:"Value"`
}

type getQueueAttributesResult struct {
	XMLName    xml.Name       `xml:"GetQueueAttributesResult"`
	Attributes []attributeXML `xml:"Attribute"`
}

func (s *Server) getQueueAttributes(w http.ResponseWriter, r *http.Request, req *request, requestID string) error {
	name, err := req.resolveQueueName()
	if err != nil {
		return err
	}
	info, err := s.svc.GetQueueAttributes(r.Context(), name)
	if err != nil {
		return err
	}
	m := infoToAttributeMap(info)

	xmlAttrs := make([]attributeXML, 0, len(m))
	for k, v := range m {
		xmlAttrs = append(xmlAttrs, attributeXML{Name: k, Value: v})
	}
	sort.Slice(xmlAttrs, func(i, j int) bool { return xmlAttrs[i].Name < xmlAttrs[j].Name })

	writeResponse(w, req, "GetQueueAttributesResponse",
		getQueueAttributesResult{Attributes: xmlAttrs},
		struct {
			Attributes map[string]string `json:"Attributes"`
		}{m},
		requestID)
	return nil
}

// --- SetQueueAttributes ---

func (s *Server) setQueueAttributes(w http.ResponseWriter, r *http.Request, req *request, requestID string) error {
	name, err := req.resolveQueueName()
	if err != nil {
		return err
	}
	if err := s.svc.SetQueueAttributes(r.Context(), name, toAttributes(req.attributes)); err != nil {
		return err
	}
	writeResponse(w, req, "SetQueueAttributesResponse", struct {
		XMLName xml.Name `xml:"SetQueueAttributesResult"`
	}{}, struct{}{}, requestID)
	return nil
}

// --- SendMessage ---

type sendMessageResult struct {
	XMLName        xml.Name `xml:"SendMessageResult"`
	MD5OfBody      string   `xml:"MD5OfMessageBody"`
	MD5OfAttrs     string   `xml:"MD5OfMessageAttributes,omitempty"`
	MessageId      string   `xml:"MessageId"`
	SequenceNumber string   `xml:"SequenceNumber,omitempty"`
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request, req *request, requestID string) error {
	name, err := req.resolveQueueName()
	if err != nil {
		return err
	}
	out, err := s.svc.Send(r.Context(), name, queue.SendInput{
		Body:                   req.messageBody,
		DelaySeconds:           req.delaySeconds,
		MessageAttributes:      req.messageAttributes,
		MessageGroupID:         req.messageGroupID,
		MessageDeduplicationID: req.messageDedupID,
	})
	if err != nil {
		return err
	}
	writeResponse(w, req, "SendMessageResponse",
		sendMessageResult{MD5OfBody: out.MD5OfBody, MD5OfAttrs: out.MD5OfAttrs, MessageId: out.MessageID, SequenceNumber: out.SequenceNumber},
		struct {
			MD5OfMessageBody       string `json:"MD5OfMessageBody"`
			MD5OfMessageAttributes string `json:"MD5OfMessageAttributes,omitempty"`
			MessageId              string `json:"MessageId"`
			SequenceNumber         string `json:"SequenceNumber,omitempty"`
		}{out.MD5OfBody, out.MD5OfAttrs, out.MessageID, out.SequenceNumber},
		requestID)
	return nil
}

// --- SendMessageBatch ---

type sendBatchSuccessXML struct {
	Id             string `xml:"Id"`
	MessageId      string `xml:"MessageId"`
	MD5OfBody      string `xml:"MD5OfMessageBody"`
	MD5OfAttrs     string `xml:"MD5OfMessageAttributes,omitempty"`
	SequenceNumber string `xml:"SequenceNumber,omitempty"`
}

type batchErrorXML struct {
	Id          string `xml:"Id"`
	SenderFault bool   `xml:"SenderFault"`
	Code        string `xml:"Code"`
	Message     string `xml:"Message,omitempty"`
}

type sendMessageBatchResult struct {
	XMLName  xml.Name              `xml:"SendMessageBatchResult"`
	Success  []sendBatchSuccessXML `xml:"SendMessageBatchResultEntry"`
	Failures []batchErrorXML       `xml:"BatchResultErrorEntry"`
}

func (s *Server) sendMessageBatch(w http.ResponseWriter, r *http.Request, req *request, requestID string) error {
	name, err := req.resolveQueueName()
	if err != nil {
		return err
	}
	ins := make([]queue.SendInput, len(req.entries))
	for i, e := range req.entries {
		ins[i] = queue.SendInput{
			Id:                     e.Id,
			Body:                   e.MessageBody,
			DelaySeconds:           e.DelaySeconds,
			MessageAttributes:      e.MessageAttributes,
			MessageGroupID:         e.MessageGroupID,
			MessageDeduplicationID: e.MessageDeduplicationID,
		}
	}
	outs, fails, err := s.svc.SendBatch(r.Context(), name, ins)
	if err != nil {
		return err
	}

	xmlSuccess := make([]sendBatchSuccessXML, len(outs))
	jsonSuccess := make([]map[string]any, len(outs))
	for i, o := range outs {
		xmlSuccess[i] = sendBatchSuccessXML{Id: o.Id, MessageId: o.MessageID, MD5OfBody: o.MD5OfBody, MD5OfAttrs: o.MD5OfAttrs, SequenceNumber: o.SequenceNumber}
		jsonSuccess[i] = map[string]any{"Id": o.Id, "MessageId": o.MessageID, "MD5OfMessageBody": o.MD5OfBody, "MD5OfMessageAttributes": o.MD5OfAttrs, "SequenceNumber": o.SequenceNumber}
	}
	xmlFails, jsonFails := renderBatchFailures(fails)

	writeResponse(w, req, "SendMessageBatchResponse",
		sendMessageBatchResult{Success: xmlSuccess, Failures: xmlFails},
		struct {
			Successful []map[string]any `json:"Successful"`
			Failed     []map[string]any `json:"Failed"`
		}{jsonSuccess, jsonFails},
		requestID)
	return nil
}

func renderBatchFailures(fails []queue.BatchFailure) ([]batchErrorXML, []map[string]any) {
	xmlFails := make([]batchErrorXML, len(fails))
	jsonFails := make([]map[string]any, len(fails))
	for i, f := range fails {
		xmlFails[i] = batchErrorXML{Id: f.Id, SenderFault: f.SenderFault, Code: f.Code, Message: f.Message}
		jsonFails[i] = map[string]any{"Id": f.Id, "SenderFault": f.SenderFault, "Code": f.Code, "Message": f.Message}
	}
	return xmlFails, jsonFails
}

// --- ReceiveMessage ---

type messageAttributeXML struct {
	Name  string `xml:"Name"`
	Value struct {
		StringValue string `xml:"StringValue,omitempty"`
		BinaryValue []byte `xml:"BinaryValue,omitempty"`
		DataType    string `xml:"DataType"`
	} `xml:"Value"`
}

type messageXML struct {
	MessageId         string                 `xml:"MessageId"`
	ReceiptHandle     string                 `xml:"ReceiptHandle"`
	MD5OfBody         string                 `xml:"MD5OfBody"`
	Body              string                 `xml:"Body"`
	Attributes        []attributeXML         `xml:"Attribute"`
	MessageAttributes []messageAttributeXML  `xml:"MessageAttribute"`
	MD5OfAttrs        string                 `xml:"MD5OfMessageAttributes,omitempty"`
}

type receiveMessageResult struct {
	XMLName  xml.Name     `xml:"ReceiveMessageResult"`
	Messages []messageXML `xml:"Message"`
}

func (s *Server) receiveMessage(w http.ResponseWriter, r *http.Request, req *request, requestID string) error {
	name, err := req.resolveQueueName()
	if err != nil {
		return err
	}
	maxMessages := 1
	if req.maxMessages != nil {
		maxMessages = *req.maxMessages
	}
	msgs, err := s.svc.Receive(r.Context(), name, queue.ReceiveInput{
		MaxNumberOfMessages: maxMessages,
		VisibilityTimeoutS:  req.visibilityTimeout,
		WaitTimeSeconds:     req.waitTimeSeconds,
	})
	if err != nil {
		return err
	}

	xmlMsgs := make([]messageXML, len(msgs))
	jsonMsgs := make([]map[string]any, len(msgs))
	for i, m := range msgs {
		sysAttrs := filterNamedAttrs(receivedMessageSystemAttrs(m), req.attributeNames)
		xmlSys := make([]attributeXML, 0, len(sysAttrs))
		for k, v := range sysAttrs {
			xmlSys = append(xmlSys, attributeXML{Name: k, Value: v})
		}
		sort.Slice(xmlSys, func(a, b int) bool { return xmlSys[a].Name < xmlSys[b].Name })

		wantedMAttrs := filterMessageAttrs(m.MessageAttributes, req.messageAttributeNames)
		xmlMAttrs, jsonMAttrs := renderMessageAttributes(wantedMAttrs)

		xmlMsgs[i] = messageXML{
			MessageId:         m.MessageID,
			ReceiptHandle:     m.ReceiptHandle,
			MD5OfBody:         m.MD5OfBody,
			Body:              m.Body,
			Attributes:        xmlSys,
			MessageAttributes: xmlMAttrs,
			MD5OfAttrs:        m.MD5OfAttrs,
		}
		jsonMsgs[i] = map[string]any{
			"MessageId":              m.MessageID,
			"ReceiptHandle":          m.ReceiptHandle,
			"MD5OfBody":              m.MD5OfBody,
			"Body":                   m.Body,
			"Attributes":             sysAttrs,
			"MessageAttributes":      jsonMAttrs,
			"MD5OfMessageAttributes": m.MD5OfAttrs,
		}
	}

	writeResponse(w, req, "ReceiveMessageResponse",
		receiveMessageResult{Messages: xmlMsgs},
		struct {
			Messages []map[string]any `json:"Messages"`
		}{jsonMsgs},
		requestID)
	return nil
}

func receivedMessageSystemAttrs(m queue.ReceivedMessage) map[string]string {
	attrs := map[string]string{
		"ApproximateReceiveCount": itoa(m.ApproximateReceiveCount),
		"SentTimestamp":           itoa64(m.SentTimestamp.UnixMilli()),
	}
	if m.MessageGroupID != "" {
		attrs["MessageGroupId"] = m.MessageGroupID
		attrs["SequenceNumber"] = m.SequenceNumber
	}
	if m.MessageDeduplicationID != "" {
		attrs["MessageDeduplicationId"] = m.MessageDeduplicationID
	}
	if m.DeadLetterSourceQueue != "" {
		attrs["DeadLetterQueueSourceArn"] = m.DeadLetterSourceQueue
	}
	return attrs
}

// filterNamedAttrs keeps only the entries named in wanted; "All" (SQS's
// wildcard) keeps everything. An empty wanted list means the client asked
// for none, matching real SQS: attributes are opt-in, not default-on.
func filterNamedAttrs(attrs map[string]string, wanted []string) map[string]string {
	if len(attrs) == 0 || len(wanted) == 0 {
		return nil
	}
	for _, w := range wanted {
		if w == "All" {
			return attrs
		}
	}
	out := make(map[string]string, len(wanted))
	for _, w := range wanted {
		if v, ok := attrs[w]; ok {
			out[w] = v
		}
	}
	return out
}

// filterMessageAttrs applies the same AttributeName.N/"All" selection rule
// as filterNamedAttrs, to message (as opposed to system) attributes.
func filterMessageAttrs(attrs map[string]queue.MessageAttributeValue, wanted []string) map[string]queue.MessageAttributeValue {
	if len(attrs) == 0 || len(wanted) == 0 {
		return nil
	}
	for _, w := range wanted {
		if w == "All" {
			return attrs
		}
	}
	out := make(map[string]queue.MessageAttributeValue, len(wanted))
	for _, w := range wanted {
		if v, ok := attrs[w]; ok {
			out[w] = v
		}
	}
	return out
}

func renderMessageAttributes(attrs map[string]queue.MessageAttributeValue) ([]messageAttributeXML, map[string]any) {
	if len(attrs) == 0 {
		return nil, nil
	}
	xmlAttrs := make([]messageAttributeXML, 0, len(attrs))
	jsonAttrs := make(map[string]any, len(attrs))
	for name, v := range attrs {
		item := messageAttributeXML{Name: name}
		item.Value.DataType = v.DataType
		item.Value.StringValue = v.StringValue
		item.Value.BinaryValue = v.BinaryValue
		xmlAttrs = append(xmlAttrs, item)
		jsonAttrs[name] = map[string]any{"DataType": v.DataType, "StringValue": v.StringValue, "BinaryValue": v.BinaryValue}
	}
	sort.Slice(xmlAttrs, func(i, j int) bool { return xmlAttrs[i].Name < xmlAttrs[j].Name })
	return xmlAttrs, jsonAttrs
}

// --- DeleteMessage ---

func (s *Server) deleteMessage(w http.ResponseWriter, r *http.Request, req *request, requestID string) error {
	name, err := req.resolveQueueName()
	if err != nil {
		return err
	}
	if err := s.svc.Delete(r.Context(), name, req.receiptHandle); err != nil {
		return err
	}
	writeResponse(w, req, "DeleteMessageResponse", struct {
		XMLName xml.Name `xml:"DeleteMessageResult"`
	}{}, struct{}{}, requestID)
	return nil
}

// --- DeleteMessageBatch ---

type deleteBatchSuccessXML struct {
	Id string `xml:"Id"`
}

type deleteMessageBatchResult struct {
	XMLName  xml.Name                `xml:"DeleteMessageBatchResult"`
	Success  []deleteBatchSuccessXML `xml:"DeleteMessageBatchResultEntry"`
	Failures []batchErrorXML         `xml:"BatchResultErrorEntry"`
}

func (s *Server) deleteMessageBatch(w http.ResponseWriter, r *http.Request, req *request, requestID string) error {
	name, err := req.resolveQueueName()
	if err != nil {
		return err
	}
	entries := make([]queue.DeleteEntry, len(req.entries))
	for i, e := range req.entries {
		entries[i] = queue.DeleteEntry{Id: e.Id, ReceiptHandle: e.ReceiptHandle}
	}
	ok, fails, err := s.svc.DeleteBatch(r.Context(), name, entries)
	if err != nil {
		return err
	}

	xmlSuccess := make([]deleteBatchSuccessXML, len(ok))
	jsonSuccess := make([]map[string]any, len(ok))
	for i, id := range ok {
		xmlSuccess[i] = deleteBatchSuccessXML{Id: id}
		jsonSuccess[i] = map[string]any{"Id": id}
	}
	xmlFails, jsonFails := renderBatchFailures(fails)

	writeResponse(w, req, "DeleteMessageBatchResponse",
		deleteMessageBatchResult{Success: xmlSuccess, Failures: xmlFails},
		struct {
			Successful []map[string]any `json:"Successful"`
			Failed     []map[string]any `json:"Failed"`
		}{jsonSuccess, jsonFails},
		requestID)
	return nil
}

// --- ChangeMessageVisibility[Batch] ---

func (s *Server) changeMessageVisibility(w http.ResponseWriter, r *http.Request, req *request, requestID string) error {
	name, err := req.resolveQueueName()
	if err != nil {
		return err
	}
	vt := 0
	if req.visibilityTimeout != nil {
		vt = *req.visibilityTimeout
	}
	if err := s.svc.ChangeVisibility(r.Context(), name, req.receiptHandle, vt); err != nil {
		return err
	}
	writeResponse(w, req, "ChangeMessageVisibilityResponse", struct {
		XMLName xml.Name `xml:"ChangeMessageVisibilityResult"`
	}{}, struct{}{}, requestID)
	return nil
}

type changeVisibilityBatchResult struct {
	XMLName  xml.Name                `xml:"ChangeMessageVisibilityBatchResult"`
	Success  []deleteBatchSuccessXML `xml:"ChangeMessageVisibilityBatchResultEntry"`
	Failures []batchErrorXML         `xml:"BatchResultErrorEntry"`
}

func (s *Server) changeMessageVisibilityBatch(w http.ResponseWriter, r *http.Request, req *request, requestID string) error {
	name, err := req.resolveQueueName()
	if err != nil {
		return err
	}
	entries := make([]queue.ChangeVisibilityEntry, len(req.entries))
	for i, e := range req.entries {
		vt := 0
		if e.VisibilityTimeout != nil {
			vt = *e.VisibilityTimeout
		}
		entries[i] = queue.ChangeVisibilityEntry{Id: e.Id, ReceiptHandle: e.ReceiptHandle, VisibilityTimeout: vt}
	}
	ok, fails, err := s.svc.ChangeVisibilityBatch(r.Context(), name, entries)
	if err != nil {
		return err
	}

	xmlSuccess := make([]deleteBatchSuccessXML, len(ok))
	jsonSuccess := make([]map[string]any, len(ok))
	for i, id := range ok {
		xmlSuccess[i] = deleteBatchSuccessXML{Id: id}
		jsonSuccess[i] = map[string]any{"Id": id}
	}
	xmlFails, jsonFails := renderBatchFailures(fails)

	writeResponse(w, req, "ChangeMessageVisibilityBatchResponse",
		changeVisibilityBatchResult{Success: xmlSuccess, Failures: xmlFails},
		struct {
			Successful []map[string]any `json:"Successful"`
			Failed     []map[string]any `json:"Failed"`
		}{jsonSuccess, jsonFails},
		requestID)
	return nil
}

// --- PurgeQueue ---

func (s *Server) purgeQueue(w http.ResponseWriter, r *http.Request, req *request, requestID string) error {
	name, err := req.resolveQueueName()
	if err != nil {
		return err
	}
	if err := s.svc.PurgeQueue(r.Context(), name); err != nil {
		return err
	}
	writeResponse(w, req, "PurgeQueueResponse", struct {
		XMLName xml.Name `xml:"PurgeQueueResult"`
	}{}, struct{}{}, requestID)
	return nil
}

func infoToAttributeMap(info *queue.QueueInfo) map[string]string {
	m := map[string]string{
		"QueueArn":                      "arn:aws:sqs:us-east-1:000000000000:" + info.Name,
		"VisibilityTimeout":             itoa(info.VisibilityTimeoutS),
		"MessageRetentionPeriod":        itoa(info.MessageRetentionS),
		"DelaySeconds":                  itoa(info.DelaySeconds),
		"MaximumMessageSize":            itoa(info.MaxMessageBytes),
		"ReceiveMessageWaitTimeSeconds": itoa(info.ReceiveWaitTimeS),
		"CreatedTimestamp":              itoa64(info.CreatedAt.Unix()),
		"ApproximateNumberOfMessages":             itoa(info.ApproximateNumMessages),
		"ApproximateNumberOfMessagesNotVisible":    itoa(info.ApproximateNumNotVisible),
		"ApproximateNumberOfMessagesDelayed":       itoa(info.ApproximateNumDelayed),
	}
	if info.IsFifo {
		m["FifoQueue"] = "true"
		m["ContentBasedDeduplication"] = boolStr(info.ContentBasedDedup)
	}
	if info.RedrivePolicyJSON != "" {
		m["RedrivePolicy"] = info.RedrivePolicyJSON
	}
	return m
}

func itoa(n int) string   { return fmt.Sprintf("%d", n) }
func itoa64(n int64) string { return fmt.Sprintf("%d", n) }
func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// jsonUnmarshalLoose is used for parsing the RedrivePolicy attribute,
// which is itself a JSON-encoded string embedded in the outer attribute
// map (spec.md §6).
func jsonUnmarshalLoose(s string, v *queue.RedrivePolicy) bool {
	return json.Unmarshal([]byte(s), v) == nil
}
