// SPDX-License-Identifier: Apache-2.0

package queue

import "fmt"

// ErrorType mirrors the SQS Sender/Receiver fault classification used to
// pick the HTTP status code and error envelope at the protocol layer.
type ErrorType string

const (
	TypeSender   ErrorType = "Sender"
	TypeReceiver ErrorType = "Receiver"
)

// Error is the typed error carried from the Queue Service up through the
// protocol layer and rendered into the SQS XML/JSON error shape.
type Error struct {
	Code    string
	Message string
	Type    ErrorType
	Status  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newErr(status int, code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Type:    TypeSender,
		Status:  status,
	}
}

// Well-known SQS error constructors, one per code in the spec's taxonomy.
func ErrQueueDoesNotExist(name string) *Error {
	return newErr(400, "QueueDoesNotExist", "The specified queue %q does not exist", name)
}

func ErrQueueNameExists(name string) *Error {
	return newErr(400, "QueueNameExists",
		"A queue named %q already exists with different attributes", name)
}

func ErrQueueDeletedRecently(name string) *Error {
	return newErr(400, "QueueDeletedRecently",
		"Queue %q was deleted less than 60 seconds ago", name)
}

func ErrInvalidParameterValue(format string, args ...any) *Error {
	return newErr(400, "InvalidParameterValue", format, args...)
}

func ErrMissingRequiredParameter(param string) *Error {
	return newErr(400, "MissingRequiredParameter", "%s is required", param)
}

func ErrInvalidAttributeName(name string) *Error {
	return newErr(400, "InvalidAttributeName", "Unknown attribute %q", name)
}

func ErrMessageTooLong(size, max int) *Error {
	return newErr(400, "InvalidParameterValue",
		"One or more parameters are invalid. Reason: Message must be shorter than %d bytes.", max).
		withCode("MessageTooLong").withMsg("Message body of %d bytes exceeds the %d byte limit", size, max)
}

func ErrBatchEntryIdsNotDistinct() *Error {
	return newErr(400, "BatchEntryIdsNotDistinct", "Two or more batch entries have the same Id")
}

func ErrTooManyEntriesInBatchRequest(n int) *Error {
	return newErr(400, "TooManyEntriesInBatchRequest",
		"Maximum number of entries per request is 10, got %d", n)
}

func ErrEmptyBatchRequest() *Error {
	return newErr(400, "EmptyBatchRequest", "There should be at least one batch entry in the request")
}

func ErrBatchRequestTooLong(size, max int) *Error {
	return newErr(400, "BatchRequestTooLong",
		"Batch requests must be shorter than %d bytes, got %d", max, size)
}

func ErrReceiptHandleIsInvalid(handle string) *Error {
	return newErr(400, "ReceiptHandleIsInvalid", "The receipt handle %q is invalid", handle)
}

func ErrInvalidMessageContents(reason string) *Error {
	return newErr(400, "InvalidMessageContents", "%s", reason)
}

func ErrInternalFailure(cause error) *Error {
	e := newErr(500, "InternalFailure", "Internal failure: %v", cause)
	e.Type = TypeReceiver
	return e
}

func (e *Error) withCode(code string) *Error {
	e.Code = code
	return e
}

func (e *Error) withMsg(format string, args ...any) *Error {
	e.Message = fmt.Sprintf(format, args...)
	return e
}
