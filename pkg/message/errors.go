package message

import (
	"errors"
	"fmt"
)

// ErrMalformedInput is wrapped by every Decode failure.
var ErrMalformedInput = errors.New("malformed input")

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedInput, fmt.Sprintf(format, args...))
}

// Error codes carried by "error" replies.
const (
	CodeNotSupported       = 10
	CodeNotInitialized     = 11
	CodeBadRequest         = 12
	CodeCrash              = 13
	CodeAlreadyInitialized = 22
)

// TypeError is the body type of every error reply.
const TypeError = "error"

// RPCError is a refusal that is reported back to the sender as an "error" reply.
type RPCError struct {
	Code int
	Text string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%s (code %d): %s", CodeName(e.Code), e.Code, e.Text)
}

// Payload renders the error as the code/text fields of an error reply body.
func (e *RPCError) Payload() Payload {
	p := Payload{}
	_ = p.Set("code", e.Code)
	_ = p.Set("text", e.Text)
	return p
}

// NewRPCError creates an RPCError with a formatted text.
func NewRPCError(code int, format string, args ...interface{}) *RPCError {
	return &RPCError{Code: code, Text: fmt.Sprintf(format, args...)}
}

// BadRequest reports a payload that failed validation.
func BadRequest(format string, args ...interface{}) *RPCError {
	return NewRPCError(CodeBadRequest, format, args...)
}

// CodeName returns a short name for an error code.
func CodeName(code int) string {
	switch code {
	case CodeNotSupported:
		return "not-supported"
	case CodeNotInitialized:
		return "not-initialized"
	case CodeBadRequest:
		return "bad-request"
	case CodeCrash:
		return "crash"
	case CodeAlreadyInitialized:
		return "already-initialized"
	default:
		return "unknown"
	}
}
