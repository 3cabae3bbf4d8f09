package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Error is a JSON RPC error object as it travels on the wire.
type Error struct {
	// Code is an error code indicating the type of failure.
	Code int64 `json:"code"`
	// Message is a short description of the error.
	Message string `json:"message"`
	// Data is optional structured data containing additional information about the error.
	Data *json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error with the same code, so wrapped sentinel errors can
// be checked with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError builds an Error struct for the supplied code and message.
func NewError(code int64, message string) *Error {
	return &Error{Code: code, Message: message}
}

var (
	// ErrUnknown should be used for all non coded errors.
	ErrUnknown = NewError(-32001, "JSON RPC unknown error")
	// ErrParse is used when invalid JSON was received by the server.
	ErrParse = NewError(-32700, "JSON RPC parse error")
	// ErrInvalidRequest is used when the JSON sent is not a valid Request object.
	ErrInvalidRequest = NewError(-32600, "JSON RPC invalid request")
	// ErrMethodNotFound should be returned by the handler when the method does
	// not exist / is not available.
	ErrMethodNotFound = NewError(-32601, "JSON RPC method not found")
	// ErrInvalidParams should be returned by the handler when method
	// parameter(s) were invalid.
	ErrInvalidParams = NewError(-32602, "JSON RPC invalid params")
	// ErrInternal is returned when a handler fails for reasons of its own.
	ErrInternal = NewError(-32603, "JSON RPC internal error")
	// ErrServerOverloaded is returned when a message was refused due to a
	// server being temporarily unable to accept any new messages.
	ErrServerOverloaded = NewError(-32000, "JSON RPC overloaded")
	// ErrServerNotInitialized is returned for requests that arrive before
	// initialize.
	ErrServerNotInitialized = NewError(-32002, "JSON RPC server not initialized")
	// ErrRequestCancelled is returned when a request is cancelled early.
	ErrRequestCancelled = NewError(-32800, "JSON RPC cancelled")
)

// toWireError converts any error into the wire representation, keeping the
// code of the first *Error found in the chain.
func toWireError(err error) *Error {
	if err == nil {
		return nil
	}
	var coded *Error
	if errors.As(err, &coded) {
		return &Error{Code: coded.Code, Message: err.Error(), Data: coded.Data}
	}
	return &Error{Code: ErrUnknown.Code, Message: err.Error()}
}

// Handler is invoked to handle incoming requests.
// The Replier sends a reply to the request and must be called exactly once.
type Handler func(ctx context.Context, reply Replier, req Request) error

// Replier is passed to handlers to allow them to reply to the request.
// If err is set then result will be ignored.
type Replier func(ctx context.Context, result any, err error) error

// MethodNotFound is a Handler that replies to all call requests with the
// standard method not found response.
// This should normally be the final handler in a chain.
func MethodNotFound(ctx context.Context, reply Replier, req Request) error {
	return reply(ctx, nil, fmt.Errorf("%w: %q", ErrMethodNotFound, req.Method()))
}
