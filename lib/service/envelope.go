// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/actorlink/lib/codec"
)

// Request is the wire-format envelope of one remote call.
type Request struct {
	// Endpoint selects the backend (see Router). It is routing
	// information for the client and never travels on the wire.
	Endpoint string `cbor:"-"`

	// CanisterID is the textual principal of the target service.
	CanisterID string `cbor:"canister_id"`

	// Method is the remote method name.
	Method string `cbor:"method"`

	// Query marks a read-only call.
	Query bool `cbor:"query,omitempty"`

	// Args is the CBOR array of encoded arguments.
	Args codec.RawMessage `cbor:"args"`

	// Token is a signed call token, absent for anonymous calls.
	Token []byte `cbor:"token,omitempty"`
}

// Response is the wire-format envelope for every reply.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Code  string           `cbor:"code,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// Rejection codes carried in Response.Code.
const (
	// CodeInvalidRequest: the envelope or its arguments could not be
	// decoded.
	CodeInvalidRequest = "invalid_request"

	// CodeUnauthorized: the call token is missing where required,
	// invalid, expired, replayed, or bound to another call.
	CodeUnauthorized = "unauthorized"

	// CodeUnknownCanister: no service is registered under the
	// canister id.
	CodeUnknownCanister = "unknown_canister"

	// CodeUnknownMethod: the canister has no such method.
	CodeUnknownMethod = "unknown_method"

	// CodeCanisterError: the method handler failed.
	CodeCanisterError = "canister_error"
)

// ServiceError is returned by clients when the server responds with
// ok=false.
type ServiceError struct {
	CanisterID string
	Method     string
	Code       string
	Message    string
}

func (e *ServiceError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("service error on %s.%s: %s", e.CanisterID, e.Method, e.Message)
	}
	return fmt.Sprintf("service error on %s.%s (%s): %s", e.CanisterID, e.Method, e.Code, e.Message)
}

// IsUnauthorized reports whether err is a ServiceError with
// CodeUnauthorized.
func IsUnauthorized(err error) bool {
	var serviceErr *ServiceError
	return errors.As(err, &serviceErr) && serviceErr.Code == CodeUnauthorized
}

// RejectError lets a handler choose the rejection code for its
// failure. Any other handler error is reported as CodeCanisterError.
type RejectError struct {
	Code    string
	Message string
}

func (e *RejectError) Error() string {
	return e.Code + ": " + e.Message
}

// Reject returns a *RejectError.
func Reject(code, format string, args ...any) error {
	return &RejectError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// responseFromError converts a dispatch failure into an envelope.
func responseFromError(err error) Response {
	var reject *RejectError
	if errors.As(err, &reject) {
		return Response{Code: reject.Code, Error: reject.Message}
	}
	return Response{Code: CodeCanisterError, Error: err.Error()}
}

// errorFromResponse converts a failure envelope into a *ServiceError.
func errorFromResponse(request *Request, response *Response) error {
	return &ServiceError{
		CanisterID: request.CanisterID,
		Method:     request.Method,
		Code:       response.Code,
		Message:    response.Error,
	}
}
