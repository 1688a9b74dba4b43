// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package actor

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/actorlink/lib/codec"
)

// ErrHandleClosed is returned by calls on a handle that its session
// store has dropped.
var ErrHandleClosed = errors.New("actor handle closed")

// ErrUnknownMethod is returned when a call names a method the
// descriptor's contract does not declare.
var ErrUnknownMethod = errors.New("unknown method")

// ErrUnknownService is returned when a registry lookup fails.
var ErrUnknownService = errors.New("unknown service")

// ConfigurationError reports a service that cannot be called because
// its deployment configuration is incomplete, typically a placeholder
// canister id.
type ConfigurationError struct {
	Service string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("service %q is not configured: %s", e.Service, e.Reason)
}

// DescriptorError reports a malformed service descriptor.
type DescriptorError struct {
	Service string
	Err     error
}

func (e *DescriptorError) Error() string {
	return fmt.Sprintf("invalid descriptor for service %q: %v", e.Service, e.Err)
}

func (e *DescriptorError) Unwrap() error { return e.Err }

// TransportError reports a call that produced no reply payload: the
// connection failed, timed out, or the backend rejected the request.
type TransportError struct {
	Service string
	Method  string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("calling %s.%s: %v", e.Service, e.Method, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthorizationError reports a call the backend refused because of
// the caller's identity, or a call token that could not be minted.
type AuthorizationError struct {
	Service string
	Method  string
	Err     error
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("calling %s.%s: not authorized: %v", e.Service, e.Method, e.Err)
}

func (e *AuthorizationError) Unwrap() error { return e.Err }

// DecodeError reports a reply that no decode variant accepted. Err is
// a *tolerant.NoMatchError, or wraps tolerant.ErrMalformedPayload.
type DecodeError struct {
	Service string
	Method  string
	Payload []byte
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding reply of %s.%s: %v", e.Service, e.Method, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Diagnostic returns the reply payload in CBOR diagnostic notation,
// or a hex dump when the payload is not valid CBOR.
func (e *DecodeError) Diagnostic() string {
	notation, err := codec.Diagnose(e.Payload)
	if err != nil {
		return fmt.Sprintf("h'%x'", e.Payload)
	}
	return notation
}

// RemoteError is the err alternative of a result-typed reply. Tag is
// the tag of the error variant when the error payload is itself a
// variant, otherwise empty. Payload is the decoded error value.
type RemoteError struct {
	Service string
	Method  string
	Tag     string
	Payload any
}

func (e *RemoteError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("%s.%s returned error %s: %v", e.Service, e.Method, e.Tag, e.Payload)
	}
	return fmt.Sprintf("%s.%s returned error: %v", e.Service, e.Method, e.Payload)
}
