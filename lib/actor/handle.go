// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package actor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/actorlink/lib/codec"
	"github.com/bureau-foundation/actorlink/lib/credential"
	"github.com/bureau-foundation/actorlink/lib/idl"
	"github.com/bureau-foundation/actorlink/lib/service"
	"github.com/bureau-foundation/actorlink/lib/telemetry"
	"github.com/bureau-foundation/actorlink/lib/tolerant"
)

// nullPayload is the CBOR encoding of null, substituted for an empty
// reply payload.
var nullPayload = []byte{0xf6}

// Handle is a bound call surface for one service under one identity.
// A Handle is safe for concurrent use.
type Handle struct {
	factory    *Factory
	descriptor ServiceDescriptor
	credential credential.Credential
	closed     atomic.Bool
}

// Service returns the descriptor name.
func (h *Handle) Service() string { return h.descriptor.Name }

// Descriptor returns the descriptor the handle was bound to.
func (h *Handle) Descriptor() ServiceDescriptor { return h.descriptor }

// Key returns the identity key of the bound credential.
func (h *Handle) Key() string { return h.credential.Key() }

// Credential returns the bound credential.
func (h *Handle) Credential() credential.Credential { return h.credential }

// Close invalidates the handle. Calls already in flight complete;
// later calls fail with ErrHandleClosed. Close is idempotent.
func (h *Handle) Close() { h.closed.Store(true) }

// Closed reports whether Close has been called.
func (h *Handle) Closed() bool { return h.closed.Load() }

// Invoke calls method with args encoded against the contract and
// returns the raw CBOR reply payload without decoding it.
func (h *Handle) Invoke(ctx context.Context, method string, args ...any) ([]byte, error) {
	start := time.Now()
	payload, _, err := h.invoke(ctx, method, args)
	h.factory.metrics.ObserveCall(h.descriptor.Name, method, outcomeOf(err), time.Since(start))
	return payload, err
}

// Call invokes method and decodes the reply against the descriptor's
// variants for it (or the declared result type).
func (h *Handle) Call(ctx context.Context, method string, args ...any) (any, error) {
	outcome, err := h.call(ctx, method, args, nil)
	if err != nil {
		return nil, err
	}
	return outcome.Value, nil
}

// CallOutcome is Call returning the full tolerant outcome, including
// which of the descriptor's variants matched.
func (h *Handle) CallOutcome(ctx context.Context, method string, args ...any) (tolerant.Outcome, error) {
	return h.call(ctx, method, args, nil)
}

// CallVariants invokes method and decodes the reply against variants
// instead of the descriptor's own. The returned Outcome records which
// variant matched. On a decode failure the error is a *DecodeError
// and the Outcome carries the tolerant failure.
func (h *Handle) CallVariants(ctx context.Context, variants []tolerant.Variant, method string, args ...any) (tolerant.Outcome, error) {
	if len(variants) == 0 {
		return tolerant.Outcome{Index: -1}, fmt.Errorf("calling %s.%s: no decode variants", h.descriptor.Name, method)
	}
	return h.call(ctx, method, args, variants)
}

// CallResult calls a method whose result follows the ok/err
// convention. It returns the ok payload, or a *RemoteError carrying
// the err payload verbatim. Methods with other result types return
// their decoded value unchanged.
func (h *Handle) CallResult(ctx context.Context, method string, args ...any) (any, error) {
	value, err := h.Call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	result, ok := value.(idl.VariantValue)
	if !ok {
		return value, nil
	}
	switch result.Tag {
	case "ok":
		return result.Value, nil
	case "err":
		remote := &RemoteError{Service: h.descriptor.Name, Method: method, Payload: result.Value}
		if inner, ok := result.Value.(idl.VariantValue); ok {
			remote.Tag = inner.Tag
			remote.Payload = inner.Value
		}
		return nil, remote
	default:
		return value, nil
	}
}

func (h *Handle) call(ctx context.Context, method string, args []any, variants []tolerant.Variant) (tolerant.Outcome, error) {
	start := time.Now()
	failed := tolerant.Outcome{Index: -1}

	payload, declared, err := h.invoke(ctx, method, args)
	if err != nil {
		h.factory.metrics.ObserveCall(h.descriptor.Name, method, outcomeOf(err), time.Since(start))
		return failed, err
	}
	if variants == nil {
		variants = h.descriptor.variants(declared)
	}

	outcome := tolerant.Decode(payload, variants)
	if !outcome.Matched() {
		decodeErr := &DecodeError{Service: h.descriptor.Name, Method: method, Payload: payload, Err: outcome.Err}
		h.factory.logger.Warn("reply matched no decode variant",
			"service", h.descriptor.Name,
			"method", method,
			"payload", decodeErr.Diagnostic(),
			"error", outcome.Err,
		)
		h.factory.metrics.ObserveDecodeFailure(h.descriptor.Name, method)
		h.factory.metrics.ObserveCall(h.descriptor.Name, method, telemetry.OutcomeDecodeError, time.Since(start))
		return outcome, decodeErr
	}

	if outcome.Index > 0 {
		h.factory.logger.Debug("reply decoded by fallback variant",
			"service", h.descriptor.Name,
			"method", method,
			"variant", outcome.Variant,
			"index", outcome.Index,
		)
	}
	h.factory.metrics.ObserveVariant(h.descriptor.Name, method, outcome.Variant)
	h.factory.metrics.ObserveCall(h.descriptor.Name, method, telemetry.OutcomeOK, time.Since(start))
	return outcome, nil
}

// invoke performs the request and returns the raw payload along with
// the contract's declaration of method.
func (h *Handle) invoke(ctx context.Context, method string, args []any) ([]byte, idl.Method, error) {
	name := h.descriptor.Name
	if h.Closed() {
		return nil, idl.Method{}, fmt.Errorf("calling %s.%s: %w", name, method, ErrHandleClosed)
	}
	declared, ok := h.descriptor.Contract.Method(method)
	if !ok {
		return nil, idl.Method{}, fmt.Errorf("calling %s.%s: %w", name, method, ErrUnknownMethod)
	}

	encoded, err := idl.EncodeArgs(declared.Args, args)
	if err != nil {
		return nil, declared, fmt.Errorf("calling %s.%s: %w", name, method, err)
	}
	argBytes, err := codec.Marshal(encoded)
	if err != nil {
		return nil, declared, fmt.Errorf("calling %s.%s: encoding arguments: %w", name, method, err)
	}

	token, err := h.credential.Authorize(h.descriptor.CanisterID, method, argBytes, h.factory.clock.Now(), h.factory.tokenTTL)
	if err != nil {
		return nil, declared, &AuthorizationError{Service: name, Method: method, Err: err}
	}

	payload, err := h.factory.transport.Call(ctx, &service.Request{
		Endpoint:   h.descriptor.Endpoint,
		CanisterID: h.descriptor.CanisterID,
		Method:     method,
		Query:      declared.Query,
		Args:       argBytes,
		Token:      token,
	})
	if err != nil {
		if service.IsUnauthorized(err) {
			return nil, declared, &AuthorizationError{Service: name, Method: method, Err: err}
		}
		return nil, declared, &TransportError{Service: name, Method: method, Err: err}
	}
	if len(payload) == 0 {
		payload = nullPayload
	}
	return payload, declared, nil
}

func outcomeOf(err error) string {
	if err == nil {
		return telemetry.OutcomeOK
	}
	var authErr *AuthorizationError
	var transportErr *TransportError
	var decodeErr *DecodeError
	var remoteErr *RemoteError
	switch {
	case errors.Is(err, ErrHandleClosed):
		return telemetry.OutcomeClosed
	case errors.As(err, &authErr):
		return telemetry.OutcomeUnauthorized
	case errors.As(err, &transportErr):
		return telemetry.OutcomeTransportError
	case errors.As(err, &decodeErr):
		return telemetry.OutcomeDecodeError
	case errors.As(err, &remoteErr):
		return telemetry.OutcomeRemoteError
	default:
		return "invalid_call"
	}
}
