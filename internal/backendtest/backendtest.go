// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package backendtest provides an in-process transport for tests. It
// runs requests through a service.Dispatcher without sockets, after a
// CBOR round trip of the envelope so that the wire format is still
// exercised, and can inject failures per method.
package backendtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/bureau-foundation/actorlink/lib/codec"
	"github.com/bureau-foundation/actorlink/lib/service"
)

// Transport dispatches requests directly to a Dispatcher.
type Transport struct {
	dispatcher *service.Dispatcher

	mu       sync.Mutex
	failures map[string]error
	calls    []service.Request
}

// New creates a transport over dispatcher.
func New(dispatcher *service.Dispatcher) *Transport {
	return &Transport{
		dispatcher: dispatcher,
		failures:   make(map[string]error),
	}
}

func failureKey(canisterID, method string) string {
	return canisterID + "/" + method
}

// Fail makes every call to canisterID.method return err until Heal.
// An empty canisterID matches every canister.
func (t *Transport) Fail(canisterID, method string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[failureKey(canisterID, method)] = err
}

// Heal removes an injected failure.
func (t *Transport) Heal(canisterID, method string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.failures, failureKey(canisterID, method))
}

// Calls returns a copy of every request seen so far, in order.
func (t *Transport) Calls() []service.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]service.Request(nil), t.calls...)
}

// CallCount returns how many requests named method were seen.
func (t *Transport) CallCount(method string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	count := 0
	for _, call := range t.calls {
		if call.Method == method {
			count++
		}
	}
	return count
}

// Call implements the actor transport.
func (t *Transport) Call(ctx context.Context, request *service.Request) ([]byte, error) {
	t.mu.Lock()
	t.calls = append(t.calls, *request)
	failure, ok := t.failures[failureKey(request.CanisterID, request.Method)]
	if !ok {
		failure, ok = t.failures[failureKey("", request.Method)]
	}
	t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ok {
		return nil, fmt.Errorf("calling %s.%s: %w", request.CanisterID, request.Method, failure)
	}

	wire, err := codec.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	var received service.Request
	if err := codec.Unmarshal(wire, &received); err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}

	response := t.dispatcher.Dispatch(ctx, &received)
	if !response.OK {
		return nil, &service.ServiceError{
			CanisterID: request.CanisterID,
			Method:     request.Method,
			Code:       response.Code,
			Message:    response.Error,
		}
	}
	return response.Data, nil
}
