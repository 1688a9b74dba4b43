// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/actorlink/lib/calltoken"
	"github.com/bureau-foundation/actorlink/lib/clock"
	"github.com/bureau-foundation/actorlink/lib/codec"
	"github.com/bureau-foundation/actorlink/lib/principal"
)

// Call is what a method handler sees of one request.
type Call struct {
	CanisterID string
	Method     string
	Query      bool

	// Args is the raw CBOR argument array.
	Args []byte

	// Caller is the verified sender principal, or the anonymous
	// principal when the request carried no token.
	Caller principal.Principal

	// Token is the verified call token, nil for anonymous calls.
	Token *calltoken.Token
}

// MethodFunc handles one method call. Return a value to be CBOR
// encoded as the reply payload, or an error for a rejection. Use
// Reject to choose the rejection code.
type MethodFunc func(ctx context.Context, call *Call) (any, error)

// AuthConfig configures call token verification.
type AuthConfig struct {
	// Clock provides the time for token expiry checks.
	Clock clock.Clock

	// Replay, when non-nil, rejects tokens whose nonce was already
	// used.
	Replay *calltoken.ReplayGuard
}

type route struct {
	handler      MethodFunc
	requireToken bool
}

// Dispatcher routes requests to method handlers by canister id and
// method name. Register handlers before serving; Dispatch is safe for
// concurrent use once registration is complete.
type Dispatcher struct {
	mu     sync.RWMutex
	routes map[string]map[string]route
	auth   AuthConfig
	logger *slog.Logger
}

// NewDispatcher creates an empty dispatcher. A zero AuthConfig uses
// the real clock and no replay guard.
func NewDispatcher(auth AuthConfig, logger *slog.Logger) *Dispatcher {
	if auth.Clock == nil {
		auth.Clock = clock.Real()
	}
	return &Dispatcher{
		routes: make(map[string]map[string]route),
		auth:   auth,
		logger: logger,
	}
}

// Handle registers a method that accepts anonymous calls. A token, if
// present, is still verified and must be valid.
func (d *Dispatcher) Handle(canisterID, method string, handler MethodFunc) {
	d.register(canisterID, method, route{handler: handler})
}

// HandleAuth registers a method that requires a valid call token.
func (d *Dispatcher) HandleAuth(canisterID, method string, handler MethodFunc) {
	d.register(canisterID, method, route{handler: handler, requireToken: true})
}

func (d *Dispatcher) register(canisterID, method string, r route) {
	d.mu.Lock()
	defer d.mu.Unlock()
	methods, ok := d.routes[canisterID]
	if !ok {
		methods = make(map[string]route)
		d.routes[canisterID] = methods
	}
	if _, exists := methods[method]; exists {
		panic(fmt.Sprintf("service.Dispatcher: duplicate handler for %s.%s", canisterID, method))
	}
	methods[method] = r
}

// Dispatch runs one request through routing, authentication and the
// handler, and returns the response envelope. It never fails: every
// problem becomes an ok=false response with a rejection code.
func (d *Dispatcher) Dispatch(ctx context.Context, request *Request) Response {
	d.mu.RLock()
	methods, canisterKnown := d.routes[request.CanisterID]
	r, methodKnown := methods[request.Method]
	d.mu.RUnlock()

	if !canisterKnown {
		return Response{Code: CodeUnknownCanister, Error: fmt.Sprintf("no canister %q", request.CanisterID)}
	}
	if !methodKnown {
		return Response{Code: CodeUnknownMethod, Error: fmt.Sprintf("canister %s has no method %q", request.CanisterID, request.Method)}
	}

	call := &Call{
		CanisterID: request.CanisterID,
		Method:     request.Method,
		Query:      request.Query,
		Args:       request.Args,
		Caller:     principal.Anonymous(),
	}

	if len(request.Token) == 0 {
		if r.requireToken {
			return Response{Code: CodeUnauthorized, Error: fmt.Sprintf("method %q requires a call token", request.Method)}
		}
	} else {
		token, err := d.verify(request)
		if err != nil {
			d.logger.Debug("call token rejected",
				"canister", request.CanisterID,
				"method", request.Method,
				"error", err,
			)
			return Response{Code: CodeUnauthorized, Error: err.Error()}
		}
		call.Token = token
		call.Caller = token.Sender
	}

	result, err := r.handler(ctx, call)
	if err != nil {
		d.logger.Debug("method failed",
			"canister", request.CanisterID,
			"method", request.Method,
			"error", err,
		)
		return responseFromError(err)
	}

	response := Response{OK: true}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			return Response{Code: CodeCanisterError, Error: fmt.Sprintf("internal: marshaling reply: %v", err)}
		}
		response.Data = data
	}
	return response
}

func (d *Dispatcher) verify(request *Request) (*calltoken.Token, error) {
	token, err := calltoken.VerifyForAt(request.Token, request.CanisterID, request.Method, request.Args, d.auth.Clock.Now())
	if err != nil {
		return nil, err
	}
	if d.auth.Replay != nil {
		if err := d.auth.Replay.Check(token); err != nil {
			return nil, err
		}
	}
	return token, nil
}
