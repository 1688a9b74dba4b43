// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session owns the live actor handles of one client session.
//
// A [Store] keeps at most one handle per service, bound to the
// identity that last asked for it. Asking with a different identity
// closes the old handle and binds a new one; asking with the same
// identity returns the cached handle unchanged. [Store.Watch] applies
// identity changes pushed by a credential source, so that nothing can
// keep calling with an identity the user has left.
//
// Per service the binding moves Unbound → Bound(key) on first use,
// Bound(key) → Bound(key') on identity change, and back to Unbound
// when the handle is dropped or the store is closed.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/bureau-foundation/actorlink/lib/actor"
	"github.com/bureau-foundation/actorlink/lib/credential"
	"github.com/bureau-foundation/actorlink/lib/telemetry"
)

// ErrClosed is returned by Get after Close.
var ErrClosed = errors.New("session store closed")

// Bind reasons recorded in metrics.
const (
	reasonInitial        = "initial"
	reasonIdentityChange = "identity_change"
)

type binding struct {
	key    string
	handle *actor.Handle
}

// Store is the session's handle table. It is safe for concurrent use;
// all mutations are serialized by one mutex.
type Store struct {
	factory  *actor.Factory
	registry *actor.Registry
	logger   *slog.Logger
	metrics  *telemetry.Metrics

	mu       sync.Mutex
	bindings map[string]binding
	closed   bool
}

// New creates an empty store that binds services from registry with
// factory.
func New(factory *actor.Factory, registry *actor.Registry, logger *slog.Logger) *Store {
	return &Store{
		factory:  factory,
		registry: registry,
		logger:   logger,
		metrics:  factory.Metrics(),
		bindings: make(map[string]binding),
	}
}

// Get returns the handle for serviceName under cred, binding one if
// the service is unbound or bound to a different identity. A failed
// bind leaves the service unbound and returns the factory's error.
func (s *Store) Get(ctx context.Context, serviceName string, cred credential.Credential) (*actor.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := cred.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	current, bound := s.bindings[serviceName]
	if bound && current.key == key {
		return current.handle, nil
	}

	descriptor, err := s.registry.Lookup(serviceName)
	if err != nil {
		return nil, err
	}
	if bound {
		s.dropLocked(serviceName, current)
	}

	handle, err := s.factory.Bind(descriptor, cred)
	if err != nil {
		return nil, err
	}
	s.bindings[serviceName] = binding{key: key, handle: handle}

	reason := reasonInitial
	if bound {
		reason = reasonIdentityChange
	}
	s.metrics.ObserveBind(serviceName, reason)
	s.logger.Debug("session bound service",
		"service", serviceName,
		"identity", key,
		"reason", reason,
	)
	return handle, nil
}

// Current is Get with the source's current credential.
func (s *Store) Current(ctx context.Context, serviceName string, source credential.Source) (*actor.Handle, error) {
	return s.Get(ctx, serviceName, source.Current())
}

// Invalidate drops every handle bound to an identity other than key
// and returns how many were dropped.
func (s *Store) Invalidate(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for serviceName, current := range s.bindings {
		if current.key != key {
			s.dropLocked(serviceName, current)
			dropped++
		}
	}
	if dropped > 0 {
		s.logger.Info("identity changed, dropped actor handles",
			"identity", key,
			"dropped", dropped,
		)
	}
	return dropped
}

// Watch applies identity changes from source until ctx is cancelled
// or the source's subscription channel closes. It first reconciles
// with the source's current credential, so a change made before Watch
// subscribed is not missed. Returns ctx.Err() on cancellation and nil
// when the subscription ends.
func (s *Store) Watch(ctx context.Context, source credential.Source) error {
	changes, cancel := source.Subscribe()
	defer cancel()
	s.Invalidate(source.Current().Key())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cred, ok := <-changes:
			if !ok {
				return nil
			}
			s.Invalidate(cred.Key())
		}
	}
}

// Bound reports the identity key serviceName is bound to.
func (s *Store) Bound(serviceName string) (key string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.bindings[serviceName]
	return current.key, ok
}

// Services returns the names of the bound services, sorted.
func (s *Store) Services() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.bindings))
	for name := range s.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close drops every handle and makes later Get calls fail with
// ErrClosed. Close is idempotent.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for serviceName, current := range s.bindings {
		s.dropLocked(serviceName, current)
	}
	s.closed = true
}

// dropLocked closes and removes a binding. Caller holds s.mu.
func (s *Store) dropLocked(serviceName string, current binding) {
	current.handle.Close()
	delete(s.bindings, serviceName)
	s.metrics.ObserveHandleClosed(serviceName)
}
