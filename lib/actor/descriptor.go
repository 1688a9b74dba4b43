// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package actor

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bureau-foundation/actorlink/lib/idl"
	"github.com/bureau-foundation/actorlink/lib/principal"
	"github.com/bureau-foundation/actorlink/lib/tolerant"
)

// PlaceholderCanisterID is the canister id deployments ship with
// before a real service has been provisioned.
const PlaceholderCanisterID = "aaaaa-aa"

// ServiceDescriptor describes one backend service. Descriptors are
// immutable once registered.
type ServiceDescriptor struct {
	// Name identifies the service in the registry, logs and metrics.
	Name string

	// Endpoint is where requests are sent, e.g.
	// "unix:/run/actorlink/backend.sock" or "https://icp-api.io".
	Endpoint string

	// CanisterID is the textual principal of the service.
	CanisterID string

	// Contract is the published interface of the service.
	Contract *idl.Service

	// Variants overrides the decode contracts for individual methods.
	// A method without an entry decodes against its declared result
	// type only.
	Variants map[string][]tolerant.Variant
}

// IsPlaceholder reports whether the descriptor points at no real
// service.
func (d ServiceDescriptor) IsPlaceholder() bool {
	return d.Endpoint == "" || d.CanisterID == "" || d.CanisterID == PlaceholderCanisterID
}

// Validate checks the descriptor's name, contract, canister id and
// variant lists. Placeholder descriptors are not an error here; the
// factory refuses to bind them.
func (d ServiceDescriptor) Validate() error {
	var errs []error
	if d.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if d.Contract == nil {
		errs = append(errs, errors.New("contract is required"))
	} else if err := d.Contract.Validate(); err != nil {
		errs = append(errs, err)
	}
	if d.CanisterID != "" {
		if _, err := principal.Parse(d.CanisterID); err != nil {
			errs = append(errs, fmt.Errorf("canister id: %w", err))
		}
	}

	methods := make([]string, 0, len(d.Variants))
	for method := range d.Variants {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	for _, method := range methods {
		if d.Contract != nil {
			if _, ok := d.Contract.Method(method); !ok {
				errs = append(errs, fmt.Errorf("variants for undeclared method %q", method))
				continue
			}
		}
		if err := tolerant.Validate(d.Variants[method]); err != nil {
			errs = append(errs, fmt.Errorf("method %q variants: %w", method, err))
		}
	}
	return errors.Join(errs...)
}

// variants returns the decode variants for method.
func (d ServiceDescriptor) variants(method idl.Method) []tolerant.Variant {
	if variants, ok := d.Variants[method.Name]; ok {
		return variants
	}
	return tolerant.Single(method.Result)
}

// Registry holds the descriptors known to a process, keyed by name.
type Registry struct {
	descriptors map[string]ServiceDescriptor
	names       []string
}

// NewRegistry builds a registry. Names must be unique and non-empty.
// Contracts are not validated here so that one malformed descriptor
// only fails the services that use it, at bind time.
func NewRegistry(descriptors ...ServiceDescriptor) (*Registry, error) {
	registry := &Registry{descriptors: make(map[string]ServiceDescriptor, len(descriptors))}
	var errs []error
	for i, descriptor := range descriptors {
		if descriptor.Name == "" {
			errs = append(errs, fmt.Errorf("descriptor %d: name is required", i))
			continue
		}
		if _, exists := registry.descriptors[descriptor.Name]; exists {
			errs = append(errs, fmt.Errorf("descriptor %d: duplicate service name %q", i, descriptor.Name))
			continue
		}
		registry.descriptors[descriptor.Name] = descriptor
		registry.names = append(registry.names, descriptor.Name)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	sort.Strings(registry.names)
	return registry, nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (ServiceDescriptor, error) {
	descriptor, ok := r.descriptors[name]
	if !ok {
		return ServiceDescriptor{}, fmt.Errorf("%w: %q", ErrUnknownService, name)
	}
	return descriptor, nil
}

// Names returns the registered service names in sorted order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}
