// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package idl

import (
	"errors"
	"fmt"
)

// Method is one remotely callable operation of a service contract.
type Method struct {
	Name string

	// Args are the positional argument types.
	Args []*Type

	// Result is the reply type. Methods that return nothing use Null.
	Result *Type

	// Query marks read-only methods. Queries and updates travel on
	// different transport endpoints.
	Query bool
}

// Service is the interface description of a backend service: a named
// set of methods. Services are immutable after construction.
type Service struct {
	name    string
	methods []Method
	byName  map[string]int
}

// NewService builds a service contract. NewService does not validate;
// call Validate before using a contract from an untrusted source.
// When a method name repeats, the first declaration wins for lookups.
func NewService(name string, methods ...Method) *Service {
	service := &Service{
		name:    name,
		methods: methods,
		byName:  make(map[string]int, len(methods)),
	}
	for i, method := range methods {
		if _, exists := service.byName[method.Name]; !exists {
			service.byName[method.Name] = i
		}
	}
	return service
}

// Name returns the service name.
func (s *Service) Name() string { return s.name }

// Method looks up a method by name.
func (s *Service) Method(name string) (Method, bool) {
	index, ok := s.byName[name]
	if !ok {
		return Method{}, false
	}
	return s.methods[index], true
}

// Methods returns the declared methods in declaration order.
func (s *Service) Methods() []Method {
	return append([]Method(nil), s.methods...)
}

// Validate reports every structural problem in the contract: missing
// names, duplicate methods and malformed argument or result types.
func (s *Service) Validate() error {
	var errs []error
	if s.name == "" {
		errs = append(errs, errors.New("service name is empty"))
	}
	if len(s.methods) == 0 {
		errs = append(errs, fmt.Errorf("service %q declares no methods", s.name))
	}
	seen := make(map[string]bool, len(s.methods))
	for _, method := range s.methods {
		if method.Name == "" {
			errs = append(errs, fmt.Errorf("service %q: method with empty name", s.name))
			continue
		}
		if seen[method.Name] {
			errs = append(errs, fmt.Errorf("service %q: duplicate method %q", s.name, method.Name))
			continue
		}
		seen[method.Name] = true
		for i, argType := range method.Args {
			if err := Validate(argType); err != nil {
				errs = append(errs, fmt.Errorf("service %q: method %q: arg%d: %w", s.name, method.Name, i, err))
			}
		}
		if err := Validate(method.Result); err != nil {
			errs = append(errs, fmt.Errorf("service %q: method %q: result: %w", s.name, method.Name, err))
		}
	}
	return errors.Join(errs...)
}
