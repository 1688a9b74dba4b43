// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/actorlink/lib/tolerant"
)

// Values holds the resolved dependencies of a field, by field name.
type Values map[string]Value

// Attempt is one way of obtaining a field value.
type Attempt struct {
	// Label names the attempt in provenance and errors. Defaults to
	// "service.method".
	Label string

	Service string
	Method  string

	// Args builds the call arguments from the field's resolved
	// dependencies. Nil sends no arguments. An error fails the
	// attempt without calling.
	Args func(deps Values) ([]any, error)

	// Variants overrides the decode variants for the reply. Nil uses
	// the service descriptor's variants for the method.
	Variants []tolerant.Variant

	// Convert maps the decoded reply to the field value. Nil keeps the
	// decoded value. An error fails the attempt.
	Convert func(decoded any, deps Values) (any, error)
}

func (a Attempt) label() string {
	if a.Label != "" {
		return a.Label
	}
	return a.Service + "." + a.Method
}

// Field is one entry of the view.
type Field struct {
	Name string

	// Default is the value used when every attempt fails.
	Default any

	// DependsOn names fields that must resolve before this one runs.
	DependsOn []string

	// Attempts are tried in order: the first is the primary, the rest
	// are fallbacks. A field with no attempts is always unavailable.
	Attempts []Attempt
}

// Plan is the ordered list of fields of one view.
type Plan []Field

// ErrInvalidPlan is wrapped by Plan.Validate errors.
var ErrInvalidPlan = errors.New("invalid dashboard plan")

// Validate checks for empty or duplicate field names, dependencies on
// unknown fields and dependency cycles.
func (p Plan) Validate() error {
	var errs []error
	index := make(map[string]int, len(p))
	for i, field := range p {
		switch {
		case field.Name == "":
			errs = append(errs, fmt.Errorf("field %d: empty name", i))
		case index[field.Name] != 0:
			errs = append(errs, fmt.Errorf("field %d: duplicate name %q", i, field.Name))
		default:
			index[field.Name] = i + 1
		}
	}
	for _, field := range p {
		for _, dependency := range field.DependsOn {
			if index[dependency] == 0 {
				errs = append(errs, fmt.Errorf("field %q depends on unknown field %q", field.Name, dependency))
			}
		}
		for i, attempt := range field.Attempts {
			if attempt.Service == "" || attempt.Method == "" {
				errs = append(errs, fmt.Errorf("field %q attempt %d: service and method are required", field.Name, i))
			}
		}
	}
	if len(errs) == 0 {
		if cycle := p.findCycle(index); cycle != nil {
			errs = append(errs, fmt.Errorf("dependency cycle: %v", cycle))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	return nil
}

// findCycle returns the field names along a dependency cycle, or nil.
// index maps names to position+1.
func (p Plan) findCycle(index map[string]int) []string {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(p))
	var stack []string
	var visit func(i int) []string
	visit = func(i int) []string {
		switch state[i] {
		case done:
			return nil
		case visiting:
			start := 0
			for j, name := range stack {
				if name == p[i].Name {
					start = j
				}
			}
			return append(append([]string(nil), stack[start:]...), p[i].Name)
		}
		state[i] = visiting
		stack = append(stack, p[i].Name)
		for _, dependency := range p[i].DependsOn {
			if cycle := visit(index[dependency] - 1); cycle != nil {
				return cycle
			}
		}
		stack = stack[:len(stack)-1]
		state[i] = done
		return nil
	}
	for i := range p {
		if cycle := visit(i); cycle != nil {
			return cycle
		}
	}
	return nil
}
