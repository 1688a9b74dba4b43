// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import "slices"

// Source records where a field value came from.
type Source string

const (
	// Primary: the first attempt succeeded.
	Primary Source = "primary"

	// Fallback: a later attempt succeeded.
	Fallback Source = "fallback"

	// Unavailable: every attempt failed and the value is the default.
	Unavailable Source = "unavailable"
)

// Value is one resolved field.
type Value struct {
	Value  any
	Source Source

	// Attempt is the label of the attempt that produced the value,
	// empty when unavailable.
	Attempt string

	// Variant is the decode variant that accepted the reply.
	Variant string

	// Errors holds the failures of the attempts tried before the
	// value was settled, in order.
	Errors []error
}

// Available reports whether the value came from a backend.
func (v Value) Available() bool { return v.Source != Unavailable }

// View is the result of one build. It is never modified after Build
// returns; accessors return copies.
type View struct {
	order  []string
	fields map[string]Value
}

// Field returns the resolved field and whether the plan declared it.
func (v View) Field(name string) (Value, bool) {
	value, ok := v.fields[name]
	if ok {
		value.Errors = slices.Clone(value.Errors)
	}
	return value, ok
}

// Get returns the value of a field, nil if the plan did not declare
// it.
func (v View) Get(name string) any {
	return v.fields[name].Value
}

// Source returns the provenance of a field.
func (v View) Source(name string) Source {
	return v.fields[name].Source
}

// Names returns the field names in plan order.
func (v View) Names() []string {
	return slices.Clone(v.order)
}

// Partial reports whether any field is unavailable.
func (v View) Partial() bool {
	for _, value := range v.fields {
		if value.Source == Unavailable {
			return true
		}
	}
	return false
}

// Failures returns the attempt errors of every unavailable field.
func (v View) Failures() map[string][]error {
	failures := make(map[string][]error)
	for name, value := range v.fields {
		if value.Source == Unavailable {
			failures[name] = slices.Clone(value.Errors)
		}
	}
	return failures
}
