// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tolerant

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bureau-foundation/actorlink/lib/codec"
	"github.com/bureau-foundation/actorlink/lib/idl"
)

// Variant is one candidate contract for a reply.
type Variant struct {
	// Name labels the variant in logs, metrics and errors, e.g.
	// "nat" or "text-numeric".
	Name string

	Type *idl.Type
}

// Outcome is the result of a tolerant decode.
type Outcome struct {
	// Index is the position of the accepted variant, or -1 when no
	// variant accepted the payload.
	Index int

	// Variant is the accepted variant's name, empty on failure.
	Variant string

	// Value is the canonical idl value under the accepted variant,
	// nil on failure.
	Value any

	// Err is set exactly when Index is -1: a *NoMatchError, or an
	// error wrapping ErrMalformedPayload.
	Err error
}

// Matched reports whether a variant accepted the payload.
func (o Outcome) Matched() bool { return o.Index >= 0 }

// Attempt records why one variant rejected the payload.
type Attempt struct {
	Variant string
	Err     error
}

// NoMatchError is returned when every variant rejected the payload.
type NoMatchError struct {
	Attempts []Attempt
}

func (e *NoMatchError) Error() string {
	if len(e.Attempts) == 0 {
		return "no decode variants supplied"
	}
	parts := make([]string, len(e.Attempts))
	for i, attempt := range e.Attempts {
		parts[i] = fmt.Sprintf("%s: %v", attempt.Variant, attempt.Err)
	}
	return "payload matched no variant (" + strings.Join(parts, "; ") + ")"
}

// Unwrap returns the last variant's error, the one that describes
// the most permissive contract.
func (e *NoMatchError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// ErrMalformedPayload is wrapped when the payload bytes are not valid
// CBOR at all, before any variant is consulted.
var ErrMalformedPayload = errors.New("malformed payload")

// Decode parses payload and returns the first variant that accepts
// it. A failed decode returns an Outcome with Index -1 and Err set.
func Decode(payload []byte, variants []Variant) Outcome {
	tree, err := codec.DecodeTree(payload)
	if err != nil {
		return Outcome{Index: -1, Err: fmt.Errorf("%w: %w", ErrMalformedPayload, err)}
	}
	return DecodeTree(tree, variants)
}

// DecodeTree is Decode for a payload that has already been parsed
// with codec.DecodeTree.
func DecodeTree(tree any, variants []Variant) Outcome {
	attempts := make([]Attempt, 0, len(variants))
	for index, variant := range variants {
		value, err := idl.Decode(variant.Type, tree)
		if err == nil {
			return Outcome{Index: index, Variant: variant.Name, Value: value}
		}
		attempts = append(attempts, Attempt{Variant: variant.Name, Err: err})
	}
	return Outcome{Index: -1, Err: &NoMatchError{Attempts: attempts}}
}

// Validate checks a variant list: at least one variant, unique
// non-empty names and well-formed types.
func Validate(variants []Variant) error {
	if len(variants) == 0 {
		return errors.New("no decode variants")
	}
	var errs []error
	seen := make(map[string]bool, len(variants))
	for i, variant := range variants {
		if variant.Name == "" {
			errs = append(errs, fmt.Errorf("variant %d: empty name", i))
		} else if seen[variant.Name] {
			errs = append(errs, fmt.Errorf("variant %d: duplicate name %q", i, variant.Name))
		}
		seen[variant.Name] = true
		if err := idl.Validate(variant.Type); err != nil {
			errs = append(errs, fmt.Errorf("variant %q: %w", variant.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Single wraps one contract as a variant list, for methods whose
// reply shape never drifted.
func Single(t *idl.Type) []Variant {
	return []Variant{{Name: "default", Type: t}}
}
