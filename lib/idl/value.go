// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package idl

import (
	"bytes"
	"math/big"

	"github.com/bureau-foundation/actorlink/lib/principal"
)

// Record is the canonical value of a record type: field name to
// canonical field value. The accessor methods are meant for values
// produced by Decode, where every declared field is present and has
// the declared kind; they return the zero value for anything else.
type Record map[string]any

// VariantValue is the canonical value of a variant type. Tag is the
// declared alternative name, even when the wire used a different case
// for a Result tag.
type VariantValue struct {
	Tag   string
	Value any
}

// Optional is the canonical value of an opt type.
type Optional struct {
	Value any
	Set   bool
}

// Some returns a set Optional holding v.
func Some(v any) Optional { return Optional{Value: v, Set: true} }

// None returns an unset Optional.
func None() Optional { return Optional{} }

// Nat returns the named integer field (nat, int or their text forms).
// A missing field returns zero, never nil.
func (r Record) Nat(name string) *big.Int {
	if value, ok := r[name].(*big.Int); ok {
		return value
	}
	return new(big.Int)
}

func (r Record) Text(name string) string {
	value, _ := r[name].(string)
	return value
}

func (r Record) Bool(name string) bool {
	value, _ := r[name].(bool)
	return value
}

func (r Record) Blob(name string) []byte {
	value, _ := r[name].([]byte)
	return value
}

func (r Record) Principal(name string) principal.Principal {
	value, _ := r[name].(principal.Principal)
	return value
}

func (r Record) Record(name string) Record {
	value, _ := r[name].(Record)
	return value
}

func (r Record) Vec(name string) []any {
	value, _ := r[name].([]any)
	return value
}

func (r Record) Opt(name string) Optional {
	value, _ := r[name].(Optional)
	return value
}

func (r Record) Variant(name string) VariantValue {
	value, _ := r[name].(VariantValue)
	return value
}

// Equal reports whether two canonical values are equal. Integers
// compare by value, records by field set, and byte slices by content.
func Equal(a, b any) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case *big.Int:
		bv, ok := b.(*big.Int)
		if !ok || av == nil || bv == nil {
			return ok && av == bv
		}
		return av.Cmp(bv) == 0
	case []byte:
		bv, ok := b.([]byte)
		return ok && bytes.Equal(av, bv)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Record:
		bv, ok := b.(Record)
		if !ok || len(av) != len(bv) {
			return false
		}
		for name, value := range av {
			other, present := bv[name]
			if !present || !Equal(value, other) {
				return false
			}
		}
		return true
	case Optional:
		bv, ok := b.(Optional)
		if !ok || av.Set != bv.Set {
			return false
		}
		return !av.Set || Equal(av.Value, bv.Value)
	case VariantValue:
		bv, ok := b.(VariantValue)
		return ok && av.Tag == bv.Tag && Equal(av.Value, bv.Value)
	case string, bool, principal.Principal:
		return a == b
	default:
		return false
	}
}
