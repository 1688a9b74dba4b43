// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package idl

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the primitive a Type is built from.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNat
	KindInt
	KindNatText
	KindIntText
	KindText
	KindBlob
	KindPrincipal
	KindOpt
	KindVec
	KindRecord
	KindVariant
)

var kindNames = map[Kind]string{
	KindNull:      "null",
	KindBool:      "bool",
	KindNat:       "nat",
	KindInt:       "int",
	KindNatText:   "nat-as-text",
	KindIntText:   "int-as-text",
	KindText:      "text",
	KindBlob:      "blob",
	KindPrincipal: "principal",
	KindOpt:       "opt",
	KindVec:       "vec",
	KindRecord:    "record",
	KindVariant:   "variant",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Type is an immutable type contract node. Build types with the
// constructor functions; the zero value is not a valid type.
type Type struct {
	kind   Kind
	elem   *Type
	fields []Field

	// foldTagCase makes variant tag lookup treat "ok" and "Ok" (and
	// any other pair differing only in the case of the first letter)
	// as the same alternative.
	foldTagCase bool
}

// Field is a named member of a record or an alternative of a variant.
type Field struct {
	Name string
	Type *Type
}

// F is shorthand for Field{Name: name, Type: t}.
func F(name string, t *Type) Field {
	return Field{Name: name, Type: t}
}

var (
	nullType      = &Type{kind: KindNull}
	boolType      = &Type{kind: KindBool}
	natType       = &Type{kind: KindNat}
	intType       = &Type{kind: KindInt}
	natTextType   = &Type{kind: KindNatText}
	intTextType   = &Type{kind: KindIntText}
	textType      = &Type{kind: KindText}
	blobType      = &Type{kind: KindBlob}
	principalType = &Type{kind: KindPrincipal}
)

func Null() *Type      { return nullType }
func Bool() *Type      { return boolType }
func Nat() *Type       { return natType }
func Int() *Type       { return intType }
func NatText() *Type   { return natTextType }
func IntText() *Type   { return intTextType }
func Text() *Type      { return textType }
func Blob() *Type      { return blobType }
func Principal() *Type { return principalType }

// Opt returns an optional of t. Absent record fields and CBOR null
// both decode to an unset Optional.
func Opt(t *Type) *Type { return &Type{kind: KindOpt, elem: t} }

// Vec returns a list of t.
func Vec(t *Type) *Type { return &Type{kind: KindVec, elem: t} }

// Rec returns a record type with the given fields. Field order is
// preserved for String output only; records match by name.
func Rec(fields ...Field) *Type {
	return &Type{kind: KindRecord, fields: fields}
}

// Variant returns a tagged union with the given alternatives. Tags
// match exactly.
func Variant(alternatives ...Field) *Type {
	return &Type{kind: KindVariant, fields: alternatives}
}

// Result returns the conventional success/failure union. The tags are
// declared as "ok" and "err" and matched regardless of the case of
// their first letter.
func Result(ok, err *Type) *Type {
	return &Type{
		kind:        KindVariant,
		fields:      []Field{{Name: "ok", Type: ok}, {Name: "err", Type: err}},
		foldTagCase: true,
	}
}

// Kind returns the primitive kind of t.
func (t *Type) Kind() Kind { return t.kind }

// Elem returns the element type of an opt or vec, nil otherwise.
func (t *Type) Elem() *Type { return t.elem }

// Fields returns the record fields or variant alternatives.
func (t *Type) Fields() []Field { return t.fields }

// Field looks up a record field or variant alternative by exact name.
func (t *Type) Field(name string) (Field, bool) {
	for _, field := range t.fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// IsResult reports whether t was built with Result.
func (t *Type) IsResult() bool {
	return t.kind == KindVariant && t.foldTagCase
}

// String renders t in a compact, Candid-like notation for error
// messages and logs.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.kind {
	case KindOpt:
		return "opt " + t.elem.String()
	case KindVec:
		return "vec " + t.elem.String()
	case KindRecord, KindVariant:
		parts := make([]string, len(t.fields))
		for i, field := range t.fields {
			parts[i] = field.Name + " : " + field.Type.String()
		}
		return t.kind.String() + " { " + strings.Join(parts, "; ") + " }"
	default:
		return t.kind.String()
	}
}

// Validate checks that t is well formed: no nil nodes, opt and vec
// have an element type, record and variant names are non-empty and
// unique, and variants have at least one alternative.
func Validate(t *Type) error {
	return validate(t, "")
}

func validate(t *Type, path string) error {
	location := path
	if location == "" {
		location = "<root>"
	}
	if t == nil {
		return fmt.Errorf("%s: nil type", location)
	}

	switch t.kind {
	case KindNull, KindBool, KindNat, KindInt, KindNatText, KindIntText, KindText, KindBlob, KindPrincipal:
		return nil

	case KindOpt, KindVec:
		if t.elem == nil {
			return fmt.Errorf("%s: %s without element type", location, t.kind)
		}
		return validate(t.elem, path+"."+t.kind.String())

	case KindRecord, KindVariant:
		if t.kind == KindVariant && len(t.fields) == 0 {
			return fmt.Errorf("%s: variant without alternatives", location)
		}
		var errs []error
		seen := make(map[string]bool, len(t.fields))
		for _, field := range t.fields {
			if field.Name == "" {
				errs = append(errs, fmt.Errorf("%s: empty %s field name", location, t.kind))
				continue
			}
			if seen[field.Name] {
				errs = append(errs, fmt.Errorf("%s: duplicate %s field %q", location, t.kind, field.Name))
				continue
			}
			seen[field.Name] = true
			if err := validate(field.Type, joinPath(path, field.Name)); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)

	default:
		return fmt.Errorf("%s: unknown kind %d", location, int(t.kind))
	}
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func indexPath(path string, index int) string {
	return fmt.Sprintf("%s[%d]", path, index)
}
