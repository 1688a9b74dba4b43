// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package idl

import (
	"fmt"
	"math/big"
	"reflect"

	"github.com/bureau-foundation/actorlink/lib/principal"
)

// Encode converts a Go value into a CBOR-ready tree that satisfies t.
// Besides canonical values, Encode accepts the obvious Go spellings:
// any integer type or *big.Int for nat and int, a principal in text
// form, typed slices for vec, map[string]any for record, and a bare
// value (or nil) for opt.
//
// The produced tree uses *big.Int for integers, []byte for principals
// and a single-entry map for variants.
func Encode(t *Type, value any) (any, error) {
	return encode(t, value, "")
}

// EncodeArgs encodes a positional argument list.
func EncodeArgs(types []*Type, args []any) ([]any, error) {
	if len(args) != len(types) {
		return nil, fmt.Errorf("idl: %d arguments supplied, contract declares %d", len(args), len(types))
	}
	encoded := make([]any, len(args))
	for i, argType := range types {
		value, err := encode(argType, args[i], fmt.Sprintf("arg%d", i))
		if err != nil {
			return nil, err
		}
		encoded[i] = value
	}
	return encoded, nil
}

func encodeMismatch(path string, t *Type, value any) error {
	return &MismatchError{Path: path, Want: t.String(), Got: fmt.Sprintf("Go value of type %T", value)}
}

func encode(t *Type, value any, path string) (any, error) {
	switch t.kind {
	case KindNull:
		if value != nil {
			return nil, encodeMismatch(path, t, value)
		}
		return nil, nil

	case KindBool:
		b, ok := value.(bool)
		if !ok {
			return nil, encodeMismatch(path, t, value)
		}
		return b, nil

	case KindNat, KindInt, KindNatText, KindIntText:
		n, ok := goInteger(value)
		if !ok {
			return nil, encodeMismatch(path, t, value)
		}
		if (t.kind == KindNat || t.kind == KindNatText) && n.Sign() < 0 {
			return nil, &MismatchError{Path: path, Want: t.String(), Got: "negative integer " + n.String()}
		}
		if t.kind == KindNatText || t.kind == KindIntText {
			return n.String(), nil
		}
		return n, nil

	case KindText:
		s, ok := value.(string)
		if !ok {
			return nil, encodeMismatch(path, t, value)
		}
		return s, nil

	case KindBlob:
		b, ok := value.([]byte)
		if !ok {
			return nil, encodeMismatch(path, t, value)
		}
		return b, nil

	case KindPrincipal:
		switch p := value.(type) {
		case principal.Principal:
			return p.Bytes(), nil
		case string:
			parsed, err := principal.Parse(p)
			if err != nil {
				return nil, &MismatchError{Path: path, Want: t.String(), Got: err.Error()}
			}
			return parsed.Bytes(), nil
		default:
			return nil, encodeMismatch(path, t, value)
		}

	case KindOpt:
		switch o := value.(type) {
		case nil:
			return nil, nil
		case Optional:
			if !o.Set {
				return nil, nil
			}
			return encode(t.elem, o.Value, path)
		default:
			return encode(t.elem, value, path)
		}

	case KindVec:
		if value == nil {
			return []any{}, nil
		}
		slice := reflect.ValueOf(value)
		if slice.Kind() != reflect.Slice && slice.Kind() != reflect.Array {
			return nil, encodeMismatch(path, t, value)
		}
		encoded := make([]any, slice.Len())
		for i := range slice.Len() {
			element, err := encode(t.elem, slice.Index(i).Interface(), indexPath(path, i))
			if err != nil {
				return nil, err
			}
			encoded[i] = element
		}
		return encoded, nil

	case KindRecord:
		var fields map[string]any
		switch r := value.(type) {
		case Record:
			fields = r
		case map[string]any:
			fields = r
		default:
			return nil, encodeMismatch(path, t, value)
		}
		encoded := make(map[string]any, len(t.fields))
		for _, field := range t.fields {
			fieldPath := joinPath(path, field.Name)
			raw, present := fields[field.Name]
			if !present && field.Type.kind != KindOpt {
				return nil, &MismatchError{Path: fieldPath, Want: field.Type.String(), Got: "missing field"}
			}
			element, err := encode(field.Type, raw, fieldPath)
			if err != nil {
				return nil, err
			}
			encoded[field.Name] = element
		}
		return encoded, nil

	case KindVariant:
		v, ok := value.(VariantValue)
		if !ok {
			return nil, encodeMismatch(path, t, value)
		}
		alternative, ok := t.Field(v.Tag)
		if !ok {
			return nil, &MismatchError{Path: path, Want: t.String(), Got: fmt.Sprintf("undeclared tag %q", v.Tag)}
		}
		payload, err := encode(alternative.Type, v.Value, joinPath(path, v.Tag))
		if err != nil {
			return nil, err
		}
		return map[string]any{alternative.Name: payload}, nil

	default:
		return nil, fmt.Errorf("idl: encode %s: unknown kind %d", path, int(t.kind))
	}
}

// goInteger converts the Go integer spellings Encode accepts into a
// fresh *big.Int.
func goInteger(value any) (*big.Int, bool) {
	switch n := value.(type) {
	case *big.Int:
		if n == nil {
			return nil, false
		}
		return new(big.Int).Set(n), true
	case int:
		return big.NewInt(int64(n)), true
	case int8:
		return big.NewInt(int64(n)), true
	case int16:
		return big.NewInt(int64(n)), true
	case int32:
		return big.NewInt(int64(n)), true
	case int64:
		return big.NewInt(n), true
	case uint:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint8:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint16:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), true
	case uint64:
		return new(big.Int).SetUint64(n), true
	default:
		return nil, false
	}
}
