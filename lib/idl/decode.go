// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package idl

import (
	"fmt"
	"math/big"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bureau-foundation/actorlink/lib/principal"
)

// MismatchError reports where and why a wire value did not satisfy a
// type contract.
type MismatchError struct {
	// Path locates the offending value, e.g. "miners[0].id". Empty
	// for the root value.
	Path string

	// Want is the expected type, rendered with Type.String.
	Want string

	// Got describes what was found on the wire.
	Got string
}

func (e *MismatchError) Error() string {
	path := e.Path
	if path == "" {
		path = "<root>"
	}
	return fmt.Sprintf("%s: want %s, got %s", path, e.Want, e.Got)
}

func mismatch(path string, want *Type, got string) error {
	return &MismatchError{Path: path, Want: want.String(), Got: got}
}

// Decode checks tree against t and returns its canonical value. tree
// must be built from the values codec.DecodeTree produces. On failure
// the error is a *MismatchError and the tree is not partially
// converted: Decode never returns a value alongside an error.
func Decode(t *Type, tree any) (any, error) {
	return decode(t, tree, "")
}

// DecodeArgs checks a positional argument list against types. The
// tree must be an array with exactly len(types) elements.
func DecodeArgs(types []*Type, tree any) ([]any, error) {
	list, ok := tree.([]any)
	if !ok {
		return nil, &MismatchError{Want: "argument list", Got: describe(tree)}
	}
	if len(list) != len(types) {
		return nil, &MismatchError{
			Want: fmt.Sprintf("%d arguments", len(types)),
			Got:  fmt.Sprintf("%d arguments", len(list)),
		}
	}
	values := make([]any, len(types))
	for i, argType := range types {
		value, err := decode(argType, list[i], fmt.Sprintf("arg%d", i))
		if err != nil {
			return nil, err
		}
		values[i] = value
	}
	return values, nil
}

func decode(t *Type, tree any, path string) (any, error) {
	switch t.kind {
	case KindNull:
		if tree != nil {
			return nil, mismatch(path, t, describe(tree))
		}
		return nil, nil

	case KindBool:
		value, ok := tree.(bool)
		if !ok {
			return nil, mismatch(path, t, describe(tree))
		}
		return value, nil

	case KindNat, KindInt:
		value, ok := wireInteger(tree)
		if !ok {
			return nil, mismatch(path, t, describe(tree))
		}
		if t.kind == KindNat && value.Sign() < 0 {
			return nil, mismatch(path, t, "negative integer "+value.String())
		}
		return value, nil

	case KindNatText, KindIntText:
		text, ok := tree.(string)
		if !ok {
			return nil, mismatch(path, t, describe(tree))
		}
		value, ok := parseDecimal(text)
		if !ok {
			return nil, mismatch(path, t, fmt.Sprintf("text %q", truncate(text)))
		}
		if t.kind == KindNatText && value.Sign() < 0 {
			return nil, mismatch(path, t, fmt.Sprintf("negative text %q", truncate(text)))
		}
		return value, nil

	case KindText:
		value, ok := tree.(string)
		if !ok {
			return nil, mismatch(path, t, describe(tree))
		}
		return value, nil

	case KindBlob:
		switch value := tree.(type) {
		case []byte:
			return value, nil
		case []any:
			// Some encoders ship blob as an array of small integers.
			blob := make([]byte, len(value))
			for i, element := range value {
				octet, ok := element.(uint64)
				if !ok || octet > 0xff {
					return nil, mismatch(indexPath(path, i), natType, describe(element)+" (blob element)")
				}
				blob[i] = byte(octet)
			}
			return blob, nil
		default:
			return nil, mismatch(path, t, describe(tree))
		}

	case KindPrincipal:
		switch value := tree.(type) {
		case []byte:
			p, err := principal.FromBytes(value)
			if err != nil {
				return nil, mismatch(path, t, err.Error())
			}
			return p, nil
		case string:
			p, err := principal.Parse(value)
			if err != nil {
				return nil, mismatch(path, t, err.Error())
			}
			return p, nil
		default:
			return nil, mismatch(path, t, describe(tree))
		}

	case KindOpt:
		if tree == nil {
			return None(), nil
		}
		value, err := decode(t.elem, tree, path)
		if err != nil {
			return nil, err
		}
		return Some(value), nil

	case KindVec:
		list, ok := tree.([]any)
		if !ok {
			return nil, mismatch(path, t, describe(tree))
		}
		values := make([]any, len(list))
		for i, element := range list {
			value, err := decode(t.elem, element, indexPath(path, i))
			if err != nil {
				return nil, err
			}
			values[i] = value
		}
		return values, nil

	case KindRecord:
		fields, ok := tree.(map[string]any)
		if !ok {
			return nil, mismatch(path, t, describe(tree))
		}
		record := make(Record, len(t.fields))
		for _, field := range t.fields {
			fieldPath := joinPath(path, field.Name)
			raw, present := fields[field.Name]
			if !present {
				if field.Type.kind == KindOpt {
					record[field.Name] = None()
					continue
				}
				return nil, &MismatchError{Path: fieldPath, Want: field.Type.String(), Got: "missing field"}
			}
			value, err := decode(field.Type, raw, fieldPath)
			if err != nil {
				return nil, err
			}
			record[field.Name] = value
		}
		return record, nil

	case KindVariant:
		return decodeVariant(t, tree, path)

	default:
		return nil, fmt.Errorf("idl: decode %s: unknown kind %d", path, int(t.kind))
	}
}

func decodeVariant(t *Type, tree any, path string) (any, error) {
	var wireTag string
	var payload any
	switch value := tree.(type) {
	case map[string]any:
		if len(value) != 1 {
			return nil, mismatch(path, t, fmt.Sprintf("map with %d entries", len(value)))
		}
		for tag, inner := range value {
			wireTag, payload = tag, inner
		}
	case string:
		// Enum-style encoding: a bare tag for a null alternative.
		wireTag = value
	default:
		return nil, mismatch(path, t, describe(tree))
	}

	alternative, ok := t.lookupTag(wireTag)
	if !ok {
		return nil, mismatch(path, t, fmt.Sprintf("unknown tag %q", wireTag))
	}
	if _, bare := tree.(string); bare && alternative.Type.kind != KindNull {
		return nil, mismatch(joinPath(path, alternative.Name), alternative.Type, "bare tag without payload")
	}
	value, err := decode(alternative.Type, payload, joinPath(path, alternative.Name))
	if err != nil {
		return nil, err
	}
	return VariantValue{Tag: alternative.Name, Value: value}, nil
}

// lookupTag finds the alternative for a wire tag, folding the case of
// the first letter for Result types.
func (t *Type) lookupTag(tag string) (Field, bool) {
	if field, ok := t.Field(tag); ok {
		return field, true
	}
	if !t.foldTagCase {
		return Field{}, false
	}
	for _, field := range t.fields {
		if equalFoldFirst(field.Name, tag) {
			return field, true
		}
	}
	return Field{}, false
}

func equalFoldFirst(a, b string) bool {
	ra, na := utf8.DecodeRuneInString(a)
	rb, nb := utf8.DecodeRuneInString(b)
	if ra == utf8.RuneError || rb == utf8.RuneError {
		return false
	}
	return unicode.ToLower(ra) == unicode.ToLower(rb) && a[na:] == b[nb:]
}

// wireInteger converts any integer representation in a decoded tree
// to a fresh *big.Int.
func wireInteger(tree any) (*big.Int, bool) {
	switch value := tree.(type) {
	case uint64:
		return new(big.Int).SetUint64(value), true
	case int64:
		return big.NewInt(value), true
	case *big.Int:
		if value == nil {
			return nil, false
		}
		return new(big.Int).Set(value), true
	case big.Int:
		return new(big.Int).Set(&value), true
	default:
		return nil, false
	}
}

// parseDecimal accepts canonical decimal text only: an optional '-'
// and ASCII digits with no leading zero. "0" is the only spelling of
// zero; "-0", "007", '+', whitespace, underscores and base prefixes
// are rejected.
func parseDecimal(text string) (*big.Int, bool) {
	digits := strings.TrimPrefix(text, "-")
	if digits == "" {
		return nil, false
	}
	if digits[0] == '0' && (len(digits) > 1 || len(digits) != len(text)) {
		return nil, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return nil, false
		}
	}
	return new(big.Int).SetString(text, 10)
}

func describe(tree any) string {
	switch value := tree.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case uint64:
		return fmt.Sprintf("unsigned integer %d", value)
	case int64:
		return fmt.Sprintf("negative integer %d", value)
	case *big.Int:
		if value.Sign() < 0 {
			return "negative bignum"
		}
		return "bignum"
	case float64, float32:
		return "float"
	case string:
		return fmt.Sprintf("text %q", truncate(value))
	case []byte:
		return fmt.Sprintf("bytes (%d)", len(value))
	case []any:
		return fmt.Sprintf("array (%d)", len(value))
	case map[string]any:
		return fmt.Sprintf("map (%d)", len(value))
	default:
		return fmt.Sprintf("%T", tree)
	}
}

func truncate(text string) string {
	const limit = 32
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
