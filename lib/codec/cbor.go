// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding. big.Int values that fit in 64 bits are written as plain
// integers; larger ones as bignums (tags 2 and 3).
var encMode cbor.EncMode

// decMode decodes into Go structs. Unknown fields are ignored so that
// envelopes stay forward compatible.
var decMode cbor.DecMode

// treeMode decodes into loose value trees for tolerant decoding.
// Integers keep their CBOR major type (uint64 for unsigned, int64 for
// negative) and bignums decode to *big.Int, so nothing is widened,
// narrowed or sign-converted before a type contract looks at it.
var treeMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// principal.Principal and similar identifiers serialize as CBOR
	// text strings via MarshalText.
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encOptions.BigIntConvert = cbor.BigIntConvertShortest
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}

	treeMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		IntDec:         cbor.IntDecConvertNone,
		BigIntDec:      cbor.BigIntDecodePointer,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR tree decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// DecodeTree decodes CBOR data into a loose value tree. The result is
// built from: nil, bool, uint64 (unsigned integer), int64 (negative
// integer), *big.Int (bignum or negative integer below int64),
// float64, string, []byte, []any, map[string]any and cbor.Tag for
// unrecognized tags.
func DecodeTree(data []byte) (any, error) {
	var tree any
	if err := treeMode.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// Encoder is a CBOR stream encoder. Type alias so consumers import
// only lib/codec, not fxamacker/cbor directly.
type Encoder = cbor.Encoder

// Decoder is a CBOR stream decoder.
type Decoder = cbor.Decoder

// RawMessage is a raw encoded CBOR value, used to delay decoding of
// reply payloads until the caller knows which contracts to try.
type RawMessage = cbor.RawMessage

// NewEncoder returns a CBOR encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a CBOR decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return decMode.NewDecoder(r)
}

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) for the
// entire contents of data. Used when logging a reply that no contract
// variant accepted.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
