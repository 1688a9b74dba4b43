// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package principal

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
)

// MaxLength is the maximum number of bytes in a principal.
const MaxLength = 29

const (
	selfAuthenticatingSuffix = 0x02
	anonymousSuffix          = 0x04
)

// ed25519DERPrefix is the SubjectPublicKeyInfo header for a raw
// 32-byte Ed25519 key (RFC 8410).
var ed25519DERPrefix = []byte{
	0x30, 0x2a, 0x30, 0x05, 0x06, 0x03, 0x2b, 0x65, 0x70, 0x03, 0x21, 0x00,
}

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Errors returned by Parse and FromBytes.
var (
	ErrTooLong          = errors.New("principal: longer than 29 bytes")
	ErrMalformed        = errors.New("principal: malformed text")
	ErrChecksumMismatch = errors.New("principal: checksum mismatch")
)

// Principal identifies a caller or a service. The zero value is the
// management principal. Principals are comparable and usable as map
// keys.
type Principal struct {
	raw string
}

// Anonymous returns the principal of callers without a credential.
func Anonymous() Principal {
	return Principal{raw: string([]byte{anonymousSuffix})}
}

// Management returns the empty principal ("aaaaa-aa").
func Management() Principal {
	return Principal{}
}

// FromBytes wraps raw principal bytes.
func FromBytes(raw []byte) (Principal, error) {
	if len(raw) > MaxLength {
		return Principal{}, ErrTooLong
	}
	return Principal{raw: string(raw)}, nil
}

// SelfAuthenticating derives the principal owned by an Ed25519 public
// key.
func SelfAuthenticating(publicKey ed25519.PublicKey) Principal {
	digest := sha256.Sum224(DERPublicKey(publicKey))
	raw := make([]byte, 0, len(digest)+1)
	raw = append(raw, digest[:]...)
	raw = append(raw, selfAuthenticatingSuffix)
	return Principal{raw: string(raw)}
}

// DERPublicKey returns the DER SubjectPublicKeyInfo encoding of an
// Ed25519 public key.
func DERPublicKey(publicKey ed25519.PublicKey) []byte {
	der := make([]byte, 0, len(ed25519DERPrefix)+len(publicKey))
	der = append(der, ed25519DERPrefix...)
	return append(der, publicKey...)
}

// PublicKeyFromDER extracts the raw Ed25519 key from its DER
// SubjectPublicKeyInfo encoding.
func PublicKeyFromDER(der []byte) (ed25519.PublicKey, error) {
	if len(der) != len(ed25519DERPrefix)+ed25519.PublicKeySize {
		return nil, fmt.Errorf("principal: DER public key has %d bytes, want %d", len(der), len(ed25519DERPrefix)+ed25519.PublicKeySize)
	}
	if string(der[:len(ed25519DERPrefix)]) != string(ed25519DERPrefix) {
		return nil, errors.New("principal: DER public key is not Ed25519")
	}
	return ed25519.PublicKey(der[len(ed25519DERPrefix):]), nil
}

// Parse decodes the textual form of a principal. Only the canonical
// spelling (lowercase, dashes every five characters) is accepted.
func Parse(text string) (Principal, error) {
	compact := strings.ToUpper(strings.ReplaceAll(text, "-", ""))
	decoded, err := encoding.DecodeString(compact)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %q: %v", ErrMalformed, text, err)
	}
	if len(decoded) < crc32.Size {
		return Principal{}, fmt.Errorf("%w: %q is too short", ErrMalformed, text)
	}

	checksum := binary.BigEndian.Uint32(decoded[:crc32.Size])
	raw := decoded[crc32.Size:]
	if len(raw) > MaxLength {
		return Principal{}, ErrTooLong
	}
	if crc32.ChecksumIEEE(raw) != checksum {
		return Principal{}, fmt.Errorf("%w: %q", ErrChecksumMismatch, text)
	}

	parsed := Principal{raw: string(raw)}
	if parsed.String() != text {
		return Principal{}, fmt.Errorf("%w: %q is not in canonical form (want %q)", ErrMalformed, text, parsed.String())
	}
	return parsed, nil
}

// MustParse is like Parse but panics on error. For constants and
// tests only.
func MustParse(text string) Principal {
	parsed, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return parsed
}

// Bytes returns a copy of the raw principal bytes.
func (p Principal) Bytes() []byte {
	return []byte(p.raw)
}

// String returns the canonical textual form.
func (p Principal) String() string {
	raw := []byte(p.raw)
	buffer := make([]byte, crc32.Size+len(raw))
	binary.BigEndian.PutUint32(buffer, crc32.ChecksumIEEE(raw))
	copy(buffer[crc32.Size:], raw)

	encoded := strings.ToLower(encoding.EncodeToString(buffer))

	var grouped strings.Builder
	for i := 0; i < len(encoded); i += 5 {
		if i > 0 {
			grouped.WriteByte('-')
		}
		end := min(i+5, len(encoded))
		grouped.WriteString(encoded[i:end])
	}
	return grouped.String()
}

// IsAnonymous reports whether p is the anonymous principal.
func (p Principal) IsAnonymous() bool {
	return p.raw == string([]byte{anonymousSuffix})
}

// IsManagement reports whether p is the empty management principal.
func (p Principal) IsManagement() bool {
	return p.raw == ""
}

// MarshalText implements encoding.TextMarshaler.
func (p Principal) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Principal) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
