// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package principal

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"testing"
)

func TestWellKnownText(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		text string
	}{
		{"management", nil, "aaaaa-aa"},
		{"anonymous", []byte{0x04}, "2vxsx-fae"},
		{"ledger canister", []byte{0, 0, 0, 0, 0, 0, 0, 2, 1, 1}, "ryjl3-tyaaa-aaaaa-aaaba-cai"},
		{"governance canister", []byte{0, 0, 0, 0, 0, 0, 0, 1, 1, 1}, "rrkah-fqaaa-aaaaa-aaaaq-cai"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p, err := FromBytes(test.raw)
			if err != nil {
				t.Fatalf("FromBytes: %v", err)
			}
			if got := p.String(); got != test.text {
				t.Errorf("String: got %q, want %q", got, test.text)
			}

			parsed, err := Parse(test.text)
			if err != nil {
				t.Fatalf("Parse(%q): %v", test.text, err)
			}
			if parsed != p {
				t.Errorf("Parse(%q) = %x, want %x", test.text, parsed.Bytes(), test.raw)
			}
		})
	}
}

func TestSpecialPrincipals(t *testing.T) {
	if !Anonymous().IsAnonymous() {
		t.Error("Anonymous().IsAnonymous() = false")
	}
	if Anonymous().IsManagement() {
		t.Error("Anonymous().IsManagement() = true")
	}
	if !Management().IsManagement() {
		t.Error("Management().IsManagement() = false")
	}
	var zero Principal
	if zero != Management() {
		t.Error("zero value is not the management principal")
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{"not base32", "hello-world!", ErrMalformed},
		{"too short", "aaaa", ErrMalformed},
		{"bad checksum", "2vxsx-faf", nil},
		{"uppercase", "2VXSX-FAE", ErrMalformed},
		{"missing dashes", "ryjl3tyaaaaaaaaaaabacai", ErrMalformed},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse(test.text)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", test.text)
			}
			if test.want != nil && !errors.Is(err, test.want) {
				t.Errorf("Parse(%q) error = %v, want %v", test.text, err, test.want)
			}
		})
	}
}

func TestFromBytesTooLong(t *testing.T) {
	if _, err := FromBytes(make([]byte, MaxLength+1)); !errors.Is(err, ErrTooLong) {
		t.Fatalf("FromBytes(30 bytes) error = %v, want ErrTooLong", err)
	}
}

func TestSelfAuthenticating(t *testing.T) {
	seed := bytes.Repeat([]byte{0x11}, ed25519.SeedSize)
	publicKey := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)

	p := SelfAuthenticating(publicKey)
	raw := p.Bytes()
	if len(raw) != MaxLength {
		t.Fatalf("self-authenticating principal has %d bytes, want %d", len(raw), MaxLength)
	}
	if raw[len(raw)-1] != 0x02 {
		t.Errorf("suffix byte: got %#x, want 0x02", raw[len(raw)-1])
	}
	if p.IsAnonymous() || p.IsManagement() {
		t.Error("self-authenticating principal classified as special")
	}

	roundTrip, err := Parse(p.String())
	if err != nil {
		t.Fatalf("Parse(%q): %v", p.String(), err)
	}
	if roundTrip != p {
		t.Error("text round trip changed the principal")
	}

	other := SelfAuthenticating(ed25519.NewKeyFromSeed(bytes.Repeat([]byte{0x22}, ed25519.SeedSize)).Public().(ed25519.PublicKey))
	if other == p {
		t.Error("different keys derived the same principal")
	}
}

func TestDERRoundTrip(t *testing.T) {
	publicKey := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{0x33}, ed25519.SeedSize)).Public().(ed25519.PublicKey)
	der := DERPublicKey(publicKey)

	decoded, err := PublicKeyFromDER(der)
	if err != nil {
		t.Fatalf("PublicKeyFromDER: %v", err)
	}
	if !decoded.Equal(publicKey) {
		t.Error("DER round trip changed the key")
	}

	if _, err := PublicKeyFromDER(der[1:]); err == nil {
		t.Error("expected error for truncated DER")
	}
	corrupted := append([]byte(nil), der...)
	corrupted[5] = 0xff
	if _, err := PublicKeyFromDER(corrupted); err == nil {
		t.Error("expected error for wrong algorithm identifier")
	}
}

func TestTextMarshaling(t *testing.T) {
	p := MustParse("ryjl3-tyaaa-aaaaa-aaaba-cai")
	text, err := p.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	var decoded Principal
	if err := decoded.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if decoded != p {
		t.Errorf("text marshaling round trip: got %s, want %s", decoded, p)
	}
}
