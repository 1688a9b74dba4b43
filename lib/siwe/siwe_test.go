// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package siwe

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/actorlink/internal/backendtest"
	"github.com/bureau-foundation/actorlink/internal/mockbackend"
	"github.com/bureau-foundation/actorlink/lib/actor"
	"github.com/bureau-foundation/actorlink/lib/clock"
	"github.com/bureau-foundation/actorlink/lib/credential"
)

// EIP-55 reference vectors.
var checksumVectors = []string{
	"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
	"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
	"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
	"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
}

func TestChecksumAddress(t *testing.T) {
	for _, want := range checksumVectors {
		for _, input := range []string{want, strings.ToLower(want), "0x" + strings.ToUpper(want[2:])} {
			got, err := ChecksumAddress(input)
			if err != nil {
				t.Errorf("ChecksumAddress(%q): %v", input, err)
				continue
			}
			if got != want {
				t.Errorf("ChecksumAddress(%q) = %q, want %q", input, got, want)
			}
		}
	}
}

func TestChecksumAddressRejects(t *testing.T) {
	tests := []struct {
		name    string
		address string
	}{
		{"no prefix", "5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"},
		{"short", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeA"},
		{"not hex", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAzz"},
		// One letter's case flipped.
		{"bad checksum", "0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := ChecksumAddress(test.address); !errors.Is(err, ErrInvalidAddress) {
				t.Errorf("ChecksumAddress(%q) error = %v, want ErrInvalidAddress", test.address, err)
			}
		})
	}
}

func newProvider(t *testing.T) (*mockbackend.Backend, *actor.Handle) {
	t.Helper()
	fakeClock := clock.Fake(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	backend, err := mockbackend.New(mockbackend.Config{Clock: fakeClock, Logger: logger})
	if err != nil {
		t.Fatalf("mockbackend.New: %v", err)
	}
	factory := actor.NewFactory(actor.FactoryConfig{
		Transport: backendtest.New(backend.Dispatcher()),
		Clock:     fakeClock,
		Logger:    logger,
	})
	handle, err := factory.Bind(actor.ServiceDescriptor{
		Name:       "siwe",
		Endpoint:   "unix:/run/actorlink/siwe.sock",
		CanisterID: backend.SiweCanister(),
		Contract:   Contract(),
	}, credential.Anonymous())
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	return backend, handle
}

func TestGetPrincipal(t *testing.T) {
	backend, handle := newProvider(t)
	cred, err := credential.FromSeed(bytes.Repeat([]byte{5}, 32))
	if err != nil {
		t.Fatalf("FromSeed: %v", err)
	}
	address := checksumVectors[0]
	backend.LinkAddress(address, cred.Principal())

	got, err := GetPrincipal(context.Background(), handle, strings.ToLower(address))
	if err != nil {
		t.Fatalf("GetPrincipal: %v", err)
	}
	if got != cred.Principal() {
		t.Errorf("GetPrincipal: got %s, want %s", got, cred.Principal())
	}

	back, err := GetAddress(context.Background(), handle, got)
	if err != nil {
		t.Fatalf("GetAddress: %v", err)
	}
	if back != address {
		t.Errorf("GetAddress: got %s, want %s", back, address)
	}
}

func TestGetPrincipalUnknownAddress(t *testing.T) {
	_, handle := newProvider(t)
	_, err := GetPrincipal(context.Background(), handle, checksumVectors[1])
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("GetPrincipal error = %v, want *ProviderError", err)
	}
	if providerErr.Address != checksumVectors[1] || providerErr.Message == "" {
		t.Errorf("ProviderError: got %+v", providerErr)
	}
}

func TestGetPrincipalValidatesFirst(t *testing.T) {
	_, handle := newProvider(t)
	if _, err := GetPrincipal(context.Background(), handle, "0x1234"); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("GetPrincipal error = %v, want ErrInvalidAddress", err)
	}
}
