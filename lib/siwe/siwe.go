// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package siwe talks to a sign-in-with-Ethereum provider service to
// map wallet addresses to stable principals.
//
// Session identities are delegated keys that change on every login;
// the provider keeps the principal that belongs to a wallet address
// stable across sessions, and application data (miners, balances) is
// keyed by that stable principal.
package siwe

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/bureau-foundation/actorlink/lib/actor"
	"github.com/bureau-foundation/actorlink/lib/idl"
	"github.com/bureau-foundation/actorlink/lib/principal"
)

// MethodGetPrincipal is the provider method mapping an address to its
// principal.
const MethodGetPrincipal = "get_principal"

// MethodGetAddress maps a principal back to its address.
const MethodGetAddress = "get_address"

// Contract returns the provider interface used by this package.
func Contract() *idl.Service {
	return idl.NewService("siwe",
		idl.Method{
			Name:   MethodGetPrincipal,
			Args:   []*idl.Type{idl.Text()},
			Result: idl.Result(idl.Blob(), idl.Text()),
			Query:  true,
		},
		idl.Method{
			Name:   MethodGetAddress,
			Args:   []*idl.Type{idl.Blob()},
			Result: idl.Result(idl.Text(), idl.Text()),
			Query:  true,
		},
	)
}

// ErrInvalidAddress is wrapped by address validation errors.
var ErrInvalidAddress = errors.New("invalid Ethereum address")

// ChecksumAddress validates a 20-byte hex address (with 0x prefix)
// and returns its EIP-55 mixed-case form. Mixed-case input must
// already carry a correct checksum; all-lower and all-upper input is
// accepted as unchecksummed.
func ChecksumAddress(address string) (string, error) {
	if !strings.HasPrefix(address, "0x") && !strings.HasPrefix(address, "0X") {
		return "", fmt.Errorf("%w: %q lacks the 0x prefix", ErrInvalidAddress, address)
	}
	body := address[2:]
	if len(body) != 40 {
		return "", fmt.Errorf("%w: %q is not 20 bytes", ErrInvalidAddress, address)
	}
	if _, err := hex.DecodeString(body); err != nil {
		return "", fmt.Errorf("%w: %q is not hex", ErrInvalidAddress, address)
	}

	lower := strings.ToLower(body)
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(lower))
	digest := hash.Sum(nil)

	checksummed := make([]byte, len(lower))
	for i := range lower {
		c := lower[i]
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if c >= 'a' && c <= 'f' && nibble&0x0f >= 8 {
			c -= 'a' - 'A'
		}
		checksummed[i] = c
	}
	result := "0x" + string(checksummed)

	mixed := body != lower && body != strings.ToUpper(body)
	if mixed && body != result[2:] {
		return "", fmt.Errorf("%w: %q has a bad checksum", ErrInvalidAddress, address)
	}
	return result, nil
}

// ProviderError is a refusal by the provider, e.g. for an address that
// never signed in.
type ProviderError struct {
	Address string
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("sign-in provider: %s: %s", e.Address, e.Message)
}

// GetPrincipal returns the stable principal of a wallet address.
func GetPrincipal(ctx context.Context, handle *actor.Handle, address string) (principal.Principal, error) {
	checksummed, err := ChecksumAddress(address)
	if err != nil {
		return principal.Principal{}, err
	}
	value, err := handle.CallResult(ctx, MethodGetPrincipal, checksummed)
	if err != nil {
		var remote *actor.RemoteError
		if errors.As(err, &remote) {
			message, _ := remote.Payload.(string)
			return principal.Principal{}, &ProviderError{Address: checksummed, Message: message}
		}
		return principal.Principal{}, err
	}
	p, err := principal.FromBytes(value.([]byte))
	if err != nil {
		return principal.Principal{}, fmt.Errorf("sign-in provider returned a malformed principal: %w", err)
	}
	return p, nil
}

// GetAddress returns the wallet address that owns p.
func GetAddress(ctx context.Context, handle *actor.Handle, p principal.Principal) (string, error) {
	value, err := handle.CallResult(ctx, MethodGetAddress, p.Bytes())
	if err != nil {
		var remote *actor.RemoteError
		if errors.As(err, &remote) {
			message, _ := remote.Payload.(string)
			return "", &ProviderError{Address: p.String(), Message: message}
		}
		return "", err
	}
	return value.(string), nil
}
