// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/bureau-foundation/actorlink/lib/calltoken"
	"github.com/bureau-foundation/actorlink/lib/principal"
)

// Credential is an immutable caller identity. The zero value is the
// anonymous credential.
type Credential struct {
	principal principal.Principal
	key       ed25519.PrivateKey
}

// Anonymous returns the credential of a caller that presents no
// identity.
func Anonymous() Credential {
	return Credential{principal: principal.Anonymous()}
}

// FromEd25519 returns a credential backed by key. The principal is
// the self-authenticating principal of the public half.
func FromEd25519(key ed25519.PrivateKey) Credential {
	public := key.Public().(ed25519.PublicKey)
	return Credential{principal: principal.SelfAuthenticating(public), key: key}
}

// FromSeed returns the credential for a 32-byte Ed25519 seed.
func FromSeed(seed []byte) (Credential, error) {
	if len(seed) != ed25519.SeedSize {
		return Credential{}, fmt.Errorf("identity seed has %d bytes, want %d", len(seed), ed25519.SeedSize)
	}
	return FromEd25519(ed25519.NewKeyFromSeed(seed)), nil
}

// Generate creates a credential with a fresh random key.
func Generate() (Credential, error) {
	_, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Credential{}, fmt.Errorf("generating Ed25519 key: %w", err)
	}
	return FromEd25519(private), nil
}

// Key returns the textual principal identifier. Two credentials with
// the same Key are the same identity.
func (c Credential) Key() string {
	return c.Principal().String()
}

// Principal returns the caller principal.
func (c Credential) Principal() principal.Principal {
	if c.key == nil {
		return principal.Anonymous()
	}
	return c.principal
}

// IsAnonymous reports whether the credential carries no key.
func (c Credential) IsAnonymous() bool {
	return c.key == nil
}

// PublicKey returns the public key, nil for anonymous credentials.
func (c Credential) PublicKey() ed25519.PublicKey {
	if c.key == nil {
		return nil
	}
	return c.key.Public().(ed25519.PublicKey)
}

// Seed returns the private seed, nil for anonymous credentials.
func (c Credential) Seed() []byte {
	if c.key == nil {
		return nil
	}
	return c.key.Seed()
}

// Authorize mints a call token for one call. Anonymous credentials
// return a nil token and no error: anonymous calls travel unsigned.
func (c Credential) Authorize(canister, method string, args []byte, now time.Time, ttl time.Duration) ([]byte, error) {
	if c.key == nil {
		return nil, nil
	}
	token := calltoken.New(c.PublicKey(), canister, method, args, now, ttl)
	return calltoken.Mint(c.key, token)
}

func (c Credential) String() string {
	if c.key == nil {
		return "anonymous"
	}
	return c.principal.String()
}
