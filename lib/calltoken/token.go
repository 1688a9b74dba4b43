// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package calltoken

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/actorlink/lib/codec"
	"github.com/bureau-foundation/actorlink/lib/principal"
)

// signatureSize is the fixed size of an Ed25519 signature.
const signatureSize = ed25519.SignatureSize

// MaxClockSkew bounds how far in the future IssuedAt may lie before
// a token is rejected.
const MaxClockSkew = 30 * time.Second

// Token is the CBOR-encoded payload of a call token.
type Token struct {
	// Sender is the caller's principal. Verify rejects tokens whose
	// sender is not the self-authenticating principal of PublicKey.
	Sender principal.Principal `cbor:"1,keyasint"`

	// PublicKey is the DER-encoded Ed25519 key that signed the token.
	PublicKey []byte `cbor:"2,keyasint"`

	// Canister is the textual principal of the target service.
	Canister string `cbor:"3,keyasint"`

	// Method is the remote method name.
	Method string `cbor:"4,keyasint"`

	// Nonce is a random UUID, unique per minted token.
	Nonce string `cbor:"5,keyasint"`

	// ArgsDigest is the BLAKE3-256 digest of the CBOR argument bytes.
	ArgsDigest []byte `cbor:"6,keyasint"`

	// IssuedAt is a Unix timestamp (seconds) of when the token was
	// minted.
	IssuedAt int64 `cbor:"7,keyasint"`

	// ExpiresAt is a Unix timestamp (seconds) after which the token
	// is no longer valid.
	ExpiresAt int64 `cbor:"8,keyasint"`
}

// Errors returned by Mint and Verify.
var (
	ErrTokenTooShort     = errors.New("calltoken: token too short for signature")
	ErrInvalidSignature  = errors.New("calltoken: invalid Ed25519 signature")
	ErrTokenExpired      = errors.New("calltoken: token has expired")
	ErrNotYetValid       = errors.New("calltoken: token issued in the future")
	ErrSenderMismatch    = errors.New("calltoken: sender is not the principal of the signing key")
	ErrKeyMismatch       = errors.New("calltoken: payload key does not match the signing key")
	ErrCanisterMismatch  = errors.New("calltoken: canister does not match")
	ErrMethodMismatch    = errors.New("calltoken: method does not match")
	ErrArgumentsMismatch = errors.New("calltoken: argument digest does not match")
	ErrReplayed          = errors.New("calltoken: nonce already used")
)

// DigestArgs returns the BLAKE3-256 digest of encoded call arguments.
func DigestArgs(args []byte) []byte {
	digest := blake3.Sum256(args)
	return digest[:]
}

// New builds the payload for one call: sender derived from publicKey,
// a fresh nonce, and a validity window of ttl starting at now.
func New(publicKey ed25519.PublicKey, canister, method string, args []byte, now time.Time, ttl time.Duration) *Token {
	return &Token{
		Sender:     principal.SelfAuthenticating(publicKey),
		PublicKey:  principal.DERPublicKey(publicKey),
		Canister:   canister,
		Method:     method,
		Nonce:      uuid.NewString(),
		ArgsDigest: DigestArgs(args),
		IssuedAt:   now.Unix(),
		ExpiresAt:  now.Add(ttl).Unix(),
	}
}

// Mint signs a Token and returns the raw wire-format bytes: CBOR
// payload followed by the 64-byte Ed25519 signature. The token's
// PublicKey must be the public half of privateKey.
func Mint(privateKey ed25519.PrivateKey, token *Token) ([]byte, error) {
	publicKey := privateKey.Public().(ed25519.PublicKey)
	if !bytes.Equal(token.PublicKey, principal.DERPublicKey(publicKey)) {
		return nil, ErrKeyMismatch
	}

	payload, err := codec.Marshal(token)
	if err != nil {
		return nil, fmt.Errorf("calltoken: encoding token payload: %w", err)
	}

	signature := ed25519.Sign(privateKey, payload)

	result := make([]byte, len(payload)+signatureSize)
	copy(result, payload)
	copy(result[len(payload):], signature)

	return result, nil
}

// Verify checks the signature, the sender derivation and the validity
// window against the current time.
func Verify(tokenBytes []byte) (*Token, error) {
	return VerifyAt(tokenBytes, time.Now())
}

// VerifyAt is like Verify but accepts an explicit time for the
// validity checks. This supports deterministic testing.
func VerifyAt(tokenBytes []byte, now time.Time) (*Token, error) {
	if len(tokenBytes) <= signatureSize {
		return nil, ErrTokenTooShort
	}

	splitPoint := len(tokenBytes) - signatureSize
	payload := tokenBytes[:splitPoint]
	signature := tokenBytes[splitPoint:]

	var token Token
	if err := codec.Unmarshal(payload, &token); err != nil {
		return nil, fmt.Errorf("calltoken: decoding token payload: %w", err)
	}

	publicKey, err := principal.PublicKeyFromDER(token.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("calltoken: %w", err)
	}
	if !ed25519.Verify(publicKey, payload, signature) {
		return nil, ErrInvalidSignature
	}
	if token.Sender != principal.SelfAuthenticating(publicKey) {
		return nil, ErrSenderMismatch
	}

	if now.Unix() >= token.ExpiresAt {
		return nil, ErrTokenExpired
	}
	if time.Unix(token.IssuedAt, 0).After(now.Add(MaxClockSkew)) {
		return nil, ErrNotYetValid
	}

	return &token, nil
}

// VerifyFor combines Verify with the call binding checks: the token
// must name this canister and method and carry the digest of these
// exact argument bytes. This is the standard verification path for
// services.
func VerifyFor(tokenBytes []byte, canister, method string, args []byte) (*Token, error) {
	return VerifyForAt(tokenBytes, canister, method, args, time.Now())
}

// VerifyForAt is like VerifyFor but accepts an explicit time.
func VerifyForAt(tokenBytes []byte, canister, method string, args []byte, now time.Time) (*Token, error) {
	token, err := VerifyAt(tokenBytes, now)
	if err != nil {
		return nil, err
	}

	if token.Canister != canister {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrCanisterMismatch, token.Canister, canister)
	}
	if token.Method != method {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrMethodMismatch, token.Method, method)
	}
	if !bytes.Equal(token.ArgsDigest, DigestArgs(args)) {
		return nil, ErrArgumentsMismatch
	}

	return token, nil
}
