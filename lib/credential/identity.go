// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// DefaultWorkFactor is the scrypt work factor (log2 N) used when
// sealing identities. Tests pass a small value to SealIdentity.
const DefaultWorkFactor = 18

// ErrWrongPassphrase is returned when an identity cannot be opened
// with the supplied passphrase.
var ErrWrongPassphrase = errors.New("wrong passphrase for identity")

// SealIdentity writes c's seed to w, age-encrypted under passphrase
// and ASCII-armored. Anonymous credentials cannot be sealed.
func SealIdentity(w io.Writer, c Credential, passphrase string, workFactor int) error {
	if c.IsAnonymous() {
		return errors.New("cannot seal the anonymous identity")
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}
	recipient.SetWorkFactor(workFactor)

	armored := armor.NewWriter(w)
	encrypted, err := age.Encrypt(armored, recipient)
	if err != nil {
		return fmt.Errorf("starting encryption: %w", err)
	}
	if _, err := encrypted.Write(c.Seed()); err != nil {
		return fmt.Errorf("encrypting seed: %w", err)
	}
	if err := encrypted.Close(); err != nil {
		return fmt.Errorf("finishing encryption: %w", err)
	}
	if err := armored.Close(); err != nil {
		return fmt.Errorf("finishing armor: %w", err)
	}
	return nil
}

// OpenIdentity reads an identity written by SealIdentity.
func OpenIdentity(r io.Reader, passphrase string) (Credential, error) {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return Credential{}, fmt.Errorf("creating scrypt identity: %w", err)
	}

	decrypted, err := age.Decrypt(armor.NewReader(r), identity)
	if err != nil {
		if errors.Is(err, age.ErrIncorrectIdentity) {
			return Credential{}, ErrWrongPassphrase
		}
		return Credential{}, fmt.Errorf("decrypting identity: %w", err)
	}

	// Read one byte past the seed size to detect trailing data.
	seed, err := io.ReadAll(io.LimitReader(decrypted, ed25519.SeedSize+1))
	if err != nil {
		return Credential{}, fmt.Errorf("reading identity seed: %w", err)
	}
	return FromSeed(seed)
}

// SaveIdentityFile seals c into path with 0600 permissions.
func SaveIdentityFile(path string, c Credential, passphrase string, workFactor int) error {
	var buffer bytes.Buffer
	if err := SealIdentity(&buffer, c, passphrase, workFactor); err != nil {
		return err
	}
	if err := os.WriteFile(path, buffer.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing identity file: %w", err)
	}
	return nil
}

// LoadIdentityFile opens an identity file written by
// SaveIdentityFile.
func LoadIdentityFile(path, passphrase string) (Credential, error) {
	file, err := os.Open(path)
	if err != nil {
		return Credential{}, fmt.Errorf("opening identity file: %w", err)
	}
	defer file.Close()
	return OpenIdentity(file, passphrase)
}
