// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// testWorkFactor keeps scrypt fast in tests.
const testWorkFactor = 10

func TestSealOpenRoundTrip(t *testing.T) {
	original := testCredential(t, 5)

	var sealed bytes.Buffer
	if err := SealIdentity(&sealed, original, "correct horse", testWorkFactor); err != nil {
		t.Fatalf("SealIdentity: %v", err)
	}
	if !strings.HasPrefix(sealed.String(), "-----BEGIN AGE ENCRYPTED FILE-----") {
		t.Errorf("sealed identity is not armored: %q", sealed.String()[:40])
	}
	if bytes.Contains(sealed.Bytes(), original.Seed()) {
		t.Error("sealed identity contains the raw seed")
	}

	opened, err := OpenIdentity(bytes.NewReader(sealed.Bytes()), "correct horse")
	if err != nil {
		t.Fatalf("OpenIdentity: %v", err)
	}
	if opened.Key() != original.Key() {
		t.Errorf("opened identity %s, want %s", opened.Key(), original.Key())
	}
}

func TestOpenWrongPassphrase(t *testing.T) {
	var sealed bytes.Buffer
	if err := SealIdentity(&sealed, testCredential(t, 5), "correct horse", testWorkFactor); err != nil {
		t.Fatalf("SealIdentity: %v", err)
	}
	_, err := OpenIdentity(&sealed, "battery staple")
	if !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("OpenIdentity: got %v, want ErrWrongPassphrase", err)
	}
}

func TestSealRejectsAnonymous(t *testing.T) {
	var sealed bytes.Buffer
	if err := SealIdentity(&sealed, Anonymous(), "pass", testWorkFactor); err == nil {
		t.Error("SealIdentity accepted the anonymous identity")
	}
	if err := SealIdentity(&sealed, testCredential(t, 1), "", testWorkFactor); err == nil {
		t.Error("SealIdentity accepted an empty passphrase")
	}
}

func TestIdentityFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.age")
	original := testCredential(t, 6)

	if err := SaveIdentityFile(path, original, "pass", testWorkFactor); err != nil {
		t.Fatalf("SaveIdentityFile: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("identity file mode = %o, want 600", info.Mode().Perm())
	}

	loaded, err := LoadIdentityFile(path, "pass")
	if err != nil {
		t.Fatalf("LoadIdentityFile: %v", err)
	}
	if loaded.Key() != original.Key() {
		t.Errorf("loaded %s, want %s", loaded.Key(), original.Key())
	}

	if _, err := LoadIdentityFile(filepath.Join(t.TempDir(), "missing"), "pass"); err == nil {
		t.Error("LoadIdentityFile succeeded on a missing file")
	}
}
