package security

import (
	"errors"
	"strings"
	"testing"
)

func newTestVault(t *testing.T) *Vault {
	t.Helper()

	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	vault, err := NewVault(key)
	if err != nil {
		t.Fatalf("failed to build vault: %v", err)
	}
	return vault
}

func TestVaultRoundTrip(t *testing.T) {
	vault := newTestVault(t)

	cases := []struct {
		name      string
		plaintext string
	}{
		{name: "credential blob", plaintext: `{"username":"trader","password":"hunter2","secret":"abc"}`},
		{name: "empty string", plaintext: ""},
		{name: "unicode", plaintext: "pässwörd-日本語-🔑"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ciphertext, err := vault.EncryptString(tc.plaintext)
			if err != nil {
				t.Fatalf("encrypt failed: %v", err)
			}
			if strings.Contains(ciphertext, tc.plaintext) && tc.plaintext != "" {
				t.Fatalf("ciphertext contains plaintext")
			}

			decrypted, err := vault.DecryptString(ciphertext)
			if err != nil {
				t.Fatalf("decrypt failed: %v", err)
			}
			if decrypted != tc.plaintext {
				t.Fatalf("round trip mismatch: got %q, want %q", decrypted, tc.plaintext)
			}
		})
	}
}

func TestVaultNonceIsFresh(t *testing.T) {
	vault := newTestVault(t)

	first, err := vault.EncryptString("same input")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	second, err := vault.EncryptString("same input")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	if first == second {
		t.Fatalf("two encryptions of the same plaintext produced identical ciphertext")
	}
}

func TestVaultWrongKey(t *testing.T) {
	vault := newTestVault(t)
	other := newTestVault(t)

	ciphertext, err := vault.EncryptString("secret material")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	if _, err := other.DecryptString(ciphertext); !errors.Is(err, ErrCrypto) {
		t.Fatalf("expected ErrCrypto for wrong key, got %v", err)
	}
}

func TestVaultMalformedCiphertext(t *testing.T) {
	vault := newTestVault(t)

	cases := []struct {
		name       string
		ciphertext string
	}{
		{name: "not base64", ciphertext: "%%%not-base64%%%"},
		{name: "too short", ciphertext: "YWJj"},
		{name: "corrupted", ciphertext: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := vault.DecryptString(tc.ciphertext); !errors.Is(err, ErrCrypto) {
				t.Fatalf("expected ErrCrypto, got %v", err)
			}
		})
	}
}

func TestNewVaultRejectsBadKeys(t *testing.T) {
	if _, err := NewVault("not base64!!"); !errors.Is(err, ErrCrypto) {
		t.Fatalf("expected ErrCrypto for invalid base64 key, got %v", err)
	}
	if _, err := NewVault("c2hvcnQ="); !errors.Is(err, ErrCrypto) {
		t.Fatalf("expected ErrCrypto for short key, got %v", err)
	}
}
