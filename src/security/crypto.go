package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/crypto/chacha20poly1305"
)

// ErrCrypto marks any vault failure: malformed ciphertext, key mismatch,
// or an unusable key. Callers match with errors.Is.
var ErrCrypto = errors.New("credential crypto failure")

// Vault encrypts and decrypts broker credential blobs with an AEAD
// cipher. Ciphertext is base64 over nonce||sealed.
type Vault struct {
	key []byte
}

// NewVault builds a vault from a base64-encoded 32-byte key, typically
// taken from Config.CredentialsKey at startup.
func NewVault(encodedKey string) (*Vault, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: key is not valid base64", ErrCrypto)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", ErrCrypto, chacha20poly1305.KeySize, len(key))
	}
	return &Vault{key: key}, nil
}

// EncryptString seals plaintext and returns base64 ciphertext.
func (v *Vault) EncryptString(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCrypto, err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCrypto, err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString opens base64 ciphertext produced by EncryptString.
func (v *Vault) DecryptString(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		logger.WithField("component", "Vault").
			WithError(err).Error("Ciphertext is not valid base64")
		return "", fmt.Errorf("%w: ciphertext is not valid base64", ErrCrypto)
	}

	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCrypto, err)
	}

	if len(raw) < aead.NonceSize() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrCrypto)
	}

	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		// Wrong key or corrupted storage. Do not echo ciphertext.
		return "", fmt.Errorf("%w: decryption failed", ErrCrypto)
	}

	return string(plaintext), nil
}

// GenerateKey returns a fresh base64-encoded key suitable for
// BROKER_CREDENTIALS_KEY. Used by the keygen CLI for key rotation.
func GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
