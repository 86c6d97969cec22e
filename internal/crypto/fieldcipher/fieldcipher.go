// Package fieldcipher provides authenticated encryption for sensitive
// database fields.
//
// An encrypted field is nonce||ciphertext, where the ciphertext carries the
// AEAD tag. The nonce length is fixed by the algorithm, so no framing or
// length prefix is needed. Associated data binds a field to its context
// (owner, column) without being stored in the blob.
package fieldcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/avagner/authcore/internal/errs"
	"github.com/avagner/authcore/internal/model"
)

// Algorithm selects the AEAD construction.
type Algorithm string

const (
	// AlgorithmAESGCM is AES-256-GCM, the default.
	AlgorithmAESGCM Algorithm = "aes-gcm"

	// AlgorithmXChaCha is XChaCha20-Poly1305, preferred on CPUs without
	// AES hardware acceleration.
	AlgorithmXChaCha Algorithm = "xchacha20-poly1305"
)

// KeySize is the required key length in bytes for either algorithm.
const KeySize = 32

// GenerateKey returns a fresh random field-encryption key.
func GenerateKey() ([]byte, error) {
	k := make([]byte, KeySize)
	if _, err := rand.Read(k); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return k, nil
}

// Cipher encrypts and decrypts individual fields under a single symmetric
// key. Safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// New constructs a Cipher for the given 32-byte key. An empty algorithm
// means AES-256-GCM.
func New(key []byte, alg Algorithm) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("field key must be %d bytes, got %d: %w", KeySize, len(key), errs.ErrInvalidInput)
	}
	switch alg {
	case AlgorithmAESGCM, "":
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("aes cipher: %w", err)
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("gcm mode: %w", err)
		}
		return &Cipher{aead: aead}, nil
	case AlgorithmXChaCha:
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return nil, fmt.Errorf("xchacha20: %w", err)
		}
		return &Cipher{aead: aead}, nil
	default:
		return nil, fmt.Errorf("unknown field cipher algorithm %q: %w", alg, errs.ErrInvalidInput)
	}
}

// Encrypt seals plaintext under a fresh random nonce. aad is bound to the
// ciphertext but not stored; Decrypt must be given the same bytes.
func (c *Cipher) Encrypt(plaintext, aad []byte) (model.EncryptedField, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("encrypt field: nonce: %w", err)
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+c.aead.Overhead())
	out = append(out, nonce...)
	out = append(out, c.aead.Seal(nil, nonce, plaintext, aad)...)
	return model.EncryptedField(out), nil
}

// Decrypt opens a field produced by Encrypt. Every failure, truncation,
// tampering or mismatched aad included, reports errs.ErrAuthenticationFailed
// with no further detail.
func (c *Cipher) Decrypt(field model.EncryptedField, aad []byte) ([]byte, error) {
	ns := c.aead.NonceSize()
	if len(field) < ns+c.aead.Overhead() {
		return nil, fmt.Errorf("decrypt field: %w", errs.ErrAuthenticationFailed)
	}
	nonce, ct := field[:ns], field[ns:]
	pt, err := c.aead.Open(nil, nonce, ct, aad)
	if err != nil {
		return nil, fmt.Errorf("decrypt field: %w", errs.ErrAuthenticationFailed)
	}
	return pt, nil
}
