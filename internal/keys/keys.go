// Package keys holds the process-wide signing and field-encryption keys.
package keys

import (
	"bytes"
	"fmt"

	"github.com/avagner/authcore/internal/crypto/fieldcipher"
	"github.com/avagner/authcore/internal/errs"
	"github.com/avagner/authcore/internal/token"
)

const redacted = "keys.Material(redacted)"

// Material owns the raw key bytes for the lifetime of the process. It is
// loaded once at startup and never replaced; rotating a key means restarting
// with new configuration. Both fmt and json output are redacted so key bytes
// cannot reach logs by accident.
type Material struct {
	signing    []byte
	encryption []byte
}

// New validates and copies the provided keys, so later mutation of the
// caller's slices has no effect.
func New(signing, encryption []byte) (*Material, error) {
	if len(signing) < token.MinKeyLen {
		return nil, fmt.Errorf("signing key must be at least %d bytes: %w", token.MinKeyLen, errs.ErrInvalidInput)
	}
	if len(encryption) != fieldcipher.KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes: %w", fieldcipher.KeySize, errs.ErrInvalidInput)
	}
	return &Material{
		signing:    bytes.Clone(signing),
		encryption: bytes.Clone(encryption),
	}, nil
}

// Signing returns the token signing key. The slice is shared with the
// Material; treat it as read-only.
func (m *Material) Signing() []byte { return m.signing }

// Encryption returns the field-encryption key. The slice is shared with the
// Material; treat it as read-only.
func (m *Material) Encryption() []byte { return m.encryption }

// Zeroize overwrites both keys in place. Call on shutdown, after every
// component holding a view of the material is done with it.
func (m *Material) Zeroize() {
	for i := range m.signing {
		m.signing[i] = 0
	}
	for i := range m.encryption {
		m.encryption[i] = 0
	}
}

func (m *Material) String() string { return redacted }

func (m *Material) GoString() string { return redacted }

func (m *Material) MarshalJSON() ([]byte, error) { return []byte(`"` + redacted + `"`), nil }
