// Package crypto implements server-side password hashing and verification.
//
// Credentials are Argon2id hashes in PHC string form,
// $argon2id$v=19$m=..,t=..,p=..$salt$hash, so the salt and cost factors a
// credential was produced with travel inside it and verification never
// depends on the current hasher configuration.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/avagner/authcore/internal/errs"
	"github.com/avagner/authcore/internal/model"
)

// Argon2id defaults, tuned so a single hash takes on the order of 100ms on
// commodity server hardware.
const (
	DefaultTime    uint32 = 3
	DefaultMemory  uint32 = 64 * 1024 // KiB
	DefaultThreads uint8  = 1

	saltLen = 16
	keyLen  = 32
)

// Params carries the Argon2id cost factors. Zero fields fall back to defaults.
type Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
}

// DefaultParams returns the server-side hashing defaults.
func DefaultParams() Params {
	return Params{Time: DefaultTime, Memory: DefaultMemory, Threads: DefaultThreads}
}

// Hasher produces and verifies salted Argon2id credentials. Stateless and
// safe for concurrent use; each call is CPU- and memory-bound by design.
type Hasher struct {
	params Params
}

// NewHasher constructs a Hasher, replacing zero-valued params with defaults.
func NewHasher(p Params) *Hasher {
	if p.Time == 0 {
		p.Time = DefaultTime
	}
	if p.Memory == 0 {
		p.Memory = DefaultMemory
	}
	if p.Threads == 0 {
		p.Threads = DefaultThreads
	}
	return &Hasher{params: p}
}

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// Hash derives a fresh-salted credential from plaintext.
func (h *Hasher) Hash(plaintext string) (model.Credential, error) {
	if plaintext == "" {
		return nil, fmt.Errorf("hash password: %w", errs.ErrInvalidInput)
	}
	salt, err := RandBytes(saltLen)
	if err != nil {
		return nil, fmt.Errorf("hash password: salt: %w", err)
	}
	sum := argon2.IDKey([]byte(plaintext), salt, h.params.Time, h.params.Memory, h.params.Threads, keyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory, h.params.Time, h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	)
	return model.Credential(encoded), nil
}

// Verify recomputes the hash with the credential's embedded salt and cost and
// compares in constant time. A mismatch is (false, nil), never an error;
// errs.ErrCorruptCredential is returned only for structurally broken input.
func (h *Hasher) Verify(plaintext string, cred model.Credential) (bool, error) {
	p, salt, want, err := decodeCredential(cred)
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(plaintext), salt, p.Time, p.Memory, p.Threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func decodeCredential(cred model.Credential) (Params, []byte, []byte, error) {
	parts := strings.Split(string(cred), "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Params{}, nil, nil, fmt.Errorf("credential layout: %w", errs.ErrCorruptCredential)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return Params{}, nil, nil, fmt.Errorf("credential version: %w", errs.ErrCorruptCredential)
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return Params{}, nil, nil, fmt.Errorf("credential params: %w", errs.ErrCorruptCredential)
	}
	// argon2 requires at least one pass, one lane and 8 KiB per lane.
	if p.Time == 0 || p.Threads == 0 || p.Memory < 8*uint32(p.Threads) {
		return Params{}, nil, nil, fmt.Errorf("credential params out of range: %w", errs.ErrCorruptCredential)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return Params{}, nil, nil, fmt.Errorf("credential salt: %w", errs.ErrCorruptCredential)
	}
	sum, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(sum) == 0 {
		return Params{}, nil, nil, fmt.Errorf("credential hash: %w", errs.ErrCorruptCredential)
	}
	return p, salt, sum, nil
}
