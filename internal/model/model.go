// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Credential is the encoded form of a salted password hash. Salt and cost
// parameters travel inside the encoding, so a credential verifies on its own
// regardless of the hasher configuration that produced it. Owned by the
// persistence layer; opaque to everything except the hasher.
type Credential []byte

// EncryptedField is an opaque AEAD unit: nonce, ciphertext and authentication
// tag stored together. Callers must not interpret or truncate it.
type EncryptedField []byte

// Token is a signed, time-bounded assertion of identity. Stateless: validity
// is determined purely by signature and expiry at verification time.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time // for diagnostics; the claim inside is authoritative
}

// User represents an account. The password is stored only as a Credential.
type User struct {
	ID         uuid.UUID // PK
	Username   string    // unique
	Email      string    // unique
	Credential Credential
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Secret is a named sensitive value owned by a user, persisted only in
// encrypted form. Name doubles as part of the AEAD associated data, so a blob
// moved to another row fails authentication on read.
type Secret struct {
	UserID    uuid.UUID
	Name      string
	Blob      EncryptedField
	CreatedAt time.Time
	UpdatedAt time.Time
}
