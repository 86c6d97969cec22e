package service

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid/v5"

	"github.com/avagner/authcore/internal/crypto/fieldcipher"
	"github.com/avagner/authcore/internal/errs"
	"github.com/avagner/authcore/internal/model"
	"github.com/avagner/authcore/internal/repository"
)

// Secret limits.
const (
	maxSecretNameLen  = 255
	maxSecretValueLen = 64 << 10
)

// SecretService stores per-user named values, encrypted at rest.
type SecretService interface {
	// Put encrypts the value and stores it under (userID, name).
	Put(ctx context.Context, userID uuid.UUID, name string, value []byte) error
	// Get loads and decrypts the value stored under (userID, name).
	Get(ctx context.Context, userID uuid.UUID, name string) ([]byte, error)
	// List returns the user's secret metadata, newest first. Never decrypts.
	List(ctx context.Context, userID uuid.UUID) ([]model.Secret, error)
	// Delete removes the secret stored under (userID, name).
	Delete(ctx context.Context, userID uuid.UUID, name string) error
}

type SecretServiceImpl struct {
	repo   repository.SecretRepository
	cipher *fieldcipher.Cipher
}

// NewSecretService constructs SecretService over the given cipher.
func NewSecretService(repo repository.SecretRepository, cipher *fieldcipher.Cipher) *SecretServiceImpl {
	return &SecretServiceImpl{repo: repo, cipher: cipher}
}

// secretAAD binds a blob to its owning row. A blob copied to another user or
// renamed fails authentication on read.
func secretAAD(userID uuid.UUID, name string) []byte {
	aad := make([]byte, 0, len(userID)+len(name))
	aad = append(aad, userID.Bytes()...)
	return append(aad, name...)
}

func validateSecretRef(userID uuid.UUID, name string) error {
	if userID == uuid.Nil {
		return fmt.Errorf("empty user id: %w", errs.ErrInvalidInput)
	}
	if name == "" || len(name) > maxSecretNameLen {
		return fmt.Errorf("secret name must be 1-%d bytes: %w", maxSecretNameLen, errs.ErrInvalidInput)
	}
	return nil
}

// Put validates input, encrypts the value and upserts the blob.
func (s *SecretServiceImpl) Put(ctx context.Context, userID uuid.UUID, name string, value []byte) error {
	if err := validateSecretRef(userID, name); err != nil {
		return err
	}
	if len(value) == 0 {
		return fmt.Errorf("empty secret value: %w", errs.ErrInvalidInput)
	}
	if len(value) > maxSecretValueLen {
		return fmt.Errorf("secret value exceeds %d bytes: %w", maxSecretValueLen, errs.ErrInvalidInput)
	}
	blob, err := s.cipher.Encrypt(value, secretAAD(userID, name))
	if err != nil {
		return fmt.Errorf("encrypt secret: %w", err)
	}
	return s.repo.Upsert(ctx, &model.Secret{UserID: userID, Name: name, Blob: blob})
}

// Get loads the blob and decrypts it under the row's associated data.
func (s *SecretServiceImpl) Get(ctx context.Context, userID uuid.UUID, name string) ([]byte, error) {
	if err := validateSecretRef(userID, name); err != nil {
		return nil, err
	}
	rec, err := s.repo.Get(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	return s.cipher.Decrypt(rec.Blob, secretAAD(userID, name))
}

// List returns names and timestamps only.
func (s *SecretServiceImpl) List(ctx context.Context, userID uuid.UUID) ([]model.Secret, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("empty user id: %w", errs.ErrInvalidInput)
	}
	return s.repo.List(ctx, userID)
}

// Delete removes one secret.
func (s *SecretServiceImpl) Delete(ctx context.Context, userID uuid.UUID, name string) error {
	if err := validateSecretRef(userID, name); err != nil {
		return err
	}
	return s.repo.Delete(ctx, userID, name)
}
