package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/avagner/authcore/internal/model"
)

// SecretRepository stores per-user named secrets. Values are opaque
// encrypted blobs; nothing in this layer can read them.
type SecretRepository interface {
	// Upsert inserts the secret or replaces the blob of an existing one.
	Upsert(ctx context.Context, s *model.Secret) error
	// Get loads one secret by owner and name.
	Get(ctx context.Context, userID uuid.UUID, name string) (*model.Secret, error)
	// List returns the user's secrets without blobs, newest first.
	List(ctx context.Context, userID uuid.UUID) ([]model.Secret, error)
	// Delete removes one secret by owner and name.
	Delete(ctx context.Context, userID uuid.UUID, name string) error
}
