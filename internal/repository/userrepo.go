// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/avagner/authcore/internal/model"
)

// UserRepository provides access to user accounts and their credentials.
// Implementations report errs.ErrAlreadyExists on duplicate username or
// email and errs.ErrNotFound when no row matches.
type UserRepository interface {
	// Create inserts a new user.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by id.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByUsername loads a user by username.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// GetByEmail loads a user by email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// List returns users ordered by creation time, for paging.
	List(ctx context.Context, offset, limit int) ([]model.User, error)
	// UpdateCredential replaces the stored password credential.
	UpdateCredential(ctx context.Context, id uuid.UUID, cred model.Credential) error
	// SetActive flips the account's active flag.
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	// Delete removes the user and everything owned by it.
	Delete(ctx context.Context, id uuid.UUID) error
}
