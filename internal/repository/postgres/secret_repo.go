package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/avagner/authcore/internal/errs"
	"github.com/avagner/authcore/internal/model"
)

// SecretRepo implements repository.SecretRepository using PostgreSQL.
type SecretRepo struct{ db *DB }

// NewSecretRepo constructs a secret repository.
func NewSecretRepo(db *DB) *SecretRepo { return &SecretRepo{db: db} }

// Upsert writes the blob for (user_id, name), replacing any previous value.
func (r *SecretRepo) Upsert(ctx context.Context, s *model.Secret) error {
	const q = `
INSERT INTO user_secrets (user_id, name, blob)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, name)
DO UPDATE SET blob = EXCLUDED.blob, updated_at = now()`
	_, err := r.db.Pool.Exec(ctx, q, s.UserID, s.Name, []byte(s.Blob))
	if isForeignKeyViolation(err) {
		return fmt.Errorf("secret owner: %w", errs.ErrNotFound)
	}
	return err
}

// Get loads one secret with its blob.
func (r *SecretRepo) Get(ctx context.Context, userID uuid.UUID, name string) (*model.Secret, error) {
	const q = `
SELECT user_id, name, blob, created_at, updated_at
FROM user_secrets WHERE user_id=$1 AND name=$2`
	var s model.Secret
	var blob []byte
	err := r.db.Pool.QueryRow(ctx, q, userID, name).
		Scan(&s.UserID, &s.Name, &blob, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	s.Blob = model.EncryptedField(blob)
	return &s, nil
}

// List returns the user's secrets without blobs, most recently written first.
func (r *SecretRepo) List(ctx context.Context, userID uuid.UUID) ([]model.Secret, error) {
	const q = `
SELECT user_id, name, created_at, updated_at
FROM user_secrets
WHERE user_id=$1
ORDER BY updated_at DESC, name`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Secret
	for rows.Next() {
		var s model.Secret
		if err := rows.Scan(&s.UserID, &s.Name, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes one secret.
func (r *SecretRepo) Delete(ctx context.Context, userID uuid.UUID, name string) error {
	const q = `DELETE FROM user_secrets WHERE user_id=$1 AND name=$2`
	tag, err := r.db.Pool.Exec(ctx, q, userID, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// isForeignKeyViolation reports whether the error is a foreign key violation.
func isForeignKeyViolation(err error) bool {
	var pg *pgconn.PgError
	return errors.As(err, &pg) && pg.Code == "23503"
}
