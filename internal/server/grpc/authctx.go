package grpcserver

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

// userIDKey is unexported so only this package can write the identity;
// handlers read it through UserIDFromCtx.
type userIDKey struct{}

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserIDFromCtx reports the authenticated user id, if the request passed
// AuthUnary.
func UserIDFromCtx(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	return id, ok
}
