// Package limiter throttles repeated login failures per account and source.
package limiter

import (
	"context"
	"time"
)

// Limiter tracks login attempts and temporary lockouts for a
// (username, source) pair. The source is a hashed client address, never a
// raw one.
type Limiter interface {
	// Allow reports whether a login attempt may proceed, with a
	// retry-after hint when it may not.
	Allow(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error)
	// Success clears the failure count after a completed login.
	Success(ctx context.Context, username string, ipHash []byte) error
	// Failure records a failed attempt and reports whether the pair just
	// got locked out, with the lockout duration.
	Failure(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error)
}
