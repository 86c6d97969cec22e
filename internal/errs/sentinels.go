// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Caller-misuse and resource sentinels.
var (
	// ErrInvalidInput indicates caller misuse: empty secret, non-positive TTL,
	// out-of-range field lengths.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (username or email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceBusy indicates the hashing gate is at capacity; the caller may retry.
	ErrServiceBusy = errors.New("service busy")
)

// Authentication sentinels. Only ErrInvalidCredentials and ErrUnauthenticated
// ever cross the subsystem boundary; the rest are internal diagnostics.
var (
	// ErrInvalidCredentials indicates a failed login. Deliberately uninformative:
	// unknown usernames and wrong passwords are reported identically.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthenticated is the single external signal for any token failure.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrUserInactive indicates the account is disabled. Externally indistinct
	// from bad credentials to avoid account state probing.
	ErrUserInactive = errors.New("user inactive")

	// ErrTokenExpired indicates the token's expiry has passed (beyond leeway).
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenMalformed indicates the token could not be decoded at all.
	ErrTokenMalformed = errors.New("token malformed")

	// ErrTokenSignature indicates the token signature did not verify.
	ErrTokenSignature = errors.New("token signature invalid")

	// ErrTokenRevoked indicates the token id is on the denylist.
	ErrTokenRevoked = errors.New("token revoked")
)

// Data-integrity sentinels. Never user-facing.
var (
	// ErrCorruptCredential indicates a stored credential that cannot be decoded.
	ErrCorruptCredential = errors.New("corrupt credential")

	// ErrAuthenticationFailed indicates an encrypted field whose authentication
	// tag (or bound associated data) did not verify. Decryption fails closed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrInternal is the generic external signal for unexpected failures.
	ErrInternal = errors.New("internal error")
)
