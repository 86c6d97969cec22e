package errs

import "errors"

// Public projects any internal error onto the small set of externally visible
// signals. Token failures collapse onto ErrUnauthenticated, integrity and
// unknown failures onto ErrInternal, so callers cannot distinguish failure
// causes that must stay private. ErrNotFound passes through: auth paths never
// emit it, so by this boundary it refers to the caller's own resources. The
// mapping lives here, in one place, so the normalization stays auditable.
func Public(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrAlreadyExists),
		errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrServiceBusy),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrUnauthenticated):
		return err
	case errors.Is(err, ErrUserInactive):
		// Disabled accounts answer exactly like a wrong password.
		return ErrInvalidCredentials
	case errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenMalformed),
		errors.Is(err, ErrTokenSignature),
		errors.Is(err, ErrTokenRevoked):
		return ErrUnauthenticated
	default:
		return ErrInternal
	}
}

// Code returns a short stable diagnostic code for structured logging.
// Codes are internal-only; they never reach external callers.
func Code(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrTokenMalformed):
		return "token_malformed"
	case errors.Is(err, ErrTokenSignature):
		return "token_signature"
	case errors.Is(err, ErrTokenRevoked):
		return "token_revoked"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrUserInactive):
		return "user_inactive"
	case errors.Is(err, ErrCorruptCredential):
		return "corrupt_credential"
	case errors.Is(err, ErrAuthenticationFailed):
		return "authentication_failed"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrServiceBusy):
		return "service_busy"
	default:
		return "internal"
	}
}
