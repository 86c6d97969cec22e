package limiter

import (
	"context"
	"crypto/sha256"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the slice of pgx used by the limiter. Both *pgxpool.Pool and
// test doubles satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres counts failures in the login_attempts table inside a sliding
// window and locks the (username, source) pair out once the count reaches
// maxFails. State lives in the database, so every instance of the service
// shares it.
type Postgres struct {
	db       Querier
	window   time.Duration
	maxFails int
	lockout  time.Duration
}

// NewPostgres constructs a database-backed limiter. Failures older than
// window do not count; a lockout lasts the given duration.
func NewPostgres(db Querier, window time.Duration, maxFails int, lockout time.Duration) *Postgres {
	return &Postgres{db: db, window: window, maxFails: maxFails, lockout: lockout}
}

// HashIP reduces a client address to a stable hash so raw addresses are
// never persisted.
func HashIP(ip string) []byte {
	h := sha256.Sum256([]byte(ip))
	return h[:]
}

// Allow reports whether the pair may attempt a login right now.
func (l *Postgres) Allow(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	const q = `SELECT locked_until FROM login_attempts WHERE username=$1 AND ip_hash=$2`

	var lockedUntil time.Time
	err := l.db.QueryRow(ctx, q, username, ipHash).Scan(&lockedUntil)
	switch {
	case err == nil:
		if remaining := time.Until(lockedUntil); remaining > 0 {
			return false, remaining, nil
		}
		return true, 0, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Never seen this pair, nothing to hold against it.
		return true, 0, nil
	default:
		return false, 0, err
	}
}

// Success resets the pair's failure count and clears any lockout.
func (l *Postgres) Success(ctx context.Context, username string, ipHash []byte) error {
	const q = `
INSERT INTO login_attempts (username, ip_hash, fail_count, locked_until, updated_at)
VALUES ($1, $2, 0, 'epoch', now())
ON CONFLICT (username, ip_hash)
DO UPDATE SET fail_count = 0, locked_until = 'epoch', updated_at = now()`

	_, err := l.db.Exec(ctx, q, username, ipHash)
	return err
}

// Failure bumps the failure count, restarting it when the previous failure
// fell outside the window, and installs a lockout at the threshold.
func (l *Postgres) Failure(ctx context.Context, username string, ipHash []byte) (bool, time.Duration, error) {
	const q = `
INSERT INTO login_attempts (username, ip_hash, fail_count, locked_until, updated_at)
VALUES ($1, $2, 1, 'epoch', now())
ON CONFLICT (username, ip_hash) DO UPDATE
SET
  fail_count = CASE WHEN EXCLUDED.updated_at - login_attempts.updated_at > $3::interval THEN 1 ELSE login_attempts.fail_count + 1 END,
  updated_at = now()
RETURNING fail_count`

	var fails int
	if err := l.db.QueryRow(ctx, q, username, ipHash, l.window).Scan(&fails); err != nil {
		return false, 0, err
	}
	if fails < l.maxFails {
		return false, 0, nil
	}

	const lock = `UPDATE login_attempts SET locked_until=$3 WHERE username=$1 AND ip_hash=$2`
	if _, err := l.db.Exec(ctx, lock, username, ipHash, time.Now().Add(l.lockout)); err != nil {
		return false, 0, err
	}
	return true, l.lockout, nil
}
