package token

import (
	"sync"
	"time"
)

// Denylist is an in-memory set of revoked token ids, each held until the
// moment its token would have expired on its own. Entries are dropped lazily
// on lookup; Sweep clears the backlog for long-running processes.
type Denylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewDenylist returns an empty denylist.
func NewDenylist() *Denylist {
	return &Denylist{revoked: make(map[string]time.Time)}
}

// Revoke marks jti revoked until the given time. Repeated revocations keep
// the latest expiry.
func (d *Denylist) Revoke(jti string, until time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.revoked[jti]; ok && cur.After(until) {
		return
	}
	d.revoked[jti] = until
}

// Contains reports whether jti is currently revoked, dropping the entry once
// it has outlived its token.
func (d *Denylist) Contains(jti string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	until, ok := d.revoked[jti]
	if !ok {
		return false
	}
	if !time.Now().Before(until) {
		delete(d.revoked, jti)
		return false
	}
	return true
}

// Sweep removes every entry whose token has expired.
func (d *Denylist) Sweep() {
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()
	for jti, until := range d.revoked {
		if !now.Before(until) {
			delete(d.revoked, jti)
		}
	}
}

// Len reports the number of entries currently held, expired or not.
func (d *Denylist) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.revoked)
}
