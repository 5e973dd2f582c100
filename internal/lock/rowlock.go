package lock

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	// pollInterval is how often a waiting writer re-attempts the lock row.
	pollInterval = 100 * time.Millisecond

	// staleAfter is the age past which a lock row is treated as abandoned.
	// Sqlite cannot auto-release on connection loss the way mysql does, so
	// a crashed writer leaves its row behind until the next writer reclaims it.
	staleAfter = 10 * time.Minute
)

// lockTimeLayout stores acquisition times in UTC RFC3339 so staleness
// comparisons work as plain string comparisons.
const lockTimeLayout = time.RFC3339

// RowLock serializes catalog writers on sqlite through the catalog_locks
// table. Acquisition is an INSERT OR IGNORE keyed by lock name: the insert
// either claims the name or leaves the current holder's row untouched.
type RowLock struct {
	db   *sql.DB
	name string
	held bool
	now  func() time.Time
}

// NewRowLock creates a new row lock with the given name.
// The lock is not acquired until Acquire is called.
func NewRowLock(db *sql.DB, name string) *RowLock {
	return &RowLock{
		db:   db,
		name: name,
		held: false,
		now:  time.Now,
	}
}

// Acquire attempts to acquire the lock row with the specified timeout.
// Returns true if the lock was acquired, false if timeout was reached.
// Returns an error if a database query fails.
//
// Timeouts follow GET_LOCK() conventions: zero tries once, positive
// values wait up to that many seconds, negative values wait forever.
// Waiting writers retry every 100ms.
func (r *RowLock) Acquire(ctx context.Context, timeoutSeconds int) (bool, error) {
	if r.held {
		return true, nil // Already holding the lock
	}

	var deadline time.Time
	if timeoutSeconds >= 0 {
		deadline = r.now().Add(time.Duration(timeoutSeconds) * time.Second)
	}

	for {
		claimed, err := r.tryClaim(ctx)
		if err != nil {
			return false, err
		}
		if claimed {
			r.held = true
			return true, nil
		}

		if !deadline.IsZero() && !r.now().Before(deadline) {
			// Timeout reached - another instance is holding the lock
			return false, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// tryClaim performs one insert attempt, reclaiming a stale row first.
func (r *RowLock) tryClaim(ctx context.Context) (bool, error) {
	cutoff := r.now().Add(-staleAfter).UTC().Format(lockTimeLayout)
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM catalog_locks WHERE name = ? AND acquired_at < ?",
		r.name, cutoff); err != nil {
		return false, fmt.Errorf("failed to clear stale lock: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO catalog_locks (name, acquired_at) VALUES (?, ?)",
		r.name, r.now().UTC().Format(lockTimeLayout))
	if err != nil {
		return false, fmt.Errorf("failed to insert lock row: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read lock insert result: %w", err)
	}
	return affected == 1, nil
}

// Release releases the lock by deleting the lock row.
// Returns true if the row was deleted, false if the lock was not held.
// Returns an error if the row was already gone, which means another
// writer reclaimed it as stale while this one held it.
func (r *RowLock) Release(ctx context.Context) (bool, error) {
	if !r.held {
		return false, nil // Not holding the lock
	}

	result, err := r.db.ExecContext(ctx,
		"DELETE FROM catalog_locks WHERE name = ?", r.name)
	if err != nil {
		return false, fmt.Errorf("failed to delete lock row: %w", err)
	}

	r.held = false
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read lock delete result: %w", err)
	}
	if affected == 0 {
		return false, fmt.Errorf("lock row %q was already gone (reclaimed as stale)", r.name)
	}
	return true, nil
}

// IsHeld returns true if this lock is currently held by this instance.
func (r *RowLock) IsHeld() bool {
	return r.held
}

// Name returns the name of the lock.
func (r *RowLock) Name() string {
	return r.name
}
