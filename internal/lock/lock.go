// Package lock serializes catalog writers. Builds, reductions, and
// deletions rewrite whole tables, so only one ontocat process may write
// a catalog at a time; readers are never blocked.
package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ontocat/ontocat/internal/database"
)

// ErrLockTimeout is returned when lock acquisition times out because
// another instance is holding the lock.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Common timeout values for lock acquisition (in seconds).
const (
	// TimeoutImmediate returns immediately if the lock cannot be acquired (no wait).
	TimeoutImmediate = 0

	// TimeoutShort is suitable for fast-failing duplicate writer detection.
	TimeoutShort = 1

	// TimeoutMedium provides a reasonable wait for transient conflicts.
	TimeoutMedium = 10

	// TimeoutLong allows queueing behind a running build.
	TimeoutLong = 60

	// TimeoutInfinite waits indefinitely until the lock is acquired.
	// Negative values mean infinite wait for every implementation.
	TimeoutInfinite = -1
)

// Lock is a named, process-exclusive lock over a catalog.
//
// Both implementations follow GET_LOCK() timeout conventions: zero tries
// once, positive values wait up to that many seconds, negative values
// wait forever.
type Lock interface {
	// Acquire attempts to take the lock, waiting up to timeoutSeconds.
	// Returns true if the lock was acquired, false if the timeout was
	// reached because another instance holds it.
	Acquire(ctx context.Context, timeoutSeconds int) (bool, error)

	// Release gives the lock back. Returns true if the lock was
	// released, false if it was not held.
	Release(ctx context.Context) (bool, error)

	// IsHeld reports whether this instance holds the lock.
	IsHeld() bool

	// Name returns the lock name.
	Name() string
}

// New returns the lock implementation for the catalog dialect: a
// server-side advisory lock on mysql, a lock-table row on sqlite.
func New(dialect database.Dialect, db *sql.DB, name string) Lock {
	if dialect == database.DialectMySQL {
		return NewAdvisoryLock(db, name)
	}
	return NewRowLock(db, name)
}

// EnsureSchema creates any backing objects the dialect's lock needs.
// Mysql advisory locks are server-side and need nothing; sqlite locks
// live in a table that must exist before the first Acquire.
func EnsureSchema(ctx context.Context, dialect database.Dialect, db *sql.DB) error {
	if dialect != database.DialectSQLite {
		return nil
	}
	query := `CREATE TABLE IF NOT EXISTS catalog_locks (
	name TEXT PRIMARY KEY,
	acquired_at TEXT NOT NULL
)`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create lock table: %w", err)
	}
	return nil
}

// GenerateLockName creates a consistent lock name for a catalog scope.
// Lock names follow the format: "ontocat:catalog:{scope}"
//
// Example: GenerateLockName("write") -> "ontocat:catalog:write"
func GenerateLockName(scope string) string {
	// Sanitize the scope to prevent lock name conflicts
	sanitized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, scope)

	return fmt.Sprintf("ontocat:catalog:%s", sanitized)
}

// WithLock executes a function while holding a lock, ensuring release
// even if the function panics.
//
// Returns:
//   - ErrLockTimeout if the lock cannot be acquired within timeout
//   - Any error returned by the function
//   - Any panic from the function is re-raised after releasing the lock
func WithLock(ctx context.Context, l Lock, timeoutSeconds int, fn func() error) error {
	acquired, err := l.Acquire(ctx, timeoutSeconds)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("%w: lock %q is held by another instance", ErrLockTimeout, l.Name())
	}

	defer func() {
		// Release on a background context so a cancelled build still unlocks.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, releaseErr := l.Release(releaseCtx); releaseErr != nil {
			// Mysql auto-releases when the connection closes; sqlite
			// rows are reclaimed by stale takeover.
			_ = releaseErr
		}
	}()

	return fn()
}
