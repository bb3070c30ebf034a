// Package lock provides the corpus-scoped single-writer lock backing
// internal/ingest.Pipeline.Ingest. Generalized from internal/embed's
// FileLock (itself scoped to one model-download directory) to lock a
// whole corpus directory instead.
package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// LockFileName is the lock file created inside a corpus directory.
const LockFileName = ".raglite.lock"

// CorpusLock is a cross-process exclusive lock scoped to one corpus
// directory, held for the duration of a single ingest.
type CorpusLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// New creates a corpus lock rooted at dir/.raglite.lock.
func New(dir string) *CorpusLock {
	path := filepath.Join(dir, LockFileName)
	return &CorpusLock{path: path, flock: flock.New(path)}
}

// Lock blocks until the corpus's writer lock is acquired or ctx is done.
func (l *CorpusLock) Lock(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to acquire corpus lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("failed to acquire corpus lock: %w", ctx.Err())
	}

	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking. A false return
// with a nil error means another process (or another Pipeline.Ingest call
// in this process) currently holds it.
func (l *CorpusLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire corpus lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. Safe to call multiple times or when unlocked.
func (l *CorpusLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		l.locked = false
		return fmt.Errorf("failed to release corpus lock: %w", err)
	}
	l.locked = false
	return nil
}

// IsLocked reports whether this handle currently holds the lock.
func (l *CorpusLock) IsLocked() bool {
	return l.locked
}

// Path returns the lock file's path.
func (l *CorpusLock) Path() string {
	return l.path
}
