// Package lock serialises index writers across processes.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/starford/semindex/internal/apperr"
)

// DefaultTimeout is how long Acquire waits for another driver.
const DefaultTimeout = 5 * time.Second

const retryDelay = 25 * time.Millisecond

// FileLock is an exclusive advisory lock held on a file in the metadata
// directory. The index has a single writer; the lock turns an accidental
// second driver into a wait or an ErrLocked error instead of a lost update.
// The file lock is per open file description, so goroutines of one process
// are serialised by mu, which is held for as long as the file lock.
type FileLock struct {
	path   string
	mu     sync.Mutex
	flock  *flock.Flock
	locked bool
}

// New creates a lock at path. The file is created on first acquisition.
func New(path string) *FileLock {
	return &FileLock{
		path:  path,
		flock: flock.New(path),
	}
}

// Acquire blocks until the lock is held or timeout elapses. A timeout of
// zero or less means a single non-blocking attempt.
func (l *FileLock) Acquire(timeout time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("lock: create directory: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		if l.mu.TryLock() {
			acquired, err := l.flock.TryLock()
			if err != nil {
				l.mu.Unlock()
				return apperr.IO("lock: acquire", l.path, err)
			}
			if acquired {
				l.locked = true
				return nil
			}
			l.mu.Unlock()
		}
		if !time.Now().Before(deadline) {
			return apperr.New(apperr.ErrLocked, "lock: acquire", l.path, errors.New("timed out"))
		}
		time.Sleep(retryDelay)
	}
}

// Release releases the lock. It must be called by the holder; a second
// call after a release is a no-op.
func (l *FileLock) Release() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	defer l.mu.Unlock()
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("lock: release: %w", err)
	}
	return nil
}

// Path returns the path to the lock file.
func (l *FileLock) Path() string { return l.path }

// With runs fn while holding the lock.
func (l *FileLock) With(timeout time.Duration, fn func() error) error {
	if err := l.Acquire(timeout); err != nil {
		return err
	}
	defer l.Release() //nolint:errcheck // fn's error takes precedence
	return fn()
}
