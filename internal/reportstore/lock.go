package reportstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileName = ".firereport.lock"

// ErrLocked is returned when another run holds the run lock.
var ErrLocked = errors.New("another report run is in progress")

// RunLock is an exclusive file lock over the output dir.
type RunLock struct {
	lock *flock.Flock
	path string
}

// NewRunLock creates the lock for dir. It is not acquired yet.
func NewRunLock(dir string) *RunLock {
	p := filepath.Join(dir, lockFileName)
	return &RunLock{lock: flock.New(p), path: p}
}

// Lock acquires the lock without waiting. It fails with ErrLocked when
// another process holds it.
func (l *RunLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock on %s: %w", l.path, err)
	}
	if !locked {
		return fmt.Errorf("%w (lock file %s)", ErrLocked, l.path)
	}
	return nil
}

// Unlock releases the lock.
func (l *RunLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("release lock on %s: %w", l.path, err)
	}
	return nil
}

// Path is the lock file location.
func (l *RunLock) Path() string { return l.path }
