// Package lockfile guards the ingestion working directory with an advisory
// file lock so two runs never interleave their log artifacts or repository
// writes. Locks are flock-based on unix and LockFileEx-based on windows.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrLockBusy is returned when another process already holds the lock.
var ErrLockBusy = errors.New("lock already held by another process")

// lockPollInterval is how often AcquireWait retries acquiring the lock.
const lockPollInterval = 50 * time.Millisecond

// Lock is a held advisory lock. Release it when the run finishes.
type Lock struct {
	file *os.File
	path string
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Acquire takes an exclusive non-blocking lock on dir/name, creating the
// file if needed and stamping it with the owning PID. When another process
// holds the lock the error wraps ErrLockBusy and names the owner.
func Acquire(dir, name string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	lockPath := filepath.Join(dir, name)

	// #nosec G304 - controlled path derived from configuration
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := flockExclusiveNonBlock(f); err != nil {
		owner := readOwner(f)
		_ = f.Close()
		if errors.Is(err, ErrLockBusy) {
			if owner != "" {
				return nil, fmt.Errorf("%s held by pid %s: %w", lockPath, owner, ErrLockBusy)
			}
			return nil, fmt.Errorf("%s: %w", lockPath, ErrLockBusy)
		}
		return nil, fmt.Errorf("lock %s: %w", lockPath, err)
	}

	// Stamp the owner for diagnostics. Failure to write is not fatal; the
	// lock itself is what matters.
	_ = f.Truncate(0)
	_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)

	return &Lock{file: f, path: lockPath}, nil
}

// AcquireWait is Acquire with polling: it retries until the lock is free or
// the timeout expires, then returns an error wrapping ErrLockBusy.
func AcquireWait(dir, name string, timeout time.Duration) (*Lock, error) {
	lock, err := Acquire(dir, name)
	if err == nil || !errors.Is(err, ErrLockBusy) {
		return lock, err
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		time.Sleep(lockPollInterval)
		lock, err = Acquire(dir, name)
		if err == nil || !errors.Is(err, ErrLockBusy) {
			return lock, err
		}
	}
	return nil, fmt.Errorf("lock timeout (%v): %w", timeout, err)
}

// Release releases the lock and closes the underlying file.
// Safe to call multiple times (idempotent).
func (l *Lock) Release() {
	if l == nil || l.file == nil {
		return
	}
	_ = flockUnlock(l.file)
	_ = l.file.Close()
	l.file = nil
}

func readOwner(f *os.File) string {
	buf := make([]byte, 32)
	n, err := f.ReadAt(buf, 0)
	if n == 0 && err != nil {
		return ""
	}
	return strings.TrimSpace(string(buf[:n]))
}
