package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

var ErrLocked = errors.New("database is in use by another process")

// LockPath returns the advisory lock file for a file-backed sqlite database,
// or "" when the database needs no lock.
func LockPath(driver, dsn string) string {
	if driver != DriverSQLite && driver != "" {
		return ""
	}
	if isMemory(dsn) {
		return ""
	}
	return dsn + ".lock"
}

// AcquireLock takes an exclusive non-blocking lock on path. The caller must
// Unlock the returned lock on shutdown.
func AcquireLock(path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, path)
	}
	return lock, nil
}
