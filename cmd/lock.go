package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/tsundoku-app/tsundoku/internal/config"
)

var instanceLock *flock.Flock

func lockPath() string {
	return filepath.Join(config.GetRuntimeDir(), "tsundoku.lock")
}

// AcquireLock takes the single-instance lock. It reports false when another
// process already holds it.
func AcquireLock() (bool, error) {
	if err := os.MkdirAll(config.GetRuntimeDir(), 0o755); err != nil {
		return false, err
	}
	lock := flock.New(lockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("lock %s: %w", lock.Path(), err)
	}
	if locked {
		instanceLock = lock
	}
	return locked, nil
}

// ReleaseLock drops the lock taken by AcquireLock.
func ReleaseLock() error {
	if instanceLock == nil {
		return nil
	}
	err := instanceLock.Unlock()
	instanceLock = nil
	return err
}
