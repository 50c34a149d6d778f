package drive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"fluxkit/internal/fault"
)

// Lock is an advisory per-device lock held for the life of a session.
type Lock struct {
	path string
	lock *flock.Flock
}

// AcquireLock takes the lock for device under dir without blocking.
func AcquireLock(dir, device string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	path := filepath.Join(dir, lockName(device))
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fault.Wrap(fault.ErrDeviceBusy, "drive", "lock", fmt.Sprintf("%s is in use by another fluxkit process", device), nil)
	}
	return &Lock{path: path, lock: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Release drops the lock. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}

func lockName(device string) string {
	name := strings.Trim(strings.ReplaceAll(device, string(filepath.Separator), "_"), "_")
	if name == "" {
		name = "device"
	}
	return name + ".lock"
}
