// Package dirlock keeps two processes from managing the same recording
// directory at once.
package dirlock

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/darkace1998/crash-video-recorder/constants"
	"github.com/darkace1998/crash-video-recorder/utils"
)

// ErrLocked is returned when another process holds the directory.
var ErrLocked = errors.New("recording directory is in use by another process")

// Lock is an advisory lock on a recording directory. The lock file is hidden
// so retention and journal scans never see it.
type Lock struct {
	fl *flock.Flock
}

// Acquire takes the lock on dir without blocking, creating dir if needed.
func Acquire(dir string) (*Lock, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, constants.LockFileName)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
	}
	return &Lock{fl: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.fl.Path()
}

// Release drops the lock. It is safe to call more than once and on nil.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock %s: %w", l.fl.Path(), err)
	}
	return nil
}
