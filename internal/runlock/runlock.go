package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// FileName is the lock file created inside each run workspace.
const FileName = ".lock"

// ErrBusy reports that another process currently holds the run lock.
var ErrBusy = errors.New("run lock held by another process")

// Lock is an exclusive advisory lock on one run workspace. The kernel drops
// it when the holding file descriptor is closed, including on process exit.
type Lock struct {
	path string
	fl   *flock.Flock
	once sync.Once
}

// TryAcquire takes the workspace lock without blocking. It returns ErrBusy
// when another holder exists. The workspace directory is created if needed.
func TryAcquire(workspace string) (*Lock, error) {
	if workspace == "" {
		return nil, errors.New("workspace path required")
	}
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace %q: %w", workspace, err)
	}
	path := filepath.Join(workspace, FileName)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBusy, path)
	}
	return &Lock{path: path, fl: fl}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Release unlocks and closes the lock file. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	var err error
	l.once.Do(func() {
		err = l.fl.Close()
	})
	return err
}

// With runs fn while holding the workspace lock. It returns ErrBusy without
// calling fn when the lock is taken.
func With(workspace string, fn func() error) (err error) {
	lock, err := TryAcquire(workspace)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil && err == nil {
			err = fmt.Errorf("release lock: %w", releaseErr)
		}
	}()
	return fn()
}
