package supervisor

import (
	"errors"
	"fmt"
	"os"
)

// ErrAlreadyRunning is returned when the lockfile already exists.
var ErrAlreadyRunning = errors.New("supervisor: ceridwen is already running (stale lockfile? remove it manually)")

// Lockfile enforces single-instance operation via an exclusive-create file.
type Lockfile struct {
	path string
}

// Acquire creates path exclusively. It returns ErrAlreadyRunning if the
// file already exists.
func Acquire(path string) (*Lockfile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("supervisor: create lockfile %s: %w", path, err)
	}
	defer f.Close()
	return &Lockfile{path: path}, nil
}

// Release removes the lockfile. Safe to call on every exit path, including
// after a partially-failed startup.
func (l *Lockfile) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("supervisor: remove lockfile %s: %w", l.path, err)
	}
	return nil
}
