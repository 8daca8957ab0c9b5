// Package lockedfile provides a cross-process mutex backed by a lock file.
package lockedfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// A Mutex provides mutual exclusion within and across processes by locking
// a well-known file.
type Mutex struct {
	Path string // the path to the well-known lock file; must be non-empty
	mu   sync.Mutex
}

// MutexAt returns a new Mutex with Path set to the given non-empty path.
func MutexAt(path string) *Mutex {
	if path == "" {
		panic("lockedfile.MutexAt: path must be non-empty")
	}
	return &Mutex{Path: path}
}

// Lock attempts to lock the Mutex.
//
// If successful, Lock returns a non-nil unlock function: it is provided as a
// return-value instead of a separate method to remind the caller to check the
// accompanying error.
func (mu *Mutex) Lock() (unlock func(), err error) {
	if mu.Path == "" {
		panic("lockedfile.Mutex: missing Path during Lock")
	}
	if err := os.MkdirAll(filepath.Dir(mu.Path), 0o755); err != nil {
		return nil, err
	}

	// Serialize goroutines of this process first; flock is per file
	// description and would not block a second open in the same process
	// on every platform.
	mu.mu.Lock()

	f, err := os.OpenFile(mu.Path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		mu.mu.Unlock()
		return nil, err
	}
	if err := lockFile(f); err != nil {
		f.Close()
		mu.mu.Unlock()
		return nil, fmt.Errorf("lock %s: %w", mu.Path, err)
	}
	return func() {
		unlockFile(f)
		f.Close()
		mu.mu.Unlock()
	}, nil
}
