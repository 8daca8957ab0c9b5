//go:build !unix && !windows

package lockedfile

import "os"

// Platforms without file locking fall back to the in-process mutex.
func lockFile(f *os.File) error { return nil }
func unlockFile(f *os.File) error { return nil }
