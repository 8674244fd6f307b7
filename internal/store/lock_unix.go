//go:build !windows
// +build !windows

package store

import (
	"errors"
	"os"
	"syscall"
)

// flockTry takes a non-blocking exclusive flock on f. The kernel releases
// the lock automatically when the owning process exits.
func flockTry(f *os.File) error {
	err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.EWOULDBLOCK) {
		return errLockHeld
	}
	return err
}

func flockRelease(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
