package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	// DefaultLockTimeout bounds how long a writer waits for the store lock.
	DefaultLockTimeout = 5 * time.Second
	lockPollInterval   = 100 * time.Millisecond
)

// errLockHeld distinguishes "someone else holds it" from real I/O failures.
var errLockHeld = errors.New("lock held")

// lockInfo is written into the lock file so a human can see who holds it.
// The kernel lock, not this content, is authoritative: locks die with their
// process, so a leftover file naming a dead PID never blocks anyone.
type lockInfo struct {
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname,omitempty"`
	AcquiredAt time.Time `json:"acquired_at"`
}

type fileLock struct {
	f *os.File
}

// acquireLock takes the exclusive cross-process lock, polling up to the
// configured timeout before failing with ErrBusy.
func (s *Store) acquireLock() (*fileLock, error) {
	deadline := time.Now().Add(s.lockTimeout)
	for {
		lock, err := tryLock(s.lockPath())
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, errLockHeld) {
			return nil, fmt.Errorf("failed to acquire store lock: %w", err)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: lock%s still held after %s",
				ErrBusy, describeHolder(s.lockPath()), s.lockTimeout)
		}
		time.Sleep(lockPollInterval)
	}
}

func tryLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	if err := flockTry(f); err != nil {
		f.Close()
		return nil, err
	}

	host, _ := os.Hostname()
	info, err := json.Marshal(lockInfo{PID: os.Getpid(), Hostname: host, AcquiredAt: time.Now()})
	if err == nil {
		_ = f.Truncate(0)
		_, _ = f.WriteAt(info, 0)
	}
	return &fileLock{f: f}, nil
}

// release frees the lock. The file stays behind; removing it would race
// other waiters holding the old inode open.
func (l *fileLock) release() {
	_ = flockRelease(l.f)
	_ = l.f.Close()
}

// describeHolder renders " (held by pid N since T)" for the ErrBusy message
// when the lock file content is readable.
func describeHolder(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var info lockInfo
	if err := json.Unmarshal(raw, &info); err != nil || info.PID == 0 {
		return ""
	}
	return fmt.Sprintf(" (held by pid %d since %s)", info.PID, info.AcquiredAt.Format(time.RFC3339))
}
