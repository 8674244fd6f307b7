package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockBlocksSecondAcquirer(t *testing.T) {
	s := newTestStore(t)
	s.SetLockTimeout(300 * time.Millisecond)

	lock, err := s.acquireLock()
	require.NoError(t, err)

	start := time.Now()
	_, err = s.acquireLock()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBusy)
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond, "busy failure must wait out the bounded timeout")
	assert.Contains(t, err.Error(), "held by pid", "busy error should name the holder")

	lock.release()

	// Released lock is immediately available again.
	lock2, err := s.acquireLock()
	require.NoError(t, err)
	lock2.release()
}

func TestLeftoverLockFileDoesNotBlock(t *testing.T) {
	s := newTestStore(t)
	s.SetLockTimeout(time.Second)

	// Simulate a crashed holder: lock file present, kernel lock long gone.
	stale := `{"pid": 4194304, "acquired_at": "2024-01-01T00:00:00Z"}`
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "store.lock"), []byte(stale), 0644))

	lock, err := s.acquireLock()
	require.NoError(t, err)
	defer lock.release()

	// Fresh holder info replaces the stale content.
	raw, err := os.ReadFile(filepath.Join(s.Dir(), "store.lock"))
	require.NoError(t, err)
	var info struct {
		PID int `json:"pid"`
	}
	require.NoError(t, json.Unmarshal(raw, &info))
	assert.Equal(t, os.Getpid(), info.PID)
}

func TestMutateSurfacesBusyStore(t *testing.T) {
	s := newTestStore(t)
	s.SetLockTimeout(200 * time.Millisecond)

	lock, err := s.acquireLock()
	require.NoError(t, err)
	defer lock.release()

	err = s.Mutate(func(tree *Tree) error {
		tree.Cases = append(tree.Cases, NewCase("C-1", "blocked", "i"))
		return nil
	})
	assert.ErrorIs(t, err, ErrBusy)

	// Nothing was written while the lock was contended.
	_, statErr := os.Stat(filepath.Join(s.Dir(), "data.json"))
	assert.True(t, os.IsNotExist(statErr))
}
