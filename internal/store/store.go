// Package store persists the Case/Evidence/Note tree as a JSON document with
// atomic commits, plus the active-context and settings side files. A
// cross-process lock brackets every load-mutate-commit cycle so concurrent
// CLI and TUI writers cannot lose updates.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Sentinel conditions callers branch on with errors.Is.
var (
	// ErrBusy means the store lock stayed held past the bounded wait.
	ErrBusy = errors.New("store busy")
	// ErrNotFound means a referenced case, evidence, or note does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStaleContext means the active context points at a deleted entity.
	ErrStaleContext = errors.New("stale context")
	// ErrCorrupted means data.json failed to parse; the message names the backup.
	ErrCorrupted = errors.New("store corrupted")
)

// Store owns the durable files under one data directory.
type Store struct {
	dir         string
	lockTimeout time.Duration
	logger      *log.Logger
}

// NewStore opens the store rooted at dir, creating the directory when
// missing. An empty dir selects ~/.trace-console. A nil logger discards
// diagnostics.
func NewStore(dir string, logger *log.Logger) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".trace-console")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Store{
		dir:         dir,
		lockTimeout: DefaultLockTimeout,
		logger:      logger,
	}, nil
}

// SetLockTimeout overrides the bounded wait for the store lock.
func (s *Store) SetLockTimeout(d time.Duration) {
	if d > 0 {
		s.lockTimeout = d
	}
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// AuditPath is where the chain-of-custody database lives.
func (s *Store) AuditPath() string { return filepath.Join(s.dir, "audit.db") }

// ExportsDir is where generated exports land; created on demand.
func (s *Store) ExportsDir() (string, error) {
	dir := filepath.Join(s.dir, "exports")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create exports directory: %w", err)
	}
	return dir, nil
}

func (s *Store) dataPath() string     { return filepath.Join(s.dir, "data.json") }
func (s *Store) lockPath() string     { return filepath.Join(s.dir, "store.lock") }
func (s *Store) contextPath() string  { return filepath.Join(s.dir, "context.json") }
func (s *Store) settingsPath() string { return filepath.Join(s.dir, "settings.json") }

// Load reads the current tree. A missing file is an empty tree (first run).
// Unparseable JSON is backed up and reported as ErrCorrupted; recovery is the
// caller's explicit StartFresh.
func (s *Store) Load() (*Tree, error) {
	raw, err := os.ReadFile(s.dataPath())
	if errors.Is(err, os.ErrNotExist) {
		return &Tree{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store: %w", err)
	}

	var tree Tree
	if err := json.Unmarshal(raw, &tree); err != nil {
		backup, backupErr := s.backupCorrupted(raw)
		if backupErr != nil {
			s.logger.Printf("failed to back up corrupted store: %v", backupErr)
			return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
		}
		s.logger.Printf("corrupted store backed up to %s", backup)
		return nil, fmt.Errorf("%w: unparseable data backed up to %s", ErrCorrupted, backup)
	}
	return &tree, nil
}

func (s *Store) backupCorrupted(raw []byte) (string, error) {
	name := fmt.Sprintf("data.json.corrupted.%s", time.Now().Format("20060102_150405"))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// commit writes the tree durably: temp file in the same directory, fsync,
// atomic rename onto data.json. A crash mid-write leaves the previous
// version intact.
func (s *Store) commit(tree *Tree) error {
	if err := atomicWriteJSON(s.dataPath(), tree); err != nil {
		return fmt.Errorf("failed to commit store: %w", err)
	}
	return nil
}

// Mutate runs fn on a freshly loaded tree under the cross-process lock and
// commits the result. An error from fn aborts without writing anything.
func (s *Store) Mutate(fn func(*Tree) error) error {
	lock, err := s.acquireLock()
	if err != nil {
		return err
	}
	defer lock.release()

	tree, err := s.Load()
	if err != nil {
		return err
	}
	if err := fn(tree); err != nil {
		return err
	}
	return s.commit(tree)
}

// StartFresh replaces whatever is on disk with an empty tree. Confirmation is
// owned by the caller; a corrupted original has already been backed up by the
// failed Load.
func (s *Store) StartFresh() error {
	lock, err := s.acquireLock()
	if err != nil {
		return err
	}
	defer lock.release()
	return s.commit(&Tree{})
}

// Reset removes the durable files, returning the base names of those that
// existed. Settings survive when keepSettings is set; exports are always
// kept. The caller must not hold an open audit handle on this directory.
func (s *Store) Reset(keepSettings bool) ([]string, error) {
	files := []string{s.dataPath(), s.contextPath(), s.lockPath()}
	if !keepSettings {
		files = append(files, s.settingsPath())
	}
	auditPath := s.AuditPath()
	files = append(files, auditPath, auditPath+"-shm", auditPath+"-wal")

	var removed []string
	for _, file := range files {
		if _, err := os.Stat(file); err == nil {
			if err := os.Remove(file); err != nil {
				return removed, fmt.Errorf("failed to remove %s: %w", file, err)
			}
			removed = append(removed, filepath.Base(file))
		}
	}
	return removed, nil
}

// atomicWriteJSON writes v as indented JSON via a same-directory temp file
// and rename, syncing before the swap.
func atomicWriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
