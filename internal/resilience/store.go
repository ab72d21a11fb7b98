// Package resilience keeps per-account API rate-limit state on disk so that
// concurrent cencli invocations against the same Central account share one
// request budget. State files are guarded with gofrs/flock.
package resilience

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const (
	// StateFileName is the state file inside an account directory.
	StateFileName = "state.json"

	// DefaultDirName is the subdirectory within the cache dir.
	DefaultDirName = "ratelimit"
)

// LockTimeout bounds how long a caller waits for the state lock. Past it the
// operation proceeds unlocked so a stuck process can never hang the CLI.
const LockTimeout = 100 * time.Millisecond

// Store reads and writes one account's State under an exclusive file lock.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. An empty dir selects the user cache.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = defaultStateDir()
	}
	return &Store{dir: dir}
}

// AccountDir returns the state directory for account under cacheDir.
func AccountDir(cacheDir, account string) string {
	if cacheDir == "" {
		return filepath.Join(defaultStateDir(), dirSafe(account))
	}
	return filepath.Join(cacheDir, DefaultDirName, dirSafe(account))
}

func dirSafe(account string) string {
	if account == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '.':
			return '_'
		}
		return r
	}, account)
}

func defaultStateDir() string {
	if cacheDir := os.Getenv("XDG_CACHE_HOME"); cacheDir != "" {
		return filepath.Join(cacheDir, "cencli", DefaultDirName)
	}
	if cacheDir, err := os.UserCacheDir(); err == nil && cacheDir != "" {
		return filepath.Join(cacheDir, "cencli", DefaultDirName)
	}
	return filepath.Join(os.TempDir(), "cencli", DefaultDirName)
}

// Dir returns the state directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the full path to the state file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, StateFileName)
}

func (s *Store) lockPath() string {
	return filepath.Join(s.dir, ".lock")
}

type fileLock struct {
	flock *flock.Flock
}

// acquireLock returns (nil, nil) when the lock is busy past LockTimeout.
// A rate limiter that briefly over-counts is preferable to a hung command.
func (s *Store) acquireLock() (*fileLock, error) {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return nil, err
	}

	fl := flock.New(s.lockPath())

	ctx, cancel := context.WithTimeout(context.Background(), LockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, nil
		}
		return nil, err
	}
	if !locked {
		return nil, nil
	}
	return &fileLock{flock: fl}, nil
}

func (fl *fileLock) release() error {
	if fl == nil || fl.flock == nil {
		return nil
	}
	return fl.flock.Unlock()
}

// Load reads the state. A missing or corrupt file yields a fresh State.
func (s *Store) Load() (*State, error) {
	lock, err := s.acquireLock()
	if err != nil {
		return nil, err
	}
	if lock != nil {
		defer func() { _ = lock.release() }()
	}
	return s.loadUnsafe()
}

func (s *Store) loadUnsafe() (*State, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil || state.Version != StateVersion {
		return NewState(), nil
	}
	return &state, nil
}

func (s *Store) saveUnsafe(state *State) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return err
	}

	state.Version = StateVersion

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	// Unique temp name: two unlocked writers must not share a temp file.
	tmpPath := fmt.Sprintf("%s.%d.%d.tmp", s.Path(), os.Getpid(), time.Now().UnixNano())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	if runtime.GOOS == "windows" {
		_ = os.Remove(s.Path())
	}
	if err := os.Rename(tmpPath, s.Path()); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Update loads, modifies and saves the state while holding the lock.
func (s *Store) Update(updateFn func(*State) error) error {
	lock, err := s.acquireLock()
	if err != nil {
		return err
	}
	if lock != nil {
		defer func() { _ = lock.release() }()
	}

	state, err := s.loadUnsafe()
	if err != nil {
		return err
	}
	if err := updateFn(state); err != nil {
		return err
	}
	return s.saveUnsafe(state)
}

// Clear removes the state file.
func (s *Store) Clear() error {
	lock, err := s.acquireLock()
	if err != nil {
		return err
	}
	if lock != nil {
		defer func() { _ = lock.release() }()
	}

	err = os.Remove(s.Path())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
