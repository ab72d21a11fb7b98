package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/zalando/go-keyring"
)

const serviceName = "cencli"

// ErrNotFound is returned by Load when no credentials exist for the account.
var ErrNotFound = errors.New("credentials not found")

// CredentialStore persists one credential set per account.
type CredentialStore interface {
	Load(account string) (*Credentials, error)
	Save(account string, creds *Credentials) error
}

// Store handles credential storage, preferring the system keychain.
//
// Writes are atomic per file but not coordinated across processes: two
// invocations refreshing the same account at once race, and the last writer wins.
type Store struct {
	useKeyring  bool
	fallbackDir string
}

var _ CredentialStore = (*Store)(nil)

// NewStore creates a credential store. The keyring is probed once and the
// file backend under fallbackDir is used when it is unavailable or disabled.
func NewStore(fallbackDir string, useKeyring bool) *Store {
	if !useKeyring || os.Getenv("CENCLI_NO_KEYRING") != "" {
		return &Store{useKeyring: false, fallbackDir: fallbackDir}
	}

	testKey := "cencli::probe"
	if err := keyring.Set(serviceName, testKey, "probe"); err == nil {
		_ = keyring.Delete(serviceName, testKey)
		return &Store{useKeyring: true, fallbackDir: fallbackDir}
	}
	return &Store{useKeyring: false, fallbackDir: fallbackDir}
}

// key returns the keyring key for an account.
func key(account string) string {
	return "cencli::" + account
}

// Load retrieves credentials for the given account.
func (s *Store) Load(account string) (*Credentials, error) {
	if s.useKeyring {
		return s.loadFromKeyring(account)
	}
	return s.loadFromFile(account)
}

// Save replaces the stored credentials for the given account.
func (s *Store) Save(account string, creds *Credentials) error {
	if creds == nil {
		return errors.New("refusing to store nil credentials")
	}
	if s.useKeyring {
		return s.saveToKeyring(account, creds)
	}
	return s.saveToFile(account, creds)
}

// Delete removes credentials for the given account.
func (s *Store) Delete(account string) error {
	if s.useKeyring {
		err := keyring.Delete(serviceName, key(account))
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	}
	err := os.Remove(s.Path(account))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// UsingKeyring returns true if the store is using the system keyring.
func (s *Store) UsingKeyring() bool {
	return s.useKeyring
}

// Location describes where credentials for account live, for display.
func (s *Store) Location(account string) string {
	if s.useKeyring {
		return "keyring:" + key(account)
	}
	return s.Path(account)
}

// Keyring methods

func (s *Store) loadFromKeyring(account string) (*Credentials, error) {
	data, err := keyring.Get(serviceName, key(account))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, fmt.Errorf("%w for %s", ErrNotFound, account)
		}
		return nil, fmt.Errorf("reading keyring: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(data), &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}
	return &creds, nil
}

func (s *Store) saveToKeyring(account string, creds *Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return keyring.Set(serviceName, key(account), string(data))
}

// File fallback methods

// Path returns the token file for account.
func (s *Store) Path(account string) string {
	return filepath.Join(s.fallbackDir, "tok_"+fileSafe(account)+".json")
}

func fileSafe(account string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, account)
}

func (s *Store) loadFromFile(account string) (*Credentials, error) {
	data, err := os.ReadFile(s.Path(account))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w for %s", ErrNotFound, account)
		}
		return nil, err
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials in %s: %w", s.Path(account), err)
	}
	return &creds, nil
}

func (s *Store) saveToFile(account string, creds *Credentials) error {
	if err := os.MkdirAll(s.fallbackDir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(s.fallbackDir, "tok-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Chmod(0600); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	// Windows: rename fails when the destination exists.
	destPath := s.Path(account)
	if err := os.Rename(tmpPath, destPath); err != nil {
		if runtime.GOOS == "windows" {
			_ = os.Remove(destPath)
			return os.Rename(tmpPath, destPath)
		}
		os.Remove(tmpPath)
		return err
	}
	return nil
}
