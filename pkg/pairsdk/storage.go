package pairsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/slidetab/slidetab/pkg/cryptox"
)

// ErrNoCredentials is returned by CredentialStore.Load when nothing has
// been saved yet. It means "never paired", not "load failed".
var ErrNoCredentials = errors.New("pairsdk: no stored credentials")

// Credentials is the persisted device identity.
type Credentials struct {
	DeviceID    string    `json:"device_id"`
	DeviceToken string    `json:"device_token"`
	UserID      string    `json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Valid reports whether the stored token is still usable at now.
func (c Credentials) Valid(now time.Time) bool {
	return c.DeviceToken != "" && now.Before(c.ExpiresAt)
}

// CredentialStore persists device credentials across process restarts.
//
// Load must distinguish "nothing stored" (ErrNoCredentials) from a read
// failure, because the session machine treats only the former as a
// definitive logged-out signal.
type CredentialStore interface {
	Load() (Credentials, error)
	Save(Credentials) error
	Clear() error
}

// MemoryStore is an in-process CredentialStore, mainly for tests and
// short-lived tooling.
type MemoryStore struct {
	mu    sync.Mutex
	creds Credentials
	set   bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return Credentials{}, ErrNoCredentials
	}
	return s.creds, nil
}

func (s *MemoryStore) Save(c Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = c
	s.set = true
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{}
	s.set = false
	return nil
}

// FileStore persists credentials encrypted at rest. The device token is
// a bearer credential; a plaintext file would hand it to anything that
// can read the user's home directory.
type FileStore struct {
	path string
	box  *cryptox.SealBox

	mu sync.Mutex
}

// NewFileStore creates a store writing to path, sealed with secret.
// The secret must be stable across restarts or saved credentials become
// unreadable (which the session machine treats as logged out).
func NewFileStore(path string, secret []byte) *FileStore {
	return &FileStore{
		path: path,
		box:  cryptox.NewSealBox(secret),
	}
}

func (s *FileStore) Load() (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Credentials{}, ErrNoCredentials
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read credential file: %w", err)
	}

	plaintext, err := s.box.Open(sealed)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to unseal credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return Credentials{}, fmt.Errorf("failed to decode credentials: %w", err)
	}
	return creds, nil
}

func (s *FileStore) Save(c Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plaintext, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	sealed, err := s.box.Seal(plaintext)
	if err != nil {
		return fmt.Errorf("failed to seal credentials: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	// Write-then-rename so a crash mid-write never truncates the only copy
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0o600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace credential file: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	return nil
}
