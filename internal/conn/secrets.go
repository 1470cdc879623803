package conn

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SecretStore keeps connection passwords out of the connection files. It is
// a single JSON file keyed by connection ID, written with 0600 permissions.
type SecretStore struct {
	path string

	mu      sync.Mutex
	secrets map[string]string
	loaded  bool
}

// NewSecretStore creates a store backed by the given file path.
func NewSecretStore(path string) *SecretStore {
	return &SecretStore{path: path, secrets: make(map[string]string)}
}

func (s *SecretStore) loadLocked() error {
	if s.loaded {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.loaded = true
			return nil
		}
		return fmt.Errorf("failed to read secret store: %w", err)
	}
	if err := json.Unmarshal(data, &s.secrets); err != nil {
		return fmt.Errorf("failed to parse secret store: %w", err)
	}
	s.loaded = true
	return nil
}

func (s *SecretStore) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create secret store directory: %w", err)
	}
	data, err := json.MarshalIndent(s.secrets, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal secret store: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write secret store: %w", err)
	}
	return nil
}

// Get returns the password for a connection, or "" when none is stored.
func (s *SecretStore) Get(connectionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return "", err
	}
	return s.secrets[connectionID], nil
}

// Set stores a password for a connection.
func (s *SecretStore) Set(connectionID, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return err
	}
	s.secrets[connectionID] = password
	return s.saveLocked()
}

// Delete removes a connection's password. Deleting an absent entry is a
// no-op.
func (s *SecretStore) Delete(connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return err
	}
	if _, ok := s.secrets[connectionID]; !ok {
		return nil
	}
	delete(s.secrets, connectionID)
	return s.saveLocked()
}
