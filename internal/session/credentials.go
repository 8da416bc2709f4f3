package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/chat-sentry/internal/core"
)

// FileCredentialStore persists the credential blob as a JSON document
type FileCredentialStore struct {
	path string
}

// NewFileCredentialStore creates a credential store at the given path
func NewFileCredentialStore(path string) *FileCredentialStore {
	return &FileCredentialStore{path: path}
}

// Load reads the persisted credential blob. A missing file is not an error
// and yields a nil blob.
func (s *FileCredentialStore) Load() (*core.Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds core.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return &creds, nil
}

// Save writes the credential blob, creating the directory if needed
func (s *FileCredentialStore) Save(creds *core.Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Clear removes the persisted blob; missing file is a no-op
func (s *FileCredentialStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}
