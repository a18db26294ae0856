package secret

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore implements SecretStore with a JSON file written with owner-only
// permissions. Good enough for a single-user headless install; swap in a
// keyring-backed store where the host offers one.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a FileStore backed by the file at path. The file is
// created on first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read secrets: %w", err)
	}
	secrets := map[string]string{}
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parse secrets: %w", err)
	}
	return secrets, nil
}

func (f *FileStore) save(secrets map[string]string) error {
	data, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("create secrets dir: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("write secrets: %w", err)
	}
	return nil
}

// Set stores a secret value under the given key, replacing any previous one.
func (f *FileStore) Set(key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	secrets, err := f.load()
	if err != nil {
		return err
	}
	secrets[key] = string(value)
	return f.save(secrets)
}

// Get retrieves the secret for key. A missing key or unreadable store yields
// an empty value and nil error, so callers degrade to passwordless.
func (f *FileStore) Get(key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	secrets, err := f.load()
	if err != nil {
		return nil, nil
	}
	v, ok := secrets[key]
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}

// Delete removes the secret for key. Deleting a missing key is not an error.
func (f *FileStore) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	secrets, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := secrets[key]; !ok {
		return nil
	}
	delete(secrets, key)
	return f.save(secrets)
}
