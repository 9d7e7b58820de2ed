package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// ErrNoIdentity is returned by Store.Load when nothing is persisted.
var ErrNoIdentity = errors.New("no persisted identity")

// Store is the durable write-through cache of the proxy identity. Load
// returns ErrNoIdentity when empty and a parse error for corrupt data.
type Store interface {
	Load() (*ProxyIdentity, error)
	Save(p ProxyIdentity) error
	Clear() error
}

func decodeIdentity(data []byte) (*ProxyIdentity, error) {
	var p ProxyIdentity
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing persisted identity: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// FileStore persists the identity as JSON in a single file.
type FileStore struct {
	path string
}

// NewFileStore creates a store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath is session.json in the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config dir: %w", err)
	}
	return filepath.Join(dir, "ortho-diary", "session.json"), nil
}

func (s *FileStore) Load() (*ProxyIdentity, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoIdentity
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	return decodeIdentity(data)
}

func (s *FileStore) Save(p ProxyIdentity) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding identity: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}

	// Write then rename so a crash never leaves a half-written file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", s.path, err)
	}
	return nil
}

// MemoryStore keeps the encoded identity in memory.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SetRaw replaces the stored bytes, bypassing encoding.
func (s *MemoryStore) SetRaw(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
}

func (s *MemoryStore) Load() (*ProxyIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, ErrNoIdentity
	}
	return decodeIdentity(s.data)
}

func (s *MemoryStore) Save(p ProxyIdentity) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding identity: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	return nil
}
