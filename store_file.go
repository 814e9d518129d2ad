package silosession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// Storage keys, matching the layout the mobile client persists.
const (
	fileKeyAccess    = "access_token"
	fileKeyRefresh   = "refresh_token"
	fileKeyExpiresAt = "token_expires_at"
)

// FileStore is a durable [Store] backed by a single JSON file. It is the
// mobile call-site adapter: tokens survive process restarts in the device's
// data directory. Writes go through a temp file and rename so a crash never
// leaves a half-written pair behind.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store persisting to path. The file is created on
// first save; a missing file reads as an empty store.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) AccessToken(ctx context.Context) (string, error) {
	kv, err := s.load()
	if err != nil {
		return "", err
	}
	return kv[fileKeyAccess], nil
}

func (s *FileStore) RefreshToken(ctx context.Context) (string, error) {
	kv, err := s.load()
	if err != nil {
		return "", err
	}
	return kv[fileKeyRefresh], nil
}

func (s *FileStore) SaveTokens(_ context.Context, access, refresh string, expiresAt time.Time) error {
	kv := map[string]string{
		fileKeyAccess:  access,
		fileKeyRefresh: refresh,
	}
	if !expiresAt.IsZero() {
		kv[fileKeyExpiresAt] = strconv.FormatInt(expiresAt.UnixMilli(), 10)
	}
	return s.replace(kv)
}

func (s *FileStore) ExpiresAt(ctx context.Context) (time.Time, error) {
	kv, err := s.load()
	if err != nil {
		return time.Time{}, err
	}
	raw := kv[fileKeyExpiresAt]
	if raw == "" {
		return time.Time{}, nil
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("token store: corrupt expiry %q: %w", raw, err)
	}
	return time.UnixMilli(millis), nil
}

func (s *FileStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("token store: clear: %w", err)
	}
	return nil
}

func (s *FileStore) load() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("token store: read: %w", err)
	}

	kv := map[string]string{}
	if err := json.Unmarshal(data, &kv); err != nil {
		return nil, fmt.Errorf("token store: decode: %w", err)
	}
	return kv, nil
}

func (s *FileStore) replace(kv map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(kv)
	if err != nil {
		return fmt.Errorf("token store: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".tokens-*")
	if err != nil {
		return fmt.Errorf("token store: temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("token store: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("token store: close: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("token store: replace: %w", err)
	}
	return nil
}
