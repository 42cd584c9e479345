package file

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/plotforge/pkg/domain"
)

const valueExt = ".txt"

// Store implements ports.ContentStore using the local filesystem.
// Each key is one file in BasePath; keys are path-escaped so session
// prefixes like "default:session" are safe on every platform.
type Store struct {
	BasePath string
}

// NewStore creates a new Store with the given base path.
// If basePath is empty, it defaults to ".plotforge/store".
func NewStore(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".plotforge", "store")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(key string) string {
	return filepath.Join(s.BasePath, escapeKey(key)+valueExt)
}

// escapeKey maps a key to a file name. ':' is escaped too because it is not
// allowed in Windows file names.
func escapeKey(key string) string {
	return strings.ReplaceAll(url.PathEscape(key), ":", "%3A")
}

// Get reads the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key cannot be empty")
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", domain.ErrKeyNotFound
		}
		return "", fmt.Errorf("failed to read %q: %w", key, err)
	}
	return string(data), nil
}

// Set persists the value atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure store directory: %w", err)
	}

	destPath := s.path(key)

	// Same directory as the destination so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-*"+valueExt+".partial")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.WriteString(value); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}

	// Cannot rename an open file on Windows.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing value for overwrite: %w", err)
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Delete removes the file for key. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}

	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// Keys lists stored keys with the given prefix, sorted.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list store: %w", err)
	}

	keys := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, valueExt) {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, valueExt))
		if err != nil {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
