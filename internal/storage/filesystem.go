package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileStore persists artifacts onto the local filesystem. It is intended for
// development and test environments where an object storage service is not
// available. Access links are plain URLs under the configured base; the
// expiry is advisory since nothing enforces it.
type FileStore struct {
	basePath string
	baseURL  string
}

// NewFileStore initializes a FileStore rooted at basePath, serving links
// under baseURL.
func NewFileStore(basePath, baseURL string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Put persists the provided bytes at the given relative key. Keys are cleaned
// to prevent directory traversal. Content type and metadata are accepted for
// interface parity and not stored.
func (s *FileStore) Put(ctx context.Context, key, contentType string, metadata map[string]string, data []byte) error {
	if s == nil {
		return errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return err
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(cleanKey))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return fmt.Errorf("storage: write file: %w", err)
	}
	return nil
}

// PresignGet returns a link under the base URL with a synthetic expiry query
// parameter, mirroring the shape a real object store would produce.
func (s *FileStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, time.Time, error) {
	if s == nil {
		return "", time.Time{}, errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", time.Time{}, err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", time.Time{}, err
	}
	expires := time.Now().Add(ttl)
	link := fmt.Sprintf("%s/%s?expires=%d", s.baseURL, cleanKey, expires.Unix())
	return link, expires, nil
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.Clean(key)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if cleaned == "." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
