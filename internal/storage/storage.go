// Package storage persists uploaded media and resolves it to public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"bucketlist/internal/config"
)

// Storage defines the interface for file storage operations
type Storage interface {
	// Save stores the content under key.
	Save(ctx context.Context, key string, r io.Reader, contentType string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// URL returns where clients can fetch key. Local storage returns a
	// path relative to the API host; S3 returns an absolute URL.
	URL(key string) string
}

// ErrInvalidKey is returned for keys that would escape the storage root.
var ErrInvalidKey = errors.New("invalid storage key")

// New builds the driver selected by MEDIA_DRIVER.
func New(ctx context.Context, c *config.Config) (Storage, error) {
	switch c.MediaDriver {
	case "s3":
		slog.Info("initializing S3 storage",
			"bucket", c.S3Bucket,
			"region", c.S3Region,
			"endpoint", c.S3Endpoint,
		)
		return NewS3Storage(ctx, S3Config{
			Region:       c.S3Region,
			Bucket:       c.S3Bucket,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
			Endpoint:     c.S3Endpoint,
			CreateBucket: !c.IsProduction(),
		})
	case "", "local":
		return NewLocalStorage(c.MediaDir, c.MediaBaseURL)
	default:
		return nil, fmt.Errorf("unsupported media driver %q", c.MediaDriver)
	}
}

func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || strings.HasPrefix(cleaned, "..") {
		return "", ErrInvalidKey
	}
	if cleaned != key {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

// LocalStorage writes files below a directory on disk. The server exposes that
// directory as static content under baseURL.
type LocalStorage struct {
	root    string
	baseURL string
}

// NewLocalStorage returns a LocalStorage rooted at dir, creating it if needed.
func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if dir == "" {
		return nil, errors.New("media directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	if baseURL == "" {
		baseURL = "/media"
	}
	return &LocalStorage{root: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root is the directory files are written to.
func (s *LocalStorage) Root() string { return s.root }

// BaseURL is the URL prefix the root is served under.
func (s *LocalStorage) BaseURL() string { return s.baseURL }

func (s *LocalStorage) Save(_ context.Context, key string, r io.Reader, _ string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create media subdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("write media: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close media: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("move media into place: %w", err)
	}
	return nil
}

func (s *LocalStorage) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete media: %w", err)
	}
	return nil
}

func (s *LocalStorage) URL(key string) string {
	return s.baseURL + "/" + strings.TrimPrefix(key, "/")
}
