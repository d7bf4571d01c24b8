package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/straye-as/scorecard-api/internal/config"
	"go.uber.org/zap"
)

// ErrNotFound is returned when an object does not exist
var ErrNotFound = errors.New("object not found")

// ErrInvalidName is returned for empty object names
var ErrInvalidName = errors.New("invalid object name")

// Storage persists export reports under caller-chosen object names
type Storage interface {
	Upload(ctx context.Context, name string, contentType string, data io.Reader) (string, int64, error)
	Download(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}

// NewStorage creates a new storage instance based on configuration.
// For local mode, objects are files under LocalBasePath.
// For cloud/azure mode, objects are blobs in CloudContainer.
func NewStorage(cfg *config.StorageConfig, logger *zap.Logger) (Storage, error) {
	switch cfg.Mode {
	case "local":
		return NewLocalStorage(cfg.LocalBasePath)
	case "cloud", "azure":
		if cfg.CloudConnectionString == "" {
			return nil, fmt.Errorf("cloud connection string required for azure storage")
		}
		return NewAzureBlobStorage(cfg.CloudConnectionString, cfg.CloudContainer, logger)
	default:
		return nil, fmt.Errorf("unsupported storage mode: %s", cfg.Mode)
	}
}

// CleanName normalizes an object name to a slash-separated relative path.
// Cleaning it as a rooted path drops any leading "..".
func CleanName(name string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" {
		return "", ErrInvalidName
	}
	return cleaned, nil
}

// LocalStorage implements Storage interface for local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

func (s *LocalStorage) fullPath(name string) (string, string, error) {
	cleaned, err := CleanName(name)
	if err != nil {
		return "", "", err
	}
	return cleaned, filepath.Join(s.basePath, filepath.FromSlash(cleaned)), nil
}

// Upload writes data to name, replacing any existing object. The file is written
// to a temporary sibling first so readers never see a partial report.
func (s *LocalStorage) Upload(ctx context.Context, name string, contentType string, data io.Reader) (string, int64, error) {
	cleaned, fullPath, err := s.fullPath(name)
	if err != nil {
		return "", 0, err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file: %w", err)
	}
	size, err := io.Copy(tmp, data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("failed to move file into place: %w", err)
	}

	return cleaned, size, nil
}

// Download opens the named object
func (s *LocalStorage) Download(ctx context.Context, name string) (io.ReadCloser, error) {
	cleaned, fullPath, err := s.fullPath(name)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, cleaned)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes the named object; deleting a missing object is not an error
func (s *LocalStorage) Delete(ctx context.Context, name string) error {
	_, fullPath, err := s.fullPath(name)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
