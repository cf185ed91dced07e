package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemStore implements ImageStore on a local directory that is served
// under baseURL
type FilesystemStore struct {
	baseDir string
	baseURL string
}

// NewFilesystemStore creates a new filesystem-based image store
func NewFilesystemStore(baseDir, baseURL string) (*FilesystemStore, error) {
	//nolint:gosec,mnd // Directory permissions 0755 are intentional
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	return &FilesystemStore{baseDir: baseDir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Save writes the decoded image below the media directory
func (s *FilesystemStore) Save(_ context.Context, payload string) (string, error) {
	img, err := DecodeImage(payload)
	if err != nil {
		return "", err
	}

	ref := newImageKey(img.Extension)
	path := s.path(ref)

	//nolint:gosec,mnd // Directory permissions 0755 are intentional
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	//nolint:mnd // filemode constant
	if err := os.WriteFile(path, img.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	return ref, nil
}

// Delete removes the file behind ref
func (s *FilesystemStore) Delete(_ context.Context, ref string) error {
	if !validRef(ref) {
		return ErrImageNotFound
	}
	if err := os.Remove(s.path(ref)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrImageNotFound
		}
		return fmt.Errorf("failed to remove image: %w", err)
	}

	return nil
}

// URL returns the location the media directory is served from
func (s *FilesystemStore) URL(ref string) string {
	if ref == "" {
		return ""
	}
	return s.baseURL + "/" + ref
}

// Dir returns the media directory, used to mount the static route
func (s *FilesystemStore) Dir() string {
	return s.baseDir
}

func (s *FilesystemStore) path(ref string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(ref))
}
