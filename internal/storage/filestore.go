package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pubcask/pubcask/pkg/logger"
)

// FileStore keeps archives on the local filesystem under
// <root>/packages/<name>/<version>/<filename>. It is the default
// backend and the one the tests run against.
type FileStore struct {
	root string
}

// NewFileStore creates the storage root if needed.
func NewFileStore(root string) (*FileStore, error) {
	dir := filepath.Join(root, "packages")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	logger.Debug("File store initialized", "root", root)
	return &FileStore{root: root}, nil
}

func (s *FileStore) versionDir(pkg, version string) string {
	return filepath.Join(s.root, "packages", pkg, version)
}

// Upload stores an archive under (pkg, version, filename).
func (s *FileStore) Upload(_ context.Context, pkg, version, filename string, data []byte) error {
	dir := s.versionDir(pkg, version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create version directory: %w", err)
	}

	// Write through a temp file so a crashed upload never leaves a
	// half-written archive behind.
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, filename)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move archive into place: %w", err)
	}

	logger.Debug("Archive stored", "package", pkg, "version", version, "bytes", len(data))
	return nil
}

// Download retrieves the archive stored under (pkg, version, filename).
func (s *FileStore) Download(_ context.Context, pkg, version, filename string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.versionDir(pkg, version), filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read archive for %s %s: %w", pkg, version, err)
	}
	return data, nil
}

// ListVersions returns the version directories present for a package,
// sorted for stable enumeration. A missing package directory is an
// empty result, not an error.
func (s *FileStore) ListVersions(_ context.Context, pkg string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, "packages", pkg))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list versions for %s: %w", pkg, err)
	}

	var versions []string
	for _, entry := range entries {
		if entry.IsDir() {
			versions = append(versions, entry.Name())
		}
	}
	sort.Strings(versions)
	return versions, nil
}

// VersionExists checks whether a version directory exists for the package.
func (s *FileStore) VersionExists(_ context.Context, pkg, version string) (bool, error) {
	info, err := os.Stat(s.versionDir(pkg, version))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat version for %s %s: %w", pkg, version, err)
	}
	return info.IsDir(), nil
}
