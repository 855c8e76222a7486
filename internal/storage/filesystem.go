// Package storage persists per-run artifacts: every raw model response is
// saved before parsing so a degraded record can be audited against the text
// it came from.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store is the artifact sink stages write raw responses to.
type Store interface {
	Save(ctx context.Context, path string, data []byte) error
	Load(ctx context.Context, path string) ([]byte, error)
	List(ctx context.Context, pattern string) ([]string, error)
	Exists(ctx context.Context, path string) bool
}

// FileSystem stores artifacts under a base directory.
type FileSystem struct {
	baseDir string
}

// NewFileSystem creates a filesystem store rooted at baseDir.
func NewFileSystem(baseDir string) *FileSystem {
	return &FileSystem{baseDir: baseDir}
}

// sanitizePath validates and cleans the path to prevent directory traversal.
func (fs *FileSystem) sanitizePath(path string) (string, error) {
	cleaned := filepath.Clean(path)
	if strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid path: contains parent directory reference")
	}
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid path: absolute paths not allowed")
	}
	fullPath := filepath.Join(fs.baseDir, cleaned)
	if !strings.HasPrefix(fullPath, fs.baseDir+string(filepath.Separator)) && fullPath != fs.baseDir {
		return "", fmt.Errorf("invalid path: outside base directory")
	}
	return fullPath, nil
}

// Save writes an artifact, creating parent directories as needed.
func (fs *FileSystem) Save(ctx context.Context, path string, data []byte) error {
	fullPath, err := fs.sanitizePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

// Load reads an artifact back.
func (fs *FileSystem) Load(ctx context.Context, path string) ([]byte, error) {
	fullPath, err := fs.sanitizePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// List returns artifact paths matching a glob pattern, relative to the base
// directory.
func (fs *FileSystem) List(ctx context.Context, pattern string) ([]string, error) {
	cleaned := filepath.Clean(pattern)
	if strings.Contains(cleaned, "..") || filepath.IsAbs(cleaned) {
		return nil, fmt.Errorf("invalid pattern")
	}
	matches, err := filepath.Glob(filepath.Join(fs.baseDir, cleaned))
	if err != nil {
		return nil, fmt.Errorf("globbing: %w", err)
	}
	relative := make([]string, 0, len(matches))
	for _, m := range matches {
		rel, err := filepath.Rel(fs.baseDir, m)
		if err != nil {
			continue
		}
		relative = append(relative, rel)
	}
	return relative, nil
}

// Exists reports whether an artifact is present.
func (fs *FileSystem) Exists(ctx context.Context, path string) bool {
	fullPath, err := fs.sanitizePath(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(fullPath)
	return err == nil
}
