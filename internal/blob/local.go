package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes payloads to the local filesystem and returns file:// URIs.
type LocalStore struct {
	baseDir string
}

// NewLocalStore creates a filesystem-backed blob store rooted at baseDir.
// The directory is created if missing and probed for writability so a
// misconfigured deployment fails at startup rather than mid-crawl.
func NewLocalStore(baseDir string) (*LocalStore, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(baseDir, 0o750); mkErr != nil {
				return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
			}
		} else {
			return nil, fmt.Errorf("failed to stat base directory: %w", err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	probe := filepath.Join(baseDir, ".writable_test")
	if err := os.WriteFile(probe, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return nil, fmt.Errorf("failed to clean up probe file: %w", err)
	}

	return &LocalStore{baseDir: baseDir}, nil
}

// Put writes data under key and returns the file:// URI of the written file.
func (s *LocalStore) Put(_ context.Context, key string, _ string, data []byte) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("key is required")
	}

	fullPath := filepath.Join(s.baseDir, key)

	// Keys derive from crawled URLs, so guard against path traversal.
	cleanBase := filepath.Clean(s.baseDir)
	cleanFull := filepath.Clean(fullPath)
	if !strings.HasPrefix(cleanFull, cleanBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected")
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("failed to create parent directories: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return fmt.Sprintf("file://%s", fullPath), nil
}
