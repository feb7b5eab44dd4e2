// Package pathutil provides path canonicalization and input guards used at
// the engine's boundaries.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors for input guards.
var (
	// ErrFileNotFound indicates an expected input file is missing.
	ErrFileNotFound = errors.New("expected input file not found")
	// ErrNotADirectory indicates a path exists but is not a directory.
	ErrNotADirectory = errors.New("path is not a directory")
)

// Resolve turns a user-supplied path into a canonical absolute path,
// expanding a leading "~" to the home directory.
func Resolve(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}

		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}

	return filepath.Clean(abs), nil
}

// EnsureFile returns a typed error when path does not name an existing
// regular file.
func EnsureFile(path string) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	return nil
}

// EnsureDir returns a typed error when path does not name an existing
// directory.
func EnsureDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotADirectory, path)
	}

	return nil
}
