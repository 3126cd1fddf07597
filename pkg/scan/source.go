package scan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors for script loading.
var (
	// ErrDirectoryPath indicates a file operation was attempted on a directory.
	ErrDirectoryPath = errors.New("path points to a directory")
	// ErrEmptyPath indicates a path argument was empty.
	ErrEmptyPath = errors.New("path is empty")
	// ErrPathContainsNUL indicates the path contains a NUL byte.
	ErrPathContainsNUL = errors.New("path contains NUL byte")
	// ErrFileTooLarge indicates a file exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file exceeds size limit")
)

// readSource reads a script after resolving path; maxSize <= 0 disables
// the size check. OS errors stay wrapped so errors.Is(err, fs.ErrNotExist) holds.
func readSource(path string, maxSize int64) ([]byte, error) {
	resolved, size, err := resolveUserFilePath(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path %q: %w", path, err)
	}

	if maxSize > 0 && size > maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, resolved, size, maxSize)
	}

	//nolint:gosec // resolved is normalized and type checked in resolveUserFilePath.
	content, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", resolved, err)
	}

	return content, nil
}

// resolveUserFilePath cleans path into an absolute path to a regular file
// and returns its size.
func resolveUserFilePath(path string) (string, int64, error) {
	if strings.TrimSpace(path) == "" {
		return "", 0, ErrEmptyPath
	}

	if strings.ContainsRune(path, '\x00') {
		return "", 0, fmt.Errorf("%w: %q", ErrPathContainsNUL, path)
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", 0, fmt.Errorf("resolve absolute path for %q: %w", path, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", 0, fmt.Errorf("stat %s: %w", absPath, err)
	}

	if info.IsDir() {
		return "", 0, fmt.Errorf("%w: %s", ErrDirectoryPath, absPath)
	}

	return absPath, info.Size(), nil
}
