package scan

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/src-d/enry/v2"
)

// languagePython is the enry name of the Python language.
const languagePython = "Python"

// shebangProbeSize is how much of an extension-less file is read to detect
// a Python interpreter line.
const shebangProbeSize = 512

// skippedDirs are never descended into.
var skippedDirs = map[string]bool{
	"__pycache__":   true,
	"venv":          true,
	".venv":         true,
	"node_modules":  true,
	"site-packages": true,
}

// CollectOption tunes Collect.
type CollectOption func(*collectConfig)

type collectConfig struct {
	all bool
}

// IncludeAll makes Collect descend into hidden and vendored directories.
func IncludeAll() CollectOption {
	return func(cfg *collectConfig) { cfg.all = true }
}

// Collect returns the Python scripts under root in lexical order. A root that
// names a file is returned as is, whatever its extension. Hidden and
// vendored directories are skipped unless IncludeAll is given; extension-less
// files are kept when enry identifies them as Python through their shebang line.
func Collect(root string, opts ...CollectOption) ([]string, error) {
	var cfg collectConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}

	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string

	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		name := entry.Name()

		if entry.IsDir() {
			if path != root && !cfg.all && (skippedDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}

			return nil
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		ok, detectErr := isPythonScript(path, name)
		if detectErr != nil {
			return detectErr
		}

		if ok {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	return files, nil
}

func isPythonScript(path, name string) (bool, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".py", ".pyw":
		return true, nil
	case "":
		head, err := readHead(path)
		if err != nil {
			return false, err
		}

		return enry.GetLanguage(name, head) == languagePython, nil
	default:
		return false, nil
	}
}

func readHead(path string) ([]byte, error) {
	//nolint:gosec // path comes from a directory walk rooted at a user-given root.
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	buf := make([]byte, shebangProbeSize)

	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return buf[:n], nil
}
