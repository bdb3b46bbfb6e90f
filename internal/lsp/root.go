package lsp

import (
	"os"
	"path/filepath"
)

// DetectRoot walks up from file looking for any of markers and returns the
// first directory containing one. Without a match it falls back to the
// file's own directory.
func DetectRoot(file string, markers []string) string {
	start := resolveStartDir(file)
	if start == "" {
		return ""
	}
	if abs, err := filepath.Abs(start); err == nil {
		start = abs
	}
	for dir := start; ; {
		for _, marker := range markers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

func resolveStartDir(path string) string {
	if path == "" {
		return ""
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}
