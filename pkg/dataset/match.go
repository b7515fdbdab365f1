package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPattern selects every YAML dataset below a directory.
const DefaultPattern = "**/*.{yaml,yml}"

// Match returns the dataset files under root whose slash-separated relative path
// matches the doublestar pattern, sorted so seeding order is stable.
func Match(root, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid dataset pattern %q", pattern)
	}

	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		paths = append(paths, filepath.Join(root, filepath.FromSlash(m)))
	}
	sort.Strings(paths)
	return paths, nil
}

// Matches reports whether a single path, relative to root, is selected by pattern.
func Matches(root, path, pattern string) bool {
	if pattern == "" {
		pattern = DefaultPattern
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	ok, err := doublestar.Match(pattern, filepath.ToSlash(rel))
	return err == nil && ok
}

// LoadAll loads every file in order. It stops at the first invalid dataset.
func LoadAll(paths []string, opts ...Option) ([]Batch, error) {
	batches := make([]Batch, 0, len(paths))
	for _, p := range paths {
		b, err := LoadFile(p, opts...)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, nil
}
