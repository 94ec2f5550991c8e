package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/gnana997/bundlekit/pkg/diag"
)

// IsPattern reports whether an order entry holds glob meta characters.
func IsPattern(entry string) bool {
	return strings.ContainsAny(entry, "*?[{")
}

// ExpandOrder replaces every glob entry of order with the files it matches
// in the lib directory, sorted. Literal entries stay exactly where they are,
// duplicates included. A pattern without matches is reported and dropped.
func (m *Manifest) ExpandOrder(sink diag.Sink) error {
	if !hasPattern(m.Order) {
		return nil
	}
	fsys := os.DirFS(m.LibPath())

	expanded := make([]string, 0, len(m.Order))
	for _, entry := range m.Order {
		if !IsPattern(entry) {
			expanded = append(expanded, entry)
			continue
		}
		matches, err := ExpandPattern(fsys, entry)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			diag.Warnf(sink, m.Path, 0, "order pattern %q matches no files in %s", entry, m.LibDir)
		}
		expanded = append(expanded, matches...)
	}
	m.Order = expanded
	return nil
}

// ExpandPattern returns the regular files of fsys matching pattern, sorted.
func ExpandPattern(fsys fs.FS, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: invalid order pattern: %s", ErrInvalidManifest, pattern)
	}
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to expand %s: %w", pattern, err)
	}

	files := matches[:0]
	for _, match := range matches {
		info, err := fs.Stat(fsys, match)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, match)
	}
	sort.Strings(files)
	return files, nil
}

func hasPattern(entries []string) bool {
	for _, e := range entries {
		if IsPattern(e) {
			return true
		}
	}
	return false
}
