// Package ignorefile filters file lists by the gitignore-style patterns
// in ~/.syncignore before an outbound FILES transfer (spec §4.K).
package ignorefile

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Filter holds the parsed pattern set from one .syncignore file.
type Filter struct {
	patterns []pattern
}

type pattern struct {
	glob    string
	dirOnly bool
}

// DefaultPath returns ~/.syncignore.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("ignorefile: resolving home directory: %w", err)
	}
	return filepath.Join(home, ".syncignore"), nil
}

// Load parses path. A missing file yields an empty (always-pass) Filter,
// since .syncignore is optional.
func Load(path string) (*Filter, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Filter{}, nil
		}
		return nil, fmt.Errorf("ignorefile: opening %s: %w", path, err)
	}
	defer f.Close()

	var patterns []pattern
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		dirOnly := strings.HasSuffix(line, "/")
		patterns = append(patterns, pattern{
			glob:    strings.TrimSuffix(line, "/"),
			dirOnly: dirOnly,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ignorefile: reading %s: %w", path, err)
	}
	return &Filter{patterns: patterns}, nil
}

// Matches reports whether basename (the file's basename, not full path)
// should be excluded from a transfer. isDir is true when the entry is a
// directory; dirOnly patterns (trailing "/") only ever match directories.
func (f *Filter) Matches(basename string, isDir bool) bool {
	for _, p := range f.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		if matched, _ := filepath.Match(p.glob, basename); matched {
			return true
		}
	}
	return false
}

// FilterPaths drops every path whose basename matches the filter,
// returning the survivors in original order. Directories are never part
// of a transfer's file list (folders are flattened per spec non-goals),
// so every entry is treated as a file.
func (f *Filter) FilterPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if f.Matches(filepath.Base(p), false) {
			continue
		}
		out = append(out, p)
	}
	return out
}
