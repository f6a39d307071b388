// Package fsutil provides file system utility functions.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FindFilesByExtension recursively searches the given root path for all files ending
// with the specified extension. It returns a slice of their full paths.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// IsPattern reports whether path contains glob meta characters.
func IsPattern(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}

// Expand replaces glob patterns in paths (including "**") with the sorted
// paths they match. Other paths are returned unchanged.
func Expand(paths []string) ([]string, error) {
	var out []string
	for _, path := range paths {
		if !IsPattern(path) {
			out = append(out, path)
			continue
		}
		matches, err := doublestar.FilepathGlob(path)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", path, err)
		}
		slices.Sort(matches)
		out = append(out, matches...)
	}
	return out, nil
}

// Collect expands paths into a flat, de-duplicated list of files whose
// extension is one of extensions. Glob patterns are expanded first.
// Directories are searched recursively and sorted; explicitly named files
// are kept in the order given. Paths that do not exist are skipped.
func Collect(paths []string, extensions ...string) ([]string, error) {
	paths, err := Expand(paths)
	if err != nil {
		return nil, err
	}

	var out []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if slices.Contains(extensions, filepath.Ext(path)) {
				add(path)
			}
			continue
		}

		var found []string
		for _, ext := range extensions {
			files, err := FindFilesByExtension(path, ext)
			if err != nil {
				return nil, err
			}
			found = append(found, files...)
		}
		slices.Sort(found)
		for _, f := range found {
			add(f)
		}
	}
	return out, nil
}
