package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/specialistvlad/gridkit/internal/ctxlog"
	"github.com/specialistvlad/gridkit/internal/fsutil"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads the given files and returns their sections.
	Load(ctx context.Context, paths ...string) (*Root, error)
}

// Multi is a Loader that picks a format-specific loader by file extension.
// Directories are expanded to the files with a registered extension.
type Multi struct {
	loaders map[string]Loader
}

// NewMulti returns an empty Multi.
func NewMulti() *Multi {
	return &Multi{loaders: make(map[string]Loader)}
}

// Register binds a loader to one or more extensions, such as ".yaml".
func (m *Multi) Register(loader Loader, extensions ...string) *Multi {
	for _, ext := range extensions {
		m.loaders[ext] = loader
	}
	return m
}

// Extensions returns the registered extensions, sorted.
func (m *Multi) Extensions() []string {
	exts := make([]string, 0, len(m.loaders))
	for ext := range m.loaders {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// Load reads every file found under paths. Files are read one at a time in
// the order found, so sections in later files override earlier ones.
func (m *Multi) Load(ctx context.Context, paths ...string) (*Root, error) {
	logger := ctxlog.FromContext(ctx)

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		if _, ok := m.loaders[filepath.Ext(p)]; !ok {
			return nil, fmt.Errorf("no configuration loader for file %s", p)
		}
	}

	files, err := fsutil.Collect(paths, m.Extensions()...)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered configuration files.", "count", len(files))

	root := NewRoot()
	for _, file := range files {
		loaded, err := m.loaders[filepath.Ext(file)].Load(ctx, file)
		if err != nil {
			return nil, err
		}
		root.Merge(loaded)
	}

	logger.Debug("Configuration loading complete.", "sections", len(root.Names()))
	return root, nil
}
