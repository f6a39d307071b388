package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/specialistvlad/gridkit/internal/ctxlog"
	"github.com/specialistvlad/gridkit/internal/fsutil"
)

// DefaultDebounce is how long a Watcher waits for a burst of file events
// to settle before reporting a change.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reports changes to configuration files. It watches the
// directories holding the configured paths, so files replaced by editors
// and files created later are noticed too. A Watcher is a service: it
// watches between Start and Stop.
type Watcher struct {
	paths      []string
	extensions []string
	debounce   time.Duration
	onChange   func(ctx context.Context) error

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWatcher returns a Watcher calling onChange after files under paths
// change. Only files with one of extensions count; with no extensions
// every file does.
func NewWatcher(paths, extensions []string, debounce time.Duration, onChange func(ctx context.Context) error) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		paths:      slices.Clone(paths),
		extensions: slices.Clone(extensions),
		debounce:   debounce,
		onChange:   onChange,
	}
}

// Start begins watching.
func (w *Watcher) Start(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher != nil {
		return errors.New("configuration watcher is already running")
	}

	dirs, err := w.directories()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	runCtx, cancel := context.WithCancel(ctxlog.WithLogger(context.WithoutCancel(ctx), logger))
	done := make(chan struct{})
	w.watcher, w.cancel, w.done = watcher, cancel, done

	go w.run(runCtx, watcher, done)
	logger.Info("Watching configuration.", "directories", len(dirs))
	return nil
}

// Stop ends watching and waits for a change being handled to finish.
func (w *Watcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	watcher, cancel, done := w.watcher, w.cancel, w.done
	w.watcher, w.cancel, w.done = nil, nil, nil
	w.mu.Unlock()

	if watcher == nil {
		return nil
	}
	cancel()
	err := watcher.Close()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

// directories lists the directories to watch: every directory named in
// paths with its subdirectories, and the parent of every named file.
func (w *Watcher) directories() ([]string, error) {
	paths, err := fsutil.Expand(w.paths)
	if err != nil {
		return nil, err
	}

	var dirs []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		if !info.IsDir() {
			dirs = append(dirs, filepath.Dir(p))
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				dirs = append(dirs, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	slices.Sort(dirs)
	return slices.Compact(dirs), nil
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	return len(w.extensions) == 0 || slices.Contains(w.extensions, filepath.Ext(event.Name))
}

func (w *Watcher) run(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	logger := ctxlog.FromContext(ctx)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			logger.Debug("Configuration file changed.", "file", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Error("Configuration watcher error.", "error", err)

		case <-timer.C:
			if err := w.onChange(ctx); err != nil {
				logger.Error("Failed to apply configuration change.", "error", err)
			}
		}
	}
}
