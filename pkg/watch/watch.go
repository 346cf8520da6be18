// Package watch invalidates cached previews when their source files change on disk.
package watch

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ChangeFunc is called with the absolute path of a tracked file that changed
type ChangeFunc func(ctx context.Context, path string)

// 👀 Watcher tracks individual files by watching their parent directories
type Watcher struct {
	fsw      *fsnotify.Watcher
	onChange ChangeFunc

	mu    sync.Mutex
	files map[string]bool
	dirs  map[string]bool
}

// New creates a watcher that calls onChange for every tracked file event
func New(onChange ChangeFunc) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("change callback is required")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Errorf("creating fsnotify watcher: %w", err)
	}
	return &Watcher{
		fsw:      fsw,
		onChange: onChange,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
	}, nil
}

// Track starts reporting changes to path. Tracking a path twice is a no-op.
func (w *Watcher) Track(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Errorf("resolving %s: %w", path, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.files[abs] {
		return nil
	}

	dir := filepath.Dir(abs)
	if !w.dirs[dir] {
		if err := w.fsw.Add(dir); err != nil {
			return errors.Errorf("watching %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	w.files[abs] = true
	return nil
}

// Tracked reports whether path is tracked
func (w *Watcher) Tracked(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[abs]
}

// Run dispatches events until ctx is done or the watcher is closed
func (w *Watcher) Run(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Clean(event.Name)
			w.mu.Lock()
			tracked := w.files[name]
			w.mu.Unlock()
			if !tracked {
				continue
			}
			logger.Debug().Str("path", name).Str("op", event.Op.String()).Msg("tracked file changed")
			w.onChange(ctx, name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("file watcher error")
		}
	}
}

// Close stops the underlying watcher
func (w *Watcher) Close() error {
	if err := w.fsw.Close(); err != nil {
		return errors.Errorf("closing fsnotify watcher: %w", err)
	}
	return nil
}
