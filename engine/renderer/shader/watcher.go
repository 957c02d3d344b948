package shader

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports writes to a single shader file. Editors often replace a file instead of
// writing it in place, so the parent directory is watched and events are filtered by name.
type Watcher struct {
	mu      *sync.Mutex
	watcher *fsnotify.Watcher
	path    string
	changes chan struct{}
	errs    chan error
	done    chan struct{}
	closed  bool
	logger  *slog.Logger
}

// NewWatcher starts watching path for changes.
//
// Parameters:
//   - path: the shader file to watch
//   - logger: the logger for watcher errors; slog.Default() when nil
//
// Returns:
//   - *Watcher: the running watcher
//   - error: an error if the file system watcher could not be created
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve shader path %q: %w", path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create shader watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", filepath.Dir(abs), err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		mu:      &sync.Mutex{},
		watcher: fw,
		path:    abs,
		changes: make(chan struct{}, 1),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
		logger:  logger,
	}
	go w.run()
	return w, nil
}

// Path returns the absolute path of the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Changes delivers one value per burst of writes. Pending notifications coalesce, so a
// reader that polls once per frame sees at most one change.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Errors delivers watcher errors. Only the most recent unread error is kept.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Close stops the watcher. It is safe to call more than once.
//
// Returns:
//   - error: an error from the underlying watcher
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				select {
				case w.changes <- struct{}{}:
				default:
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("shader watcher error", "path", w.path, "err", err)
			select {
			case w.errs <- err:
			default:
			}
		}
	}
}
