package intake

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"roadeye/internal/logging"
	"roadeye/internal/registry"
)

const defaultSettle = 2 * time.Second

// Watcher follows directories and reports files once they have been quiet
// for the settle period.
type Watcher struct {
	fs     *fsnotify.Watcher
	accept func(name string) bool
	settle time.Duration
	logger *slog.Logger
}

// WatchOption customizes a Watcher.
type WatchOption func(*Watcher)

// WithSettle overrides how long a file must be unchanged before it is emitted.
func WithSettle(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// WithWatchLogger sets the watcher logger.
func WithWatchLogger(logger *slog.Logger) WatchOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// NewWatcher watches dirs. accept filters file names; nil accepts everything.
func NewWatcher(dirs []string, accept func(name string) bool, opts ...WatchOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w := &Watcher{fs: fsw, accept: accept, settle: defaultSettle}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logging.NewComponentLogger(w.logger, "intake")
	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// Run delivers settled files to emit until ctx is cancelled or the watcher is
// closed. emit runs on the watcher goroutine and should hand work off quickly.
func (w *Watcher) Run(ctx context.Context, emit func([]registry.FileHandle)) error {
	pending := make(map[string]time.Time)
	tick := time.NewTicker(w.pollInterval())
	defer tick.Stop()

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(event.Name)
			if isHidden(name) || (w.accept != nil && !w.accept(name)) {
				continue
			}
			switch {
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				pending[event.Name] = time.Now()
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				delete(pending, event.Name)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(w.logger, "watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some file changes may be missed"),
			)

		case now := <-tick.C:
			var ready []registry.FileHandle
			for path, touched := range pending {
				if now.Sub(touched) < w.settle {
					continue
				}
				delete(pending, path)
				handle, err := HandleFromPath(path)
				if err != nil {
					w.logger.Debug("skipping vanished file", logging.String("path", path), logging.Error(err))
					continue
				}
				ready = append(ready, handle)
			}
			if len(ready) > 0 {
				w.logger.Info("new media detected", logging.Int("files", len(ready)))
				emit(ready)
			}

		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Watcher) pollInterval() time.Duration {
	interval := w.settle / 4
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	return interval
}
