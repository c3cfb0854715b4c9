package confloader

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettleDelay is how long a config file has to stay unchanged before
// it is reloaded. Editors often write a file in several steps.
const DefaultSettleDelay = 100 * time.Millisecond

// ReloadFunc receives the result of reloading a watched config file.
type ReloadFunc func(res LoadResult, err error)

// Watcher reloads one config file through a Loader whenever it changes on
// disk. A burst of events within the settle delay produces one reload.
type Watcher struct {
	loader *Loader
	path   string
	opts   LoadOptions
	settle time.Duration
	logger *slog.Logger

	fsw *fsnotify.Watcher

	mu       sync.Mutex
	handlers []ReloadFunc
	timer    *time.Timer

	// reloadMu serializes reloads fired by overlapping timers.
	reloadMu sync.Mutex

	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger for the watcher.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithSettleDelay overrides DefaultSettleDelay.
func WithSettleDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// NewWatcher watches path, which need not exist yet. Its directory is
// watched so that editors replacing the file by rename are noticed.
func NewWatcher(l *Loader, path string, opts LoadOptions, wopts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		loader: l,
		path:   absPath(path),
		opts:   opts,
		settle: DefaultSettleDelay,
		logger: slog.Default(),
		fsw:    fsw,
		done:   make(chan struct{}),
	}
	for _, opt := range wopts {
		opt(w)
	}

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	w.logger.Debug("watching config file", "dir", dir, "file", filepath.Base(w.path))
	return w, nil
}

// Path returns the absolute path of the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// OnReload registers fn. Handlers run on the reload goroutine, one reload
// at a time.
func (w *Watcher) OnReload(fn ReloadFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, fn)
}

// Run dispatches file events until ctx is done or Stop is called.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if absPath(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debug("config file event", "file", event.Name, "op", event.Op.String())
			w.schedule()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", "error", err)
		case <-ctx.Done():
			return nil
		case <-w.done:
			return nil
		}
	}
}

// Stop stops the watcher and cancels a pending reload. It is safe to call
// more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.settle, w.reload)
}

func (w *Watcher) reload() {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}

	res, err := w.loader.Load(w.path, w.opts)
	if err != nil {
		w.logger.Debug("config reload failed", "path", w.path, "error", err)
	}

	w.mu.Lock()
	handlers := slices.Clone(w.handlers)
	w.mu.Unlock()
	for _, fn := range handlers {
		fn(res, err)
	}
}
