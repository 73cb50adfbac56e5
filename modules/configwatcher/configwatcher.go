// Package configwatcher watches configuration files and reports changes so
// a host can re-read them without restarting.
//
// The containing directory of each file is watched rather than the file
// itself, so editors that save by rename are still seen. Bursts of events
// are debounced into a single callback carrying every changed path.
package configwatcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	modular "github.com/GoCodeAlone/modular-gui"
)

const (
	ModuleName      = "configwatcher"
	DefaultDebounce = 250 * time.Millisecond
)

var (
	ErrNoPaths         = errors.New("configwatcher: no paths to watch")
	ErrAlreadyWatching = errors.New("configwatcher: already watching")
)

// ChangeFunc receives the paths that changed since the previous call.
type ChangeFunc func(paths []string)

// Option configures a ConfigWatcher.
type Option func(*ConfigWatcher)

// WithPaths adds files to watch.
func WithPaths(paths ...string) Option {
	return func(w *ConfigWatcher) {
		w.paths = append(w.paths, paths...)
	}
}

// WithDebounce sets the quiet period before changes are reported.
func WithDebounce(d time.Duration) Option {
	return func(w *ConfigWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithOnChange sets the change callback.
func WithOnChange(fn ChangeFunc) Option {
	return func(w *ConfigWatcher) {
		w.onChange = fn
	}
}

// ConfigWatcher is a module that watches files while the host runs.
type ConfigWatcher struct {
	paths    []string
	debounce time.Duration
	onChange ChangeFunc
	logger   modular.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	files   map[string]struct{}
	pending map[string]struct{}
	timer   *time.Timer
	done    chan struct{}
}

// New creates a watcher module.
func New(opts ...Option) *ConfigWatcher {
	w := &ConfigWatcher{debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *ConfigWatcher) Name() string {
	return ModuleName
}

func (w *ConfigWatcher) Init(app modular.Application) error {
	w.logger = app.Logger()
	return nil
}

// Start begins watching. Missing directories fail the start.
func (w *ConfigWatcher) Start(_ context.Context) error {
	if len(w.paths) == 0 {
		return ErrNoPaths
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher != nil {
		return ErrAlreadyWatching
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("configwatcher: create watcher: %w", err)
	}

	files := make(map[string]struct{}, len(w.paths))
	var dirs []string
	for _, p := range w.paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = watcher.Close()
			return fmt.Errorf("configwatcher: resolve %s: %w", p, err)
		}
		files[abs] = struct{}{}
		if dir := filepath.Dir(abs); !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("configwatcher: watch %s: %w", dir, err)
		}
	}

	w.watcher = watcher
	w.files = files
	w.pending = make(map[string]struct{})
	w.done = make(chan struct{})
	go w.observe(watcher, w.done)

	w.logger.Info("Watching configuration files", "paths", w.paths)
	return nil
}

// Stop ends watching and drops changes not yet reported.
func (w *ConfigWatcher) Stop(_ context.Context) error {
	w.mu.Lock()
	watcher, done := w.watcher, w.done
	w.watcher = nil
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	if watcher == nil {
		return nil
	}

	err := watcher.Close()
	<-done
	return err
}

func (w *ConfigWatcher) observe(watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.schedule(filepath.Clean(ev.Name))
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Config watcher error", "error", err)
		}
	}
}

func (w *ConfigWatcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return
	}
	if _, watched := w.files[path]; !watched {
		return
	}
	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *ConfigWatcher) flush() {
	w.mu.Lock()
	if w.watcher == nil || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	clear(w.pending)
	w.timer = nil
	onChange := w.onChange
	w.mu.Unlock()

	slices.Sort(changed)
	w.logger.Info("Configuration changed", "paths", changed)
	if onChange != nil {
		onChange(changed)
	}
}
