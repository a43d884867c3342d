package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/haukened/rr-urlrep/internal/urlrep/common/log"
	"github.com/haukened/rr-urlrep/internal/urlrep/services/reputation"
)

// DefaultDebounce is used when Options.Debounce is not positive.
const DefaultDebounce = 250 * time.Millisecond

// Builder compiles a fresh engine and reports every file it was built from.
type Builder func() (*reputation.Engine, []string, error)

// Options tunes a Reloader.
type Options struct {
	Debounce time.Duration
	Logger   log.Logger
	// OnReload, when set, is called after every reload attempt.
	OnReload func(err error)
}

// Reloader rebuilds the engine when any of its source files change. A failed
// rebuild leaves the previous engine in service.
type Reloader struct {
	holder   *Holder
	build    Builder
	debounce time.Duration
	logger   log.Logger
	onReload func(error)
	watcher  *fsnotify.Watcher

	mu    sync.Mutex
	files map[string]struct{}
	dirs  map[string]struct{}
}

// New runs build once and starts watching the files it reports. The initial
// build must succeed.
func New(build Builder, opts Options) (*Reloader, error) {
	e, files, err := build()
	if err != nil {
		return nil, fmt.Errorf("initial build: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	r := &Reloader{
		holder:   NewHolder(e),
		build:    build,
		debounce: opts.Debounce,
		logger:   opts.Logger,
		onReload: opts.OnReload,
		watcher:  w,
		files:    make(map[string]struct{}),
		dirs:     make(map[string]struct{}),
	}
	if r.debounce <= 0 {
		r.debounce = DefaultDebounce
	}
	if r.logger == nil {
		r.logger = log.NewNoopLogger()
	}
	if err := r.track(files); err != nil {
		_ = w.Close()
		return nil, err
	}
	return r, nil
}

// Holder returns the holder serving the live engine.
func (r *Reloader) Holder() *Holder { return r.holder }

// Run watches for changes until ctx is cancelled, then closes the watcher.
func (r *Reloader) Run(ctx context.Context) error {
	defer func() { _ = r.watcher.Close() }()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if !r.relevant(event) {
				continue
			}
			r.logger.Debug(map[string]any{"file": event.Name, "op": event.Op.String()}, "policy_file_changed")
			if timer == nil {
				timer = time.NewTimer(r.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(r.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			_ = r.Reload()

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn(map[string]any{"error": err.Error()}, "file_watcher_error")
		}
	}
}

// Reload rebuilds the engine now. On failure the previous engine stays in
// service and the error is returned.
func (r *Reloader) Reload() error {
	e, files, err := r.build()
	if err == nil {
		err = r.track(files)
	}
	if err != nil {
		r.logger.Error(map[string]any{"error": err.Error()}, "policy_reload_failed")
	} else {
		r.holder.Swap(e)
		r.logger.Info(map[string]any{"files": len(files)}, "policy_reloaded")
	}
	if r.onReload != nil {
		r.onReload(err)
	}
	return err
}

// track replaces the watched file set. Parent directories are watched so
// editors that save by rename are still seen. The set is left unchanged when
// any file cannot be watched, so it always matches the engine in service.
func (r *Reloader) track(files []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]struct{}, len(files))
	var errs []error
	for _, f := range files {
		if f == "" {
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		next[abs] = struct{}{}
		dir := filepath.Dir(abs)
		if _, ok := r.dirs[dir]; ok {
			continue
		}
		if err := r.watcher.Add(dir); err != nil {
			errs = append(errs, fmt.Errorf("failed to watch %q: %w", dir, err))
			continue
		}
		r.dirs[dir] = struct{}{}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	r.files = next
	return nil
}

func (r *Reloader) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.files[abs]
	return ok
}
