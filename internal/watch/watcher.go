// Package watch reloads help files into the registry when they change on disk.
//
// Reloads go through Registry.LoadDatabase, so they merge: editing a text
// updates it, adding a key adds it, but deleting a key (or a whole file) does
// not remove anything from the live database.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/specialistvlad/helpme/internal/config"
	"github.com/specialistvlad/helpme/internal/ctxlog"
	"github.com/specialistvlad/helpme/internal/loader"
	"github.com/specialistvlad/helpme/internal/registry"
)

// DefaultDebounce batches the burst of events an editor produces on save.
const DefaultDebounce = 200 * time.Millisecond

// Reloader is the part of the registry the watcher feeds.
type Reloader interface {
	LoadDatabase(ctx context.Context, src registry.Source) *registry.Load
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// Watcher watches help file paths and reloads them on change.
type Watcher struct {
	reg      Reloader
	loader   config.Loader
	paths    []string
	debounce time.Duration

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	reloads atomic.Int64
	failed  atomic.Int64
}

// New creates a watcher for paths. Nothing is watched until Start.
func New(reg Reloader, l config.Loader, paths []string, opts ...Option) *Watcher {
	w := &Watcher{
		reg:      reg,
		loader:   l,
		paths:    paths,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It is non-blocking; events are handled on a separate
// goroutine until Stop is called or ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	ctx = ctxlog.With(ctx, "component", "watch")
	logger := ctxlog.FromContext(ctx)
	for _, dir := range w.watchDirs(ctx) {
		if err := fsw.Add(dir); err != nil {
			logger.Warn("Failed to watch directory.", "dir", dir, "error", err)
			continue
		}
		logger.Debug("Watching directory.", "dir", dir)
	}

	w.fsw = fsw
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done, fsw := w.doneCh, w.fsw
	w.mu.Unlock()

	<-done
	_ = fsw.Close()
}

// Reloads returns the number of successful reloads.
func (w *Watcher) Reloads() int64 {
	return w.reloads.Load()
}

// Failures returns the number of failed reloads.
func (w *Watcher) Failures() int64 {
	return w.failed.Load()
}

// watchDirs returns every directory to register: the directories given as
// paths with all their subdirectories, and the parents of file paths, so
// editors that replace files by rename are still seen.
func (w *Watcher) watchDirs(ctx context.Context) []string {
	logger := ctxlog.FromContext(ctx)
	var dirs []string
	seen := make(map[string]struct{})
	add := func(d string) {
		if _, ok := seen[d]; ok {
			return
		}
		seen[d] = struct{}{}
		dirs = append(dirs, d)
	}

	for _, p := range w.paths {
		info, err := os.Stat(p)
		if err != nil {
			logger.Warn("Watch path not accessible.", "path", p, "error", err)
			continue
		}
		if !info.IsDir() {
			add(filepath.Dir(p))
			continue
		}
		_ = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err == nil && d.IsDir() {
				add(path)
			}
			return nil
		})
	}
	return dirs
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	logger := ctxlog.FromContext(ctx)

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Watcher context cancelled.")
			return

		case <-w.stopCh:
			logger.Debug("Watcher stop signal received.")
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ctx, event) {
				continue
			}
			logger.Debug("Help file changed.", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Error("Watcher error.", "error", err)

		case <-timerC:
			timerC = nil
			w.reload(ctx)
		}
	}
}

// relevant reports whether event should trigger a reload. New directories are
// added to the watch list as a side effect.
func (w *Watcher) relevant(ctx context.Context, event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(event.Name); err != nil {
				ctxlog.FromContext(ctx).Warn("Failed to watch new directory.", "dir", event.Name, "error", err)
			}
			return true
		}
	}

	ext := strings.ToLower(filepath.Ext(event.Name))
	for _, e := range loader.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// reload loads every path and waits for the merge, so reloads never overlap.
func (w *Watcher) reload(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	src := (&loader.Provider{Loader: w.loader, Paths: w.paths}).Get()

	err := w.reg.LoadDatabase(ctx, src).Wait(ctx)
	switch {
	case err == nil:
		w.reloads.Add(1)
		logger.Info("Help files reloaded.")
	case errors.Is(err, context.Canceled):
		logger.Debug("Reload abandoned, watcher is shutting down.")
	default:
		w.failed.Add(1)
		logger.Error("Help file reload failed, keeping the previous database.", "error", err)
	}
}
