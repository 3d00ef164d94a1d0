// Package watch turns file saves into debounced run triggers.
package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/harshul/coderun/internal/loop"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 100 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	// Match decides whether a saved path is interesting. Nil matches all.
	Match func(path string) bool
	// OnSave runs on the loop once a burst of saves has settled.
	OnSave func(path string)
	Loop   loop.Poster
	Logger *zap.Logger
}

// Watcher watches one directory. It satisfies the state package's
// Subscription.
type Watcher struct {
	fs   *fsnotify.Watcher
	opts Options
	done chan struct{}

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	closed  bool
}

// New starts watching dir.
func New(dir string, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	opts.Logger = opts.Logger.Named("watch")

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{fs: fsw, opts: opts, done: make(chan struct{})}
	go w.listen()
	opts.Logger.Info("watching", zap.String("dir", dir), zap.Duration("debounce", opts.Debounce))
	return w, nil
}

func (w *Watcher) listen() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			path := filepath.Clean(ev.Name)
			if w.opts.Match != nil && !w.opts.Match(path) {
				continue
			}
			w.schedule(path)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.opts.Logger.Warn("watch error", zap.Error(err))
		}
	}
}

// schedule restarts the debounce timer; only the last path of a burst fires.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.pending = path
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	path := w.pending
	w.pending = ""
	skip := w.closed || path == "" || w.opts.OnSave == nil
	w.mu.Unlock()
	if skip {
		return
	}
	w.opts.Logger.Debug("save settled", zap.String("path", path))
	w.opts.Loop.Post(func() {
		// The trigger may have been queued before Close ran on the loop.
		if w.isClosed() {
			return
		}
		w.opts.OnSave(path)
	})
}

func (w *Watcher) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Close removes the subscription. No trigger fires after it returns.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	err := w.fs.Close()
	<-w.done
	return err
}
