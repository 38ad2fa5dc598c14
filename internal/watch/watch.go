// Package watch reports changes to a single presence file.
//
// The parent directory is watched rather than the file itself so that
// editors and [atomicfile.Write] replacing the file by rename keep firing
// events. When fsnotify is unavailable the watcher falls back to polling
// the file's modification time and size.
package watch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is the stat interval used in polling mode.
const DefaultPollInterval = 2 * time.Second

// ///////////////////////////////////////////////
// Watcher
// ///////////////////////////////////////////////

// Watcher signals each time the watched file is written, created, or
// replaced.
type Watcher struct {
	// path is the cleaned absolute path of the watched file.
	path string
	// events is buffered to 1 so bursts of writes coalesce into one signal.
	events chan struct{}
	done   chan struct{}
	// fsw is nil in polling mode.
	fsw  *fsnotify.Watcher
	once sync.Once
	// polling is true once the watcher has fallen back to stat polling.
	polling      atomic.Bool
	pollInterval time.Duration
}

// New starts watching path. The file does not have to exist yet, but its
// directory does when fsnotify is in use; otherwise the watcher polls.
func New(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	w := &Watcher{
		path:         abs,
		events:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		pollInterval: DefaultPollInterval,
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Info("fsnotify unavailable, falling back to polling", "error", err)
		w.startPolling()
		return w, nil
	}

	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		slog.Info("cannot watch directory, falling back to polling", "path", filepath.Dir(abs), "error", err)
		fsw.Close()
		w.startPolling()
		return w, nil
	}

	w.fsw = fsw
	go w.watch()
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Polling reports whether the watcher is using polling instead of fsnotify.
func (w *Watcher) Polling() bool {
	return w.polling.Load()
}

// Events returns a channel that receives a signal when the file changes.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		if w.fsw != nil {
			if closeErr := w.fsw.Close(); closeErr != nil {
				err = fmt.Errorf("closing fsnotify watcher: %w", closeErr)
			}
		}
	})
	return err
}

// ///////////////////////////////////////////////
// fsnotify
// ///////////////////////////////////////////////

// relevant reports whether an event on the watched directory concerns the
// watched file.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

func (w *Watcher) watch() {
	fsw := w.fsw
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				w.notify()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			slog.Info("fsnotify error, switching to polling", "error", err)
			fsw.Close()
			w.startPolling()
			return
		}
	}
}

// ///////////////////////////////////////////////
// Polling
// ///////////////////////////////////////////////

func (w *Watcher) startPolling() {
	w.polling.Store(true)
	go w.poll()
}

// fileStamp identifies one version of the watched file.
type fileStamp struct {
	mod  time.Time
	size int64
}

func (w *Watcher) stamp() (fileStamp, bool) {
	info, err := os.Stat(w.path)
	if err != nil {
		return fileStamp{}, false
	}
	return fileStamp{mod: info.ModTime(), size: info.Size()}, true
}

// poll stats the file every pollInterval and signals when its stamp
// changes. A missing file never signals; its reappearance does.
func (w *Watcher) poll() {
	last, _ := w.stamp()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			cur, ok := w.stamp()
			if !ok {
				continue
			}
			if !cur.mod.Equal(last.mod) || cur.size != last.size {
				last = cur
				w.notify()
			}
		}
	}
}

// notify sends a signal unless one is already pending.
func (w *Watcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}
