// Package filewatcher provides the data directory watcher.
// It implements ports.FileWatcher on top of fsnotify.
package filewatcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/0xcro3dile/medrag-go/internal/domain/ports"
)

// DefaultDebounce is the quiet period before a burst of writes to one file is reported.
const DefaultDebounce = 500 * time.Millisecond

// FSNotifyWatcher implements ports.FileWatcher using fsnotify.
// Bursts of events for the same path are coalesced into one, reported after the debounce window.
type FSNotifyWatcher struct {
	watcher    *fsnotify.Watcher
	extensions []string
	debounce   time.Duration
	logger     *slog.Logger
}

// NewFSNotifyWatcher creates a new file watcher for the given extensions.
func NewFSNotifyWatcher(extensions []string, debounce time.Duration, logger *slog.Logger) (*FSNotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if len(extensions) == 0 {
		extensions = []string{".pdf", ".txt", ".md"}
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &FSNotifyWatcher{
		watcher:    w,
		extensions: extensions,
		debounce:   debounce,
		logger:     logger.With(slog.String("component", "filewatcher")),
	}, nil
}

// Watch starts monitoring the directory and emits events.
func (w *FSNotifyWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileEvent, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}
	w.logger.Info("watching directory", slog.String("dir", dir), slog.Any("extensions", w.extensions))

	events := make(chan ports.FileEvent, 100)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		seq     int
		pending = make(map[string]*time.Timer)
		latest  = make(map[string]ports.FileOperation)
		gen     = make(map[string]int)
	)

	emit := func(path string, g int) {
		defer wg.Done()
		mu.Lock()
		if gen[path] != g {
			mu.Unlock()
			return // superseded by a later event
		}
		op := latest[path]
		delete(pending, path)
		delete(latest, path)
		delete(gen, path)
		mu.Unlock()

		select {
		case events <- ports.FileEvent{Path: path, Operation: op}:
		case <-ctx.Done():
		}
	}

	// schedule (re)arms the debounce timer for path. mu must be held.
	schedule := func(path string) {
		if t, ok := pending[path]; ok && t.Stop() {
			wg.Done()
		}
		seq++
		g := seq
		gen[path] = g
		wg.Add(1)
		pending[path] = time.AfterFunc(w.debounce, func() { emit(path, g) })
	}

	go func() {
		defer func() {
			mu.Lock()
			for path, t := range pending {
				if t.Stop() {
					wg.Done()
				}
				delete(pending, path)
			}
			mu.Unlock()
			wg.Wait()
			close(events)
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !w.isWatchedExtension(event.Name) {
					continue
				}

				var op ports.FileOperation
				switch {
				case event.Op&fsnotify.Create == fsnotify.Create:
					op = ports.FileCreated
				case event.Op&fsnotify.Write == fsnotify.Write:
					op = ports.FileModified
				case event.Op&fsnotify.Remove == fsnotify.Remove, event.Op&fsnotify.Rename == fsnotify.Rename:
					op = ports.FileDeleted
				default:
					continue
				}

				mu.Lock()
				// A create followed by writes is still a create.
				if prev, ok := latest[event.Name]; !ok || op != ports.FileModified || prev != ports.FileCreated {
					latest[event.Name] = op
				}
				schedule(event.Name)
				mu.Unlock()

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Error("watch error", slog.Any("error", err))
			}
		}
	}()

	return events, nil
}

// Stop stops the watcher.
func (w *FSNotifyWatcher) Stop() error {
	return w.watcher.Close()
}

func (w *FSNotifyWatcher) isWatchedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
