package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rjeczalik/notify"
)

const (
	eventBufferSize        = 64
	defaultDebounceTimeout = 50 * time.Millisecond
)

// FilterCallback is a function that returns true if the event should be filtered
type FilterCallback func(path string) bool

// Watcher emits debounced write events for files under the workspace root.
// Editors tend to fire bursts of writes while saving; events are coalesced
// per path with a short debounce window.
type Watcher struct {
	watchDir  string
	events    chan notify.EventInfo
	rawEvents chan notify.EventInfo
	done      chan struct{}
	wg        sync.WaitGroup

	pendingEvents   map[string]notify.EventInfo
	eventTimers     map[string]*time.Timer
	debounceMu      sync.Mutex
	debounceTimeout time.Duration

	filter   FilterCallback
	filterMu sync.RWMutex
}

func NewWatcher(watchDir string) *Watcher {
	return &Watcher{
		watchDir:        watchDir,
		done:            make(chan struct{}),
		pendingEvents:   make(map[string]notify.EventInfo),
		eventTimers:     make(map[string]*time.Timer),
		debounceTimeout: defaultDebounceTimeout,
	}
}

// SetDebounceTimeout sets the debounce timeout for events
func (w *Watcher) SetDebounceTimeout(timeout time.Duration) {
	w.debounceTimeout = timeout
}

// FilterPaths sets a callback to drop raw events before debouncing.
// The callback should return true if the event should be ignored.
func (w *Watcher) FilterPaths(callback FilterCallback) {
	w.filterMu.Lock()
	defer w.filterMu.Unlock()
	w.filter = callback
}

func (w *Watcher) Start(ctx context.Context) error {
	slog.Info("file watcher start", "dir", w.watchDir)

	w.rawEvents = make(chan notify.EventInfo, eventBufferSize)
	w.events = make(chan notify.EventInfo, eventBufferSize)

	recursivePath := w.watchDir + "/..."
	if err := notify.Watch(recursivePath, w.rawEvents, notify.Write, notify.Create, notify.Rename, notify.Remove); err != nil {
		return err
	}

	w.wg.Add(1)
	go w.filterEvents(ctx)

	return nil
}

func (w *Watcher) Stop() {
	slog.Info("file watcher stopping")

	close(w.done)

	// stops notify watching and closes the raw channel
	if w.rawEvents != nil {
		notify.Stop(w.rawEvents)
	}

	w.wg.Wait()
	slog.Info("file watcher stopped")
}

func (w *Watcher) Events() <-chan notify.EventInfo {
	return w.events
}

// filterEvents drops filtered paths, debounces the rest and forwards them.
func (w *Watcher) filterEvents(ctx context.Context) {
	defer func() {
		// cancel pending timers and flush whatever was queued
		w.debounceMu.Lock()
		for path, timer := range w.eventTimers {
			timer.Stop()
			if event, exists := w.pendingEvents[path]; exists {
				select {
				case w.events <- event:
				default:
					slog.Warn("file watcher channel full during exit, dropping event", "path", path)
				}
			}
		}
		w.debounceMu.Unlock()

		w.wg.Done()
		close(w.events)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.rawEvents:
			if !ok {
				return
			}

			w.filterMu.RLock()
			filter := w.filter
			w.filterMu.RUnlock()
			if filter != nil && filter(event.Path()) {
				continue
			}

			// On linux a single save triggers a burst of write events until
			// the file is completely written. Coalescing adds debounceTimeout
			// of latency but collapses the burst into one event.
			w.debounceEvent(event)
		}
	}
}

func (w *Watcher) debounceEvent(event notify.EventInfo) {
	path := event.Path()

	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, exists := w.eventTimers[path]; exists {
		timer.Stop()
	}

	w.pendingEvents[path] = event

	w.eventTimers[path] = time.AfterFunc(w.debounceTimeout, func() {
		w.flushEvent(path)
	})
}

func (w *Watcher) flushEvent(path string) {
	w.debounceMu.Lock()
	event, exists := w.pendingEvents[path]
	if exists {
		delete(w.pendingEvents, path)
		delete(w.eventTimers, path)
	}
	w.debounceMu.Unlock()

	if !exists {
		return
	}

	select {
	case <-w.done:
	case w.events <- event:
	default:
		slog.Warn("file watcher channel full, dropping event", "path", path)
	}
}
