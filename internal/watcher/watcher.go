package watcher

import (
	"context"
	"errors"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before an event
// is emitted.
const DefaultDebounce = 2 * time.Second

// Event is a settled change to the watched target.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Watcher monitors a single file for changes using OS-level notifications.
// It watches the file's parent directory so the target may be created or
// replaced after the watcher starts.
type Watcher struct {
	fsw      *fsnotify.Watcher
	path     string
	base     string
	debounce time.Duration
	events   chan Event
	logger   *log.Logger
}

// New creates a Watcher for path. debounce <= 0 uses DefaultDebounce.
func New(path string, debounce time.Duration, logger *log.Logger) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("watcher: empty target path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[watcher] ", log.LstdFlags)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		fsw:      fsw,
		path:     abs,
		base:     filepath.Base(abs),
		debounce: debounce,
		events:   make(chan Event, 1),
		logger:   logger,
	}, nil
}

// Path returns the absolute path of the watched target.
func (w *Watcher) Path() string {
	return w.path
}

// Events returns the channel of settled change notifications. It holds at
// most one pending event and is closed when Start returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start begins listening for file events. It blocks until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	defer w.fsw.Close()
	defer close(w.events)

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending Event
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != w.base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					w.logger.Printf("target %s: %s", w.path, ev.Op)
				}
				continue
			}
			pending = Event{Path: w.path, Op: pending.Op | ev.Op}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.emit(pending)
			pending = Event{}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Printf("watcher error: %v", err)
		}
	}
}

// emit hands ev to the consumer. If a notification is already waiting, the
// new one is folded into it.
func (w *Watcher) emit(ev Event) {
	select {
	case w.events <- ev:
	default:
	}
}
