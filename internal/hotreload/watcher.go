// Package hotreload watches the persona directory and triggers a registry
// reload when definition files change. It is opt-in: the registry itself
// never refreshes without an explicit Reload call, and this watcher is just
// another caller of that API.
package hotreload

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rosterlabs/roster/internal/eventbus"
	"github.com/rosterlabs/roster/internal/registry"
)

// Watcher triggers registry reloads on persona file changes.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	registry *registry.Registry
	bus      *eventbus.EventBus
	dir      string
	debounce time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewWatcher creates a watcher over dir. The debounce window absorbs
// editor save bursts so one logical change triggers one reload.
func NewWatcher(dir string, reg *registry.Registry, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	return &Watcher{
		watcher:  fsw,
		registry: reg,
		dir:      dir,
		debounce: debounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// SetEventBus attaches the event bus used to announce triggered reloads.
func (w *Watcher) SetEventBus(bus *eventbus.EventBus) {
	w.bus = bus
}

// Start begins watching. Non-blocking; the watcher runs in a goroutine
// until Stop is called or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}
	log.Printf("[HotReload] Watching %s", w.dir)

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the run loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			// Restart the debounce window on every relevant event.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[HotReload] Watch error: %v", err)
		case <-timerCh:
			timerCh = nil
			timer = nil
			w.triggerReload(ctx)
		}
	}
}

func (w *Watcher) triggerReload(ctx context.Context) {
	log.Printf("[HotReload] Persona files changed, reloading catalog")
	if w.bus != nil {
		w.bus.Publish(eventbus.EventTypeHotReloadTrigger, "hotreload", map[string]interface{}{
			"dir": w.dir,
		})
	}

	if err := w.registry.Reload(ctx); err != nil {
		// The registry keeps serving the old catalog on failure.
		log.Printf("[HotReload] Reload failed: %v", err)
	}
}

// relevant reports whether the fsnotify event concerns a persona file.
func relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return strings.HasSuffix(name, ".md")
}
