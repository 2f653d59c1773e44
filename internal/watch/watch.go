// Package watch notices search shard scripts appearing or changing in a docs
// directory and hands their labels to live sessions.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before it is offered.
// Doxygen writes shards in several chunks.
const DefaultDebounce = 250 * time.Millisecond

// Config configures a Watcher.
type Config struct {
	// Dir is the docs directory.
	Dir string
	// IsShard reports whether a slash-separated path relative to Dir is a
	// search shard.
	IsShard func(rel string) bool
	// Offer receives the relative path of each settled shard.
	Offer    func(rel string)
	Debounce time.Duration
	Logger   *log.Logger
}

// Watcher watches a docs directory tree with fsnotify.
type Watcher struct {
	cfg     Config
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]time.Time
}

// New creates a watcher over cfg.Dir and all its subdirectories.
func New(cfg Config) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w := &Watcher{cfg: cfg, watcher: fw, pending: make(map[string]time.Time)}
	if err := w.addRecursive(cfg.Dir); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("watching %s: %w", dir, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			w.cfg.Logger.Printf("docnav: watch %s: %v", path, err)
		}
		return nil
	})
}

// Run processes events until ctx is cancelled, then releases the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	tick := time.NewTicker(w.cfg.Debounce / 2)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ev)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.cfg.Logger.Printf("docnav: watcher: %v", err)

		case now := <-tick.C:
			w.flush(now)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(ev.Name)
			return
		}
	}
	rel, err := filepath.Rel(w.cfg.Dir, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if w.cfg.IsShard != nil && !w.cfg.IsShard(rel) {
		return
	}
	w.mu.Lock()
	w.pending[rel] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flush(now time.Time) {
	w.mu.Lock()
	var ready []string
	for rel, changed := range w.pending {
		if now.Sub(changed) >= w.cfg.Debounce {
			ready = append(ready, rel)
			delete(w.pending, rel)
		}
	}
	w.mu.Unlock()

	for _, rel := range ready {
		w.cfg.Offer(rel)
	}
}
