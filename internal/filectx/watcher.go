// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package filectx

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must be quiet before it is reloaded.
const DefaultDebounce = 200 * time.Millisecond

// Change describes what a reload did to an attached file.
type Change struct {
	Name    string
	Path    string
	Removed bool
	Err     error
}

// =============================================================================
// WATCHER
// =============================================================================

// Watcher reloads attached files when they change on disk. It watches the
// parent directory of each tracked file so editors that save by renaming a
// temp file over the original are still seen.
type Watcher struct {
	agg      *Aggregator
	fs       *fsnotify.Watcher
	debounce time.Duration
	onChange func(Change)

	mu      sync.Mutex
	dirs    map[string]bool
	pending map[string]time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   sync.WaitGroup
}

// NewWatcher creates a watcher for agg. onChange is called from the
// watcher's goroutine after each reload.
func NewWatcher(agg *Aggregator, onChange func(Change)) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		agg:      agg,
		fs:       fs,
		debounce: DefaultDebounce,
		onChange: onChange,
		dirs:     make(map[string]bool),
		pending:  make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}
	w.done.Add(2)
	go w.processEvents()
	go w.processPending()
	return w, nil
}

// Track starts watching the directory containing path.
func (w *Watcher) Track(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dirs[dir] {
		return nil
	}
	if err := w.fs.Add(dir); err != nil {
		return err
	}
	w.dirs[dir] = true
	return nil
}

// Close stops the watcher and waits for its goroutines.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.fs.Close()
	w.done.Wait()
	return err
}

func (w *Watcher) processEvents() {
	defer w.done.Done()
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			path := filepath.Clean(event.Name)
			if _, attached := w.agg.hasPath(path); !attached {
				continue
			}
			w.mu.Lock()
			w.pending[path] = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("FILE_WATCH_ERROR | error=%v", err)
		}
	}
}

// processPending reloads files that have been quiet for the debounce period.
func (w *Watcher) processPending() {
	defer w.done.Done()
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case now := <-ticker.C:
			w.mu.Lock()
			var ready []string
			for path, at := range w.pending {
				if now.Sub(at) >= w.debounce {
					ready = append(ready, path)
					delete(w.pending, path)
				}
			}
			w.mu.Unlock()

			for _, path := range ready {
				change, ok := w.agg.Reload(path)
				if !ok {
					continue
				}
				log.Printf("FILE_RELOADED | name=%s removed=%t error=%v", change.Name, change.Removed, change.Err)
				if w.onChange != nil {
					w.onChange(change)
				}
			}
		}
	}
}
