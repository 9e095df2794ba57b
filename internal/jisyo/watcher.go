package jisyo

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Source describes a system dictionary file and the system layer it fills.
type Source struct {
	Path     string
	Encoding Encoding
	Index    int
}

// LoadSources loads every source into a layer list ordered by Index.
func LoadSources(sources []Source) ([]Layer, error) {
	layers := make([]Layer, len(sources))
	for _, src := range sources {
		if src.Index < 0 || src.Index >= len(sources) {
			return nil, fmt.Errorf("jisyo: source %s has index %d out of range", src.Path, src.Index)
		}
		l, err := LoadFile(src.Path, src.Encoding)
		if err != nil {
			return nil, err
		}
		layers[src.Index] = l
	}
	return layers, nil
}

// Reload reports a system layer that was swapped in.
type Reload struct {
	Path    string
	Index   int
	Entries int
	Time    time.Time
}

// Watcher reloads system dictionaries when their files change.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	dict      *Dictionary
	sources   map[string]Source
	interval  time.Duration
	logger    *slog.Logger

	// path -> time of the last write event
	pending   map[string]time.Time
	pendingMu sync.Mutex

	reloads chan Reload
	errors  chan error

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher creates a watcher for sources feeding dict. Changes are applied
// once a file has been quiet for interval.
func NewWatcher(dict *Dictionary, sources []Source, interval time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		dict:      dict,
		sources:   make(map[string]Source, len(sources)),
		interval:  interval,
		logger:    logger,
		pending:   make(map[string]time.Time),
		reloads:   make(chan Reload, 16),
		errors:    make(chan error, 10),
		done:      make(chan struct{}),
	}
	for _, src := range sources {
		abs, err := filepath.Abs(src.Path)
		if err != nil {
			fsWatcher.Close()
			return nil, err
		}
		src.Path = abs
		w.sources[abs] = src
	}
	return w, nil
}

// Reloads returns the channel of applied reloads.
func (w *Watcher) Reloads() <-chan Reload {
	return w.reloads
}

// Errors returns the channel of load and watch errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Start watches the directories holding the sources. Editors often replace
// files by rename, so the directory is watched rather than the file.
func (w *Watcher) Start() error {
	dirs := make(map[string]struct{})
	for path := range w.sources {
		dirs[filepath.Dir(path)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.fsWatcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.debounceLoop()
	return nil
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() error {
	close(w.done)
	w.wg.Wait()
	close(w.reloads)
	close(w.errors)
	return w.fsWatcher.Close()
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if _, watched := w.sources[filepath.Clean(event.Name)]; !watched {
				continue
			}
			w.pendingMu.Lock()
			w.pending[filepath.Clean(event.Name)] = time.Now()
			w.pendingMu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		}
	}
}

func (w *Watcher) debounceLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case now := <-ticker.C:
			w.reloadStable(now)
		}
	}
}

// reloadStable applies every file that has not changed for the interval.
func (w *Watcher) reloadStable(now time.Time) {
	threshold := now.Add(-w.interval)

	var ready []string
	w.pendingMu.Lock()
	for path, last := range w.pending {
		if last.Before(threshold) {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.pendingMu.Unlock()

	for _, path := range ready {
		src := w.sources[path]
		layer, err := LoadFile(path, src.Encoding)
		if err != nil {
			w.sendError(err)
			continue
		}
		if err := w.dict.ReplaceSystem(src.Index, layer); err != nil {
			w.sendError(err)
			continue
		}
		w.logger.Info("system dictionary reloaded", "path", path, "entries", layer.Len())

		select {
		case w.reloads <- Reload{Path: path, Index: src.Index, Entries: layer.Len(), Time: now}:
		default:
		}
	}
}

func (w *Watcher) sendError(err error) {
	w.logger.Warn("dictionary watcher", "error", err)
	select {
	case w.errors <- err:
	default:
	}
}
