package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 100 * time.Millisecond

// Watcher reloads a config file when it changes on disk. Invalid edits are
// reported on Errors and leave the last good config in place.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	current *Config

	changes chan *Config
	errs    chan error
	done    chan struct{}
	once    sync.Once
}

// Watch starts watching path. The directory is watched rather than the file
// so editors that replace the file on save are still seen.
func Watch(path string, current *Config) (*Watcher, error) {
	if path == "" {
		path = Path()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch directory: %w", err)
	}

	w := &Watcher{
		path:    path,
		watcher: fw,
		current: current,
		changes: make(chan *Config, 1),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Changes delivers each successfully reloaded config. Only the newest
// pending config is kept.
func (w *Watcher) Changes() <-chan *Config { return w.changes }

// Errors delivers reload failures.
func (w *Watcher) Errors() <-chan error { return w.errs }

// Current returns the last good config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Close stops watching.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) loop() {
	var debounce *time.Timer
	for {
		select {
		case <-w.done:
			if debounce != nil {
				debounce.Stop()
			}
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != filepath.Base(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.report(err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.report(fmt.Errorf("reload config: %w", err))
		return
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	for {
		select {
		case w.changes <- cfg:
			return
		case <-w.done:
			return
		default:
		}
		// Drop the stale pending config so the newest wins.
		select {
		case <-w.changes:
		default:
		}
	}
}

func (w *Watcher) report(err error) {
	select {
	case w.errs <- err:
	default:
	}
}
