package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
)

// debounceDelay gives editors and atomic-rename writers time to finish
// before the file is re-read.
const debounceDelay = 100 * time.Millisecond

// Watcher reloads the configuration file when it changes on disk and hands
// the freshly loaded view to the registered callback. The watch goroutine is
// owned by the context passed to Start.
type Watcher struct {
	logger   hclog.Logger
	loader   Loader
	path     string
	onReload func(Modifier)
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a watcher for the config file at path.
// onReload is invoked with the newly loaded config after every successful reload.
func NewWatcher(logger hclog.Logger, loader Loader, path string, onReload func(Modifier)) (*Watcher, error) {
	if onReload == nil {
		return nil, fmt.Errorf("reload callback cannot be nil")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		logger:   logger.Named("config-watcher"),
		loader:   loader,
		path:     path,
		onReload: onReload,
		watcher:  fsw,
	}, nil
}

// Start begins watching and blocks until the context is canceled.
func (w *Watcher) Start(ctx context.Context) error {
	// Watch the parent directory: editors and 'mv' based writers replace the
	// file rather than writing it in place.
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch config directory '%s': %w", dir, err)
	}
	defer func() {
		_ = w.watcher.Close()
	}()

	w.logger.Info("Watching config file for changes", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopping config watcher")
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			time.Sleep(debounceDelay)
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := w.loader.Load(w.path)
	if err != nil {
		w.logger.Error("Ignoring config change, reload failed", "path", w.path, "error", err)
		return
	}

	w.logger.Info("Reloaded config file", "path", w.path, "servers", len(cfg.ListServers()))
	w.onReload(cfg)
}
