package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config file when it changes on disk and hands the new
// Config to onChange. Flag overrides are not re-applied on reload.
type Watcher struct {
	path     string
	base     Config
	debounce time.Duration
	onChange func(Config)
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
}

func NewWatcher(path string, base Config, debounce time.Duration, onChange func(Config), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	// Watch the directory: editors replace the file rather than write it.
	if err := fw.Add(filepath.Dir(absPath)); err != nil {
		fw.Close() //nolint:errcheck
		return nil, fmt.Errorf("watch config directory %s: %w", filepath.Dir(absPath), err)
	}
	return &Watcher{
		path:     absPath,
		base:     base,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		watcher:  fw,
	}, nil
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close() //nolint:errcheck

	name := filepath.Base(w.path)
	var (
		debounce *time.Timer
		fire     <-chan time.Time
	)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("config file changed", "path", event.Name, "op", event.Op.String())
			if debounce == nil {
				debounce = time.NewTimer(w.debounce)
			} else {
				debounce.Reset(w.debounce)
			}
			fire = debounce.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		case <-fire:
			fire = nil
			cfg, err := Load(w.path, w.base)
			if err != nil {
				w.logger.Warn("reload config", "path", w.path, "error", err)
				continue
			}
			w.logger.Info("config reloaded", "path", w.path)
			w.onChange(cfg)
		}
	}
}
