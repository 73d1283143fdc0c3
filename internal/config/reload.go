// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ManuGH/drmcore/internal/log"
)

// Watcher hot-reloads /opt/aamp.cfg or /opt/aampcfg.json into the OPERATOR
// layer on change using fsnotify, layered on top of the one-shot
// LoadFromText/LoadFromJson entry points.
type Watcher struct {
	store    *Store
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

// NewWatcher builds a Watcher for path (the 'directory is watched, not the
// file itself, to survive editors that replace-via-rename'). path may be
// empty, in which case Start is a no-op.
func NewWatcher(store *Store, path string) *Watcher {
	return &Watcher{store: store, path: path, debounce: 500 * time.Millisecond}
}

// Start begins watching the config file's directory. It returns
// immediately; reload happens on a background goroutine until ctx is
// canceled.
func (w *Watcher) Start(ctx context.Context) error {
	logger := log.WithComponent("config")
	if w.path == "" {
		logger.Info().Msg("config.watcher_disabled")
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = fw

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return err
	}

	logger.Info().Str("path", w.path).Msg("config.watcher_started")
	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	logger := log.WithComponent("config")
	base := filepath.Base(w.path)
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			_ = w.watcher.Close()
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.Reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn().Err(err).Msg("config.watcher_error")
		}
	}
}

// Reload reads w.path once and applies it at the OPERATOR layer. Parse
// failures are logged and otherwise ignored; a malformed config file is
// never fatal.
func (w *Watcher) Reload() {
	logger := log.WithComponent("config")
	data, err := os.ReadFile(w.path)
	if err != nil {
		logger.Warn().Err(err).Str("path", w.path).Msg("config.reload_read_failed")
		return
	}

	if strings.HasSuffix(w.path, ".json") {
		LoadFromJson(w.store, data, Operator)
	} else {
		LoadFromText(w.store, string(data), Operator)
	}
	logger.Info().Str("path", w.path).Msg("config.reloaded")
}
