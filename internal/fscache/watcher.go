// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fscache

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher opportunistically invalidates Cache entries when fsnotify
// reports a change made outside this process (an editor save, a git
// checkout, another tool). This is a best-effort layer on top of the
// mandatory explicit-invalidate contract in Atomic FS Ops — it narrows
// the staleness window but is never the sole source of truth, since
// fsnotify can coalesce or drop events under heavy write load.
type Watcher struct {
	cache   *Cache
	fsw     *fsnotify.Watcher
	logger  *slog.Logger
	done    chan struct{}
}

// NewWatcher creates a Watcher bound to cache. Call Watch to start
// watching directories and Close to stop.
func NewWatcher(cache *Cache, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{cache: cache, fsw: fsw, logger: logger, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

// Watch adds dir to the set of watched directories. Non-recursive —
// callers watching a tree should call this for every directory they care
// about (the Graph Builder does this during its initial walk).
func (w *Watcher) Watch(dir string) error {
	return w.fsw.Add(dir)
}

// Close stops the watcher and releases its underlying file descriptors.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.cache.Invalidate(event.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("fscache watcher error", "error", err)
		}
	}
}
