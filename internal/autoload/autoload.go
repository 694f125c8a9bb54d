// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

// Package autoload watches script directories and drops stale entries from
// the module cache, so an edited script is re-read on its next import.
package autoload

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/relic-re/jsbridge/internal/hostapi"
	"github.com/relic-re/jsbridge/internal/util"
)

// Debounce delay before invalidating, so editors that write in several
// steps trigger one reload.
const debounceDelay = 500 * time.Millisecond

// Watch invalidates cached modules when .js files under dirs change. It
// returns after the watcher is installed; watching stops when ctx is
// canceled.
func Watch(ctx context.Context, dirs []string, inv hostapi.Invalidator) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	go func() {
		defer func() { _ = watcher.Close() }()

		var mu sync.Mutex
		pending := map[string]struct{}{}
		var debounce *time.Timer

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(event.Name, ".js") {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				mu.Lock()
				pending[event.Name] = struct{}{}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceDelay, func() {
					mu.Lock()
					paths := pending
					pending = map[string]struct{}{}
					mu.Unlock()
					for p := range paths {
						util.Debug("script changed, invalidating", "path", p)
						inv.Invalidate(p)
					}
				})
				mu.Unlock()

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				util.Logger.Warn("file watcher error", "err", err)
			}
		}
	}()

	return nil
}
