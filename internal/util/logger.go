// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

// Package util holds small shared helpers: the global logger and path
// utilities used across the plugin.
package util

import (
	"log/slog"
	"os"
)

var Logger = slog.Default()

// InitLogger initializes the global logger with appropriate log level.
// Set JSBRIDGE_DEBUG=1 environment variable to enable debug logging.
func InitLogger() {
	level := slog.LevelInfo // Default: only show Info, Warn, Error

	// Check for debug mode
	if os.Getenv("JSBRIDGE_DEBUG") != "" {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		// Remove timestamp for cleaner console output
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})

	Logger = slog.New(handler)
}

// Debug logs a debug message (only shown when JSBRIDGE_DEBUG is set)
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}
