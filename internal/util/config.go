// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

package util

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds jshell configuration settings.
type Config struct {
	// Home is the directory with the bundled scripts (init.js and
	// friends). Empty means <datadir>/scripts.
	Home string `yaml:"home" description:"Bundled scripts directory"`

	// HistoryFile is the readline history location. Empty means
	// <datadir>/history.
	HistoryFile string `yaml:"history_file" description:"REPL history file"`

	// Autoload enables the script-directory watcher that reloads
	// modules when their files change.
	Autoload bool `yaml:"autoload" description:"Reload modules when script files change" default:"true"`

	// Options is the default plugin options string ("when;path") used
	// when -opt is not given.
	Options string `yaml:"options" description:"Default plugin options (when;path)"`
}

// DefaultConfig returns the default configuration for runtime use.
func DefaultConfig() Config {
	return Config{Autoload: true}
}

// DefaultDataDir is the default data directory for jshell.
const DefaultDataDir = "~/.jshell"

// GetDataDir returns the jshell data directory.
// Resolution order: -d flag > JSHELL_DATA env var > ~/.jshell
func GetDataDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("JSHELL_DATA"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDataDir
	}
	return filepath.Join(home, ".jshell")
}

// GetConfigPath returns the path of the configuration file in dataDir.
func GetConfigPath(dataDir string) string {
	if dataDir == "" {
		return ""
	}
	return filepath.Join(dataDir, "config.yaml")
}

// LoadConfig loads configuration from config.yaml in the data directory.
// A missing file yields the defaults; relative paths are resolved against
// the data directory.
func LoadConfig(dataDir string) (Config, error) {
	config, err := LoadConfigFromPath(GetConfigPath(dataDir))
	if err != nil {
		return config, err
	}
	if config.Home == "" {
		config.Home = filepath.Join(dataDir, "scripts")
	} else if !filepath.IsAbs(config.Home) {
		config.Home = filepath.Join(dataDir, config.Home)
	}
	if config.HistoryFile == "" {
		config.HistoryFile = filepath.Join(dataDir, "history")
	} else if !filepath.IsAbs(config.HistoryFile) {
		config.HistoryFile = filepath.Join(dataDir, config.HistoryFile)
	}
	return config, nil
}

// LoadConfigFromPath loads configuration from the specified path. An empty
// path or a missing file returns the defaults.
func LoadConfigFromPath(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		_, _ = fmt.Fprintf(os.Stderr, "Warning: Failed to read config file: %v\n", err)
		return DefaultConfig(), nil
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}
