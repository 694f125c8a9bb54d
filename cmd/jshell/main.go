// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

package main

import (
	"context"
	"embed"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/relic-re/jsbridge/internal/autoload"
	"github.com/relic-re/jsbridge/internal/gojart"
	"github.com/relic-re/jsbridge/internal/interp"
	"github.com/relic-re/jsbridge/internal/lifecycle"
	"github.com/relic-re/jsbridge/internal/util"
	"github.com/relic-re/jsbridge/internal/version"
)

//go:embed scripts/*.js
var bundledScripts embed.FS

func main() {
	// Define all flags upfront before parsing
	printVersion := flag.Bool("version", false, "Print version and exit")
	dataDir := flag.String("d", "", "Data directory (default: ~/.jshell or JSHELL_DATA)")
	scriptFile := flag.String("script", "", "Execute script file after startup and exit")
	expr := flag.String("e", "", "Execute JavaScript expression and exit")
	options := flag.String("opt", "", "Plugin options string (when;path)")
	flag.Parse()

	if *printVersion {
		fmt.Printf("jshell %s\n", version.String())
		os.Exit(0)
	}

	resolvedDataDir := util.GetDataDir(*dataDir)

	// Initialize logger (supports JSBRIDGE_DEBUG environment variable)
	util.InitLogger()

	config, err := util.LoadConfig(resolvedDataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := installBundledScripts(config.Home); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Cannot install bundled scripts: %v\n", err)
		os.Exit(1)
	}

	opts := *options
	if opts == "" {
		opts = config.Options
	}
	if *scriptFile != "" {
		// "2;" = run right after startup, before any UI events.
		opts = "2;" + *scriptFile
	}

	hostc := newConsoleHost(filepath.Join(resolvedDataDir, "blobs"), opts, flag.Args())

	var grt *gojart.Runtime
	factory := func(searchPath []string, output func(string)) (interp.Runtime, error) {
		rt, err := gojart.New(gojart.Options{SearchPath: searchPath, Output: output})
		if err != nil {
			return nil, err
		}
		grt = rt
		return rt, nil
	}

	mgr := lifecycle.New(hostc, config.Home, factory)
	if err := mgr.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Bridge startup failed: %v\n", err)
		os.Exit(1)
	}
	defer mgr.Term()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if config.Autoload && grt != nil {
		if err := autoload.Watch(ctx, []string{config.Home}, grt); err != nil {
			hostc.Warning("script watcher disabled: %v", err)
		}
	}

	// Ctrl-C requests cancellation of the running script; the watchdog
	// picks it up on its next check.
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	defer signal.Stop(sigc)
	go func() {
		for range sigc {
			hostc.interrupted.Store(true)
		}
	}()

	// The console session is both the UI and the database session.
	mgr.OnUIReady()
	mgr.OnDatabaseOpened()

	if *expr != "" {
		if cli := hostc.CurrentCLI(); cli != nil {
			cli.ExecuteLine(*expr)
		}
		return
	}
	if *scriptFile != "" {
		return
	}

	startREPL(hostc, mgr, config.HistoryFile)
}

// installBundledScripts materializes the embedded scripts into home,
// keeping any files the user has already customized.
func installBundledScripts(home string) error {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return err
	}
	entries, err := fs.ReadDir(bundledScripts, "scripts")
	if err != nil {
		return err
	}
	for _, e := range entries {
		dst := filepath.Join(home, e.Name())
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		data, err := bundledScripts.ReadFile("scripts/" + e.Name())
		if err != nil {
			return err
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
