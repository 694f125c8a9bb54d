// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

// Package lifecycle drives the bridge through its states: startup against
// the host, steady-state event delivery, teardown, and crash recovery.
package lifecycle

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/relic-re/jsbridge/internal/bridge"
	"github.com/relic-re/jsbridge/internal/host"
	"github.com/relic-re/jsbridge/internal/hostapi"
	"github.com/relic-re/jsbridge/internal/interp"
	"github.com/relic-re/jsbridge/internal/util"
	"github.com/relic-re/jsbridge/internal/version"
	"github.com/relic-re/jsbridge/internal/watchdog"
)

// State of the manager.
type State int

const (
	StateUninitialized State = iota
	StateStarting
	StateReady
	StateTerminated
)

// Action selects what Run performs.
type Action int

const (
	ActRunStatement Action = iota
	ActEnableExtLang
	ActDisableExtLang
)

const (
	// PluginName keys plugin options and host-facing messages.
	PluginName = "jsbridge"

	// ConfigFile is the bridge configuration file, looked up in the
	// bridge home directory.
	ConfigFile = "jsbridge.cfg"

	// MenuPath is where the statement dialog is reachable from.
	MenuPath = "File/JS command..."

	historyKey = "jsbridge.statement"
)

// Bundled script files that must be present in the home directory.
var requiredScripts = []string{"init.js", "hostapi.js", "hostutils.js"}

// runWhen selects when the script named in the plugin options runs.
type runWhen int

const (
	runNever     runWhen = -1
	runOnDBOpen  runWhen = 0 // after opening a database (default)
	runOnUIReady runWhen = 1
	runOnInit    runWhen = 2 // immediately after startup
)

// Config holds the jsbridge.cfg settings.
type Config struct {
	Timeout          int  // SCRIPT_TIMEOUT, seconds; 0 disables the watchdog
	AlertAutoScripts bool // ALERT_AUTO_SCRIPTS
	RemoveCwdSysPath bool // REMOVE_CWD_SYS_PATH
	UseLocalRuntime  bool // USE_LOCAL_RUNTIME
}

func defaultConfig() Config {
	return Config{
		Timeout:          watchdog.DefaultTimeout,
		AlertAutoScripts: true,
	}
}

// RuntimeFactory builds the interpreter instance. Swapped for a fake in
// tests.
type RuntimeFactory func(searchPath []string, output func(string)) (interp.Runtime, error)

// Manager owns the whole bridge subsystem on behalf of the host.
type Manager struct {
	host       host.Host
	home       string
	newRuntime RuntimeFactory

	state State
	cfg   Config

	rt   interp.Runtime
	wd   *watchdog.Watchdog
	api  *hostapi.API
	lang *bridge.Lang
	cli  *bridge.CLI

	langInstalled bool
	cliInstalled  bool
	funcDone      bool
	menuDone      bool

	runWhen   runWhen
	runScript string

	uiReadyFired bool
	dbOpenFired  bool
}

// New returns an unstarted manager. home is the directory holding the
// bundled scripts and configuration.
func New(h host.Host, home string, factory RuntimeFactory) *Manager {
	return &Manager{
		host:       h,
		home:       home,
		newRuntime: factory,
		cfg:        defaultConfig(),
		runWhen:    runNever,
	}
}

func (m *Manager) State() State { return m.state }

// Config returns the settings in effect after Init.
func (m *Manager) Config() Config { return m.cfg }

// Init brings the subsystem up. Any failure tears down whatever was built
// and leaves the manager uninitialized; the host keeps running without
// scripting support.
func (m *Manager) Init() error {
	if m.state == StateReady {
		return nil
	}
	m.state = StateStarting
	if err := m.initSteps(); err != nil {
		m.teardown()
		m.state = StateUninitialized
		return err
	}
	m.state = StateReady
	m.api.Notify(host.EventInit)
	return nil
}

func (m *Manager) initSteps() error {
	if err := m.checkScriptFiles(); err != nil {
		return err
	}

	m.cfg = defaultConfig()
	if err := host.ReadConfigFile(filepath.Join(m.home, ConfigFile), m.setOption); err != nil {
		return err
	}

	if m.cfg.AlertAutoScripts {
		if name := findAutoScript(); name != "" {
			keep := m.host.AskYN(false,
				"The script '%s' was found in the current directory and will be "+
					"automatically executed by the bridge.\n\n"+
					"Do you want to continue loading %s?", name, PluginName)
			if !keep {
				return fmt.Errorf("startup aborted: auto-run script %q in current directory", name)
			}
		}
	}

	rt, err := m.newRuntime([]string{m.home}, func(s string) { m.host.Msg("%s", s) })
	if err != nil {
		m.host.Warning("%s: interpreter startup failed: %v", PluginName, err)
		return err
	}
	m.rt = rt

	m.sanitizePath()

	if !m.cfg.UseLocalRuntime {
		if err := m.rt.InitPrelude(); err != nil {
			m.host.Warning("%s: importing \"prelude\" failed", PluginName)
			return err
		}
	}
	if err := m.rt.InitReentry(); err != nil {
		return err
	}

	inv, _ := m.rt.(hostapi.Invalidator)
	m.api = hostapi.NewAPI(m.rt, m.host, inv)
	m.api.SetOutput(func(s string) { m.host.Msg("%s", s) })
	if err := m.api.RegisterAll(); err != nil {
		m.host.Warning("%s: helper module registration failed: %v", PluginName, err)
		return err
	}

	decl := version.Descriptor() + "\n" +
		"var JSBRIDGE_REMOVE_CWD_SYS_PATH = " + strconv.FormatBool(m.cfg.RemoveCwdSysPath) + ";\n" +
		"var JSBRIDGE_HOME = " + strconv.Quote(filepath.ToSlash(m.home)) + ";\n"
	if err := m.rt.ExecStmts(decl); err != nil {
		m.rt.ClearError()
		return err
	}

	m.wd = watchdog.New(m.rt, m.host)
	m.wd.SetTimeout(m.cfg.Timeout)

	// Install the language before running init.js so the bootstrap can
	// already toggle it.
	m.lang = bridge.NewLang(m.rt, m.wd)
	if err := m.host.InstallExtLang(m.lang); err != nil {
		return err
	}
	m.langInstalled = true

	if err := m.rt.RunFile(filepath.Join(m.home, "init.js")); err != nil {
		// Fetch the one-line error before the traceback dump clears it.
		e, _ := m.rt.PendingError(false)
		msg := ""
		if e != nil {
			msg = e.Msg
		}
		m.rt.PrintError()
		m.host.Warning("%s: error executing init.js:\n%s\n\n"+
			"Refer to the output window to see the full error log.", PluginName, msg)
		return err
	}

	m.parsePluginOptions(m.host.PluginOptions(PluginName))

	if err := m.host.RegisterFunc("RunJSStatement", m.runStatementFunc); err != nil {
		return err
	}
	m.funcDone = true

	if m.runWhen == runOnInit {
		m.runScriptFile(m.runScript)
	}

	if err := m.host.AddMenuItem(MenuPath, m.RunStatementUI); err != nil {
		return err
	}
	m.menuDone = true

	m.cli = bridge.NewCLI(m.rt, m.wd, m.host)
	if err := m.host.InstallCLI(m.cli); err != nil {
		return err
	}
	m.cliInstalled = true

	util.Debug("bridge initialized", "home", m.home, "timeout", m.cfg.Timeout)
	return nil
}

// Term shuts everything down in reverse order. Safe to call repeatedly, or
// after a failed Init.
func (m *Manager) Term() {
	if m.state == StateUninitialized || m.state == StateTerminated {
		return
	}
	if m.api != nil {
		m.api.Notify(host.EventTerm)
	}
	m.teardown()
	m.state = StateTerminated
}

func (m *Manager) teardown() {
	if m.menuDone {
		m.host.DelMenuItem(MenuPath)
		m.menuDone = false
	}
	if m.cliInstalled {
		m.host.RemoveCLI(m.cli)
		m.cliInstalled = false
	}
	if m.langInstalled {
		m.host.RemoveExtLang(m.lang)
		m.langInstalled = false
	}
	if m.funcDone {
		m.host.UnregisterFunc("RunJSStatement")
		m.funcDone = false
	}
	if m.wd != nil {
		m.wd.End()
		m.wd = nil
	}
	if m.api != nil {
		m.api.Close()
		m.api = nil
	}
	if m.rt != nil {
		m.rt.Close()
		m.rt = nil
	}
	m.cli = nil
	m.lang = nil
	m.uiReadyFired = false
	m.dbOpenFired = false
}

// Run dispatches a host invocation. A panic escaping the interpreter
// restarts the whole subsystem.
func (m *Manager) Run(arg Action) {
	defer func() {
		if r := recover(); r != nil {
			m.host.Warning("Exception in interpreter: %v. Reloading...", r)
			m.Term()
			m.state = StateUninitialized
			if err := m.Init(); err != nil {
				m.host.Warning("%s: reload failed: %v", PluginName, err)
			}
		}
	}()
	if m.state != StateReady {
		return
	}
	switch arg {
	case ActRunStatement:
		m.RunStatementUI()
	case ActEnableExtLang:
		if !m.langInstalled {
			if err := m.host.InstallExtLang(m.lang); err == nil {
				m.langInstalled = true
			}
		}
	case ActDisableExtLang:
		if m.langInstalled {
			m.host.RemoveExtLang(m.lang)
			m.langInstalled = false
		}
	default:
		m.host.Warning("%s: unknown plugin argument %d", PluginName, int(arg))
	}
}

// OnUIReady is called once by the host when the UI is usable: watchdog
// indicator arms, the banner prints, and a ui-ready autorun script fires.
func (m *Manager) OnUIReady() {
	if m.state != StateReady || m.uiReadyFired {
		return
	}
	m.uiReadyFired = true
	m.wd.SetUIReady(true)
	if err := m.rt.ExecStmts("printBanner();"); err != nil {
		m.rt.ClearError()
	}
	if m.runWhen == runOnUIReady {
		m.runScriptFile(m.runScript)
	}
	m.api.Notify(host.EventUIReady)
}

// OnDatabaseOpened publishes the session's script arguments and fires a
// db-open autorun script, once per manager lifetime.
func (m *Manager) OnDatabaseOpened() {
	if m.state != StateReady {
		return
	}
	if err := m.api.PublishArgs(m.host.ScriptArgs()); err != nil {
		m.rt.ClearError()
	}
	if !m.dbOpenFired {
		m.dbOpenFired = true
		if m.runWhen == runOnDBOpen {
			m.runScriptFile(m.runScript)
		}
	}
	m.api.Notify(host.EventDatabaseOpened)
}

// RunStatementUI asks the user for statements, runs them under the
// watchdog, and persists them as the next invocation's seed.
func (m *Manager) RunStatementUI() {
	if m.state != StateReady {
		return
	}
	initial := string(m.host.LoadBlob(historyKey))
	text, ok := m.host.AskText("ACCEPT TABS\nEnter JavaScript expressions", initial)
	if !ok {
		return
	}
	m.wd.Begin()
	err := m.rt.ExecStmts(text)
	m.wd.End()
	if err != nil {
		m.rt.PrintError()
	}
	m.host.SaveBlob(historyKey, []byte(text))
}

// runStatementFunc backs the RunJSStatement host function: zero on
// success, the error text otherwise.
func (m *Manager) runStatementFunc(arg string, res *host.Value) {
	var eb host.ErrBuf
	if m.lang.RunStatements(arg, &eb) {
		res.SetLong(0)
	} else {
		res.SetString(eb.String())
	}
}

func (m *Manager) runScriptFile(path string) {
	if path == "" {
		return
	}
	var eb host.ErrBuf
	if !m.lang.CompileFile(path, &eb) {
		m.host.Warning("%s: error executing '%s':\n%s", PluginName, path, eb.String())
	}
}

func (m *Manager) checkScriptFiles() error {
	for _, name := range requiredScripts {
		p := filepath.Join(m.home, name)
		if fi, err := os.Stat(p); err != nil || fi.IsDir() {
			m.host.Warning("%s: missing required file: '%s'", PluginName, name)
			return fmt.Errorf("missing required file %q", name)
		}
	}
	return nil
}

func (m *Manager) setOption(key, value string) error {
	switch key {
	case "SCRIPT_TIMEOUT":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("SCRIPT_TIMEOUT: bad value %q", value)
		}
		m.cfg.Timeout = n
	case "ALERT_AUTO_SCRIPTS":
		b, err := host.ParseBool(value)
		if err != nil {
			return err
		}
		m.cfg.AlertAutoScripts = b
	case "REMOVE_CWD_SYS_PATH":
		b, err := host.ParseBool(value)
		if err != nil {
			return err
		}
		m.cfg.RemoveCwdSysPath = b
	case "USE_LOCAL_RUNTIME":
		b, err := host.ParseBool(value)
		if err != nil {
			return err
		}
		m.cfg.UseLocalRuntime = b
	default:
		return host.ErrBadKey
	}
	return nil
}

// parsePluginOptions interprets "when;path". A bare path means run after
// the database opens.
func (m *Manager) parsePluginOptions(options string) {
	if options == "" {
		return
	}
	for i := 0; i < len(options); i++ {
		if options[i] == ';' {
			n, err := strconv.Atoi(options[:i])
			if err != nil {
				n = int(runOnDBOpen)
			}
			m.runWhen = runWhen(n)
			m.runScript = options[i+1:]
			return
		}
	}
	m.runWhen = runOnDBOpen
	m.runScript = options
}

// sanitizePath drops empty entries from the module search path, and the
// current directory when configured to.
func (m *Manager) sanitizePath() {
	cwd, _ := os.Getwd()
	var clean []string
	for _, d := range m.rt.SearchPath() {
		if d == "" {
			continue
		}
		if m.cfg.RemoveCwdSysPath && (d == "." || (cwd != "" && d == cwd)) {
			continue
		}
		clean = append(clean, d)
	}
	m.rt.SetSearchPath(clean)
}

// findAutoScript reports a script in the current directory that the
// bridge would pick up and run without being asked to.
func findAutoScript() string {
	for _, name := range []string{"init.js", "prelude.js", "hostapi.js"} {
		if fi, err := os.Stat(name); err == nil && !fi.IsDir() {
			return name
		}
	}
	return ""
}
