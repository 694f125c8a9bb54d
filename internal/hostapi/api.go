// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

// Package hostapi registers the interpreter-side helper module. Scripts and
// the bridge reach host services through it: the reload-aware script loader
// (execScript), shell execution (execSystem), line completion
// (completeLine), introspection help, and host-event subscriptions
// (notifyWhen).
package hostapi

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/relic-re/jsbridge/internal/host"
	"github.com/relic-re/jsbridge/internal/interp"
	"github.com/relic-re/jsbridge/internal/util"
)

// ModuleName is the helper module's name in the interpreter.
const ModuleName = "hostapi"

// Event attribute values published on the module for notifyWhen.
const (
	nwInit    = 0
	nwTerm    = 1
	nwUIReady = 2
	nwDBOpen  = 3
)

// Invalidator drops a cached script module so the next load re-reads it.
// The goja runtime implements it; the fake runtime does not need to.
type Invalidator interface {
	Invalidate(path string)
}

// API owns the helper module and its Go-native functions.
type API struct {
	rt     interp.Runtime
	ui     host.UI
	inv    Invalidator
	mod    interp.Object
	output func(string)

	// notifyWhen subscriptions, per event code. Each entry holds one
	// reference to its callback.
	subs map[int64][]interp.Object
}

// NewAPI creates the helper layer for rt. inv may be nil when the runtime
// has no module cache.
func NewAPI(rt interp.Runtime, ui host.UI, inv Invalidator) *API {
	a := &API{
		rt:   rt,
		ui:   ui,
		inv:  inv,
		subs: map[int64][]interp.Object{},
	}
	a.output = func(s string) { ui.Msg("%s", s) }
	return a
}

// SetOutput redirects help/execSystem output. Must be set before use if the
// default console sink is not wanted.
func (a *API) SetOutput(fn func(string)) {
	if fn == nil {
		fn = func(string) {}
	}
	a.output = fn
}

// RegisterAll creates the helper module and installs every native function
// plus the notifyWhen event constants.
func (a *API) RegisterAll() error {
	mod, err := a.rt.AddModule(ModuleName)
	if err != nil {
		return fmt.Errorf("create %s module: %w", ModuleName, err)
	}
	a.mod = mod

	natives := map[string]interp.NativeFunc{
		"execScript":   a.execScript,
		"execSystem":   a.execSystem,
		"completeLine": a.completeLine,
		"help":         a.help,
		"notifyWhen":   a.notifyWhen,
	}
	for name, fn := range natives {
		o := a.rt.NewNative(name, fn)
		err := mod.SetAttr(name, o)
		o.DecRef()
		if err != nil {
			return fmt.Errorf("register %s.%s: %w", ModuleName, name, err)
		}
	}

	consts := map[string]int64{
		"NW_INIT":    nwInit,
		"NW_TERM":    nwTerm,
		"NW_UIREADY": nwUIReady,
		"NW_DBOPEN":  nwDBOpen,
	}
	for name, v := range consts {
		o := a.rt.NewInt(v)
		err := mod.SetAttr(name, o)
		o.DecRef()
		if err != nil {
			return fmt.Errorf("register %s.%s: %w", ModuleName, name, err)
		}
	}
	return nil
}

// Close releases the subscriptions and the module reference. Safe to call
// twice.
func (a *API) Close() {
	for ev, subs := range a.subs {
		for _, fn := range subs {
			fn.DecRef()
		}
		delete(a.subs, ev)
	}
	if a.mod != nil {
		a.mod.DecRef()
		a.mod = nil
	}
}

// PublishArgs exposes the host's script arguments as ARGV on the module.
func (a *API) PublishArgs(args []string) error {
	if a.mod == nil {
		return errors.New("hostapi not registered")
	}
	// ARGV is a joined string until the boundary grows a list kind; the
	// bundled hostutils script splits it.
	o := a.rt.NewString(strings.Join(args, "\x00"))
	err := a.mod.SetAttr("ARGV", o)
	o.DecRef()
	return err
}

// Notify dispatches a host event to every notifyWhen subscriber. Callback
// failures are reported and never propagate.
func (a *API) Notify(ev host.Event) {
	var code int64
	switch ev {
	case host.EventInit:
		code = nwInit
	case host.EventTerm:
		code = nwTerm
	case host.EventUIReady:
		code = nwUIReady
	case host.EventDatabaseOpened:
		code = nwDBOpen
	default:
		return
	}
	for _, fn := range a.subs[code] {
		res, err := fn.Call()
		if err != nil {
			a.rt.ClearError()
			a.ui.Warning("notifyWhen callback failed: %v", err)
			continue
		}
		res.DecRef()
	}
}

// execScript loads and runs a script file in the main namespace. It returns
// null on success or a one-line error string; an interruption propagates as
// an exception so the caller can tell the two apart.
func (a *API) execScript(args []interp.Object) (interp.Object, error) {
	if len(args) < 1 || args[0].Kind() != interp.KindString {
		return nil, errors.New("execScript(path) expects a string")
	}
	path := args[0].Str()
	if _, err := os.Stat(path); err != nil {
		return a.rt.NewString(fmt.Sprintf("cannot open %s", path)), nil
	}
	if a.inv != nil {
		// Force a re-read of anything previously loaded from this file.
		a.inv.Invalidate(path)
	}
	util.Debug("execScript", "path", path)
	if err := a.rt.RunFile(path); err != nil {
		var se *interp.ScriptError
		if errors.As(err, &se) && se.Interrupted {
			return nil, err
		}
		a.rt.ClearError()
		return a.rt.NewString(err.Error()), nil
	}
	return a.rt.None(), nil
}

// execSystem runs a shell command, streaming output to the configured sink,
// and returns the exit code.
func (a *API) execSystem(args []interp.Object) (interp.Object, error) {
	if len(args) < 1 || args[0].Kind() != interp.KindString {
		return nil, errors.New("execSystem(cmd) expects a string")
	}
	cmdStr := args[0].Str()
	if cmdStr == "" {
		return a.rt.NewInt(0), nil
	}

	cmd := exec.Command("sh", "-c", cmdStr)
	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		a.output(string(out))
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return a.rt.NewInt(int64(exitErr.ExitCode())), nil
		}
		return nil, fmt.Errorf("failed to execute command: %w", err)
	}
	return a.rt.NewInt(0), nil
}

// completeLine returns the n-th completion of prefix among the main
// namespace attributes and the helper module name, or null when exhausted.
func (a *API) completeLine(args []interp.Object) (interp.Object, error) {
	if len(args) < 4 || args[0].Kind() != interp.KindString || args[1].Kind() != interp.KindInt {
		return nil, errors.New("completeLine(prefix, n, line, x) expects (string, int, string, int)")
	}
	prefix := args[0].Str()
	n := int(args[1].Int())

	main, err := a.rt.Main()
	if err != nil {
		return nil, err
	}
	defer main.DecRef()

	names := append(main.Dir(), ModuleName)
	sort.Strings(names)

	var matches []string
	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			matches = append(matches, name)
		}
	}
	if len(matches) == 0 {
		return a.rt.None(), nil
	}
	return a.rt.NewString(matches[n%len(matches)]), nil
}

// help prints a short description of the argument, or of the helper module
// itself when called without one.
func (a *API) help(args []interp.Object) (interp.Object, error) {
	target := a.mod
	if len(args) >= 1 {
		target = args[0]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", target.TypeName())
	if names := target.Dir(); len(names) > 0 {
		fmt.Fprintf(&b, "  attributes: %s\n", strings.Join(names, ", "))
	}
	a.output(b.String())
	return a.rt.None(), nil
}

// notifyWhen subscribes a callable to a host event code.
func (a *API) notifyWhen(args []interp.Object) (interp.Object, error) {
	if len(args) < 2 || args[0].Kind() != interp.KindInt || !args[1].Callable() {
		return nil, errors.New("notifyWhen(event, fn) expects (int, callable)")
	}
	code := args[0].Int()
	fn := args[1]
	fn.IncRef()
	a.subs[code] = append(a.subs[code], fn)
	return a.rt.None(), nil
}
