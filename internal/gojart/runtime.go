// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

// Package gojart implements the interp boundary on the Goja JavaScript
// engine. Reference counts are bookkeeping over garbage-collected values:
// they cost nothing at runtime but keep the acquire/release discipline of
// the boundary checkable, and a release past zero still panics.
//
// Goja has no per-line trace hook, so the trace callback is driven from a
// monitor goroutine at a fixed cadence while a program runs. Interrupts
// injected from the callback go through Goja's own Interrupt mechanism,
// which the engine observes at its next instruction boundary — delivery
// stays cooperative.
package gojart

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/relic-re/jsbridge/internal/interp"
	"github.com/relic-re/jsbridge/internal/util"
)

const traceTick = 10 * time.Millisecond

// Options configures a new runtime.
type Options struct {
	// SearchPath lists the directories Import loads modules from.
	SearchPath []string

	// Output receives PrintError and console output. Defaults to stderr.
	Output func(string)
}

// Runtime is the Goja-backed interpreter instance.
type Runtime struct {
	vm      *goja.Runtime
	pending *interp.ScriptError
	trace   interp.TraceFunc
	path    []string
	output  func(string)

	// modMu guards the registry maps: Invalidate may be called from the
	// autoload watcher goroutine.
	modMu    sync.Mutex
	modules  map[string]*goja.Object
	modFiles map[string][]string // source file -> module names loaded from it

	depth     int
	reentrant bool
	closed    bool

	// set when a native function failed with an interruption, so the
	// exception unwinding out of Goja keeps its cancellation flavor
	nativeInterrupted bool
}

// New starts a runtime.
func New(opts Options) (*Runtime, error) {
	out := opts.Output
	if out == nil {
		out = func(s string) { fmt.Fprint(os.Stderr, s) }
	}
	rt := &Runtime{
		vm:       goja.New(),
		path:     opts.SearchPath,
		output:   out,
		modules:  map[string]*goja.Object{},
		modFiles: map[string][]string{},
	}
	rt.vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	if err := rt.installPrint(); err != nil {
		return nil, err
	}
	return rt, nil
}

// installPrint wires print() and console.log() to the output sink.
func (rt *Runtime) installPrint() error {
	print := func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, a := range call.Arguments {
			parts[i] = a.String()
		}
		rt.output(strings.Join(parts, " ") + "\n")
		return goja.Undefined()
	}
	if err := rt.vm.Set("print", print); err != nil {
		return err
	}
	console := rt.vm.NewObject()
	if err := console.Set("log", print); err != nil {
		return err
	}
	return rt.vm.Set("console", console)
}

// run executes f with the trace monitor engaged, converting engine errors
// into the pending-error slot. Nested invocations (native functions calling
// back in) reuse the outer monitor.
func (rt *Runtime) run(f func() (goja.Value, error)) (goja.Value, error) {
	rt.depth++
	var stop func()
	if rt.depth == 1 {
		stop = rt.startMonitor()
	}
	v, err := f()
	if stop != nil {
		stop()
	}
	rt.depth--
	if err != nil {
		return nil, rt.raise(err)
	}
	return v, nil
}

func (rt *Runtime) startMonitor() (stop func()) {
	tr := rt.trace
	if tr == nil {
		return func() {}
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(traceTick)
		defer t.Stop()
		line := 0
		for {
			select {
			case <-done:
				return
			case <-t.C:
				line++
				tr(interp.Event{File: "<goja>", Line: line})
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

// raise records err as the pending error and returns it in boundary form.
func (rt *Runtime) raise(err error) error {
	var se *interp.ScriptError
	var intErr *goja.InterruptedError
	var exc *goja.Exception
	switch {
	case errors.As(err, &se):
		// Already in boundary form (e.g. re-raised by a native).
	case errors.As(err, &intErr):
		rt.vm.ClearInterrupt()
		se = &interp.ScriptError{Msg: "execution interrupted", Interrupted: true}
	case errors.As(err, &exc):
		full := exc.String()
		se = &interp.ScriptError{Msg: firstLine(full), Trace: full}
		if rt.nativeInterrupted {
			se.Interrupted = true
		}
	default:
		se = &interp.ScriptError{Msg: err.Error()}
	}
	rt.nativeInterrupted = false
	rt.pending = se
	return se
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

type code struct {
	prog *goja.Program
	src  string
}

// Main returns the global namespace as the main module.
func (rt *Runtime) Main() (interp.Object, error) {
	if rt.closed {
		return nil, errors.New("runtime is closed")
	}
	return rt.wrap(rt.vm.GlobalObject()), nil
}

func (rt *Runtime) CompileExpr(src, filename string) (interp.Code, error) {
	// Parenthesizing forces expression parsing; the newline protects
	// against a trailing line comment swallowing the closing paren.
	prog, err := goja.Compile(filename, "("+src+"\n)", false)
	if err != nil {
		return nil, fmt.Errorf("invalid expression: %w", err)
	}
	return &code{prog: prog, src: src}, nil
}

func (rt *Runtime) EvalCode(c interp.Code) (interp.Object, error) {
	cc := c.(*code)
	v, err := rt.run(func() (goja.Value, error) { return rt.vm.RunProgram(cc.prog) })
	if err != nil {
		return nil, err
	}
	return rt.wrap(v), nil
}

func (rt *Runtime) NewFunction(name string, c interp.Code) (interp.Object, error) {
	cc := c.(*code)
	v, err := rt.vm.RunString(fmt.Sprintf("(function %s() { return (%s\n); })", name, cc.src))
	if err != nil {
		return nil, fmt.Errorf("cannot bind %q: %w", name, err)
	}
	return rt.wrap(v), nil
}

func (rt *Runtime) EvalExpr(src string) (interp.Object, error) {
	c, err := rt.CompileExpr(src, "<string>")
	if err != nil {
		return nil, err
	}
	return rt.EvalCode(c)
}

func (rt *Runtime) ExecStmts(src string) error {
	_, err := rt.run(func() (goja.Value, error) { return rt.vm.RunString(src) })
	return err
}

func (rt *Runtime) RunFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return rt.raise(fmt.Errorf("cannot open %s: %w", path, err))
	}
	prog, err := goja.Compile(path, string(src), false)
	if err != nil {
		return rt.raise(err)
	}
	util.Debug("running script file", "path", path)
	_, err = rt.run(func() (goja.Value, error) { return rt.vm.RunProgram(prog) })
	return err
}

func (rt *Runtime) None() interp.Object { return rt.wrap(goja.Undefined()) }

func (rt *Runtime) NewBool(b bool) interp.Object { return rt.wrap(rt.vm.ToValue(b)) }

func (rt *Runtime) NewInt(n int64) interp.Object { return rt.wrap(rt.vm.ToValue(n)) }

func (rt *Runtime) NewFloat(f float64) interp.Object { return rt.wrap(rt.vm.ToValue(f)) }

func (rt *Runtime) NewString(s string) interp.Object { return rt.wrap(rt.vm.ToValue(s)) }

// NewNative wraps a Go function as a script-callable. Errors become script
// exceptions; an interruption keeps its cancellation flavor across the
// unwind.
func (rt *Runtime) NewNative(name string, fn interp.NativeFunc) interp.Object {
	wrapper := func(call goja.FunctionCall) goja.Value {
		args := make([]interp.Object, len(call.Arguments))
		for i, a := range call.Arguments {
			args[i] = rt.wrap(a)
		}
		res, err := fn(args)
		for _, a := range args {
			a.DecRef()
		}
		if err != nil {
			var se *interp.ScriptError
			if errors.As(err, &se) && se.Interrupted {
				rt.nativeInterrupted = true
			}
			panic(rt.vm.ToValue(name + ": " + err.Error()))
		}
		if res == nil {
			return goja.Undefined()
		}
		defer res.DecRef()
		return res.(*object).v
	}
	return rt.wrap(rt.vm.ToValue(wrapper))
}

func (rt *Runtime) ErrOccurred() bool { return rt.pending != nil }

func (rt *Runtime) PendingError(clear bool) (*interp.ScriptError, bool) {
	if rt.pending == nil {
		return nil, false
	}
	e := rt.pending
	if clear {
		rt.pending = nil
	}
	return e, true
}

func (rt *Runtime) ClearError() { rt.pending = nil }

func (rt *Runtime) PrintError() {
	if rt.pending == nil {
		return
	}
	if rt.pending.Trace != "" {
		rt.output(rt.pending.Trace + "\n")
	} else {
		rt.output(rt.pending.Msg + "\n")
	}
	rt.pending = nil
}

func (rt *Runtime) SetTrace(fn interp.TraceFunc) { rt.trace = fn }

func (rt *Runtime) Interrupt() { rt.vm.Interrupt("script interrupted") }

func (rt *Runtime) SearchPath() []string { return rt.path }

func (rt *Runtime) SetSearchPath(dirs []string) { rt.path = dirs }

// InitReentry marks the runtime safe for re-entry from callback contexts.
// Goja serializes execution on the calling goroutine already; this step
// exists so the lifecycle can fail fast if it is skipped.
func (rt *Runtime) InitReentry() error {
	rt.reentrant = true
	return nil
}

// InitPrelude loads the prelude module, the runtime's site-customization
// step.
func (rt *Runtime) InitPrelude() error {
	m, err := rt.Import("prelude")
	if err != nil {
		return err
	}
	m.DecRef()
	return nil
}

func (rt *Runtime) Close() error {
	rt.modMu.Lock()
	rt.modules = map[string]*goja.Object{}
	rt.modFiles = map[string][]string{}
	rt.modMu.Unlock()
	rt.trace = nil
	rt.pending = nil
	rt.closed = true
	return nil
}

var _ interp.Runtime = (*Runtime)(nil)
