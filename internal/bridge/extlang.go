// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

// Package bridge implements the host's extension-language and
// command-interpreter contracts on top of an embedded interpreter runtime.
// Every operation resolves its namespace, performs the interpreter action
// (under the execution watchdog wherever arbitrary script code can run),
// converts results and errors back to host conventions, and releases every
// intermediate reference exactly once.
package bridge

import (
	"strings"

	"github.com/relic-re/jsbridge/internal/host"
	"github.com/relic-re/jsbridge/internal/interp"
	"github.com/relic-re/jsbridge/internal/marshal"
	"github.com/relic-re/jsbridge/internal/watchdog"
)

// Lang implements host.ExtLang for the embedded runtime.
type Lang struct {
	rt interp.Runtime
	wd *watchdog.Watchdog

	lastKind FailKind
}

// NewLang returns the adapter for rt, wrapping executions with wd.
func NewLang(rt interp.Runtime, wd *watchdog.Watchdog) *Lang {
	return &Lang{rt: rt, wd: wd}
}

// Name implements host.ExtLang.
func (l *Lang) Name() string { return "JS" }

// FileExt implements host.ExtLang.
func (l *Lang) FileExt() string { return "js" }

// LastFailKind classifies the most recent failed operation. FailNone after
// a success.
func (l *Lang) LastFailKind() FailKind { return l.lastKind }

func (l *Lang) fail(errbuf *host.ErrBuf, kind FailKind, format string, args ...any) bool {
	l.lastKind = kind
	if errbuf != nil {
		errbuf.Setf(format, args...)
	}
	return false
}

func (l *Lang) failPending(errbuf *host.ErrBuf) bool {
	l.lastKind = fillError(l.rt, errbuf, true)
	return false
}

func (l *Lang) ok() bool {
	l.lastKind = FailNone
	return true
}

// returnResult converts an invocation result into dst, or reports the
// pending interpreter error when the invocation failed (res == nil). The
// reference held by res is consumed: released here unless its ownership
// transferred into dst.
func (l *Lang) returnResult(dst *host.Value, res interp.Object, errbuf *host.ErrBuf) bool {
	if errbuf != nil {
		errbuf.Reset()
	}
	if res == nil {
		return l.failPending(errbuf)
	}
	cvt := marshal.Owned
	if dst != nil {
		cvt = marshal.FromInterp(l.rt, res, dst)
		if cvt == marshal.Failed {
			l.fail(errbuf, FailConversion, "bad return value")
		}
	}
	if cvt != marshal.Transferred {
		res.DecRef()
	}
	if cvt == marshal.Failed {
		return false
	}
	return l.ok()
}

// Compile parses expr as a single expression and binds it under name as a
// callable in the main namespace.
func (l *Lang) Compile(name, expr string, errbuf *host.ErrBuf) bool {
	var sc interp.Scope
	defer sc.Close()

	code, err := l.rt.CompileExpr(expr, "<string>")
	if err != nil {
		return l.fail(errbuf, FailParse, "%v", err)
	}
	fn, err := l.rt.NewFunction(name, code)
	if err != nil {
		return l.fail(errbuf, FailInternal, "%v", err)
	}
	sc.Track(fn)

	main, err := l.rt.Main()
	if err != nil {
		return l.fail(errbuf, FailInternal, "%v", err)
	}
	sc.Track(main)

	if err := main.SetAttr(name, fn); err != nil {
		return l.fail(errbuf, FailInternal, "%v", err)
	}
	return l.ok()
}

// Run calls the function designated by name. A dotted name targets an
// explicitly imported module; otherwise the main namespace is used.
func (l *Lang) Run(name string, args []host.Value, result *host.Value, errbuf *host.ErrBuf) bool {
	modname, funcname, qualified := splitQualName(name, "")

	var sc interp.Scope
	defer sc.Close()

	objs, release, err := marshal.ConvertArgs(l.rt, args)
	if err != nil {
		return l.fail(errbuf, FailConversion, "%v", err)
	}
	defer marshal.FreeArgs(objs, release)

	var module interp.Object
	if qualified {
		module, err = l.rt.Import(modname)
		if err != nil {
			return l.fail(errbuf, FailImport, "could not import module '%s': %v", modname, err)
		}
	} else {
		module, err = l.rt.Main()
		if err != nil {
			return l.fail(errbuf, FailInternal, "%v", err)
		}
	}
	sc.Track(module)

	fn, found := module.Attr(funcname)
	if !found {
		return l.fail(errbuf, FailAttrNotFound, "undefined function %s", name)
	}
	sc.Track(fn)

	l.wd.Begin()
	res, _ := fn.Call(objs...)
	l.wd.End()

	return l.returnResult(result, res, errbuf)
}

// CalcExpr evaluates expr as a single expression in the main namespace.
func (l *Lang) CalcExpr(expr string, result *host.Value, errbuf *host.ErrBuf) bool {
	l.wd.Begin()
	res, _ := l.rt.EvalExpr(expr)
	l.wd.End()

	return l.returnResult(result, res, errbuf)
}

// CompileFile loads and executes a script file through the interpreter-side
// helper, which knows how to reload already-loaded modules.
func (l *Lang) CompileFile(path string, errbuf *host.ErrBuf) bool {
	l.wd.Begin()
	ok := l.execScriptFile(path, errbuf)
	l.wd.End()
	return ok
}

func (l *Lang) execScriptFile(path string, errbuf *host.ErrBuf) bool {
	var sc interp.Scope
	defer sc.Close()

	helper, found := l.helperAttr("execScript")
	if !found {
		return l.fail(errbuf, FailInternal, "could not find %s.execScript ?!", HelperModule)
	}
	sc.Track(helper)

	pathObj := sc.Track(l.rt.NewString(strings.ReplaceAll(path, "\\", "/")))
	ret, _ := helper.Call(pathObj)
	sc.Track(ret)

	// A failure that left no error text means the helper was aborted
	// rather than returning a diagnostic: either a user cancellation or a
	// silent low-level abort. Both are reported as an interruption.
	if e, pending := l.rt.PendingError(true); pending || ret == nil {
		if e == nil || e.Msg == "" {
			return l.fail(errbuf, FailInterrupted, "Script interrupted")
		}
		if e.Interrupted {
			return l.fail(errbuf, FailInterrupted, "%s", e.Msg)
		}
		return l.fail(errbuf, FailInternal, "%s", e.Msg)
	}

	// The helper returns null on success or a one-line error string.
	switch ret.Kind() {
	case interp.KindNone:
		return l.ok()
	case interp.KindString:
		return l.fail(errbuf, FailInternal, "%s", ret.Str())
	default:
		return l.fail(errbuf, FailInternal, "unexpected execScript result")
	}
}

// helperAttr fetches a named attribute of the helper module as a new
// reference.
func (l *Lang) helperAttr(name string) (interp.Object, bool) {
	mod, err := l.rt.Import(HelperModule)
	if err != nil {
		return nil, false
	}
	defer mod.DecRef()
	return mod.Attr(name)
}

// CreateObject instantiates the class designated by name. Unqualified names
// target the helper module.
func (l *Lang) CreateObject(name string, args []host.Value, result *host.Value, errbuf *host.ErrBuf) bool {
	modname, clsname, _ := splitQualName(name, HelperModule)

	var sc interp.Scope
	defer sc.Close()

	mod, err := l.rt.Import(modname)
	if err != nil {
		return l.fail(errbuf, FailImport, "could not import module '%s'", modname)
	}
	sc.Track(mod)

	cls, found := mod.Attr(clsname)
	if !found {
		return l.fail(errbuf, FailAttrNotFound, "could not find class type '%s'", clsname)
	}
	sc.Track(cls)

	objs, release, err := marshal.ConvertArgs(l.rt, args)
	if err != nil {
		return l.fail(errbuf, FailConversion, "%v", err)
	}
	defer marshal.FreeArgs(objs, release)

	res, _ := cls.Call(objs...)
	if res == nil {
		kind := fillError(l.rt, errbuf, true)
		if kind != FailInterrupted {
			kind = FailConstructor
		}
		l.lastKind = kind
		return false
	}
	return l.returnResult(result, res, errbuf)
}

// resolveTarget resolves the three GetAttr/SetAttr input shapes to an
// object: nil for the main namespace, a string naming an attribute of the
// main namespace, or an opaque reference used as-is. The returned reference
// is tracked in sc except for the opaque case, where it stays owned by the
// input value.
func (l *Lang) resolveTarget(sc *interp.Scope, obj *host.Value) (interp.Object, bool) {
	main, err := l.rt.Main()
	if err != nil {
		return nil, false
	}
	sc.Track(main)

	if obj == nil {
		return main, true
	}
	if obj.Kind() == host.KindString {
		o, found := main.Attr(obj.Str())
		if !found {
			return nil, false
		}
		return sc.Track(o), true
	}
	o, out := marshal.ToInterp(l.rt, obj)
	if out != marshal.Transferred {
		// Only opaque objects are accepted here; anything converted by
		// copy cannot name an attribute target.
		if out == marshal.Owned {
			o.DecRef()
		}
		return nil, false
	}
	return o, true
}

// GetAttr fetches an attribute of obj; with an empty attr it returns the
// runtime type name of the resolved object instead.
func (l *Lang) GetAttr(obj *host.Value, attr string, result *host.Value) bool {
	var sc interp.Scope
	defer sc.Close()

	target, found := l.resolveTarget(&sc, obj)
	if !found {
		return false
	}

	if attr == "" {
		if result != nil {
			result.Clear()
			result.SetString(target.TypeName())
		}
		return true
	}

	a, found := target.Attr(attr)
	if !found {
		return false
	}
	if result == nil {
		a.DecRef()
		return true
	}
	cvt := marshal.FromInterp(l.rt, a, result)
	if cvt != marshal.Transferred {
		// Scalar copied out (or conversion failed): drop the attribute
		// reference. A transferred reference lives on inside result.
		a.DecRef()
	}
	return cvt != marshal.Failed
}

// SetAttr assigns an attribute of obj.
func (l *Lang) SetAttr(obj *host.Value, attr string, value *host.Value) bool {
	var sc interp.Scope
	defer sc.Close()

	target, found := l.resolveTarget(&sc, obj)
	if !found {
		return false
	}

	v, out := marshal.ToInterp(l.rt, value)
	if out == marshal.Failed {
		return false
	}
	err := target.SetAttr(attr, v)
	if out != marshal.Transferred {
		v.DecRef()
	}
	return err == nil
}

// CallMethod calls method on obj. With no object it degenerates to Run;
// with no method at all the combination is unsupported.
func (l *Lang) CallMethod(obj *host.Value, method string, args []host.Value, result *host.Value, errbuf *host.ErrBuf) bool {
	if method == "" {
		return l.fail(errbuf, FailInternal, "call_method does not support this operation")
	}
	if obj == nil {
		return l.Run(method, args, result, errbuf)
	}

	o, ocvt := marshal.ToInterp(l.rt, obj)
	if ocvt == marshal.Failed {
		return l.fail(errbuf, FailConversion, "failed to convert input object")
	}
	defer func() {
		if ocvt != marshal.Transferred {
			o.DecRef()
		}
	}()

	var sc interp.Scope
	defer sc.Close()

	m, found := o.Attr(method)
	if found {
		sc.Track(m)
	}
	if !found || !m.Callable() {
		return l.fail(errbuf, FailNotCallable, "the input object does not have a callable method called '%s'", method)
	}

	objs, release, err := marshal.ConvertArgs(l.rt, args)
	if err != nil {
		return l.fail(errbuf, FailConversion, "%v", err)
	}
	defer marshal.FreeArgs(objs, release)

	res, _ := m.Call(objs...)
	return l.returnResult(result, res, errbuf)
}

// RunStatements executes stmts as a statement block in the main namespace.
func (l *Lang) RunStatements(stmts string, errbuf *host.ErrBuf) bool {
	if errbuf != nil {
		errbuf.Reset()
	}
	l.rt.ClearError()

	l.wd.Begin()
	err := l.rt.ExecStmts(stmts)
	l.wd.End()

	if err == nil && !l.rt.ErrOccurred() {
		return l.ok()
	}
	l.failPending(errbuf)
	if errbuf != nil && errbuf.Empty() {
		errbuf.Set("internal error")
	}
	return false
}

var _ host.ExtLang = (*Lang)(nil)
