// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

// Package interptest provides an instrumented in-memory implementation of
// interp.Runtime for tests. Every reference acquisition and release is
// accounted for, so tests can assert that the bridge neither leaks nor
// double-frees; a DecRef past zero panics. Script behavior is supplied by
// the test through canned expression/statement handlers plus a tiny literal
// evaluator, and the "spin N" statement drives the trace hook a fixed number
// of times for watchdog tests.
package interptest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/relic-re/jsbridge/internal/interp"
)

// Obj is the fake's object. Exported so tests can seed modules directly.
type Obj struct {
	rt       *Runtime
	kind     interp.ObjKind
	i        int64
	f        float64
	s        string
	typeName string
	attrs    map[string]*Obj
	attrKeys []string
	call     interp.NativeFunc
	code     string // for function objects
	refs     int
}

// IncRef acquires one reference.
func (o *Obj) IncRef() {
	if o.refs <= 0 {
		panic(fmt.Sprintf("interptest: IncRef on dead object %q", o.typeName))
	}
	o.refs++
}

// DecRef releases one reference, destroying the object at zero.
func (o *Obj) DecRef() {
	if o.refs <= 0 {
		panic(fmt.Sprintf("interptest: DecRef past zero on %q", o.typeName))
	}
	o.refs--
	if o.refs == 0 {
		delete(o.rt.live, o)
		for _, k := range o.attrKeys {
			o.attrs[k].DecRef()
		}
		o.attrs = nil
		o.attrKeys = nil
	}
}

// Refs returns the current reference count.
func (o *Obj) Refs() int { return o.refs }

func (o *Obj) Kind() interp.ObjKind { return o.kind }
func (o *Obj) Int() int64           { return o.i }
func (o *Obj) Float() float64       { return o.f }
func (o *Obj) Str() string          { return o.s }
func (o *Obj) TypeName() string     { return o.typeName }

// Attr returns a new reference to a stored attribute.
func (o *Obj) Attr(name string) (interp.Object, bool) {
	v, ok := o.attrs[name]
	if !ok {
		return nil, false
	}
	v.IncRef()
	return v, true
}

// SetAttr stores v under name, acquiring its own reference to it.
func (o *Obj) SetAttr(name string, v interp.Object) error {
	ov := v.(*Obj)
	if ro, ok := o.rt.readonly[attrKey(o, name)]; ok && ro {
		return fmt.Errorf("attribute %q is read-only", name)
	}
	ov.IncRef()
	if prev, ok := o.attrs[name]; ok {
		prev.DecRef()
	} else {
		o.attrKeys = append(o.attrKeys, name)
	}
	if o.attrs == nil {
		o.attrs = map[string]*Obj{}
	}
	o.attrs[name] = ov
	return nil
}

// Dir lists stored attribute names, sorted.
func (o *Obj) Dir() []string {
	names := append([]string(nil), o.attrKeys...)
	sort.Strings(names)
	return names
}

func (o *Obj) Callable() bool { return o.call != nil || o.code != "" }

// Call invokes a native or function object.
func (o *Obj) Call(args ...interp.Object) (interp.Object, error) {
	switch {
	case o.call != nil:
		res, err := o.call(args)
		if err != nil {
			return nil, o.rt.raise(err)
		}
		if res == nil {
			res = o.rt.None()
		}
		return res, nil
	case o.code != "":
		return o.rt.EvalExpr(o.code)
	default:
		return nil, o.rt.raise(fmt.Errorf("%s object is not callable", o.typeName))
	}
}

func attrKey(o *Obj, name string) string {
	return fmt.Sprintf("%p.%s", o, name)
}

type code struct{ src string }

// Runtime is the fake interpreter.
type Runtime struct {
	modules  map[string]*Obj
	modOrder []string
	none     *Obj
	pending  *interp.ScriptError
	trace    interp.TraceFunc
	breakReq bool
	path     []string
	live     map[*Obj]struct{}
	readonly map[string]bool

	exprs map[string]func() (interp.Object, error)
	stmts map[string]func() error
	files map[string]func() error

	// Printed collects PrintError output.
	Printed []string
	// LastEval and LastExec record the most recent sources handed to
	// EvalExpr/ExecStmts, for assertions on command rewriting.
	LastEval string
	LastExec string

	// DefaultStmtOK makes unmatched statements succeed silently, for
	// tests exercising the flow around ExecStmts rather than its
	// contents.
	DefaultStmtOK bool

	Reentrant   bool
	PreludeInit bool
	Closed      bool
}

// New returns a fresh fake runtime with an empty main module.
func New() *Runtime {
	rt := &Runtime{
		modules:  map[string]*Obj{},
		live:     map[*Obj]struct{}{},
		readonly: map[string]bool{},
		exprs:    map[string]func() (interp.Object, error){},
		stmts:    map[string]func() error{},
		files:    map[string]func() error{},
	}
	rt.none = rt.newObj(interp.KindNone, "none")
	rt.DefineModule("main")
	return rt
}

func (rt *Runtime) newObj(k interp.ObjKind, typeName string) *Obj {
	o := &Obj{rt: rt, kind: k, typeName: typeName, refs: 1}
	rt.live[o] = struct{}{}
	return o
}

func (rt *Runtime) raise(err error) error {
	se, ok := err.(*interp.ScriptError)
	if !ok {
		se = &interp.ScriptError{Msg: err.Error()}
	}
	rt.pending = se
	return se
}

// DefineModule registers a module and returns it. The registry keeps the
// returned reference; tests seeding attributes need no extra release.
func (rt *Runtime) DefineModule(name string) *Obj {
	if m, ok := rt.modules[name]; ok {
		return m
	}
	m := rt.newObj(interp.KindOther, "module")
	rt.modules[name] = m
	rt.modOrder = append(rt.modOrder, name)
	return m
}

// NewObject creates an opaque object of the given type name, owned by the
// caller.
func (rt *Runtime) NewObject(typeName string) *Obj {
	return rt.newObj(interp.KindOther, typeName)
}

// MarkReadOnly makes future SetAttr calls for name on o fail.
func (rt *Runtime) MarkReadOnly(o *Obj, name string) {
	rt.readonly[attrKey(o, name)] = true
}

// HandleExpr registers a canned expression handler matched by exact source.
func (rt *Runtime) HandleExpr(src string, fn func() (interp.Object, error)) {
	rt.exprs[src] = fn
}

// HandleStmt registers a canned statement handler matched by exact source.
func (rt *Runtime) HandleStmt(src string, fn func() error) {
	rt.stmts[src] = fn
}

// HandleFile registers a canned script file for RunFile.
func (rt *Runtime) HandleFile(path string, fn func() error) {
	rt.files[path] = fn
}

func (rt *Runtime) Main() (interp.Object, error) {
	m := rt.modules["main"]
	m.IncRef()
	return m, nil
}

func (rt *Runtime) AddModule(name string) (interp.Object, error) {
	m := rt.DefineModule(name)
	m.IncRef()
	return m, nil
}

func (rt *Runtime) Import(name string) (interp.Object, error) {
	m, ok := rt.modules[name]
	if !ok {
		return nil, fmt.Errorf("no module named %q", name)
	}
	m.IncRef()
	return m, nil
}

func (rt *Runtime) CompileExpr(src, filename string) (interp.Code, error) {
	if !rt.parsesAsExpr(src) {
		return nil, fmt.Errorf("invalid syntax: %q", src)
	}
	return &code{src: src}, nil
}

func (rt *Runtime) EvalCode(c interp.Code) (interp.Object, error) {
	return rt.EvalExpr(c.(*code).src)
}

func (rt *Runtime) NewFunction(name string, c interp.Code) (interp.Object, error) {
	fn := rt.newObj(interp.KindOther, "function")
	fn.code = c.(*code).src
	fn.s = name
	return fn, nil
}

func (rt *Runtime) parsesAsExpr(src string) bool {
	if _, ok := rt.exprs[src]; ok {
		return true
	}
	src = strings.TrimSpace(src)
	if src == "" {
		return false
	}
	if _, err := strconv.ParseInt(src, 0, 64); err == nil {
		return true
	}
	if _, err := strconv.ParseFloat(src, 64); err == nil {
		return true
	}
	if len(src) >= 2 && (src[0] == '\'' || src[0] == '"') && src[len(src)-1] == src[0] {
		return true
	}
	return isIdentPath(src)
}

func isIdentPath(s string) bool {
	for _, part := range strings.Split(s, ".") {
		if part == "" {
			return false
		}
		for i, r := range part {
			alpha := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
			digit := r >= '0' && r <= '9'
			if !alpha && !(digit && i > 0) {
				return false
			}
		}
	}
	return true
}

func (rt *Runtime) EvalExpr(src string) (interp.Object, error) {
	rt.LastEval = src
	if fn, ok := rt.exprs[src]; ok {
		o, err := fn()
		if err != nil {
			return nil, rt.raise(err)
		}
		if o == nil {
			o = rt.None()
		}
		return o, nil
	}
	s := strings.TrimSpace(src)
	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		return rt.NewInt(n), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return rt.NewFloat(f), nil
	}
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return rt.NewString(s[1 : len(s)-1]), nil
	}
	if isIdentPath(s) {
		return rt.lookupPath(s)
	}
	return nil, rt.raise(fmt.Errorf("invalid syntax: %q", src))
}

func (rt *Runtime) lookupPath(path string) (interp.Object, error) {
	cur := interp.Object(rt.modules["main"])
	cur.IncRef()
	for _, part := range strings.Split(path, ".") {
		next, ok := cur.Attr(part)
		cur.DecRef()
		if !ok {
			return nil, rt.raise(fmt.Errorf("%q is not defined", path))
		}
		cur = next
	}
	return cur, nil
}

func (rt *Runtime) ExecStmts(src string) error {
	rt.LastExec = src
	if fn, ok := rt.stmts[src]; ok {
		if err := fn(); err != nil {
			return rt.raise(err)
		}
		return nil
	}
	s := strings.TrimSpace(src)
	if n, ok := strings.CutPrefix(s, "spin "); ok {
		count, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return rt.raise(fmt.Errorf("bad spin count %q", n))
		}
		return rt.Spin(count)
	}
	if rt.DefaultStmtOK {
		return nil
	}
	if name, lit, found := strings.Cut(s, "="); found {
		v, err := rt.EvalExpr(strings.TrimSpace(lit))
		rt.LastExec = src
		if err != nil {
			return err
		}
		main := rt.modules["main"]
		err = main.SetAttr(strings.TrimSpace(name), v)
		v.DecRef()
		if err != nil {
			return rt.raise(err)
		}
		return nil
	}
	// Bare expressions are valid statements.
	if v, err := rt.EvalExpr(s); err == nil {
		v.DecRef()
		rt.LastExec = src
		return nil
	}
	rt.ClearError()
	return rt.raise(fmt.Errorf("cannot execute: %q", src))
}

// Spin drives the trace hook count times, honoring interrupt injection the
// way a real engine does: an interrupt raised at one traced line aborts
// execution before the next.
func (rt *Runtime) Spin(count int) error {
	for i := 0; i < count; i++ {
		if rt.trace != nil {
			rt.trace(interp.Event{File: "<spin>", Line: i + 1})
		}
		if rt.breakReq {
			rt.breakReq = false
			return rt.raise(&interp.ScriptError{Msg: "execution interrupted", Interrupted: true})
		}
	}
	return nil
}

func (rt *Runtime) RunFile(path string) error {
	fn, ok := rt.files[path]
	if !ok {
		return rt.raise(fmt.Errorf("cannot open %q", path))
	}
	if err := fn(); err != nil {
		return rt.raise(err)
	}
	return nil
}

func (rt *Runtime) None() interp.Object {
	rt.none.IncRef()
	return rt.none
}

func (rt *Runtime) NewBool(b bool) interp.Object {
	o := rt.newObj(interp.KindBool, "bool")
	if b {
		o.i = 1
	}
	return o
}

func (rt *Runtime) NewInt(n int64) interp.Object {
	o := rt.newObj(interp.KindInt, "int")
	o.i = n
	return o
}

func (rt *Runtime) NewFloat(f float64) interp.Object {
	o := rt.newObj(interp.KindFloat, "float")
	o.f = f
	return o
}

func (rt *Runtime) NewString(s string) interp.Object {
	o := rt.newObj(interp.KindString, "string")
	o.s = s
	return o
}

func (rt *Runtime) NewNative(name string, fn interp.NativeFunc) interp.Object {
	o := rt.newObj(interp.KindOther, "builtin")
	o.s = name
	o.call = fn
	return o
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
	rt.Printed = append(rt.Printed, rt.pending.Msg)
	rt.pending = nil
}

func (rt *Runtime) SetTrace(fn interp.TraceFunc) { rt.trace = fn }

// TraceInstalled reports whether a trace hook is currently set.
func (rt *Runtime) TraceInstalled() bool { return rt.trace != nil }

func (rt *Runtime) Interrupt() { rt.breakReq = true }

func (rt *Runtime) SearchPath() []string { return rt.path }

func (rt *Runtime) SetSearchPath(dirs []string) { rt.path = dirs }

func (rt *Runtime) InitReentry() error {
	rt.Reentrant = true
	return nil
}

func (rt *Runtime) InitPrelude() error {
	rt.PreludeInit = true
	return nil
}

func (rt *Runtime) Close() error {
	for _, name := range rt.modOrder {
		rt.modules[name].DecRef()
	}
	rt.modules = map[string]*Obj{}
	rt.modOrder = nil
	rt.Closed = true
	return nil
}

// Leaks returns a description of every object holding more references than
// the runtime's own structures account for, i.e. references some caller
// acquired and never released.
func (rt *Runtime) Leaks() []string {
	held := map[*Obj]int{rt.none: 1}
	for _, m := range rt.modules {
		held[m]++
	}
	for o := range rt.live {
		for _, k := range o.attrKeys {
			held[o.attrs[k]]++
		}
	}
	var leaks []string
	for o := range rt.live {
		if extra := o.refs - held[o]; extra > 0 {
			leaks = append(leaks, fmt.Sprintf("%s (%d unreleased refs)", o.typeName, extra))
		}
	}
	return leaks
}

var _ interp.Runtime = (*Runtime)(nil)
