// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

// Package interp specifies the boundary to the embedded interpreter runtime.
// It abstracts the concrete engine (goja in production, an instrumented fake
// in tests) behind Runtime and Object, the way the host-side bridge sees it:
// reference-counted values, a module registry, compilation and evaluation,
// a pending-error slot, and a per-line trace hook used for cooperative
// cancellation.
package interp

// MainName is the module name every Runtime resolves to its main
// (global) namespace.
const MainName = "main"

// ObjKind classifies an Object for marshaling purposes. Anything that is not
// a primitive is KindOther and crosses the host boundary opaquely.
type ObjKind int

const (
	KindNone ObjKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindOther
)

// Object is an interpreter-native reference-counted value.
//
// Every Object returned by a Runtime or Object method carries a new
// reference owned by the caller; each acquisition must be matched by exactly
// one DecRef on every control path. The marshaling layer's Transferred
// outcome is the single exception: it moves an existing reference into a
// host value instead of creating one.
type Object interface {
	IncRef()
	DecRef()

	// Kind classifies the value.
	Kind() ObjKind

	// Int, Float and Str read the primitive arms; each is valid only for
	// the matching Kind.
	Int() int64
	Float() float64
	Str() string

	// TypeName returns the runtime class/type name of the value.
	TypeName() string

	// Attr fetches a named attribute as a new reference. ok is false when
	// the attribute is absent; absence does not raise a pending error.
	Attr(name string) (o Object, ok bool)

	// SetAttr assigns a named attribute. The callee takes no ownership of v.
	SetAttr(name string, v Object) error

	// Dir lists the value's attribute names, sorted.
	Dir() []string

	// Callable reports whether the value can be invoked.
	Callable() bool

	// Call invokes the value. A script exception surfaces as a
	// *ScriptError and is also left in the runtime's pending-error slot.
	Call(args ...Object) (Object, error)
}

// Code is a compiled evaluable unit, opaque to the bridge.
type Code interface{}

// NativeFunc is a Go function exposed into the interpreter. The callee
// borrows args and must not release them; the returned Object carries a new
// reference. Returning an error raises a script exception at the call site.
type NativeFunc func(args []Object) (Object, error)

// Event describes one trace callback invocation. The runtime reports at
// minimum every executed line.
type Event struct {
	File string
	Line int
}

// TraceFunc is the per-line trace hook. It runs at interpreter suspension
// points; calling Runtime.Interrupt from inside it aborts the current
// evaluation at the next safe point.
type TraceFunc func(Event)

// ScriptError is an interpreter exception carried across the boundary.
type ScriptError struct {
	// Msg is the one-line error text.
	Msg string
	// Trace is the multi-line traceback, when the engine provides one.
	Trace string
	// Interrupted marks a user cancellation rather than a script fault.
	Interrupted bool
}

func (e *ScriptError) Error() string { return e.Msg }

// Runtime is the process-wide interpreter instance.
type Runtime interface {
	// Main returns the default/main namespace module.
	Main() (Object, error)

	// AddModule returns the named module, creating an empty one if needed.
	AddModule(name string) (Object, error)

	// Import loads the named module through the runtime's search path,
	// returning a cached instance on repeat imports. Failure leaves no
	// pending error; the cause is carried in the returned error.
	Import(name string) (Object, error)

	// CompileExpr compiles src as a single expression. A parse failure
	// leaves no pending error.
	CompileExpr(src, filename string) (Code, error)

	// EvalCode evaluates previously compiled code in the main namespace.
	EvalCode(c Code) (Object, error)

	// NewFunction wraps compiled expression code as a named zero-argument
	// callable evaluating in the main namespace.
	NewFunction(name string, c Code) (Object, error)

	// EvalExpr compiles and evaluates src as a single expression in the
	// main namespace.
	EvalExpr(src string) (Object, error)

	// ExecStmts executes src as a statement block in the main namespace.
	ExecStmts(src string) error

	// RunFile executes a script file in the main namespace without
	// registering a module.
	RunFile(path string) error

	// Value constructors.
	None() Object
	NewBool(b bool) Object
	NewInt(n int64) Object
	NewFloat(f float64) Object
	NewString(s string) Object
	NewNative(name string, fn NativeFunc) Object

	// ErrOccurred reports whether an error is pending.
	ErrOccurred() bool

	// PendingError returns the pending error, optionally clearing it.
	PendingError(clear bool) (e *ScriptError, ok bool)

	// ClearError drops any pending error.
	ClearError()

	// PrintError dumps the pending error and traceback to the runtime's
	// output sink and clears it.
	PrintError()

	// SetTrace installs fn as the per-line trace hook; nil uninstalls.
	SetTrace(fn TraceFunc)

	// Interrupt injects a cancellation delivered at the next safe point of
	// the running evaluation.
	Interrupt()

	// SearchPath and SetSearchPath expose the module search path.
	SearchPath() []string
	SetSearchPath(dirs []string)

	// InitReentry enables the runtime's thread-safety primitives so the
	// interpreter may be re-entered from callback contexts.
	InitReentry() error

	// InitPrelude runs the runtime's site-customization step.
	InitPrelude() error

	// Close shuts the interpreter down, releasing all interpreter-owned
	// state. The Runtime must not be used afterwards.
	Close() error
}
