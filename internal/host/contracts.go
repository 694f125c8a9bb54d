// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

package host

// ExtLang is the host's generic extension-language contract. The host holds
// one installed implementation at a time and dispatches every scripted
// expression, function call and attribute access through it.
//
// Operations report failure by returning false and describing the problem in
// the caller-supplied ErrBuf; interpreter exceptions never cross this
// boundary directly.
type ExtLang interface {
	// Name is the language identifier shown by the host ("JS").
	Name() string

	// FileExt is the script file extension tag without the dot ("js").
	FileExt() string

	// Compile parses expr as a single evaluable unit and binds it under
	// name as a callable in the default namespace.
	Compile(name, expr string, errbuf *ErrBuf) bool

	// Run calls the function designated by the possibly qualified name with
	// the given arguments and stores the converted result.
	Run(name string, args []Value, result *Value, errbuf *ErrBuf) bool

	// CalcExpr evaluates expr as a single expression in the default
	// namespace and stores the converted result.
	CalcExpr(expr string, result *Value, errbuf *ErrBuf) bool

	// CompileFile loads and executes a script file with module-reload
	// semantics.
	CompileFile(path string, errbuf *ErrBuf) bool

	// CreateObject instantiates the class designated by the possibly
	// qualified name.
	CreateObject(name string, args []Value, result *Value, errbuf *ErrBuf) bool

	// GetAttr fetches an attribute of obj. obj may be nil (default
	// namespace), a string value naming an object in the default namespace,
	// or an opaque reference. An empty attr requests the runtime type name
	// of the resolved object instead of an attribute.
	GetAttr(obj *Value, attr string, result *Value) bool

	// SetAttr assigns an attribute of obj, which takes the same three
	// shapes as in GetAttr.
	SetAttr(obj *Value, attr string, value *Value) bool

	// CallMethod calls method on obj. With a nil obj it behaves like Run;
	// with both absent it fails.
	CallMethod(obj *Value, method string, args []Value, result *Value, errbuf *ErrBuf) bool

	// RunStatements executes stmts as a statement block in the default
	// namespace.
	RunStatements(stmts string, errbuf *ErrBuf) bool
}

// CLI is the host's command-interpreter contract backing an interactive
// input line.
type CLI interface {
	// Name is the short interpreter name shown in the UI.
	Name() string

	// Description is the long interpreter description.
	Description() string

	// Hint is the input-line hint text.
	Hint() string

	// ExecuteLine consumes one (possibly multi-line) input buffer. It
	// returns false when the buffer is incomplete and the host should
	// collect more input before re-invoking.
	ExecuteLine(line string) bool

	// CompleteLine returns the top completion for prefix at cursor column x
	// of line; n is the history index the host is cycling through. ok is
	// false when no completion is available.
	CompleteLine(prefix string, n int, line string, x int) (completion string, ok bool)
}

// StmtFunc is a host-callable entry point registered by a plugin. It takes a
// single string argument and fills res with 0 on success or an error string
// on failure.
type StmtFunc func(arg string, res *Value)
