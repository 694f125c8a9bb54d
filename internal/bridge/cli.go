// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

package bridge

import (
	"fmt"
	"strings"

	"github.com/relic-re/jsbridge/internal/host"
	"github.com/relic-re/jsbridge/internal/interp"
	"github.com/relic-re/jsbridge/internal/watchdog"
)

// CLI implements the host's command-interpreter contract: an interactive
// line-based shell over the same runtime and watchdog the extension
// language uses.
type CLI struct {
	rt interp.Runtime
	wd *watchdog.Watchdog
	ui host.UI
}

// NewCLI returns the command interpreter for rt.
func NewCLI(rt interp.Runtime, wd *watchdog.Watchdog, ui host.UI) *CLI {
	return &CLI{rt: rt, wd: wd, ui: ui}
}

// Name implements host.CLI.
func (c *CLI) Name() string { return "JS" }

// Description implements host.CLI.
func (c *CLI) Description() string { return "JS - jsbridge plugin" }

// Hint implements host.CLI.
func (c *CLI) Hint() string { return "Enter any JavaScript expression" }

// ExecuteLine consumes one input buffer. It returns false when the buffer
// needs continuation lines: the final logical line either ends with a colon
// or starts with whitespace. Nothing is executed in that case.
func (c *CLI) ExecuteLine(line string) bool {
	if line == "" {
		return true
	}

	last := line
	if i := strings.LastIndexByte(line, '\n'); i >= 0 {
		last = line[i+1:]
	}
	if last != "" {
		if strings.HasSuffix(last, ":") || last[0] == ' ' || last[0] == '\t' {
			return false
		}
	}

	// Pseudo commands.
	switch {
	case strings.HasPrefix(line, "?"):
		line = fmt.Sprintf("help(%s)", line[1:])
	case strings.HasPrefix(line, "!"):
		// The remainder goes in verbatim; single quotes are the only
		// escaping applied.
		line = fmt.Sprintf("%s.execSystem('%s')", HelperModule, line[1:])
	}

	c.wd.Begin()
	c.evalOrExec(line)
	c.wd.End()
	return true
}

// evalOrExec first tries the input as a single expression, printing a
// non-void result; if it does not parse as one, it runs as a statement
// block with no result printing. Parse failures on the expression path are
// swallowed; statement execution errors are printed, not returned.
func (c *CLI) evalOrExec(src string) {
	code, err := c.rt.CompileExpr(src, "<string>")
	if err != nil {
		// Not an expression.
		c.rt.ClearError()
		if err := c.rt.ExecStmts(src); err != nil {
			c.rt.PrintError()
		}
		return
	}

	res, err := c.rt.EvalCode(code)
	if err != nil || c.rt.ErrOccurred() {
		c.rt.PrintError()
		if res != nil {
			res.DecRef()
		}
		return
	}
	if res.Kind() != interp.KindNone {
		c.ui.Msg("%s\n", renderObject(res))
	}
	res.DecRef()
}

// renderObject formats an object for console echo.
func renderObject(o interp.Object) string {
	switch o.Kind() {
	case interp.KindBool:
		if o.Int() != 0 {
			return "true"
		}
		return "false"
	case interp.KindInt:
		return fmt.Sprintf("%d", o.Int())
	case interp.KindFloat:
		return fmt.Sprintf("%g", o.Float())
	case interp.KindString:
		return o.Str()
	default:
		return fmt.Sprintf("<%s>", o.TypeName())
	}
}

// CompleteLine delegates to the interpreter-side completion helper and
// returns its top completion. It fails when the helper is absent or does
// not produce a string.
func (c *CLI) CompleteLine(prefix string, n int, line string, x int) (string, bool) {
	mod, err := c.rt.Import(HelperModule)
	if err != nil {
		return "", false
	}
	defer mod.DecRef()

	complete, found := mod.Attr("completeLine")
	if !found {
		return "", false
	}
	defer complete.DecRef()

	var sc interp.Scope
	defer sc.Close()
	args := []interp.Object{
		sc.Track(c.rt.NewString(prefix)),
		sc.Track(c.rt.NewInt(int64(n))),
		sc.Track(c.rt.NewString(line)),
		sc.Track(c.rt.NewInt(int64(x))),
	}

	ret, _ := complete.Call(args...)
	// Swallow any helper error.
	c.rt.ClearError()
	if ret == nil {
		return "", false
	}
	defer ret.DecRef()

	if ret.Kind() != interp.KindString {
		return "", false
	}
	return ret.Str(), true
}

var _ host.CLI = (*CLI)(nil)
