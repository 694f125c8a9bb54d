// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

package bridge

import (
	"testing"

	"github.com/relic-re/jsbridge/internal/interp"
	"github.com/relic-re/jsbridge/internal/interp/interptest"
	"github.com/relic-re/jsbridge/internal/watchdog"
)

func newTestCLI() (*CLI, *interptest.Runtime, *stubUI) {
	rt := interptest.New()
	ui := &stubUI{}
	return NewCLI(rt, watchdog.New(rt, ui), ui), rt, ui
}

func TestExecuteLineContinuation(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "trailing colon", line: "if (x):"},
		{name: "leading space", line: " x = 1"},
		{name: "leading tab", line: "\tx = 1"},
		{name: "last logical line continues", line: "a = 1\n b = 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rt, _ := newTestCLI()
			if c.ExecuteLine(tt.line) {
				t.Fatal("incomplete input should request more lines")
			}
			if rt.LastEval != "" || rt.LastExec != "" {
				t.Error("incomplete input must not be executed")
			}
		})
	}
}

func TestExecuteLineEmpty(t *testing.T) {
	c, rt, _ := newTestCLI()
	if !c.ExecuteLine("") {
		t.Fatal("empty input is complete")
	}
	if rt.LastEval != "" || rt.LastExec != "" {
		t.Error("empty input must not be executed")
	}
}

func TestExecuteLineMultiLineBlock(t *testing.T) {
	c, rt, _ := newTestCLI()
	ran := false
	rt.HandleStmt("a = 1\nb = 2", func() error { ran = true; return nil })

	if !c.ExecuteLine("a = 1\nb = 2") {
		t.Fatal("complete block should execute")
	}
	if !ran {
		t.Error("statement block not executed")
	}
	checkLeaks(t, rt)
}

func TestExecuteLineShellEscape(t *testing.T) {
	c, rt, _ := newTestCLI()
	ran := false
	rt.HandleStmt("hostapi.execSystem('echo hi')", func() error { ran = true; return nil })

	if !c.ExecuteLine("!echo hi") {
		t.Fatal("shell escape is a complete line")
	}
	if !ran {
		t.Errorf("rewritten command not executed, last was %q", rt.LastExec)
	}
	checkLeaks(t, rt)
}

func TestExecuteLineHelpShortcut(t *testing.T) {
	c, rt, _ := newTestCLI()
	ran := false
	rt.HandleStmt("help(foo)", func() error { ran = true; return nil })

	if !c.ExecuteLine("?foo") {
		t.Fatal("help shortcut is a complete line")
	}
	if !ran {
		t.Errorf("rewritten command not executed, last was %q", rt.LastExec)
	}
	checkLeaks(t, rt)
}

func TestExecuteLineEchoesExpressionResult(t *testing.T) {
	c, rt, ui := newTestCLI()

	if !c.ExecuteLine("42") {
		t.Fatal("expression is a complete line")
	}
	if len(ui.msgs) != 1 || ui.msgs[0] != "42\n" {
		t.Errorf("console output = %q, want the echoed result", ui.msgs)
	}
	checkLeaks(t, rt)
}

func TestExecuteLineVoidResultNotEchoed(t *testing.T) {
	c, rt, ui := newTestCLI()
	rt.HandleExpr("quiet()", func() (interp.Object, error) {
		return rt.None(), nil
	})

	if !c.ExecuteLine("quiet()") {
		t.Fatal("expression is a complete line")
	}
	if len(ui.msgs) != 0 {
		t.Errorf("void result must not be echoed, got %q", ui.msgs)
	}
	checkLeaks(t, rt)
}

func TestExecuteLinePrintsExpressionError(t *testing.T) {
	c, rt, _ := newTestCLI()

	if !c.ExecuteLine("boom") {
		t.Fatal("failing expression is still a complete line")
	}
	if len(rt.Printed) != 1 {
		t.Fatalf("error not printed, Printed = %q", rt.Printed)
	}
	if rt.ErrOccurred() {
		t.Error("pending error must be consumed")
	}
	checkLeaks(t, rt)
}

func TestCompleteLine(t *testing.T) {
	t.Run("helper returns a completion", func(t *testing.T) {
		c, rt, _ := newTestCLI()
		hm := rt.DefineModule(HelperModule)
		var gotPrefix, gotLine string
		var gotN, gotX int64
		fn := rt.NewNative("completeLine", func(args []interp.Object) (interp.Object, error) {
			gotPrefix, gotN = args[0].Str(), args[1].Int()
			gotLine, gotX = args[2].Str(), args[3].Int()
			return rt.NewString("print"), nil
		})
		if err := hm.SetAttr("completeLine", fn); err != nil {
			t.Fatal(err)
		}
		fn.DecRef()

		got, ok := c.CompleteLine("pri", 0, "pri", 3)
		if !ok || got != "print" {
			t.Fatalf("CompleteLine = (%q, %v)", got, ok)
		}
		if gotPrefix != "pri" || gotN != 0 || gotLine != "pri" || gotX != 3 {
			t.Errorf("helper saw (%q, %d, %q, %d)", gotPrefix, gotN, gotLine, gotX)
		}
		checkLeaks(t, rt)
	})

	t.Run("non-string result is rejected", func(t *testing.T) {
		c, rt, _ := newTestCLI()
		hm := rt.DefineModule(HelperModule)
		fn := rt.NewNative("completeLine", func([]interp.Object) (interp.Object, error) {
			return rt.NewInt(7), nil
		})
		if err := hm.SetAttr("completeLine", fn); err != nil {
			t.Fatal(err)
		}
		fn.DecRef()

		if _, ok := c.CompleteLine("x", 0, "x", 1); ok {
			t.Error("non-string completion must be rejected")
		}
		checkLeaks(t, rt)
	})

	t.Run("helper failure is swallowed", func(t *testing.T) {
		c, rt, _ := newTestCLI()
		hm := rt.DefineModule(HelperModule)
		fn := rt.NewNative("completeLine", func([]interp.Object) (interp.Object, error) {
			return nil, &interp.ScriptError{Msg: "no completions"}
		})
		if err := hm.SetAttr("completeLine", fn); err != nil {
			t.Fatal(err)
		}
		fn.DecRef()

		if _, ok := c.CompleteLine("x", 0, "x", 1); ok {
			t.Error("helper failure must report no completion")
		}
		if rt.ErrOccurred() {
			t.Error("helper failure must not leave a pending error")
		}
		checkLeaks(t, rt)
	})

	t.Run("missing helper module", func(t *testing.T) {
		c, rt, _ := newTestCLI()
		if _, ok := c.CompleteLine("x", 0, "x", 1); ok {
			t.Error("missing helper must report no completion")
		}
		checkLeaks(t, rt)
	})
}
