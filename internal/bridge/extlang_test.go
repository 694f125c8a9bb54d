// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

package bridge

import (
	"fmt"
	"strings"
	"testing"

	"github.com/relic-re/jsbridge/internal/host"
	"github.com/relic-re/jsbridge/internal/interp"
	"github.com/relic-re/jsbridge/internal/interp/interptest"
	"github.com/relic-re/jsbridge/internal/watchdog"
)

// stubUI satisfies host.UI for bridge tests; the watchdog stays disarmed
// because the UI is never marked ready.
type stubUI struct {
	msgs []string
}

func (u *stubUI) WasBreak() bool         { return false }
func (u *stubUI) ShowWaitBox(string)     {}
func (u *stubUI) HideWaitBox()           {}
func (u *stubUI) Warning(string, ...any) {}
func (u *stubUI) Msg(format string, args ...any) {
	u.msgs = append(u.msgs, fmt.Sprintf(format, args...))
}

func newTestLang() (*Lang, *interptest.Runtime, *stubUI) {
	rt := interptest.New()
	ui := &stubUI{}
	return NewLang(rt, watchdog.New(rt, ui)), rt, ui
}

func checkLeaks(t *testing.T, rt *interptest.Runtime) {
	t.Helper()
	if leaks := rt.Leaks(); len(leaks) != 0 {
		t.Errorf("reference leaks: %v", leaks)
	}
}

func TestCompileBindsCallable(t *testing.T) {
	l, rt, _ := newTestLang()
	var eb host.ErrBuf

	if !l.Compile("answer", "42", &eb) {
		t.Fatalf("Compile failed: %s", eb.String())
	}

	var res host.Value
	if !l.Run("answer", nil, &res, &eb) {
		t.Fatalf("Run failed: %s", eb.String())
	}
	if res.Kind() != host.KindLong || res.Long() != 42 {
		t.Errorf("result = %s, want 42", res.String())
	}
	res.Clear()
	checkLeaks(t, rt)
}

func TestCompileParseError(t *testing.T) {
	l, rt, _ := newTestLang()
	var eb host.ErrBuf

	if l.Compile("bad", "not ... an expression", &eb) {
		t.Fatal("Compile should reject a non-expression")
	}
	if eb.Empty() {
		t.Error("parse failure must produce an error message")
	}
	if l.LastFailKind() != FailParse {
		t.Errorf("kind = %v, want FailParse", l.LastFailKind())
	}
	checkLeaks(t, rt)
}

func TestRunWithArguments(t *testing.T) {
	l, rt, _ := newTestLang()
	main := rt.DefineModule("main")
	add := rt.NewNative("add", func(args []interp.Object) (interp.Object, error) {
		return rt.NewInt(args[0].Int() + args[1].Int()), nil
	})
	if err := main.SetAttr("add", add); err != nil {
		t.Fatal(err)
	}
	add.DecRef()

	args := make([]host.Value, 2)
	args[0].SetLong(1)
	args[1].SetLong(2)
	var res host.Value
	var eb host.ErrBuf

	if !l.Run("add", args, &res, &eb) {
		t.Fatalf("Run failed: %s", eb.String())
	}
	if res.Long() != 3 {
		t.Errorf("result = %d, want 3", res.Long())
	}
	res.Clear()
	checkLeaks(t, rt)
}

func TestRunUndefinedFunction(t *testing.T) {
	l, rt, _ := newTestLang()
	var res host.Value
	var eb host.ErrBuf

	if l.Run("nosuch", nil, &res, &eb) {
		t.Fatal("Run of an undefined function should fail")
	}
	if got := eb.String(); got != "undefined function nosuch" {
		t.Errorf("errbuf = %q", got)
	}
	if l.LastFailKind() != FailAttrNotFound {
		t.Errorf("kind = %v, want FailAttrNotFound", l.LastFailKind())
	}
	checkLeaks(t, rt)
}

func TestRunImportFailureLeavesNoReferences(t *testing.T) {
	l, rt, _ := newTestLang()
	args := make([]host.Value, 1)
	args[0].SetString("arg")
	var res host.Value
	var eb host.ErrBuf

	if l.Run("nomod.fn", args, &res, &eb) {
		t.Fatal("Run should fail on an unknown module")
	}
	if !strings.HasPrefix(eb.String(), "could not import module 'nomod'") {
		t.Errorf("errbuf = %q", eb.String())
	}
	if l.LastFailKind() != FailImport {
		t.Errorf("kind = %v, want FailImport", l.LastFailKind())
	}
	checkLeaks(t, rt)
}

func TestCalcExpr(t *testing.T) {
	l, rt, _ := newTestLang()
	var res host.Value
	var eb host.ErrBuf

	if !l.CalcExpr("'hi'", &res, &eb) {
		t.Fatalf("CalcExpr failed: %s", eb.String())
	}
	if res.Kind() != host.KindString || res.Str() != "hi" {
		t.Errorf("result = %s", res.String())
	}
	res.Clear()

	if l.CalcExpr("$$$ nonsense", &res, &eb) {
		t.Fatal("CalcExpr should fail on invalid source")
	}
	if eb.Empty() {
		t.Error("failure must carry the interpreter error text")
	}
	checkLeaks(t, rt)
}

// seedHelper installs a hostapi module whose execScript behaves as fn says.
func seedHelper(t *testing.T, rt *interptest.Runtime, fn interp.NativeFunc) {
	t.Helper()
	hm := rt.DefineModule(HelperModule)
	o := rt.NewNative("execScript", fn)
	if err := hm.SetAttr("execScript", o); err != nil {
		t.Fatal(err)
	}
	o.DecRef()
}

func TestCompileFile(t *testing.T) {
	t.Run("success normalizes path", func(t *testing.T) {
		l, rt, _ := newTestLang()
		var gotPath string
		seedHelper(t, rt, func(args []interp.Object) (interp.Object, error) {
			gotPath = args[0].Str()
			return rt.None(), nil
		})
		var eb host.ErrBuf
		if !l.CompileFile(`C:\scripts\tool.js`, &eb) {
			t.Fatalf("CompileFile failed: %s", eb.String())
		}
		if gotPath != "C:/scripts/tool.js" {
			t.Errorf("helper saw path %q", gotPath)
		}
		checkLeaks(t, rt)
	})

	t.Run("helper returns error text", func(t *testing.T) {
		l, rt, _ := newTestLang()
		seedHelper(t, rt, func([]interp.Object) (interp.Object, error) {
			return rt.NewString("tool.js: line 3: boom"), nil
		})
		var eb host.ErrBuf
		if l.CompileFile("tool.js", &eb) {
			t.Fatal("CompileFile should report the helper's failure")
		}
		if eb.String() != "tool.js: line 3: boom" {
			t.Errorf("errbuf = %q", eb.String())
		}
		checkLeaks(t, rt)
	})

	t.Run("interruption is classified", func(t *testing.T) {
		l, rt, _ := newTestLang()
		seedHelper(t, rt, func([]interp.Object) (interp.Object, error) {
			return nil, &interp.ScriptError{Msg: "execution interrupted", Interrupted: true}
		})
		var eb host.ErrBuf
		if l.CompileFile("tool.js", &eb) {
			t.Fatal("CompileFile should fail")
		}
		if l.LastFailKind() != FailInterrupted {
			t.Errorf("kind = %v, want FailInterrupted", l.LastFailKind())
		}
		checkLeaks(t, rt)
	})

	t.Run("silent abort reads as interruption", func(t *testing.T) {
		l, rt, _ := newTestLang()
		seedHelper(t, rt, func([]interp.Object) (interp.Object, error) {
			return nil, &interp.ScriptError{}
		})
		var eb host.ErrBuf
		if l.CompileFile("tool.js", &eb) {
			t.Fatal("CompileFile should fail")
		}
		if eb.String() != "Script interrupted" {
			t.Errorf("errbuf = %q", eb.String())
		}
		if l.LastFailKind() != FailInterrupted {
			t.Errorf("kind = %v, want FailInterrupted", l.LastFailKind())
		}
		checkLeaks(t, rt)
	})

	t.Run("missing helper", func(t *testing.T) {
		l, rt, _ := newTestLang()
		var eb host.ErrBuf
		if l.CompileFile("tool.js", &eb) {
			t.Fatal("CompileFile should fail without the helper module")
		}
		if !strings.Contains(eb.String(), "execScript") {
			t.Errorf("errbuf = %q", eb.String())
		}
		checkLeaks(t, rt)
	})
}

func TestCreateObject(t *testing.T) {
	l, rt, _ := newTestLang()
	hm := rt.DefineModule(HelperModule)
	cursor := rt.NewNative("Cursor", func([]interp.Object) (interp.Object, error) {
		return rt.NewObject("cursor"), nil
	})
	if err := hm.SetAttr("Cursor", cursor); err != nil {
		t.Fatal(err)
	}
	cursor.DecRef()

	t.Run("unqualified name targets the helper module", func(t *testing.T) {
		var res host.Value
		var eb host.ErrBuf
		if !l.CreateObject("Cursor", nil, &res, &eb) {
			t.Fatalf("CreateObject failed: %s", eb.String())
		}
		if res.Kind() != host.KindObject {
			t.Fatalf("result kind = %v, want KindObject", res.Kind())
		}
		res.Clear()
		checkLeaks(t, rt)
	})

	t.Run("unknown class", func(t *testing.T) {
		var res host.Value
		var eb host.ErrBuf
		if l.CreateObject("Nope", nil, &res, &eb) {
			t.Fatal("CreateObject should fail")
		}
		if eb.String() != "could not find class type 'Nope'" {
			t.Errorf("errbuf = %q", eb.String())
		}
		checkLeaks(t, rt)
	})

	t.Run("unknown module", func(t *testing.T) {
		var res host.Value
		var eb host.ErrBuf
		if l.CreateObject("nomod.Thing", nil, &res, &eb) {
			t.Fatal("CreateObject should fail")
		}
		if eb.String() != "could not import module 'nomod'" {
			t.Errorf("errbuf = %q", eb.String())
		}
		checkLeaks(t, rt)
	})

	t.Run("constructor failure", func(t *testing.T) {
		broken := rt.NewNative("Broken", func([]interp.Object) (interp.Object, error) {
			return nil, &interp.ScriptError{Msg: "ctor blew up"}
		})
		if err := hm.SetAttr("Broken", broken); err != nil {
			t.Fatal(err)
		}
		broken.DecRef()

		var res host.Value
		var eb host.ErrBuf
		if l.CreateObject("Broken", nil, &res, &eb) {
			t.Fatal("CreateObject should fail")
		}
		if eb.String() != "ctor blew up" {
			t.Errorf("errbuf = %q", eb.String())
		}
		if l.LastFailKind() != FailConstructor {
			t.Errorf("kind = %v, want FailConstructor", l.LastFailKind())
		}
		checkLeaks(t, rt)
	})
}

func TestGetAttr(t *testing.T) {
	l, rt, _ := newTestLang()
	main := rt.DefineModule("main")
	n := rt.NewInt(5)
	if err := main.SetAttr("x", n); err != nil {
		t.Fatal(err)
	}
	n.DecRef()

	t.Run("nil object with empty attr yields type name", func(t *testing.T) {
		var res host.Value
		if !l.GetAttr(nil, "", &res) {
			t.Fatal("GetAttr failed")
		}
		if res.Str() != "module" {
			t.Errorf("type name = %q", res.Str())
		}
		res.Clear()
		checkLeaks(t, rt)
	})

	t.Run("scalar attribute of main", func(t *testing.T) {
		var res host.Value
		if !l.GetAttr(nil, "x", &res) {
			t.Fatal("GetAttr failed")
		}
		if res.Kind() != host.KindLong || res.Long() != 5 {
			t.Errorf("result = %s", res.String())
		}
		res.Clear()
		checkLeaks(t, rt)
	})

	t.Run("string target resolves through main", func(t *testing.T) {
		var target host.Value
		target.SetString("x")
		var res host.Value
		if !l.GetAttr(&target, "", &res) {
			t.Fatal("GetAttr failed")
		}
		if res.Str() != "int" {
			t.Errorf("type name = %q", res.Str())
		}
		res.Clear()
		checkLeaks(t, rt)
	})

	t.Run("opaque target with object attribute transfers", func(t *testing.T) {
		view := rt.NewObject("view")
		inner := rt.NewObject("range")
		if err := view.SetAttr("sel", inner); err != nil {
			t.Fatal(err)
		}
		inner.DecRef()

		var target host.Value
		target.SetObject(view)
		var res host.Value
		if !l.GetAttr(&target, "sel", &res) {
			t.Fatal("GetAttr failed")
		}
		if res.Kind() != host.KindObject {
			t.Fatalf("kind = %v", res.Kind())
		}
		res.Clear()
		target.Clear()
		checkLeaks(t, rt)
	})

	t.Run("absent attribute", func(t *testing.T) {
		var res host.Value
		if l.GetAttr(nil, "ghost", &res) {
			t.Fatal("GetAttr of an absent attribute should fail")
		}
		checkLeaks(t, rt)
	})
}

func TestSetAttr(t *testing.T) {
	l, rt, _ := newTestLang()
	main := rt.DefineModule("main")

	var v host.Value
	v.SetLong(9)
	if !l.SetAttr(nil, "y", &v) {
		t.Fatal("SetAttr failed")
	}
	got, ok := main.Attr("y")
	if !ok {
		t.Fatal("attribute not stored")
	}
	if got.Int() != 9 {
		t.Errorf("y = %d, want 9", got.Int())
	}
	got.DecRef()
	checkLeaks(t, rt)
}

func TestSetAttrReadOnly(t *testing.T) {
	l, rt, _ := newTestLang()
	main := rt.DefineModule("main")
	rt.MarkReadOnly(main, "frozen")

	var v host.Value
	v.SetLong(1)
	if l.SetAttr(nil, "frozen", &v) {
		t.Fatal("SetAttr to a read-only attribute should fail")
	}
	checkLeaks(t, rt)
}

func TestSetAttrObjectValueKeepsOwnership(t *testing.T) {
	l, rt, _ := newTestLang()
	obj := rt.NewObject("payload")

	var v host.Value
	v.SetObject(obj)
	if !l.SetAttr(nil, "p", &v) {
		t.Fatal("SetAttr failed")
	}
	// The attribute holds its own reference; v still owns the original.
	v.Clear()
	checkLeaks(t, rt)
}

func TestCallMethod(t *testing.T) {
	l, rt, _ := newTestLang()

	t.Run("no method is unsupported", func(t *testing.T) {
		var eb host.ErrBuf
		if l.CallMethod(nil, "", nil, nil, &eb) {
			t.Fatal("CallMethod without a method should fail")
		}
		if eb.String() != "call_method does not support this operation" {
			t.Errorf("errbuf = %q", eb.String())
		}
	})

	t.Run("no object degenerates to Run", func(t *testing.T) {
		main := rt.DefineModule("main")
		ping := rt.NewNative("ping", func([]interp.Object) (interp.Object, error) {
			return rt.NewString("pong"), nil
		})
		if err := main.SetAttr("ping", ping); err != nil {
			t.Fatal(err)
		}
		ping.DecRef()

		var res host.Value
		var eb host.ErrBuf
		if !l.CallMethod(nil, "ping", nil, &res, &eb) {
			t.Fatalf("CallMethod failed: %s", eb.String())
		}
		if res.Str() != "pong" {
			t.Errorf("result = %q", res.Str())
		}
		res.Clear()
		checkLeaks(t, rt)
	})

	t.Run("method on object", func(t *testing.T) {
		conn := rt.NewObject("conn")
		closed := false
		closeFn := rt.NewNative("close", func([]interp.Object) (interp.Object, error) {
			closed = true
			return rt.None(), nil
		})
		if err := conn.SetAttr("close", closeFn); err != nil {
			t.Fatal(err)
		}
		closeFn.DecRef()

		var target host.Value
		target.SetObject(conn)
		var res host.Value
		var eb host.ErrBuf
		if !l.CallMethod(&target, "close", nil, &res, &eb) {
			t.Fatalf("CallMethod failed: %s", eb.String())
		}
		if !closed {
			t.Error("method not invoked")
		}
		res.Clear()
		target.Clear()
		checkLeaks(t, rt)
	})

	t.Run("non-callable attribute", func(t *testing.T) {
		doc := rt.NewObject("doc")
		name := rt.NewString("report")
		if err := doc.SetAttr("name", name); err != nil {
			t.Fatal(err)
		}
		name.DecRef()

		var target host.Value
		target.SetObject(doc)
		var eb host.ErrBuf
		if l.CallMethod(&target, "name", nil, nil, &eb) {
			t.Fatal("CallMethod on a non-callable should fail")
		}
		if l.LastFailKind() != FailNotCallable {
			t.Errorf("kind = %v, want FailNotCallable", l.LastFailKind())
		}
		target.Clear()
		checkLeaks(t, rt)
	})
}

func TestRunStatements(t *testing.T) {
	l, rt, _ := newTestLang()
	main := rt.DefineModule("main")

	var eb host.ErrBuf
	if !l.RunStatements("x = 5", &eb) {
		t.Fatalf("RunStatements failed: %s", eb.String())
	}
	got, ok := main.Attr("x")
	if !ok || got.Int() != 5 {
		t.Fatal("assignment did not reach the main namespace")
	}
	got.DecRef()

	if l.RunStatements("@#! garbage", &eb) {
		t.Fatal("RunStatements should fail on garbage")
	}
	if eb.Empty() {
		t.Error("failure must produce an error message")
	}

	rt.HandleStmt("weird", func() error { return &interp.ScriptError{} })
	if l.RunStatements("weird", &eb) {
		t.Fatal("RunStatements should fail")
	}
	if eb.String() != "internal error" {
		t.Errorf("empty interpreter error should fall back to a generic message, got %q", eb.String())
	}
	checkLeaks(t, rt)
}

func TestSplitQualName(t *testing.T) {
	tests := []struct {
		full      string
		defmod    string
		mod       string
		attr      string
		qualified bool
	}{
		{full: "f", defmod: "main", mod: "main", attr: "f", qualified: false},
		{full: "mod.f", defmod: "main", mod: "mod", attr: "f", qualified: true},
		{full: "a.b.c", defmod: "main", mod: "a", attr: "b.c", qualified: true},
		{full: "", defmod: "hostapi", mod: "hostapi", attr: "", qualified: false},
	}
	for _, tt := range tests {
		t.Run(tt.full, func(t *testing.T) {
			mod, attr, qualified := splitQualName(tt.full, tt.defmod)
			if mod != tt.mod || attr != tt.attr || qualified != tt.qualified {
				t.Errorf("splitQualName(%q, %q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.full, tt.defmod, mod, attr, qualified, tt.mod, tt.attr, tt.qualified)
			}
		})
	}
}
