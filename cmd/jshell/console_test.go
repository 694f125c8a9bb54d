// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/relic-re/jsbridge/internal/host"
)

func TestBlobStore(t *testing.T) {
	h := newConsoleHost(filepath.Join(t.TempDir(), "blobs"), "", nil)

	if got := h.LoadBlob("jsbridge.statement"); got != nil {
		t.Errorf("absent blob = %q, want nil", got)
	}

	h.SaveBlob("jsbridge.statement", []byte("x = 1"))
	if got := h.LoadBlob("jsbridge.statement"); !bytes.Equal(got, []byte("x = 1")) {
		t.Errorf("loaded %q", got)
	}

	h.SaveBlob("jsbridge.statement", []byte("y = 2"))
	if got := h.LoadBlob("jsbridge.statement"); !bytes.Equal(got, []byte("y = 2")) {
		t.Errorf("loaded %q after overwrite", got)
	}
}

func TestBlobKeySanitized(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blobs")
	h := newConsoleHost(dir, "", nil)

	h.SaveBlob("a/b\\c:d", []byte("v"))
	if got := h.LoadBlob("a/b\\c:d"); !bytes.Equal(got, []byte("v")) {
		t.Fatalf("loaded %q", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "a_b_c_d")); err != nil {
		t.Errorf("expected sanitized file name: %v", err)
	}
}

func TestWasBreakConsumes(t *testing.T) {
	h := newConsoleHost(t.TempDir(), "", nil)
	if h.WasBreak() {
		t.Fatal("no break requested yet")
	}
	h.interrupted.Store(true)
	if !h.WasBreak() {
		t.Fatal("break not observed")
	}
	if h.WasBreak() {
		t.Fatal("break must be consumed by the first observer")
	}
}

type nopCLI struct{ name string }

func (c *nopCLI) Name() string            { return c.name }
func (c *nopCLI) Description() string     { return c.name }
func (c *nopCLI) Hint() string            { return "" }
func (c *nopCLI) ExecuteLine(string) bool { return true }
func (c *nopCLI) CompleteLine(string, int, string, int) (string, bool) {
	return "", false
}

func TestCLIRegistry(t *testing.T) {
	h := newConsoleHost(t.TempDir(), "", nil)
	if h.CurrentCLI() != nil {
		t.Fatal("no CLI installed yet")
	}
	a, b := &nopCLI{name: "a"}, &nopCLI{name: "b"}
	if err := h.InstallCLI(a); err != nil {
		t.Fatal(err)
	}
	if err := h.InstallCLI(b); err != nil {
		t.Fatal(err)
	}
	if h.CurrentCLI() != host.CLI(b) {
		t.Error("the most recent CLI must be current")
	}
	h.RemoveCLI(b)
	if h.CurrentCLI() != host.CLI(a) {
		t.Error("removal must fall back to the previous CLI")
	}
	h.RemoveCLI(a)
	if h.CurrentCLI() != nil {
		t.Error("registry not empty after removals")
	}
}

func TestFuncRegistryRejectsDuplicates(t *testing.T) {
	h := newConsoleHost(t.TempDir(), "", nil)
	fn := func(string, *host.Value) {}
	if err := h.RegisterFunc("RunJSStatement", fn); err != nil {
		t.Fatal(err)
	}
	if err := h.RegisterFunc("RunJSStatement", fn); err == nil {
		t.Fatal("duplicate registration should fail")
	}
	h.UnregisterFunc("RunJSStatement")
	if err := h.RegisterFunc("RunJSStatement", fn); err != nil {
		t.Fatalf("re-registration after removal failed: %v", err)
	}
}

func TestMenuRegistryRejectsDuplicates(t *testing.T) {
	h := newConsoleHost(t.TempDir(), "", nil)
	if err := h.AddMenuItem("File/JS command...", func() {}); err != nil {
		t.Fatal(err)
	}
	if err := h.AddMenuItem("File/JS command...", func() {}); err == nil {
		t.Fatal("duplicate menu item should fail")
	}
	h.DelMenuItem("File/JS command...")
	if err := h.AddMenuItem("File/JS command...", func() {}); err != nil {
		t.Fatal(err)
	}
}
