// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"

	"github.com/relic-re/jsbridge/internal/host"
)

// Styles
var (
	warnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	waitStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))
)

// ConsoleHost adapts the terminal session to the host surface the bridge
// expects: console output, cancellation, simple dialogs, registration
// slots and a file-backed blob store.
type ConsoleHost struct {
	mu sync.Mutex

	interrupted atomic.Bool

	options string
	args    []string
	blobDir string

	langs []host.ExtLang
	clis  []host.CLI
	funcs map[string]host.StmtFunc
	menus map[string]func()

	// readLine is installed by the REPL so dialogs share its line editor;
	// nil falls back to buffered stdin.
	readLine func(prompt string) (string, error)
}

func newConsoleHost(blobDir, options string, args []string) *ConsoleHost {
	return &ConsoleHost{
		options: options,
		args:    args,
		blobDir: blobDir,
		funcs:   map[string]host.StmtFunc{},
		menus:   map[string]func(){},
	}
}

// WasBreak consumes a pending Ctrl-C.
func (h *ConsoleHost) WasBreak() bool { return h.interrupted.Swap(false) }

func (h *ConsoleHost) ShowWaitBox(msg string) {
	fmt.Fprintln(os.Stderr, waitStyle.Render(msg+"... (Ctrl-C to cancel)"))
}

func (h *ConsoleHost) HideWaitBox() {}

func (h *ConsoleHost) Msg(format string, args ...any) {
	fmt.Printf(format, args...)
}

func (h *ConsoleHost) Warning(format string, args ...any) {
	fmt.Fprintln(os.Stderr, warnStyle.Render("Warning: "+fmt.Sprintf(format, args...)))
}

func (h *ConsoleHost) AskYN(deflt bool, format string, args ...any) bool {
	fmt.Println(fmt.Sprintf(format, args...))
	for {
		line, err := h.promptLine("[y/n] ")
		if err != nil {
			return deflt
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
	}
}

// AskText collects lines until a lone "." and offers the previous text as
// the starting point.
func (h *ConsoleHost) AskText(prompt, initial string) (string, bool) {
	for _, l := range strings.Split(prompt, "\n") {
		if l != "" && !strings.EqualFold(l, "ACCEPT TABS") {
			fmt.Println(l)
		}
	}
	if initial != "" {
		fmt.Println(waitStyle.Render("Previous statement (press Enter on an empty first line to reuse):"))
		fmt.Println(initial)
	}
	fmt.Println(waitStyle.Render("Finish with a single '.' on its own line; '.cancel' aborts."))
	var lines []string
	for {
		line, err := h.promptLine("> ")
		if err != nil {
			return "", false
		}
		if len(lines) == 0 && line == "" && initial != "" {
			return initial, true
		}
		switch line {
		case ".":
			return strings.Join(lines, "\n"), true
		case ".cancel":
			return "", false
		}
		lines = append(lines, line)
	}
}

func (h *ConsoleHost) promptLine(prompt string) (string, error) {
	if h.readLine != nil {
		return h.readLine(prompt)
	}
	fmt.Print(prompt)
	r := bufio.NewReader(os.Stdin)
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (h *ConsoleHost) InstallExtLang(l host.ExtLang) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.langs = append(h.langs, l)
	return nil
}

func (h *ConsoleHost) RemoveExtLang(l host.ExtLang) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, x := range h.langs {
		if x == l {
			h.langs = append(h.langs[:i], h.langs[i+1:]...)
			return
		}
	}
}

func (h *ConsoleHost) InstallCLI(c host.CLI) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clis = append(h.clis, c)
	return nil
}

func (h *ConsoleHost) RemoveCLI(c host.CLI) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, x := range h.clis {
		if x == c {
			h.clis = append(h.clis[:i], h.clis[i+1:]...)
			return
		}
	}
}

// CurrentCLI returns the active command interpreter, nil when none.
func (h *ConsoleHost) CurrentCLI() host.CLI {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clis) == 0 {
		return nil
	}
	return h.clis[len(h.clis)-1]
}

func (h *ConsoleHost) RegisterFunc(name string, fn host.StmtFunc) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, dup := h.funcs[name]; dup {
		return fmt.Errorf("function %q already registered", name)
	}
	h.funcs[name] = fn
	return nil
}

func (h *ConsoleHost) UnregisterFunc(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.funcs, name)
}

func (h *ConsoleHost) AddMenuItem(path string, handler func()) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, dup := h.menus[path]; dup {
		return fmt.Errorf("menu item %q already installed", path)
	}
	h.menus[path] = handler
	return nil
}

func (h *ConsoleHost) DelMenuItem(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.menus, path)
}

func (h *ConsoleHost) PluginOptions(plugin string) string { return h.options }

func (h *ConsoleHost) ScriptArgs() []string { return h.args }

func (h *ConsoleHost) LoadBlob(key string) []byte {
	data, err := os.ReadFile(h.blobPath(key))
	if err != nil {
		return nil
	}
	return data
}

func (h *ConsoleHost) SaveBlob(key string, data []byte) {
	if err := os.MkdirAll(h.blobDir, 0o700); err != nil {
		h.Warning("cannot persist %s: %v", key, err)
		return
	}
	if err := os.WriteFile(h.blobPath(key), data, 0o600); err != nil {
		h.Warning("cannot persist %s: %v", key, err)
	}
}

func (h *ConsoleHost) blobPath(key string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, key)
	return filepath.Join(h.blobDir, safe)
}

var _ host.Host = (*ConsoleHost)(nil)
