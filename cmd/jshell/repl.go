// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	"github.com/relic-re/jsbridge/internal/lifecycle"
)

// jsCompleter adapts the bridge's completion to readline.
type jsCompleter struct {
	h *ConsoleHost
}

func (c jsCompleter) Do(line []rune, pos int) ([][]rune, int) {
	cli := c.h.CurrentCLI()
	if cli == nil {
		return nil, 0
	}
	start := pos
	for start > 0 && isIdentRune(line[start-1]) {
		start--
	}
	prefix := string(line[start:pos])
	if prefix == "" {
		return nil, 0
	}
	sugg, ok := cli.CompleteLine(prefix, 0, string(line), pos)
	if !ok || !strings.HasPrefix(sugg, prefix) {
		return nil, 0
	}
	return [][]rune{[]rune(sugg[len(prefix):])}, len(prefix)
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '.' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// startREPL reads input until EOF, feeding complete logical inputs to the
// bridge CLI. A trailing ':' or leading whitespace on the last line keeps
// collecting continuation lines.
func startREPL(h *ConsoleHost, mgr *lifecycle.Manager, historyFile string) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		runPipedInput(h)
		return
	}

	rlConfig := &readline.Config{
		Prompt:            promptStyle.Render("JS> "),
		HistoryFile:       historyFile,
		HistoryLimit:      1000,
		AutoComplete:      jsCompleter{h: h},
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	}
	rl, err := readline.NewEx(rlConfig)
	if err != nil {
		fmt.Printf("Failed to create readline instance, falling back to basic input: %v\n", err)
		runPipedInput(h)
		return
	}
	defer func() { _ = rl.Close() }()

	h.readLine = func(prompt string) (string, error) {
		rl.SetPrompt(prompt)
		defer rl.SetPrompt(promptStyle.Render("JS> "))
		return rl.Readline()
	}

	pending := ""
	for {
		if pending == "" {
			rl.SetPrompt(promptStyle.Render("JS> "))
		} else {
			rl.SetPrompt(promptStyle.Render("... "))
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if pending != "" {
					pending = ""
					continue
				}
				h.interrupted.Store(true)
				fmt.Println("Use 'quit' or 'exit' to exit")
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		if pending == "" {
			switch strings.TrimSpace(line) {
			case "quit", "exit":
				return
			case ".statement":
				mgr.RunStatementUI()
				continue
			}
		}

		input := pending + line
		cli := h.CurrentCLI()
		if cli == nil {
			fmt.Println("Command interpreter is disabled")
			pending = ""
			continue
		}
		if cli.ExecuteLine(input) {
			pending = ""
		} else {
			pending = input + "\n"
		}
	}
}

// runPipedInput handles non-interactive stdin: every line goes straight to
// the CLI, continuations included.
func runPipedInput(h *ConsoleHost) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	pending := ""
	for scanner.Scan() {
		input := pending + scanner.Text()
		cli := h.CurrentCLI()
		if cli == nil {
			return
		}
		if cli.ExecuteLine(input) {
			pending = ""
		} else {
			pending = input + "\n"
		}
	}
	if pending != "" {
		if cli := h.CurrentCLI(); cli != nil {
			cli.ExecuteLine(strings.TrimSuffix(pending, "\n"))
		}
	}
}
