// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

package host

// Event identifies a host notification delivered to the plugin.
type Event int

const (
	EventInit Event = iota
	EventTerm
	EventUIReady
	EventDatabaseOpened
)

// UI is the subset of host services needed while a script is running.
type UI interface {
	// WasBreak reports whether the user has requested cancellation (for
	// example by pressing the waitbox Cancel button) since the last call.
	WasBreak() bool

	// ShowWaitBox displays the modal progress/cancel indicator.
	ShowWaitBox(msg string)

	// HideWaitBox hides the indicator if displayed.
	HideWaitBox()

	// Msg prints to the host console.
	Msg(format string, args ...any)

	// Warning displays a warning to the user.
	Warning(format string, args ...any)
}

// Host is the full service surface the lifecycle manager depends on.
type Host interface {
	UI

	// AskYN asks a yes/no question; deflt is returned on cancel.
	AskYN(deflt bool, format string, args ...any) bool

	// AskText asks for multi-line text seeded with initial. ok is false
	// when the user cancels.
	AskText(prompt, initial string) (text string, ok bool)

	// InstallExtLang registers the extension language with the host.
	InstallExtLang(l ExtLang) error

	// RemoveExtLang unregisters a previously installed language.
	RemoveExtLang(l ExtLang)

	// InstallCLI registers the command interpreter.
	InstallCLI(c CLI) error

	// RemoveCLI unregisters a previously installed command interpreter.
	RemoveCLI(c CLI)

	// RegisterFunc publishes a host-callable function under name.
	RegisterFunc(name string, fn StmtFunc) error

	// UnregisterFunc removes a published function.
	UnregisterFunc(name string)

	// AddMenuItem installs a menu entry invoking handler.
	AddMenuItem(path string, handler func()) error

	// DelMenuItem removes a menu entry.
	DelMenuItem(path string)

	// PluginOptions returns the raw options string the host was started
	// with for the named plugin, or "".
	PluginOptions(plugin string) string

	// ScriptArgs returns the script arguments the host collected for the
	// current database session (the ARGV convention).
	ScriptArgs() []string

	// LoadBlob fetches persisted plugin data by key; nil when absent.
	LoadBlob(key string) []byte

	// SaveBlob persists plugin data under key.
	SaveBlob(key string, data []byte)
}
