// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

// Package watchdog makes a single script evaluation interruptible. It rides
// the interpreter's per-line trace hook: every traced line first checks for
// a user break (injecting an interrupt into the runtime), and once the
// configured timeout has elapsed it shows the host's progress/cancel
// indicator, exactly once per execution. There is no preemption; a script
// that never reaches a traced line is never interrupted.
package watchdog

import (
	"time"

	"github.com/relic-re/jsbridge/internal/host"
	"github.com/relic-re/jsbridge/internal/interp"
)

// DefaultTimeout is the number of seconds a script may run before the
// indicator is shown.
const DefaultTimeout = 2

// timerStride bounds the overhead of the wall-clock check: the timer is
// consulted once per this many trace calls.
const timerStride = 10

// Watchdog wraps script executions for one runtime. It is driven from the
// host's calling thread; Begin/End bracket every top-level evaluation.
type Watchdog struct {
	rt interp.Runtime
	ui host.UI

	timeout  int // seconds; 0 disables tracing entirely
	uiReady  bool
	ninsns   int
	start    time.Time
	boxShown bool

	now func() time.Time // test hook
}

// New returns a watchdog bound to rt and ui with the default timeout.
func New(rt interp.Runtime, ui host.UI) *Watchdog {
	return &Watchdog{rt: rt, ui: ui, timeout: DefaultTimeout, now: time.Now}
}

// SetUIReady records whether the host UI can render the indicator yet.
// Until it can, executions run untraced.
func (w *Watchdog) SetUIReady(ready bool) { w.uiReady = ready }

// SetTimeout installs a new timeout in seconds and returns the previous
// one, so a caller can temporarily override and restore it. The elapsed
// anchor is reset and a visible indicator is hidden so it can reappear
// after the new timeout elapses.
func (w *Watchdog) SetTimeout(seconds int) int {
	prev := w.timeout
	w.timeout = seconds
	w.resetClock()
	w.hideBox()
	return prev
}

// Disable clears the timeout and tears the trace hook down.
func (w *Watchdog) Disable() {
	w.timeout = 0
	w.End()
}

// Timeout returns the active timeout in seconds.
func (w *Watchdog) Timeout() int { return w.timeout }

// Begin prepares for one top-level execution. With the UI not yet ready or
// the timeout disabled it does nothing and the execution runs untraced.
func (w *Watchdog) Begin() {
	if !w.uiReady || w.timeout == 0 {
		return
	}
	w.End()
	w.resetClock()
	w.rt.SetTrace(w.step)
}

// End tears down after an execution: the indicator is hidden if shown and
// the trace hook is uninstalled. It must run on every exit path of the
// wrapped execution and is safe to call redundantly.
func (w *Watchdog) End() {
	w.hideBox()
	w.rt.SetTrace(nil)
}

func (w *Watchdog) resetClock() {
	w.start = w.now()
	w.ninsns = 0
}

func (w *Watchdog) hideBox() {
	if w.boxShown {
		w.ui.HideWaitBox()
		w.boxShown = false
	}
}

// step is the per-line trace callback.
func (w *Watchdog) step(_ interp.Event) {
	if w.ui.WasBreak() {
		// Cancel pressed in the waitbox; abort the evaluation at the
		// runtime's next safe point.
		w.rt.Interrupt()
		return
	}
	if w.boxShown {
		return
	}
	w.ninsns++
	if w.ninsns <= timerStride {
		return
	}
	w.ninsns = 0
	if w.timeout != 0 && w.now().Sub(w.start) > time.Duration(w.timeout)*time.Second {
		w.boxShown = true
		w.ui.ShowWaitBox("Running script")
	}
}
