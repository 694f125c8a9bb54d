// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

package watchdog

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/relic-re/jsbridge/internal/interp"
	"github.com/relic-re/jsbridge/internal/interp/interptest"
)

// fakeUI counts indicator traffic and replays queued break requests.
type fakeUI struct {
	breaks int
	shown  int
	hidden int
}

func (u *fakeUI) WasBreak() bool {
	if u.breaks > 0 {
		u.breaks--
		return true
	}
	return false
}
func (u *fakeUI) ShowWaitBox(msg string)         { u.shown++ }
func (u *fakeUI) HideWaitBox()                   { u.hidden++ }
func (u *fakeUI) Msg(format string, args ...any) {}
func (u *fakeUI) Warning(string, ...any)         {}

// fakeClock lets tests move the watchdog's wall clock by hand.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestWatchdog() (*Watchdog, *interptest.Runtime, *fakeUI, *fakeClock) {
	rt := interptest.New()
	ui := &fakeUI{}
	clock := &fakeClock{t: time.Unix(1000, 0)}
	w := New(rt, ui)
	w.now = clock.now
	w.SetUIReady(true)
	return w, rt, ui, clock
}

func TestBeginInstallsTraceOnlyWhenArmed(t *testing.T) {
	tests := []struct {
		name    string
		uiReady bool
		timeout int
		want    bool
	}{
		{name: "armed", uiReady: true, timeout: 2, want: true},
		{name: "ui not ready", uiReady: false, timeout: 2, want: false},
		{name: "timeout disabled", uiReady: true, timeout: 0, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, rt, _, _ := newTestWatchdog()
			w.SetUIReady(tt.uiReady)
			w.SetTimeout(tt.timeout)
			w.Begin()
			if got := rt.TraceInstalled(); got != tt.want {
				t.Errorf("trace installed = %v, want %v", got, tt.want)
			}
			w.End()
			if rt.TraceInstalled() {
				t.Error("End must uninstall the trace hook")
			}
		})
	}
}

func TestIndicatorShownOncePerExecution(t *testing.T) {
	w, rt, ui, clock := newTestWatchdog()
	w.SetTimeout(1)

	w.Begin()
	clock.advance(2 * time.Second)
	// Well past both the timeout and several timer strides.
	if err := rt.ExecStmts(fmt.Sprintf("spin %d", 10*timerStride)); err != nil {
		t.Fatalf("spin: %v", err)
	}
	if ui.shown != 1 {
		t.Errorf("indicator shown %d times, want exactly 1", ui.shown)
	}
	w.End()
	if ui.hidden != 1 {
		t.Errorf("indicator hidden %d times, want 1", ui.hidden)
	}
}

func TestIndicatorNotShownBeforeTimeout(t *testing.T) {
	w, rt, ui, _ := newTestWatchdog()
	w.SetTimeout(60)

	w.Begin()
	if err := rt.ExecStmts(fmt.Sprintf("spin %d", 10*timerStride)); err != nil {
		t.Fatalf("spin: %v", err)
	}
	w.End()
	if ui.shown != 0 {
		t.Errorf("indicator shown %d times before timeout", ui.shown)
	}
	if ui.hidden != 0 {
		t.Errorf("nothing shown, but hidden %d times", ui.hidden)
	}
}

func TestBreakInterruptsExecution(t *testing.T) {
	w, rt, ui, _ := newTestWatchdog()

	w.Begin()
	ui.breaks = 1
	err := rt.ExecStmts("spin 1000")
	w.End()

	var se *interp.ScriptError
	if !errors.As(err, &se) || !se.Interrupted {
		t.Fatalf("want interrupted ScriptError, got %v", err)
	}
}

func TestSetTimeoutReturnsPrevious(t *testing.T) {
	w, _, _, _ := newTestWatchdog()
	if prev := w.SetTimeout(10); prev != DefaultTimeout {
		t.Errorf("first SetTimeout returned %d, want %d", prev, DefaultTimeout)
	}
	if prev := w.SetTimeout(0); prev != 10 {
		t.Errorf("second SetTimeout returned %d, want 10", prev)
	}
	if w.Timeout() != 0 {
		t.Errorf("Timeout() = %d, want 0", w.Timeout())
	}
}

func TestSetTimeoutRearmsIndicator(t *testing.T) {
	w, rt, ui, clock := newTestWatchdog()
	w.SetTimeout(1)

	w.Begin()
	clock.advance(2 * time.Second)
	if err := rt.ExecStmts(fmt.Sprintf("spin %d", 2*timerStride)); err != nil {
		t.Fatalf("spin: %v", err)
	}
	if ui.shown != 1 {
		t.Fatalf("indicator shown %d times, want 1", ui.shown)
	}

	// A new timeout hides the indicator and restarts the clock mid-run.
	w.SetTimeout(1)
	if ui.hidden != 1 {
		t.Fatalf("indicator not hidden by SetTimeout")
	}
	clock.advance(2 * time.Second)
	if err := rt.ExecStmts(fmt.Sprintf("spin %d", 2*timerStride)); err != nil {
		t.Fatalf("spin: %v", err)
	}
	if ui.shown != 2 {
		t.Errorf("indicator shown %d times, want 2 after re-arm", ui.shown)
	}
	w.End()
}

func TestEndIsIdempotent(t *testing.T) {
	w, rt, ui, clock := newTestWatchdog()
	w.SetTimeout(1)
	w.Begin()
	clock.advance(2 * time.Second)
	if err := rt.ExecStmts(fmt.Sprintf("spin %d", 2*timerStride)); err != nil {
		t.Fatalf("spin: %v", err)
	}
	w.End()
	w.End()
	if ui.hidden != 1 {
		t.Errorf("hidden %d times, want 1", ui.hidden)
	}
}

func TestDisableClearsTimeout(t *testing.T) {
	w, rt, _, _ := newTestWatchdog()
	w.Disable()
	if w.Timeout() != 0 {
		t.Errorf("Timeout() = %d after Disable", w.Timeout())
	}
	w.Begin()
	if rt.TraceInstalled() {
		t.Error("Begin after Disable must not trace")
	}
}
