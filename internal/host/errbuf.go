// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

package host

import "fmt"

// DefaultErrBufSize matches the host's MAXSTR error buffer convention.
const DefaultErrBufSize = 1024

// ErrBuf is a bounded error-message buffer. The host dispatches extension
// language calls with a fixed-capacity buffer; messages longer than the
// capacity are truncated, never rejected. The zero value is usable and
// holds DefaultErrBufSize bytes.
type ErrBuf struct {
	cap int
	s   string
}

// NewErrBuf returns a buffer holding at most capacity bytes. A
// non-positive capacity selects the default.
func NewErrBuf(capacity int) *ErrBuf {
	if capacity <= 0 {
		capacity = DefaultErrBufSize
	}
	return &ErrBuf{cap: capacity}
}

// Set replaces the buffer content, truncating to capacity.
func (b *ErrBuf) Set(msg string) {
	max := b.cap
	if max <= 0 {
		max = DefaultErrBufSize
	}
	if len(msg) > max {
		msg = msg[:max]
	}
	b.s = msg
}

// Setf formats into the buffer, truncating to capacity.
func (b *ErrBuf) Setf(format string, args ...any) {
	b.Set(fmt.Sprintf(format, args...))
}

// Reset empties the buffer.
func (b *ErrBuf) Reset() { b.s = "" }

// Empty reports whether the buffer holds no message.
func (b *ErrBuf) Empty() bool { return b.s == "" }

// String returns the current message.
func (b *ErrBuf) String() string { return b.s }

// Cap returns the buffer capacity.
func (b *ErrBuf) Cap() int { return b.cap }
