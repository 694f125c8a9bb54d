// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

package bridge

import (
	"github.com/relic-re/jsbridge/internal/host"
	"github.com/relic-re/jsbridge/internal/interp"
)

// FailKind classifies the failure of an adapter operation. The host ABI
// only carries text and a success flag; the kind is kept for callers on our
// side of the boundary that must tell cancellation apart from a script
// fault.
type FailKind int

const (
	FailNone FailKind = iota
	FailParse
	FailImport
	FailAttrNotFound
	FailNotCallable
	FailConversion
	FailConstructor
	FailInterrupted
	FailInternal
)

func (k FailKind) String() string {
	switch k {
	case FailNone:
		return "none"
	case FailParse:
		return "parse error"
	case FailImport:
		return "import error"
	case FailAttrNotFound:
		return "attribute not found"
	case FailNotCallable:
		return "not callable"
	case FailConversion:
		return "conversion error"
	case FailConstructor:
		return "constructor error"
	case FailInterrupted:
		return "interrupted"
	case FailInternal:
		return "internal error"
	default:
		return "unknown"
	}
}

// fillError formats the runtime's pending error into errbuf, clearing the
// pending state when clear is set. With no pending error the buffer is left
// empty. A pending error that yields no text still produces a generic
// non-empty message so callers never see failure paired with an empty
// buffer. The returned kind distinguishes cancellation from a fault.
func fillError(rt interp.Runtime, errbuf *host.ErrBuf, clear bool) FailKind {
	errbuf.Reset()
	if !rt.ErrOccurred() {
		return FailNone
	}
	e, ok := rt.PendingError(clear)
	if !ok || e.Msg == "" {
		errbuf.Set("internal error")
		return FailInternal
	}
	errbuf.Set(e.Msg)
	if e.Interrupted {
		return FailInterrupted
	}
	return FailInternal
}
