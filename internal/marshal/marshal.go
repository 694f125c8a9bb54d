// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

// Package marshal converts values between the host's dynamic value type and
// interpreter objects. Scalars are converted by copy; everything else
// crosses the boundary as an opaque reference, with the tri-state Outcome
// making the ownership contract explicit at the type level.
package marshal

import (
	"fmt"

	"github.com/relic-re/jsbridge/internal/host"
	"github.com/relic-re/jsbridge/internal/interp"
)

// Outcome is the result of one conversion.
type Outcome int

const (
	// Failed: no conversion happened; the destination is untouched.
	Failed Outcome = iota
	// Owned: the destination holds a copy; the source reference is still
	// owned by the caller and must be released as usual.
	Owned
	// Transferred: the destination now owns the reference; the caller must
	// NOT release it.
	Transferred
)

// Ok reports whether the outcome is a success of either ownership flavor.
func (o Outcome) Ok() bool { return o != Failed }

// ToInterp converts a host value to an interpreter object.
//
// Scalars produce a fresh object with outcome Owned: the caller owns the
// returned reference. An opaque host value yields the stored object itself
// with outcome Transferred: the reference remains owned by the host value
// and the caller must not release it.
func ToInterp(rt interp.Runtime, v *host.Value) (interp.Object, Outcome) {
	switch v.Kind() {
	case host.KindLong:
		return rt.NewInt(v.Long()), Owned
	case host.KindFloat:
		return rt.NewFloat(v.Float()), Owned
	case host.KindString:
		return rt.NewString(v.Str()), Owned
	case host.KindObject:
		o, ok := v.Object().(interp.Object)
		if !ok {
			return nil, Failed
		}
		return o, Transferred
	case host.KindVoid:
		return rt.None(), Owned
	default:
		return nil, Failed
	}
}

// FromInterp converts an interpreter object into dst, clearing dst first.
//
// Primitive kinds are copied out with outcome Owned: the caller still owns
// o and releases it as usual. Any other object is stored into dst's opaque
// slot with outcome Transferred: ownership of the reference moves into dst
// and the caller must not release it.
func FromInterp(rt interp.Runtime, o interp.Object, dst *host.Value) Outcome {
	dst.Clear()
	switch o.Kind() {
	case interp.KindNone:
		return Owned
	case interp.KindBool:
		dst.SetLong(o.Int())
		return Owned
	case interp.KindInt:
		dst.SetLong(o.Int())
		return Owned
	case interp.KindFloat:
		dst.SetFloat(o.Float())
		return Owned
	case interp.KindString:
		dst.SetString(o.Str())
		return Owned
	default:
		dst.SetObject(o)
		return Transferred
	}
}

// ConvertArgs converts an argument list for an interpreter call. It returns
// the converted objects plus a parallel needs-release vector: true entries
// were created here and must be released after the call, false entries are
// opaque pass-throughs whose references stay owned by the host values.
//
// A failure at any index releases all releasable references already
// produced and returns an error; no partial result is surfaced.
func ConvertArgs(rt interp.Runtime, args []host.Value) ([]interp.Object, []bool, error) {
	objs := make([]interp.Object, 0, len(args))
	release := make([]bool, 0, len(args))
	for i := range args {
		o, out := ToInterp(rt, &args[i])
		if out == Failed {
			FreeArgs(objs, release)
			return nil, nil, fmt.Errorf("cannot convert argument %d", i)
		}
		objs = append(objs, o)
		release = append(release, out == Owned)
	}
	return objs, release, nil
}

// FreeArgs releases exactly the references ConvertArgs flagged as
// releasable.
func FreeArgs(objs []interp.Object, release []bool) {
	for i, o := range objs {
		if release[i] {
			o.DecRef()
		}
	}
}
