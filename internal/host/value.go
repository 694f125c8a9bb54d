// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

// Package host specifies the boundary to the disassembly host: the dynamic
// value type its expression evaluator trades in, the extension-language and
// command-interpreter contracts it dispatches through, and the UI and
// persistence services it supplies to a scripting plugin.
package host

import "fmt"

// Kind tags the active arm of a Value.
type Kind int

const (
	KindVoid Kind = iota
	KindLong
	KindFloat
	KindString
	KindObject
)

// Opaque is an interpreter-native reference carried through a Value without
// being decomposed. The Value owns one reference to it and releases that
// reference when cleared.
type Opaque interface {
	IncRef()
	DecRef()
}

// Value is the host's tagged dynamic value. Values are caller-allocated and
// mutated in place through the Set* operations; they are never shared.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	o    Opaque
}

// Kind returns the active arm.
func (v *Value) Kind() Kind { return v.kind }

// Clear resets the value to void, releasing an owned opaque reference if one
// is stored.
func (v *Value) Clear() {
	if v.kind == KindObject && v.o != nil {
		v.o.DecRef()
	}
	*v = Value{}
}

// SetLong stores an integer, clearing the previous content.
func (v *Value) SetLong(n int64) {
	v.Clear()
	v.kind = KindLong
	v.i = n
}

// SetFloat stores a float, clearing the previous content.
func (v *Value) SetFloat(f float64) {
	v.Clear()
	v.kind = KindFloat
	v.f = f
}

// SetString stores a string, clearing the previous content.
func (v *Value) SetString(s string) {
	v.Clear()
	v.kind = KindString
	v.s = s
}

// SetObject stores an opaque interpreter reference, taking ownership of it.
// The previous content is cleared first.
func (v *Value) SetObject(o Opaque) {
	v.Clear()
	v.kind = KindObject
	v.o = o
}

// Long returns the integer arm. Valid only when Kind() == KindLong.
func (v *Value) Long() int64 { return v.i }

// Float returns the float arm. Valid only when Kind() == KindFloat.
func (v *Value) Float() float64 { return v.f }

// Str returns the string arm. Valid only when Kind() == KindString.
func (v *Value) Str() string { return v.s }

// Object returns the opaque arm without transferring ownership.
// Valid only when Kind() == KindObject.
func (v *Value) Object() Opaque { return v.o }

// String renders the value for console output.
func (v *Value) String() string {
	switch v.kind {
	case KindVoid:
		return "<void>"
	case KindLong:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	case KindObject:
		return "<object>"
	default:
		return "<?>"
	}
}
