// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

package gojart

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/dop251/goja"

	"github.com/relic-re/jsbridge/internal/interp"
)

// object is a counted handle on a Goja value. The count is bookkeeping:
// the value itself is garbage collected, but a release past zero panics so
// ownership bugs surface in tests instead of silently leaking.
type object struct {
	rt   *Runtime
	v    goja.Value
	refs int
}

func (rt *Runtime) wrap(v goja.Value) *object {
	return &object{rt: rt, v: v, refs: 1}
}

func (o *object) IncRef() {
	if o.refs <= 0 {
		panic("gojart: IncRef on released object")
	}
	o.refs++
}

func (o *object) DecRef() {
	if o.refs <= 0 {
		panic("gojart: DecRef past zero")
	}
	o.refs--
}

func (o *object) Kind() interp.ObjKind {
	if goja.IsUndefined(o.v) || goja.IsNull(o.v) {
		return interp.KindNone
	}
	t := o.v.ExportType()
	if t == nil {
		return interp.KindNone
	}
	switch t.Kind() {
	case reflect.Bool:
		return interp.KindBool
	case reflect.Int64:
		return interp.KindInt
	case reflect.Float64:
		return interp.KindFloat
	case reflect.String:
		return interp.KindString
	}
	return interp.KindOther
}

func (o *object) Int() int64 { return o.v.ToInteger() }

func (o *object) Float() float64 { return o.v.ToFloat() }

func (o *object) Str() string { return o.v.String() }

func (o *object) TypeName() string {
	switch {
	case goja.IsUndefined(o.v):
		return "undefined"
	case goja.IsNull(o.v):
		return "null"
	}
	if obj, ok := o.v.(*goja.Object); ok {
		return obj.ClassName()
	}
	t := o.v.ExportType()
	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.Int64, reflect.Float64:
		return "number"
	case reflect.String:
		return "string"
	}
	return t.String()
}

// Attr looks up a property. An absent or undefined property reports false
// without recording a pending error.
func (o *object) Attr(name string) (interp.Object, bool) {
	obj, ok := o.v.(*goja.Object)
	if !ok {
		return nil, false
	}
	v := obj.Get(name)
	if v == nil || goja.IsUndefined(v) {
		return nil, false
	}
	return o.rt.wrap(v), true
}

func (o *object) SetAttr(name string, val interp.Object) error {
	obj, ok := o.v.(*goja.Object)
	if !ok {
		return fmt.Errorf("cannot set %q on a %s", name, o.TypeName())
	}
	return obj.Set(name, val.(*object).v)
}

func (o *object) Dir() []string {
	obj, ok := o.v.(*goja.Object)
	if !ok {
		return nil
	}
	keys := obj.Keys()
	sort.Strings(keys)
	return keys
}

func (o *object) Callable() bool {
	_, ok := goja.AssertFunction(o.v)
	return ok
}

func (o *object) Call(args ...interp.Object) (interp.Object, error) {
	fn, ok := goja.AssertFunction(o.v)
	if !ok {
		return nil, errors.New("object is not callable")
	}
	gargs := make([]goja.Value, len(args))
	for i, a := range args {
		gargs[i] = a.(*object).v
	}
	v, err := o.rt.run(func() (goja.Value, error) {
		return fn(goja.Undefined(), gargs...)
	})
	if err != nil {
		return nil, err
	}
	return o.rt.wrap(v), nil
}

var _ interp.Object = (*object)(nil)
