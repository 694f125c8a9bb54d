// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

package interp

// Scope releases a set of acquired references on exit. It replaces the
// decrement-on-every-early-return pattern: track each acquisition once,
// defer Close, and every control path releases exactly once.
//
//	var sc interp.Scope
//	defer sc.Close()
//	mod, err := rt.Import(name)
//	sc.Track(mod)
type Scope struct {
	objs []Object
}

// Track registers o for release when the scope closes and returns it
// unchanged. Tracking nil is a no-op, so failed acquisitions can be tracked
// unconditionally.
func (s *Scope) Track(o Object) Object {
	if o != nil {
		s.objs = append(s.objs, o)
	}
	return o
}

// Forget removes the most recent tracking of o, for references whose
// ownership has been transferred elsewhere (the no-decref convention).
func (s *Scope) Forget(o Object) {
	for i := len(s.objs) - 1; i >= 0; i-- {
		if s.objs[i] == o {
			s.objs = append(s.objs[:i], s.objs[i+1:]...)
			return
		}
	}
}

// Close releases every tracked reference, most recent first, and empties
// the scope. Safe to call more than once.
func (s *Scope) Close() {
	for i := len(s.objs) - 1; i >= 0; i-- {
		s.objs[i].DecRef()
	}
	s.objs = nil
}
