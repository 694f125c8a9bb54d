// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

package gojart

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dop251/goja"

	"github.com/relic-re/jsbridge/internal/interp"
	"github.com/relic-re/jsbridge/internal/util"
)

// AddModule registers an empty module namespace and binds it as a global,
// so scripts can reference it without importing.
func (rt *Runtime) AddModule(name string) (interp.Object, error) {
	if rt.closed {
		return nil, fmt.Errorf("runtime is closed")
	}
	if name == interp.MainName {
		return rt.Main()
	}
	rt.modMu.Lock()
	mod, ok := rt.modules[name]
	if !ok {
		mod = rt.vm.NewObject()
		rt.modules[name] = mod
	}
	rt.modMu.Unlock()
	if !ok {
		if err := rt.vm.GlobalObject().Set(name, mod); err != nil {
			return nil, err
		}
	}
	return rt.wrap(mod), nil
}

// Import returns the named module, loading "<name>.js" from the search
// path on first use. A failed import leaves no pending error; the caller
// decides how to report it.
func (rt *Runtime) Import(name string) (interp.Object, error) {
	if name == interp.MainName {
		return rt.Main()
	}
	rt.modMu.Lock()
	mod, ok := rt.modules[name]
	rt.modMu.Unlock()
	if ok {
		return rt.wrap(mod), nil
	}
	file := rt.findModule(name)
	if file == "" {
		return nil, fmt.Errorf("no module named %q", name)
	}
	loaded, err := rt.loadModule(name, file)
	if err != nil {
		rt.ClearError()
		return nil, fmt.Errorf("module %q: %w", name, err)
	}
	rt.modMu.Lock()
	rt.modules[name] = loaded
	rt.modFiles[file] = append(rt.modFiles[file], name)
	rt.modMu.Unlock()
	return rt.wrap(loaded), nil
}

func (rt *Runtime) findModule(name string) string {
	for _, dir := range rt.path {
		p := filepath.Join(dir, name+".js")
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	return ""
}

// loadModule evaluates the module file in a function scope and returns its
// exports object. Assignments to `exports` members become the namespace.
func (rt *Runtime) loadModule(name, file string) (*goja.Object, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	prog, err := goja.Compile(file, "(function(exports) {\n"+string(src)+"\n})", false)
	if err != nil {
		return nil, err
	}
	util.Debug("loading module", "name", name, "file", file)
	exports := rt.vm.NewObject()
	v, err := rt.run(func() (goja.Value, error) { return rt.vm.RunProgram(prog) })
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, fmt.Errorf("module wrapper did not produce a function")
	}
	if _, err := rt.run(func() (goja.Value, error) {
		return fn(goja.Undefined(), exports)
	}); err != nil {
		return nil, err
	}
	return exports, nil
}

// Invalidate drops any modules loaded from path so the next Import
// re-reads the file. Implements the autoload invalidator contract.
func (rt *Runtime) Invalidate(path string) {
	rt.modMu.Lock()
	defer rt.modMu.Unlock()
	names, ok := rt.modFiles[path]
	if !ok {
		return
	}
	for _, name := range names {
		util.Debug("invalidating module", "name", name, "file", path)
		delete(rt.modules, name)
	}
	delete(rt.modFiles, path)
}
