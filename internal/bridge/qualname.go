// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

package bridge

import (
	"strings"

	"github.com/relic-re/jsbridge/internal/interp"
)

const (
	// MainModule is the default/main namespace module.
	MainModule = interp.MainName

	// HelperModule hosts the interpreter-side helper functions
	// (execScript, execSystem, completeLine, help) and is the default
	// target of unqualified class names.
	HelperModule = "hostapi"
)

// splitQualName splits "module.attribute" into its parts. An unqualified
// name maps to defmod; qualified reports whether a module part was present.
func splitQualName(full, defmod string) (mod, attr string, qualified bool) {
	i := strings.IndexByte(full, '.')
	if i < 0 {
		return defmod, full, false
	}
	return full[:i], full[i+1:], true
}
