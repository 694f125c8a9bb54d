// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

package host

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrBadKey is returned by an option handler for a key it does not recognize.
var ErrBadKey = errors.New("bad configuration key")

// OptionFunc applies one configuration option. It returns ErrBadKey for an
// unknown key and any other error for a malformed value.
type OptionFunc func(key, value string) error

// ReadConfigFile reads a line-oriented KEY = value configuration file and
// feeds every option to apply. Blank lines and lines starting with '#' or
// ';' are skipped. A missing file is not an error: configuration files are
// optional.
func ReadConfigFile(path string, apply OptionFunc) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			return fmt.Errorf("%s:%d: missing '='", path, lineno)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if err := apply(key, value); err != nil {
			return fmt.Errorf("%s:%d: %q: %w", path, lineno, key, err)
		}
	}
	return sc.Err()
}

// ParseBool parses a configuration boolean. Accepts YES/NO, TRUE/FALSE and
// numeric values in the host's usual spelling.
func ParseBool(value string) (bool, error) {
	switch strings.ToUpper(value) {
	case "YES", "TRUE", "ON":
		return true, nil
	case "NO", "FALSE", "OFF":
		return false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", value)
	}
	return n != 0, nil
}
