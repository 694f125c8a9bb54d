// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

package host

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.cfg")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadConfigFile(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"# leading comment",
		"",
		"SCRIPT_TIMEOUT = 5",
		"; another comment style",
		"ALERT_AUTO_SCRIPTS=NO",
		"  USE_LOCAL_RUNTIME =  YES  ",
	}, "\n"))

	got := map[string]string{}
	err := ReadConfigFile(path, func(key, value string) error {
		got[key] = value
		return nil
	})
	if err != nil {
		t.Fatalf("ReadConfigFile: %v", err)
	}
	want := map[string]string{
		"SCRIPT_TIMEOUT":     "5",
		"ALERT_AUTO_SCRIPTS": "NO",
		"USE_LOCAL_RUNTIME":  "YES",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d options, want %d: %v", len(got), len(want), got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("option %s = %q, want %q", k, got[k], v)
		}
	}
}

func TestReadConfigFileMissingIsNotAnError(t *testing.T) {
	err := ReadConfigFile(filepath.Join(t.TempDir(), "absent.cfg"), func(key, value string) error {
		t.Errorf("unexpected option %s", key)
		return nil
	})
	if err != nil {
		t.Errorf("missing file should be ignored, got %v", err)
	}
}

func TestReadConfigFileBadKey(t *testing.T) {
	path := writeConfig(t, "GOOD = 1\nBOGUS = 2\n")
	err := ReadConfigFile(path, func(key, value string) error {
		if key == "BOGUS" {
			return ErrBadKey
		}
		return nil
	})
	if !errors.Is(err, ErrBadKey) {
		t.Fatalf("want ErrBadKey, got %v", err)
	}
	if !strings.Contains(err.Error(), ":2:") {
		t.Errorf("error should carry the line number, got %q", err.Error())
	}
}

func TestReadConfigFileMissingEquals(t *testing.T) {
	path := writeConfig(t, "JUSTAKEY\n")
	err := ReadConfigFile(path, func(key, value string) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "missing '='") {
		t.Errorf("want missing '=' error, got %v", err)
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		value   string
		want    bool
		wantErr bool
	}{
		{value: "YES", want: true},
		{value: "yes", want: true},
		{value: "TRUE", want: true},
		{value: "ON", want: true},
		{value: "NO", want: false},
		{value: "false", want: false},
		{value: "OFF", want: false},
		{value: "1", want: true},
		{value: "0", want: false},
		{value: "42", want: true},
		{value: "maybe", wantErr: true},
		{value: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseBool(tt.value)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseBool(%q) should fail", tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBool(%q): %v", tt.value, err)
			}
			if got != tt.want {
				t.Errorf("ParseBool(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
