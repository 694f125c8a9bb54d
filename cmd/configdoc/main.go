// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 jsbridge Authors

// configdoc generates markdown documentation from Go struct tags.
// Usage: go run ./cmd/configdoc > doc/CONFIG_REFERENCE.md
package main

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/relic-re/jsbridge/internal/util"
)

// EnvVar represents an environment variable configuration
type EnvVar struct {
	Name        string
	Description string
	UsedBy      string
}

// cfgKey represents a jsbridge.cfg key. That file is line-based key=value,
// not YAML, so its reference is kept here instead of in struct tags.
type cfgKey struct {
	Name        string
	Type        string
	Default     string
	Description string
}

func main() {
	fmt.Println("# Configuration Reference")
	fmt.Println()
	fmt.Println("Auto-generated from Go struct tags. Do not edit manually.")
	fmt.Println()
	fmt.Println("---")
	fmt.Println()

	// jshell config
	fmt.Println("## jshell Configuration")
	fmt.Println()
	fmt.Println("File: `config.yaml` in jshell data directory (`-d` or `JSHELL_DATA`)")
	fmt.Println()
	printStructTable(reflect.TypeOf(util.Config{}))
	fmt.Println()

	// bridge config
	fmt.Println("## Bridge Configuration")
	fmt.Println()
	fmt.Println("File: `jsbridge.cfg` in the bundled scripts directory, `KEY = value` per line.")
	fmt.Println()
	printCfgKeys()
	fmt.Println()

	// Environment variables
	fmt.Println("## Environment Variables")
	fmt.Println()
	printEnvVars()
}

func printStructTable(t reflect.Type) {
	printStructTableWithPrefix(t, "")
}

func printStructTableWithPrefix(t reflect.Type, prefix string) {
	if prefix == "" {
		fmt.Println("| Field | Type | Default | Description |")
		fmt.Println("|-------|------|---------|-------------|")
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		// Get yaml tag first, fall back to json tag
		tag := field.Tag.Get("yaml")
		if tag == "" {
			tag = field.Tag.Get("json")
		}
		if tag == "" || tag == "-" {
			continue
		}
		// Handle tag options like "omitempty"
		fieldName := strings.Split(tag, ",")[0]
		if prefix != "" {
			fieldName = prefix + "." + fieldName
		}

		// Check if this is a nested struct (pointer to struct)
		if field.Type.Kind() == reflect.Ptr && field.Type.Elem().Kind() == reflect.Struct {
			// Get description for the nested struct itself
			desc := field.Tag.Get("description")
			if desc == "" {
				desc = "(nested config block)"
			}
			fmt.Printf("| `%s` | object | (none) | %s |\n", fieldName, desc)
			// Recursively print nested struct fields
			printStructTableWithPrefix(field.Type.Elem(), fieldName)
			continue
		}

		// Get description
		desc := field.Tag.Get("description")
		if desc == "" {
			desc = "(no description)"
		}

		// Get default
		def := field.Tag.Get("default")
		switch def {
		case "":
			def = "(none)"
		case `""`:
			def = "(empty string)"
		}

		// Get type name
		typeName := formatType(field.Type)

		fmt.Printf("| `%s` | %s | `%s` | %s |\n", fieldName, typeName, def, desc)
	}
}

func formatType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "int"
	case reflect.Bool:
		return "bool"
	case reflect.Slice:
		return "[]" + formatType(t.Elem())
	case reflect.Ptr:
		return "*" + formatType(t.Elem())
	default:
		return t.String()
	}
}

func printCfgKeys() {
	keys := []cfgKey{
		{"SCRIPT_TIMEOUT", "int", "2", "Seconds before the cancel indicator appears for a running script; 0 disables the watchdog"},
		{"ALERT_AUTO_SCRIPTS", "bool", "YES", "Warn before starting up when an auto-run script sits in the current directory"},
		{"REMOVE_CWD_SYS_PATH", "bool", "NO", "Drop the current directory from the module search path"},
		{"USE_LOCAL_RUNTIME", "bool", "NO", "Skip the prelude import and use the runtime as configured locally"},
	}

	fmt.Println("| Key | Type | Default | Description |")
	fmt.Println("|-----|------|---------|-------------|")
	for _, k := range keys {
		fmt.Printf("| `%s` | %s | `%s` | %s |\n", k.Name, k.Type, k.Default, k.Description)
	}
	fmt.Println()
	fmt.Println("Boolean values accept `YES`/`NO`, `TRUE`/`FALSE`, `ON`/`OFF`, `1`/`0`.")
}

func printEnvVars() {
	envVars := []EnvVar{
		{"JSHELL_DATA", "Data directory for jshell (config, scripts, history, blobs)", "jshell"},
		{"JSBRIDGE_DEBUG", "Set to any value to enable debug logging", "jshell"},
	}

	fmt.Println("| Variable | Description | Used By |")
	fmt.Println("|----------|-------------|---------|")

	for _, env := range envVars {
		fmt.Printf("| `%s` | %s | %s |\n", env.Name, env.Description, env.UsedBy)
	}

	// Add config search paths
	fmt.Println()
	fmt.Println("### Data Directory Configuration")
	fmt.Println()
	fmt.Println("jshell resolves its data directory in this order:")
	fmt.Println()
	fmt.Println("- `-d <path>` flag, or")
	fmt.Println("- `JSHELL_DATA` environment variable, or")
	fmt.Println("- `~/.jshell`")
	fmt.Println()
	fmt.Println("Bundled scripts are installed into `<datadir>/scripts` on first run;")
	fmt.Println("existing files are never overwritten.")
}

func init() {
	// Ensure we exit cleanly
	if len(os.Args) > 1 && os.Args[1] == "--help" {
		fmt.Println("Usage: go run ./cmd/configdoc > doc/CONFIG_REFERENCE.md")
		fmt.Println()
		fmt.Println("Generates markdown documentation from Go struct tags.")
		os.Exit(0)
	}
}
