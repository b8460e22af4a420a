package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LaunchScriptName returns the launcher file name for goos.
func LaunchScriptName(goos string) string {
	if goos == "windows" {
		return "run_filesystem_mcp.bat"
	}
	return "run_filesystem_mcp.sh"
}

// LaunchScript renders a script that starts the server for manual testing.
func LaunchScript(goos string, entry ServerEntry) string {
	if goos == "windows" {
		var b strings.Builder
		b.WriteString("@echo off\r\n")
		for _, k := range sortedKeys(entry.Env) {
			fmt.Fprintf(&b, "set \"%s=%s\"\r\n", k, entry.Env[k])
		}
		b.WriteString(batQuote(entry.Command))
		for _, a := range entry.Args {
			b.WriteString(" " + batQuote(a))
		}
		b.WriteString("\r\npause\r\n")
		return b.String()
	}

	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	for _, k := range sortedKeys(entry.Env) {
		fmt.Fprintf(&b, "export %s=%s\n", k, shQuote(entry.Env[k]))
	}
	b.WriteString("exec " + shQuote(entry.Command))
	for _, a := range entry.Args {
		b.WriteString(" " + shQuote(a))
	}
	b.WriteString("\n")
	return b.String()
}

// WriteLaunchScript writes the launcher into dir and returns its path.
// POSIX scripts are made executable.
func WriteLaunchScript(dir, goos string, entry ServerEntry) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create script directory: %w", err)
	}
	path := filepath.Join(dir, LaunchScriptName(goos))
	if err := os.WriteFile(path, []byte(LaunchScript(goos, entry)), 0o755); err != nil {
		return "", fmt.Errorf("failed to write launch script: %w", err)
	}
	// WriteFile leaves the mode of an existing file alone.
	if err := os.Chmod(path, 0o755); err != nil {
		return "", fmt.Errorf("failed to make launch script executable: %w", err)
	}
	return path, nil
}

func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func batQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
