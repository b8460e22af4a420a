package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("FSMCP_ROOT", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("AUDIT_LOG", "")

	cmd := rootCommand()
	var out bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func sandboxDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("remember"), 0o644))
	return root
}

func TestServeStdio(t *testing.T) {
	root := sandboxDir(t)
	auditPath := filepath.Join(t.TempDir(), "audit.jsonl")

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"read_file","arguments":{"path":"notes.md"}}}`,
	}, "\n") + "\n"

	out, err := run(t, input, "serve", "--root", root, "--audit-log", auditPath)
	require.NoError(t, err)

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &msg), scanner.Text())
		lines = append(lines, msg)
	}
	require.Len(t, lines, 2)
	assert.EqualValues(t, 1, lines[0]["id"])
	assert.EqualValues(t, 2, lines[1]["id"])
	assert.Contains(t, out, `remember`)

	audit, err := os.ReadFile(auditPath)
	require.NoError(t, err)
	assert.Contains(t, string(audit), `"tool":"read_file"`)
	assert.Contains(t, string(audit), `"path":"notes.md"`)
}

func TestRootCommandServes(t *testing.T) {
	out, err := run(t, `{"jsonrpc":"2.0","id":7,"method":"ping"}`+"\n", "--root", sandboxDir(t))
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":7,"result":{}}`, strings.TrimSpace(out))
}

func TestToolsCommand(t *testing.T) {
	out, err := run(t, "", "tools", "--root", sandboxDir(t))
	require.NoError(t, err)

	var list struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list.Tools, 4)
	assert.Equal(t, "list_directory", list.Tools[0].Name)
}

func TestPolicyCommand(t *testing.T) {
	root := sandboxDir(t)
	resolved, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)

	out, err := run(t, "", "policy", "--root", root)
	require.NoError(t, err)
	var report policyReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, resolved, report.Root)
	assert.Equal(t, int64(10*1024*1024), report.Policy.MaxFileSize)
	assert.Contains(t, report.Policy.AllowedExtensions, ".md")

	out, err = run(t, "", "policy", "--root", root, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "max_file_size: 10485760")
	assert.Contains(t, out, "root: ")

	out, err = run(t, "", "policy", "--root", root, "--format", "toml")
	require.NoError(t, err)
	assert.Contains(t, out, "max_file_size = 10485760")
	assert.Contains(t, out, "[policy]")

	_, err = run(t, "", "policy", "--root", root, "--format", "xml")
	assert.Error(t, err)
}

func TestInstallCommand(t *testing.T) {
	root := sandboxDir(t)
	configPath := filepath.Join(t.TempDir(), "claude_desktop_config.json")
	scripts := t.TempDir()

	out, err := run(t, "", "install", "--config", configPath, "--command", "/opt/fsmcp", "--root", root, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Would write")
	assert.Contains(t, out, `"/opt/fsmcp"`)
	_, err = os.Stat(configPath)
	assert.True(t, os.IsNotExist(err))

	out, err = run(t, "", "install", "--config", configPath, "--command", "/opt/fsmcp", "--root", root,
		"--launch-script", scripts, "--env", "LOG_LEVEL=debug")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration saved to: "+configPath)

	var doc struct {
		MCPServers map[string]struct {
			Command string            `json:"command"`
			Args    []string          `json:"args"`
			Env     map[string]string `json:"env"`
		} `json:"mcpServers"`
	}
	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &doc))
	entry := doc.MCPServers["filesystem"]
	assert.Equal(t, "/opt/fsmcp", entry.Command)
	assert.Equal(t, []string{"serve", "--root", root}, entry.Args)
	assert.Equal(t, map[string]string{"LOG_LEVEL": "debug"}, entry.Env)

	entries, err := os.ReadDir(scripts)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	out, err = run(t, "", "backups", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No backups of "+configPath)

	out, err = run(t, "", "uninstall", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed server from")

	// Rewriting an existing file leaves a backup behind.
	out, err = run(t, "", "backups", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, configPath+".backup_")
	assert.NotContains(t, out, ".meta")

	out, err = run(t, "", "uninstall", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Server not registered")
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "fsmcp 1.0.0 (MCP 2024-11-05"))
}

func TestInvalidFlags(t *testing.T) {
	_, err := run(t, "", "serve", "--root", sandboxDir(t), "--log-level", "loud")
	assert.Error(t, err)

	_, err = run(t, "", "serve", "--root", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	_, err = run(t, "", "serve", "extra")
	assert.Error(t, err)
}
