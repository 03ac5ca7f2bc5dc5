package setup

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "Claude", "claude_desktop_config.json")
	binary := filepath.Join(dir, "letscience-mcp")
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0755))

	existing := &ClaudeDesktopConfig{MCPServers: map[string]MCPServerConfig{
		"other": {Command: "/usr/bin/other"},
	}}
	require.NoError(t, SaveClaudeDesktopConfig(configPath, existing))

	server, err := Configure(configPath, Options{BinaryPath: binary, DataDir: "/data", LogLevel: "debug"})
	require.NoError(t, err)
	assert.Equal(t, binary, server.Command)
	assert.Equal(t, map[string]string{"LETSCIENCE_DATA_DIR": "/data", "LETSCIENCE_LOG_LEVEL": "debug"}, server.Env)

	config, err := LoadClaudeDesktopConfig(configPath)
	require.NoError(t, err)
	assert.Contains(t, config.MCPServers, "other", "other servers are kept")
	assert.Contains(t, config.MCPServers, ServerName)

	status := GetStatus(configPath)
	assert.True(t, status.Configured)
	assert.Equal(t, "/data", status.DataDir)
	assert.Empty(t, status.Issues)

	removed, err := Remove(configPath)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = Remove(configPath)
	require.NoError(t, err)
	assert.False(t, removed)

	status = GetStatus(configPath)
	assert.False(t, status.Configured)
	assert.Len(t, status.Issues, 1)
}

func TestGetStatus_MissingBinary(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "claude_desktop_config.json")
	_, err := Configure(configPath, Options{BinaryPath: "/nonexistent/letscience-mcp"})
	require.NoError(t, err)

	status := GetStatus(configPath)
	assert.True(t, status.Configured)
	assert.Contains(t, status.Issues[0], "Server binary not found")
}

func TestLoadClaudeDesktopConfig(t *testing.T) {
	dir := t.TempDir()

	config, err := LoadClaudeDesktopConfig(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, config.MCPServers)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{not json"), 0644))
	_, err = LoadClaudeDesktopConfig(broken)
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{}`), 0644))
	config, err = LoadClaudeDesktopConfig(empty)
	require.NoError(t, err)
	assert.NotNil(t, config.MCPServers)
}

func TestGetClaudeDesktopConfigPath(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG lookup only applies on linux")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	path, err := GetClaudeDesktopConfigPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/xdg/Claude/claude_desktop_config.json", path)
}
