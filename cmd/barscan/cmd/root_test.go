package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	assert.NotNil(t, rootCmd)
	assert.Equal(t, "barscan", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.Same(t, rootCmd, GetRootCommand())
}

func TestRootCommandHelp(t *testing.T) {
	out, _, err := executeCommand(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "decodes 1D barcodes")
	assert.Contains(t, out, "Available Commands:")
	assert.Contains(t, out, "Usage:")
}

func TestRootCommandVersion(t *testing.T) {
	out, _, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "barscan")
	assert.Contains(t, out, "commit")
}

func TestRootCommandSubcommands(t *testing.T) {
	commandNames := make([]string, 0, len(rootCmd.Commands()))
	for _, subcmd := range rootCmd.Commands() {
		commandNames = append(commandNames, subcmd.Name())
	}

	expectedCommands := []string{"scan", "serve", "readers", "config", "version"}
	for _, expected := range expectedCommands {
		assert.Contains(t, commandNames, expected, "Expected subcommand '%s' not found", expected)
	}
}

func TestRootCommandInvalidFlag(t *testing.T) {
	_, _, err := executeCommand(t, "--no-such-flag")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestRootCommandEnvFile(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("BARSCAN_SCANNER_DECODER_READERS=codabar_reader\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("BARSCAN_SCANNER_DECODER_READERS") })

	out, _, err := executeCommand(t, "--env-file", envPath, "readers")
	require.NoError(t, err)
	assert.Contains(t, out, "1. codabar_reader")
}

func TestRootCommandMissingEnvFileReturnsError(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")

	_, _, err := executeCommand(t, "--env-file", missing, "readers")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading env file")

	// The failed load must not leak into the next invocation.
	out, _, err := executeCommand(t, "readers")
	require.NoError(t, err)
	assert.Contains(t, out, "Configured readers")
}

func TestRootCommandInvalidSettingReturnsError(t *testing.T) {
	_, _, err := executeCommand(t, "readers", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")

	_, _, err = executeCommand(t, "version")
	require.NoError(t, err)
}
