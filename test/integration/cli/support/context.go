package support

import (
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TestContext holds the state for integration tests.
type TestContext struct {
	// Command execution state
	LastCommand  string
	LastOutput   string
	LastStderr   string
	LastError    error
	LastDuration time.Duration

	// Test environment
	TempDir string

	// Server state
	HTTPTestServer *httptest.Server

	// HTTP response state
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    map[string]string
}

// NewTestContext creates a new test context with its own temp directory.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "barscan-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &TestContext{TempDir: tempDir, LastHTTPHeaders: map[string]string{}}, nil
}

// Cleanup stops the test server and removes the temp directory.
func (testCtx *TestContext) Cleanup() error {
	if testCtx.HTTPTestServer != nil {
		testCtx.HTTPTestServer.Close()
		testCtx.HTTPTestServer = nil
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err)
	}
	return nil
}

// Path returns name inside the scenario's temp directory.
func (testCtx *TestContext) Path(name string) string {
	return filepath.Join(testCtx.TempDir, name)
}

// substituteCommandVariables replaces {tmp} with the scenario temp directory.
func (testCtx *TestContext) substituteCommandVariables(command string) string {
	return strings.ReplaceAll(command, "{tmp}", testCtx.TempDir)
}
