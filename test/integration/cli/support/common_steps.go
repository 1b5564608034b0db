package support

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/barscan/cmd/barscan/cmd"
	"github.com/cucumber/godog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag to its default; the root command is shared
// by all scenarios.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// iRunCommand executes a barscan command line in-process.
func (testCtx *TestContext) iRunCommand(command string) error {
	command = testCtx.substituteCommandVariables(command)
	testCtx.LastCommand = command

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}
	if parts[0] == "barscan" {
		parts = parts[1:]
	}

	root := cmd.GetRootCommand()
	resetFlags(root)
	defer resetFlags(root)

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(parts)

	start := time.Now()
	testCtx.LastError = root.Execute()
	testCtx.LastDuration = time.Since(start)
	testCtx.LastOutput = stdout.String()
	testCtx.LastStderr = stderr.String()
	return nil
}

// theCommandShouldSucceed verifies the command succeeded.
func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastError != nil {
		return fmt.Errorf("command failed: %w\nOutput: %s\nStderr: %s",
			testCtx.LastError, testCtx.LastOutput, testCtx.LastStderr)
	}
	return nil
}

// theCommandShouldFail verifies the command failed.
func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastError == nil {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldContain verifies the output contains specific text.
func (testCtx *TestContext) theOutputShouldContain(expectedText string) error {
	expectedText = testCtx.substituteCommandVariables(expectedText)
	if !strings.Contains(testCtx.LastOutput, expectedText) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expectedText, testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldNotContain verifies the output lacks specific text.
func (testCtx *TestContext) theOutputShouldNotContain(text string) error {
	if strings.Contains(testCtx.LastOutput, text) {
		return fmt.Errorf("output unexpectedly contains '%s'\nActual output: %s", text, testCtx.LastOutput)
	}
	return nil
}

// theErrorShouldMention verifies the command error mentions text.
func (testCtx *TestContext) theErrorShouldMention(text string) error {
	if testCtx.LastError == nil {
		return errors.New("command did not fail")
	}
	if !strings.Contains(testCtx.LastError.Error(), text) {
		return fmt.Errorf("error %q does not mention %q", testCtx.LastError.Error(), text)
	}
	return nil
}

// theOutputShouldBeValidJSON verifies the output is valid JSON.
func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	if !json.Valid([]byte(testCtx.LastOutput)) {
		return fmt.Errorf("output is not valid JSON: %s", testCtx.LastOutput)
	}
	return nil
}

// theJSONFieldShouldEqual compares a dotted path (e.g. "summary.codes" or
// "frames.0.source") in the JSON output against want.
func (testCtx *TestContext) theJSONFieldShouldEqual(path, want string) error {
	var doc any
	if err := json.Unmarshal([]byte(testCtx.LastOutput), &doc); err != nil {
		return fmt.Errorf("output is not valid JSON: %w", err)
	}

	cur := doc
	for _, key := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[key]
			if !ok {
				return fmt.Errorf("JSON path %s: missing key %q", path, key)
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return fmt.Errorf("JSON path %s: bad index %q", path, key)
			}
			cur = node[i]
		default:
			return fmt.Errorf("JSON path %s: cannot descend into %T", path, cur)
		}
	}

	want = testCtx.substituteCommandVariables(want)
	if got := fmt.Sprint(cur); got != want {
		return fmt.Errorf("JSON path %s = %s, want %s", path, got, want)
	}
	return nil
}

// theFileShouldContain verifies a file in the temp dir contains text.
func (testCtx *TestContext) theFileShouldContain(name, text string) error {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if !strings.Contains(string(data), text) {
		return fmt.Errorf("file %s does not contain %q:\n%s", name, text, data)
	}
	return nil
}

// RegisterCommonSteps registers command execution steps.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the JSON field "([^"]*)" should equal "([^"]*)"$`, testCtx.theJSONFieldShouldEqual)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
}
