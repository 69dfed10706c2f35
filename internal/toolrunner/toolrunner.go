// Package toolrunner spawns the external test runner and linter, applying
// wall-clock timeouts with SIGTERM→SIGKILL escalation, classifying failure
// and skip reasons, and normalizing output file paths before ingestion.
package toolrunner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/xcawolfe-amzn/zax/internal/errkind"
	"github.com/xcawolfe-amzn/zax/internal/pm"
)

// DefaultToolTimeout is the wall-clock budget applied when the caller
// doesn't override it via config.Config.ToolTimeout.
const DefaultToolTimeout = 5 * time.Minute

const killGrace = 3 * time.Second

// vitestArgs builds the full argv for one test-runner spawn: the detected
// manager's runner prefix, the vitest invocation with JSON reporting into
// outputPath, and the affected test file list (empty means a full run).
func vitestArgs(manager pm.Manager, outputPath string, testFiles []string) []string {
	args := append(manager.RunnerPrefix(), "vitest", "run", "--reporter=json", "--outputFile="+outputPath)
	return append(args, testFiles...)
}

// eslintArgs builds the full argv for one linter spawn; target is the
// package scope, or "." when unscoped.
func eslintArgs(manager pm.Manager, outputPath, target string) []string {
	return append(manager.RunnerPrefix(), "eslint", "-f", "json", "-o", outputPath, target)
}

// VitestResult describes the outcome of one test-runner spawn.
type VitestResult struct {
	OutputPath string
}

// RunVitest spawns `<runner> vitest run --reporter=json --outputFile=<out>`,
// optionally restricted to testFiles, in root. timeout is the wall-clock
// budget (config.Config.ToolTimeout, or DefaultToolTimeout).
func RunVitest(ctx context.Context, manager pm.Manager, root, outputPath string, testFiles []string, timeout time.Duration) (*VitestResult, error) {
	args := vitestArgs(manager, outputPath, testFiles)

	stdout, stderr, killed, err := run(ctx, root, args, timeout)
	if killed {
		return nil, errkind.Wrap(errkind.VitestTimeout, "vitest timed out after %s", timeout)
	}

	if err != nil && !fileExists(outputPath) {
		if looksLikeCommandNotFound(stdout+stderr, "vitest") {
			return nil, errkind.Wrap(errkind.VitestNotFound, "vitest binary not found via %s", manager)
		}
		return nil, errkind.Wrap(errkind.VitestFailed, "vitest exited with error and produced no output: %s", truncate(stderr, 2000))
	}

	return &VitestResult{OutputPath: outputPath}, nil
}

// ESLintResult describes the outcome of one linter spawn.
type ESLintResult struct {
	Skipped    bool
	SkipReason string
	OutputPath string
}

// RunESLint spawns `<runner> eslint -f json -o <out> <target>`, where
// target is packageScope if non-empty, else ".".
func RunESLint(ctx context.Context, manager pm.Manager, root, outputPath, packageScope string, timeout time.Duration) (*ESLintResult, error) {
	target := packageScope
	if target == "" {
		target = "."
	}
	args := eslintArgs(manager, outputPath, target)

	stdout, stderr, killed, err := run(ctx, root, args, timeout)
	res := classifyESLint(stdout+stderr, killed, err, fileExists(outputPath))
	if !res.Skipped {
		res.OutputPath = outputPath
	}
	return res, nil
}

// classifyESLint applies the skip-classification rules: a timeout, a
// missing binary, and a missing configuration are all skips (not errors);
// a nonzero exit with output present is a success since lint errors are
// expected; a nonzero exit with no output at all is a "failed" skip.
func classifyESLint(combined string, killed bool, runErr error, outputExists bool) *ESLintResult {
	switch {
	case killed:
		return &ESLintResult{Skipped: true, SkipReason: "timeout"}
	case looksLikeCommandNotFound(combined, "eslint"):
		return &ESLintResult{Skipped: true, SkipReason: "not found"}
	case strings.Contains(combined, "No ESLint configuration") || strings.Contains(combined, "eslint.config"):
		return &ESLintResult{Skipped: true, SkipReason: "no config"}
	case runErr != nil && !outputExists:
		return &ESLintResult{Skipped: true, SkipReason: "failed"}
	default:
		return &ESLintResult{}
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func looksLikeCommandNotFound(output, tool string) bool {
	markers := []string{
		"command not found",
		"npx: command not found",
		tool + ": not found",
		tool + ": command not found",
	}
	for _, m := range markers {
		if strings.Contains(output, m) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}

// run executes argv[0](argv[1:]) in dir with a wall-clock timeout. On
// expiry the process receives SIGTERM, then SIGKILL after killGrace if it
// hasn't exited. Returns captured stdout, stderr, whether the timeout
// fired, and the process's own exit error (nil on success).
func run(ctx context.Context, dir string, argv []string, timeout time.Duration) (stdout, stderr string, killed bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = killGrace
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	if startErr := cmd.Start(); startErr != nil {
		return "", fmt.Sprintf("%v", startErr), false, startErr
	}

	waitErr := cmd.Wait()
	if ctx.Err() == context.DeadlineExceeded {
		return outBuf.String(), errBuf.String(), true, waitErr
	}
	return outBuf.String(), errBuf.String(), false, waitErr
}
