package toolrunner

import (
	"errors"
	"strings"
	"testing"

	"github.com/xcawolfe-amzn/zax/internal/pm"
)

func TestVitestArgs_BeginWithRunnerPrefix(t *testing.T) {
	for _, manager := range []pm.Manager{pm.Bun, pm.Pnpm, pm.Yarn, pm.Npm} {
		t.Run(string(manager), func(t *testing.T) {
			args := vitestArgs(manager, "/tmp/out.json", []string{"a.test.ts"})
			prefix := manager.RunnerPrefix()
			for i, p := range prefix {
				if args[i] != p {
					t.Fatalf("vitestArgs(%q) = %v, want prefix %v", manager, args, prefix)
				}
			}
			joined := strings.Join(args, " ")
			if !strings.Contains(joined, "--reporter=json") {
				t.Errorf("vitestArgs(%q) missing --reporter=json: %v", manager, args)
			}
			if !strings.Contains(joined, "--outputFile=/tmp/out.json") {
				t.Errorf("vitestArgs(%q) missing --outputFile: %v", manager, args)
			}
			if args[len(args)-1] != "a.test.ts" {
				t.Errorf("vitestArgs(%q) does not end in test file: %v", manager, args)
			}
		})
	}
}

func TestESLintArgs_EndInTarget(t *testing.T) {
	args := eslintArgs(pm.Npm, "/tmp/eslint.json", ".")
	if args[len(args)-1] != "." {
		t.Errorf("eslintArgs() = %v, want target \".\" last", args)
	}
	args = eslintArgs(pm.Pnpm, "/tmp/eslint.json", "packages/web")
	if args[len(args)-1] != "packages/web" {
		t.Errorf("eslintArgs() = %v, want target \"packages/web\" last", args)
	}
}

func TestClassifyESLint(t *testing.T) {
	exitErr := errors.New("exit status 2")
	tests := []struct {
		name         string
		combined     string
		killed       bool
		runErr       error
		outputExists bool
		wantSkipped  bool
		wantReason   string
	}{
		{"timeout", "", true, exitErr, false, true, "timeout"},
		{"binary missing", "sh: eslint: command not found", false, exitErr, false, true, "not found"},
		{"npx missing", "npx: command not found", false, exitErr, false, true, "not found"},
		{"no config", "No ESLint configuration found in /repo", false, exitErr, false, true, "no config"},
		{"flat config error", "Could not find eslint.config.js", false, exitErr, false, true, "no config"},
		{"failed without output", "something exploded", false, exitErr, false, true, "failed"},
		{"lint errors with output is success", "", false, exitErr, true, false, ""},
		{"clean run", "", false, nil, true, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyESLint(tt.combined, tt.killed, tt.runErr, tt.outputExists)
			if got.Skipped != tt.wantSkipped || got.SkipReason != tt.wantReason {
				t.Errorf("classifyESLint() = {Skipped:%v Reason:%q}, want {Skipped:%v Reason:%q}",
					got.Skipped, got.SkipReason, tt.wantSkipped, tt.wantReason)
			}
		})
	}
}

func TestLooksLikeCommandNotFound(t *testing.T) {
	if !looksLikeCommandNotFound("zsh: vitest: command not found", "vitest") {
		t.Errorf("want command-not-found match for shell error")
	}
	if looksLikeCommandNotFound("1 test failed", "vitest") {
		t.Errorf("ordinary failure output misclassified as command-not-found")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 100); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	long := strings.Repeat("x", 50)
	got := truncate(long, 10)
	if len(got) != 10+len("...(truncated)") || !strings.HasSuffix(got, "...(truncated)") {
		t.Errorf("truncate(long, 10) = %q", got)
	}
}
