// Package vcs detects the set of dirty files in a workspace via git,
// implementing the dirty→test mapping's input side.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const commandTimeout = 10 * time.Second

// DirtyFiles returns the workspace-root-relative paths git considers
// changed: the working-tree status plus, when a remote default branch
// exists, the diff against its merge-base with HEAD. If root is not a git
// repository, it returns an empty list rather than an error — VCS-based
// dirty tracking is best-effort, not required for the check to proceed.
func DirtyFiles(ctx context.Context, root string) ([]string, error) {
	if !isGitRepo(ctx, root) {
		return nil, nil
	}

	seen := map[string]bool{}
	var out []string
	add := func(paths []string) {
		for _, p := range paths {
			p = filepath.ToSlash(strings.TrimSpace(p))
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}

	statusOut, err := runGit(ctx, root, "status", "--porcelain=v1")
	if err != nil {
		return nil, fmt.Errorf("git status: %w", err)
	}
	add(parsePorcelainStatus(statusOut))

	if base := defaultRemoteBranch(ctx, root); base != "" {
		if mergeBase, err := runGit(ctx, root, "merge-base", base, "HEAD"); err == nil {
			mb := strings.TrimSpace(mergeBase)
			if diffOut, err := runGit(ctx, root, "diff", "--name-only", mb+"...HEAD"); err == nil {
				add(strings.Split(strings.TrimSpace(diffOut), "\n"))
			}
		}
	}

	return out, nil
}

func isGitRepo(ctx context.Context, root string) bool {
	_, err := runGit(ctx, root, "rev-parse", "--is-inside-work-tree")
	return err == nil
}

// defaultRemoteBranch returns "origin/<HEAD>" if a remote named origin
// exists and reports a symbolic HEAD, or "" otherwise.
func defaultRemoteBranch(ctx context.Context, root string) string {
	out, err := runGit(ctx, root, "symbolic-ref", "refs/remotes/origin/HEAD")
	if err != nil {
		return ""
	}
	ref := strings.TrimSpace(out)
	const prefix = "refs/remotes/"
	if strings.HasPrefix(ref, prefix) {
		return strings.TrimPrefix(ref, prefix)
	}
	return ""
}

func runGit(ctx context.Context, root string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String(), nil
}

// parsePorcelainStatus extracts file paths from `git status --porcelain=v1`
// output, handling renames ("old -> new") by keeping the new path.
func parsePorcelainStatus(out string) []string {
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		rest := strings.TrimSpace(line[3:])
		if idx := strings.Index(rest, " -> "); idx >= 0 {
			rest = rest[idx+len(" -> "):]
		}
		paths = append(paths, strings.Trim(rest, `"`))
	}
	return paths
}
