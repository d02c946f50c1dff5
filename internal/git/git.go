// Package git shells out to the git binary for the handful of working-tree
// operations the client needs: diffing uncommitted changes, diffing a branch
// against its merge base, and resolving HEAD.
package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Runner executes git in dir and returns stdout. Production code uses
// DefaultRunner; tests inject a canned implementation so no real git binary
// is needed.
type Runner func(ctx context.Context, dir string, args ...string) (string, error)

// DefaultRunner runs the real git binary.
func DefaultRunner(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %w\n%s", strings.Join(args, " "), err, string(exitErr.Stderr))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return string(out), nil
}

// RepoExists checks if a git repository exists at the given path.
func RepoExists(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil && info.IsDir()
}

// DiffHead returns the unified diff of uncommitted changes against HEAD.
func DiffHead(ctx context.Context, dir string, run Runner) (string, error) {
	if run == nil {
		run = DefaultRunner
	}
	return run(ctx, dir, "diff", "HEAD")
}

// DiffBase returns the diff of everything committed on the current branch
// since it diverged from base (`git diff base...HEAD`), the shape a
// re-review pass wants when fixes were committed locally but not pushed.
func DiffBase(ctx context.Context, dir, base string, run Runner) (string, error) {
	if run == nil {
		run = DefaultRunner
	}
	return run(ctx, dir, "diff", base+"...HEAD")
}

// HeadSHA resolves the working tree's current HEAD commit.
func HeadSHA(ctx context.Context, dir string, run Runner) (string, error) {
	if run == nil {
		run = DefaultRunner
	}
	out, err := run(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
