package git

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func recordingRunner(out string, calls *[][]string) Runner {
	return func(ctx context.Context, dir string, args ...string) (string, error) {
		*calls = append(*calls, args)
		return out, nil
	}
}

func TestDiffHeadInvokesGitDiff(t *testing.T) {
	var calls [][]string
	out, err := DiffHead(context.Background(), "/repo", recordingRunner("diff text", &calls))
	if err != nil {
		t.Fatalf("DiffHead failed: %v", err)
	}
	if out != "diff text" {
		t.Errorf("out = %q", out)
	}
	if len(calls) != 1 || strings.Join(calls[0], " ") != "diff HEAD" {
		t.Errorf("unexpected git invocation: %v", calls)
	}
}

func TestDiffBaseUsesTripleDotRange(t *testing.T) {
	var calls [][]string
	if _, err := DiffBase(context.Background(), "/repo", "origin/main", recordingRunner("", &calls)); err != nil {
		t.Fatalf("DiffBase failed: %v", err)
	}
	if len(calls) != 1 || strings.Join(calls[0], " ") != "diff origin/main...HEAD" {
		t.Errorf("unexpected git invocation: %v", calls)
	}
}

func TestHeadSHATrimsOutput(t *testing.T) {
	var calls [][]string
	sha, err := HeadSHA(context.Background(), "/repo", recordingRunner("abc123\n", &calls))
	if err != nil {
		t.Fatalf("HeadSHA failed: %v", err)
	}
	if sha != "abc123" {
		t.Errorf("sha = %q, want abc123", sha)
	}
}

func TestRepoExists(t *testing.T) {
	dir := t.TempDir()
	if RepoExists(dir) {
		t.Error("empty dir should not look like a repo")
	}
	if err := os.Mkdir(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if !RepoExists(dir) {
		t.Error("dir with .git should look like a repo")
	}
}
