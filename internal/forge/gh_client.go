package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// GHClient wraps the gh CLI (GitHub's official client) and caches the
// authenticated username. It is the only Client variant wired today; a
// second forge (GitLab's glab, say) would live alongside it as another
// struct satisfying Client, selected by configuration.
type GHClient struct {
	username   string
	run        CommandRunner
	runStdin   StdinCommandRunner
	Timeout    time.Duration // deadline for gh CLI commands (0 uses DefaultTimeout)
	FetchLimit int           // max PRs per query (0 uses default 100)
}

// NewGHClient verifies the gh CLI is installed and authenticated, then
// caches the current user.
func NewGHClient() (*GHClient, error) {
	if _, err := exec.LookPath("gh"); err != nil {
		return nil, fmt.Errorf("gh CLI not found: install from https://cli.github.com")
	}

	c := &GHClient{
		run:      defaultGHRunner,
		runStdin: defaultGHStdinRunner,
		Timeout:  DefaultTimeout,
	}

	if _, err := c.ghExec(context.Background(), "auth", "status"); err != nil {
		return nil, fmt.Errorf("gh not authenticated: run 'gh auth login' first")
	}

	out, err := c.ghExec(context.Background(), "api", "user", "--jq", ".login")
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticated user: %w", err)
	}

	c.username = strings.TrimSpace(out)
	return c, nil
}

// NewTestGHClient creates a GHClient with a custom CommandRunner for testing.
func NewTestGHClient(username string, runner CommandRunner) *GHClient {
	return &GHClient{username: username, run: runner, runStdin: testStdinRunner(runner)}
}

// GetUsername returns the login of the authenticated user.
func (c *GHClient) GetUsername() string { return c.username }

// SetFetchLimit updates the max PRs per query.
func (c *GHClient) SetFetchLimit(limit int) { c.FetchLimit = limit }

func defaultGHRunner(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "gh", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("gh %s failed: %s", strings.Join(args, " "), strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func defaultGHStdinRunner(ctx context.Context, stdin string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "gh", args...)
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("gh %s failed: %s", strings.Join(args, " "), strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// testStdinRunner adapts a CommandRunner into a StdinCommandRunner for tests;
// the stdin content is ignored since test runners use canned responses.
func testStdinRunner(runner CommandRunner) StdinCommandRunner {
	return func(ctx context.Context, stdin string, args ...string) (string, error) {
		return runner(ctx, args...)
	}
}

func (c *GHClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	timeout := c.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (c *GHClient) ghExec(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.run(ctx, args...)
}

func (c *GHClient) ghExecWithStdin(ctx context.Context, stdin string, args ...string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.runStdin(ctx, stdin, args...)
}

func (c *GHClient) ghJSON(ctx context.Context, dest interface{}, args ...string) error {
	out, err := c.ghExec(ctx, args...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(out), dest); err != nil {
		return fmt.Errorf("failed to parse gh output: %w", err)
	}
	return nil
}

var _ Client = (*GHClient)(nil)
