package rally

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FileAgentAdapter is "Agent B": invoked with a prompt file and
// `--json`; emits NDJSON tagged reasoning | action | message | completion.
// Tool permissions are coarse (sandbox mode only) — Agent B has no
// allowed-tools flag, so grantedTools is accepted for interface parity but
// has no effect; every invocation runs with --sandbox.
type FileAgentAdapter struct {
	Path     string
	Timeout  int
	Executor Executor
}

var fileTagKind = map[string]EventKind{
	"reasoning": EventThinking,
	"action":    EventToolUse,
	"message":   EventText,
}

func (a *FileAgentAdapter) timeout() int {
	if a.Timeout > 0 {
		return a.Timeout
	}
	return int(DefaultTimeout.Seconds())
}

// RunReviewer runs the reviewer role through Agent B.
func (a *FileAgentAdapter) RunReviewer(ctx context.Context, rc RunContext, prompt string, emit EventFunc) (ReviewerOutput, error) {
	raw, err := a.invoke(ctx, rc, prompt, "review", emit)
	if err != nil {
		return ReviewerOutput{}, err
	}
	var out ReviewerOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return ReviewerOutput{}, fmt.Errorf("rally: parse reviewer result: %w", err)
	}
	return out, nil
}

// RunReviewee runs the reviewee role through Agent B. grantedTools is
// accepted for AgentAdapter parity but Agent B only supports an on/off
// sandbox mode, not a fine-grained allow-list.
func (a *FileAgentAdapter) RunReviewee(ctx context.Context, rc RunContext, prompt string, grantedTools []string, emit EventFunc) (RevieweeOutput, error) {
	raw, err := a.invoke(ctx, rc, prompt, "fix", emit)
	if err != nil {
		return RevieweeOutput{}, err
	}
	var out RevieweeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return RevieweeOutput{}, fmt.Errorf("rally: parse reviewee result: %w", err)
	}
	return out, nil
}

func (a *FileAgentAdapter) invoke(ctx context.Context, rc RunContext, prompt, phase string, emit EventFunc) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, secondsToDuration(a.timeout()))
	defer cancel()

	f, err := os.CreateTemp("", "gh-rally-prompt-*.txt")
	if err != nil {
		return nil, fmt.Errorf("rally: create prompt file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(prompt); err != nil {
		f.Close()
		return nil, fmt.Errorf("rally: write prompt file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("rally: close prompt file: %w", err)
	}

	spec := commandSpec{
		argv:      []string{a.Path, path, "--json", "--sandbox"},
		dir:       rc.WorkingDir,
		tagKind:   fileTagKind,
		resultTag: "completion",
	}

	return runAgent(ctx, a.Executor, spec, rc.Iteration, phase, emit)
}
