package rally

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// CLIAgentAdapter is "Agent A": invoked with a prompt on stdin,
// `--output-format stream-json`, and an allowed-tools list; emits NDJSON
// events tagged thinking | tool_use | text | result.
type CLIAgentAdapter struct {
	// Path to the agent CLI binary.
	Path string
	// Timeout overrides DefaultTimeout when non-zero.
	Timeout int
	// Executor is injected by tests; nil uses CLIExecutor (the real subprocess).
	Executor Executor
	// Policy supplies the reviewer's read-only tool set; nil uses the default.
	Policy *PermissionPolicy
}

func (a *CLIAgentAdapter) policy() *PermissionPolicy {
	if a.Policy != nil {
		return a.Policy
	}
	return DefaultPermissionPolicy()
}

var cliTagKind = map[string]EventKind{
	"thinking": EventThinking,
	"tool_use": EventToolUse,
	"text":     EventText,
}

func (a *CLIAgentAdapter) timeout() int {
	if a.Timeout > 0 {
		return a.Timeout
	}
	return int(DefaultTimeout.Seconds())
}

// RunReviewer runs the reviewer role through Agent A.
func (a *CLIAgentAdapter) RunReviewer(ctx context.Context, rc RunContext, prompt string, emit EventFunc) (ReviewerOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, secondsToDuration(a.timeout()))
	defer cancel()

	spec := commandSpec{
		argv: []string{a.Path,
			"--output-format", "stream-json",
			"--allowedTools", strings.Join(a.policy().AllowedTools(RoleReviewer), ","),
		},
		stdin:     prompt,
		dir:       rc.WorkingDir,
		tagKind:   cliTagKind,
		resultTag: "result",
	}

	raw, err := runAgent(ctx, a.Executor, spec, rc.Iteration, "review", emit)
	if err != nil {
		return ReviewerOutput{}, err
	}

	var out ReviewerOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return ReviewerOutput{}, fmt.Errorf("rally: parse reviewer result: %w", err)
	}
	return out, nil
}

// RunReviewee runs the reviewee role through Agent A. grantedTools is the
// complete allowed set the orchestrator computed from its policy table plus
// any operator grants; it is passed through verbatim.
func (a *CLIAgentAdapter) RunReviewee(ctx context.Context, rc RunContext, prompt string, grantedTools []string, emit EventFunc) (RevieweeOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, secondsToDuration(a.timeout()))
	defer cancel()

	spec := commandSpec{
		argv: []string{a.Path,
			"--output-format", "stream-json",
			"--allowedTools", strings.Join(grantedTools, ","),
		},
		stdin:     prompt,
		dir:       rc.WorkingDir,
		tagKind:   cliTagKind,
		resultTag: "result",
	}

	raw, err := runAgent(ctx, a.Executor, spec, rc.Iteration, "fix", emit)
	if err != nil {
		return RevieweeOutput{}, err
	}

	var out RevieweeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return RevieweeOutput{}, fmt.Errorf("rally: parse reviewee result: %w", err)
	}
	return out, nil
}
