package rally

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
)

// mockExecutor implements Executor for testing, mirroring claude's
// mockExecutor test helper.
type mockExecutor struct {
	stdout   string
	stderr   string
	waitErr  error
	killed   bool
	lastArgv []string
	lastDir  string
	lastIn   string
}

func (m *mockExecutor) Start(ctx context.Context, argv []string, dir string, stdin string) (*Process, error) {
	m.lastArgv = argv
	m.lastDir = dir
	m.lastIn = stdin
	return &Process{
		Stdout: io.NopCloser(strings.NewReader(m.stdout)),
		Stderr: io.NopCloser(strings.NewReader(m.stderr)),
		Wait:   func() error { return m.waitErr },
		Kill:   func() error { m.killed = true; return nil },
	}, nil
}

func ndjson(v map[string]interface{}) string {
	data, _ := json.Marshal(v)
	return string(data)
}

func TestCLIAgentAdapterRunReviewerParsesResult(t *testing.T) {
	lines := []string{
		ndjson(map[string]interface{}{"type": "thinking", "message": "considering"}),
		ndjson(map[string]interface{}{"type": "tool_use", "tool": "Read", "message": "reading file"}),
		ndjson(map[string]interface{}{"type": "result", "result": map[string]interface{}{
			"action":  "request_changes",
			"summary": "needs work",
		}}),
	}
	mock := &mockExecutor{stdout: strings.Join(lines, "\n") + "\n"}
	adapter := &CLIAgentAdapter{Path: "agent-a", Executor: mock}

	var events []AgentEvent
	out, err := adapter.RunReviewer(context.Background(), RunContext{Number: 7}, "prompt", func(ev AgentEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("RunReviewer failed: %v", err)
	}
	if out.Action != VerdictRequestChanges {
		t.Errorf("Action = %v, want %v", out.Action, VerdictRequestChanges)
	}
	if out.Summary != "needs work" {
		t.Errorf("Summary = %q", out.Summary)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 streamed events, got %d", len(events))
	}
	if events[0].Kind != EventThinking || events[1].Kind != EventToolUse {
		t.Errorf("unexpected event kinds: %+v", events)
	}
	if mock.lastIn != "prompt" {
		t.Errorf("expected prompt piped to stdin, got %q", mock.lastIn)
	}
}

func TestCLIAgentAdapterRunRevieweeAppendsGrantedTools(t *testing.T) {
	lines := []string{
		ndjson(map[string]interface{}{"type": "result", "result": map[string]interface{}{
			"status":  "completed",
			"summary": "done",
		}}),
	}
	mock := &mockExecutor{stdout: strings.Join(lines, "\n") + "\n"}
	adapter := &CLIAgentAdapter{Path: "agent-a", Executor: mock}

	out, err := adapter.RunReviewee(context.Background(), RunContext{Number: 7}, "prompt", []string{"go test*"}, nil)
	if err != nil {
		t.Fatalf("RunReviewee failed: %v", err)
	}
	if out.Status != StatusCompleted {
		t.Errorf("Status = %v", out.Status)
	}

	found := false
	for i, a := range mock.lastArgv {
		if a == "--allowedTools" && i+1 < len(mock.lastArgv) {
			if strings.Contains(mock.lastArgv[i+1], "go test*") {
				found = true
			}
		}
	}
	if !found {
		t.Error("expected granted tool appended to --allowedTools argument")
	}
}

func TestCLIAgentAdapterNoResultEventErrors(t *testing.T) {
	mock := &mockExecutor{stdout: ndjson(map[string]interface{}{"type": "text", "message": "hi"}) + "\n"}
	adapter := &CLIAgentAdapter{Path: "agent-a", Executor: mock}

	_, err := adapter.RunReviewer(context.Background(), RunContext{}, "prompt", nil)
	if err == nil {
		t.Fatal("expected error when no result event is produced")
	}
}

func TestCLIAgentAdapterWaitErrorPropagates(t *testing.T) {
	mock := &mockExecutor{waitErr: io.ErrUnexpectedEOF, stderr: "boom\n"}
	adapter := &CLIAgentAdapter{Path: "agent-a", Executor: mock}

	_, err := adapter.RunReviewer(context.Background(), RunContext{}, "prompt", nil)
	if err == nil {
		t.Fatal("expected error from failing subprocess")
	}
}

func TestFileAgentAdapterUsesCompletionTag(t *testing.T) {
	lines := []string{
		ndjson(map[string]interface{}{"type": "reasoning", "message": "thinking"}),
		ndjson(map[string]interface{}{"type": "completion", "result": map[string]interface{}{
			"status":  "failed",
			"summary": "could not fix",
		}}),
	}
	mock := &mockExecutor{stdout: strings.Join(lines, "\n") + "\n"}
	adapter := &FileAgentAdapter{Path: "agent-b", Executor: mock}

	out, err := adapter.RunReviewee(context.Background(), RunContext{}, "prompt", nil, nil)
	if err != nil {
		t.Fatalf("RunReviewee failed: %v", err)
	}
	if out.Status != StatusFailed {
		t.Errorf("Status = %v, want %v", out.Status, StatusFailed)
	}

	if len(mock.lastArgv) < 3 || mock.lastArgv[1] == "" {
		t.Fatalf("expected argv to include prompt file path, got %v", mock.lastArgv)
	}
	if mock.lastIn != "" {
		t.Error("Agent B takes the prompt as a file, not stdin")
	}
}
