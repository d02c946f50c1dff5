package rally

import (
	"context"
	"testing"
)

// fakeAdapter implements AgentAdapter with scripted responses, one per call
// index, so orchestrator tests don't need a real subprocess.
type fakeAdapter struct {
	reviewerOutputs []ReviewerOutput
	revieweeOutputs []RevieweeOutput
	reviewerCalls   int
	revieweeCalls   int
	lastGranted     []string
}

func (f *fakeAdapter) RunReviewer(ctx context.Context, rc RunContext, prompt string, emit EventFunc) (ReviewerOutput, error) {
	if emit != nil {
		emit(AgentEvent{Kind: EventText, Message: "reviewing"})
	}
	out := f.reviewerOutputs[f.reviewerCalls]
	f.reviewerCalls++
	return out, nil
}

func (f *fakeAdapter) RunReviewee(ctx context.Context, rc RunContext, prompt string, grantedTools []string, emit EventFunc) (RevieweeOutput, error) {
	if emit != nil {
		emit(AgentEvent{Kind: EventToolUse, Tool: "Edit", Message: "fixing"})
	}
	f.lastGranted = grantedTools
	out := f.revieweeOutputs[f.revieweeCalls]
	f.revieweeCalls++
	return out, nil
}

func newTestSession(maxIter int) *Session {
	return &Session{
		ID:            "s1",
		Forge:         "github",
		Owner:         "o",
		Repo:          "r",
		Number:        1,
		MaxIterations: maxIter,
		State:         Initializing,
	}
}

func TestOrchestratorApproveCompletesImmediately(t *testing.T) {
	adapter := &fakeAdapter{
		reviewerOutputs: []ReviewerOutput{{Action: VerdictApprove, Summary: "lgtm"}},
	}
	o := NewOrchestrator(newTestSession(5), adapter, DefaultPermissionPolicy(), nil)

	state, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if state != Completed {
		t.Fatalf("expected Completed, got %v", state)
	}
	if adapter.revieweeCalls != 0 {
		t.Errorf("expected no reviewee calls on approve, got %d", adapter.revieweeCalls)
	}
}

// TestOrchestratorBoundedByMaxIterations is the "rally bounded" scenario
// reviewer always RequestChanges, reviewee always Completed, with
// max_iterations=3 the orchestrator runs exactly 3 review/fix pairs then
// transitions to Completed.
func TestOrchestratorBoundedByMaxIterations(t *testing.T) {
	adapter := &fakeAdapter{
		reviewerOutputs: []ReviewerOutput{
			{Action: VerdictRequestChanges},
			{Action: VerdictRequestChanges},
			{Action: VerdictRequestChanges},
		},
		revieweeOutputs: []RevieweeOutput{
			{Status: StatusCompleted},
			{Status: StatusCompleted},
			{Status: StatusCompleted},
		},
	}
	session := newTestSession(3)
	o := NewOrchestrator(session, adapter, DefaultPermissionPolicy(), nil)

	state, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if state != Completed {
		t.Fatalf("expected Completed, got %v", state)
	}
	if adapter.reviewerCalls != 3 {
		t.Errorf("expected 3 reviewer calls, got %d", adapter.reviewerCalls)
	}
	if adapter.revieweeCalls != 3 {
		t.Errorf("expected 3 reviewee calls, got %d", adapter.revieweeCalls)
	}
	if len(session.History) != 6 {
		t.Errorf("expected 6 history records (3 review + 3 fix), got %d", len(session.History))
	}
}

func TestOrchestratorClarificationRoundTrip(t *testing.T) {
	adapter := &fakeAdapter{
		reviewerOutputs: []ReviewerOutput{
			{Action: VerdictRequestChanges},
			{Action: VerdictApprove},
		},
		revieweeOutputs: []RevieweeOutput{
			{Status: StatusNeedsClarification, Question: "which approach?"},
			{Status: StatusCompleted},
		},
	}
	session := newTestSession(5)
	o := NewOrchestrator(session, adapter, DefaultPermissionPolicy(), nil)

	// Drive steps manually up to the clarification pause.
	for i := 0; i < 3; i++ {
		state, err := o.Step(context.Background())
		if err != nil {
			t.Fatalf("Step %d failed: %v", i, err)
		}
		if state == NeedsClarification {
			break
		}
	}
	if session.State != NeedsClarification {
		t.Fatalf("expected NeedsClarification, got %v", session.State)
	}
	if session.Question != "which approach?" {
		t.Errorf("expected question captured, got %q", session.Question)
	}

	o.Resolve(Command{Kind: CommandClarificationAnswer, Answer: "option B"})
	state, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run after clarification failed: %v", err)
	}
	if state != Completed {
		t.Fatalf("expected Completed after resolving clarification, got %v", state)
	}
}

func TestOrchestratorPermissionDenyFails(t *testing.T) {
	adapter := &fakeAdapter{
		reviewerOutputs: []ReviewerOutput{{Action: VerdictRequestChanges}},
		revieweeOutputs: []RevieweeOutput{{Status: StatusNeedsPermission, RequestedAction: "git push"}},
	}
	session := newTestSession(5)
	o := NewOrchestrator(session, adapter, DefaultPermissionPolicy(), nil)

	for i := 0; i < 3; i++ {
		state, err := o.Step(context.Background())
		if err != nil {
			t.Fatalf("Step %d failed: %v", i, err)
		}
		if state == NeedsPermission {
			break
		}
	}
	if session.State != NeedsPermission {
		t.Fatalf("expected NeedsPermission, got %v", session.State)
	}

	o.Resolve(Command{Kind: CommandPermissionDeny, Tool: "git push"})
	state, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if state != Failed {
		t.Fatalf("expected Failed after permission deny, got %v", state)
	}
}

func TestOrchestratorPermissionGrantResumes(t *testing.T) {
	adapter := &fakeAdapter{
		reviewerOutputs: []ReviewerOutput{
			{Action: VerdictRequestChanges},
			{Action: VerdictApprove},
		},
		revieweeOutputs: []RevieweeOutput{
			{Status: StatusNeedsPermission, RequestedAction: "go test ./..."},
			{Status: StatusCompleted},
		},
	}
	session := newTestSession(5)
	o := NewOrchestrator(session, adapter, DefaultPermissionPolicy(), nil)

	for i := 0; i < 3; i++ {
		state, err := o.Step(context.Background())
		if err != nil {
			t.Fatalf("Step %d failed: %v", i, err)
		}
		if state == NeedsPermission {
			break
		}
	}

	o.Resolve(Command{Kind: CommandPermissionGrant, Tool: "go test*"})
	state, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if state != Completed {
		t.Fatalf("expected Completed after grant, got %v", state)
	}
	found := false
	for _, tool := range session.GrantedTools {
		if tool == "go test*" {
			found = true
		}
	}
	if !found {
		t.Error("expected granted tool recorded on session")
	}
}

// TestOrchestratorGrantOfDeniedToolFails: the grant transition refuses the
// always-denied verbs outright instead of recording them.
func TestOrchestratorGrantOfDeniedToolFails(t *testing.T) {
	adapter := &fakeAdapter{
		reviewerOutputs: []ReviewerOutput{{Action: VerdictRequestChanges}},
		revieweeOutputs: []RevieweeOutput{{Status: StatusNeedsPermission, RequestedAction: "git push"}},
	}
	session := newTestSession(5)
	o := NewOrchestrator(session, adapter, DefaultPermissionPolicy(), nil)

	for i := 0; i < 3; i++ {
		state, err := o.Step(context.Background())
		if err != nil {
			t.Fatalf("Step %d failed: %v", i, err)
		}
		if state == NeedsPermission {
			break
		}
	}

	o.Resolve(Command{Kind: CommandPermissionGrant, Tool: "git push"})
	state, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if state != Failed {
		t.Fatalf("expected Failed after granting a denied tool, got %v", state)
	}
	if len(session.GrantedTools) != 0 {
		t.Errorf("denied tool must not be recorded, got %v", session.GrantedTools)
	}
}

// TestOrchestratorComputesAllowedToolSet checks that the reviewee adapter
// receives the policy table's defaults plus any operator grants, not just
// the raw grant list.
func TestOrchestratorComputesAllowedToolSet(t *testing.T) {
	adapter := &fakeAdapter{
		reviewerOutputs: []ReviewerOutput{
			{Action: VerdictRequestChanges},
			{Action: VerdictApprove},
		},
		revieweeOutputs: []RevieweeOutput{
			{Status: StatusNeedsPermission, RequestedAction: "go vet ./..."},
			{Status: StatusCompleted},
		},
	}
	session := newTestSession(5)
	o := NewOrchestrator(session, adapter, DefaultPermissionPolicy(), nil)

	for i := 0; i < 3; i++ {
		if state, err := o.Step(context.Background()); err != nil {
			t.Fatalf("Step %d failed: %v", i, err)
		} else if state == NeedsPermission {
			break
		}
	}
	o.Resolve(Command{Kind: CommandPermissionGrant, Tool: "go vet*"})
	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	hasDefault, hasGrant := false, false
	for _, tool := range adapter.lastGranted {
		if tool == "Edit" {
			hasDefault = true
		}
		if tool == "go vet*" {
			hasGrant = true
		}
	}
	if !hasDefault {
		t.Error("expected the policy default Edit in the allowed set")
	}
	if !hasGrant {
		t.Error("expected the operator-granted go vet* in the allowed set")
	}
}

// TestOrchestratorAllowedSetContainsNoDeniedTools: whatever lands in the
// session's granted list or the (configuration-extended) policy table, the
// set handed to the adapter never authorizes a denied verb.
func TestOrchestratorAllowedSetContainsNoDeniedTools(t *testing.T) {
	adapter := &fakeAdapter{
		reviewerOutputs: []ReviewerOutput{
			{Action: VerdictRequestChanges},
			{Action: VerdictApprove},
		},
		revieweeOutputs: []RevieweeOutput{
			{Status: StatusCompleted},
			{Status: StatusCompleted},
		},
	}
	policy := DefaultPermissionPolicy()
	policy.Extend(RoleReviewee, "git push*", "git reset*", "go build*")

	session := newTestSession(5)
	// A resumed session file could carry anything; it must still be filtered.
	session.GrantedTools = []string{"git checkout main", "go generate*"}
	o := NewOrchestrator(session, adapter, policy, nil)

	if _, err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, tool := range adapter.lastGranted {
		if GlobPermitsDenied(tool) {
			t.Errorf("denied glob %q reached the adapter's allowed set", tool)
		}
	}
	hasExtended, hasGranted := false, false
	for _, tool := range adapter.lastGranted {
		if tool == "go build*" {
			hasExtended = true
		}
		if tool == "go generate*" {
			hasGranted = true
		}
	}
	if !hasExtended {
		t.Error("expected the benign extended glob go build* in the allowed set")
	}
	if !hasGranted {
		t.Error("expected the benign granted glob go generate* in the allowed set")
	}
}

func TestOrchestratorAdapterErrorFails(t *testing.T) {
	adapter := &erroringAdapter{}
	session := newTestSession(5)
	o := NewOrchestrator(session, adapter, DefaultPermissionPolicy(), nil)

	state, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run should surface the failure via state, not an error: %v", err)
	}
	if state != Failed {
		t.Fatalf("expected Failed, got %v", state)
	}
	if session.FailureReason == "" {
		t.Error("expected a failure reason recorded")
	}
}

type erroringAdapter struct{}

func (erroringAdapter) RunReviewer(ctx context.Context, rc RunContext, prompt string, emit EventFunc) (ReviewerOutput, error) {
	return ReviewerOutput{}, errBoom
}

func (erroringAdapter) RunReviewee(ctx context.Context, rc RunContext, prompt string, grantedTools []string, emit EventFunc) (RevieweeOutput, error) {
	return RevieweeOutput{}, errBoom
}

var errBoom = &boomErr{}

type boomErr struct{}

func (*boomErr) Error() string { return "boom" }
