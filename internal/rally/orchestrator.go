package rally

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// eventChanCapacity is the bounded rally event channel size.
const eventChanCapacity = 256

// TerminalKind tags a terminal EventEnvelope — one of the four outcomes
// must never be dropped.
type TerminalKind string

const (
	TerminalNeedsClarification TerminalKind = "needs_clarification"
	TerminalNeedsPermission    TerminalKind = "needs_permission"
	TerminalFailed             TerminalKind = "failed"
	TerminalCompleted          TerminalKind = "completed"
)

// TerminalEvent carries the payload for one of the never-dropped terminal
// notifications.
type TerminalEvent struct {
	Kind     TerminalKind
	Question string
	Action   string
	Reason   string
}

// EventEnvelope is the `(iteration, phase, event)` tuple streamed to observers.
// Either Agent or Terminal is set, never both.
type EventEnvelope struct {
	Iteration int
	Phase     string
	Agent     *AgentEvent
	Terminal  *TerminalEvent
}

// CommandKind tags a reverse-channel command from the view.
type CommandKind string

const (
	CommandClarificationAnswer CommandKind = "clarification_answer"
	CommandPermissionGrant     CommandKind = "permission_grant"
	CommandPermissionDeny      CommandKind = "permission_deny"
)

// Command is what the view sends back through the orchestrator's reverse
// channel to resolve a NeedsClarification or NeedsPermission pause.
type Command struct {
	Kind   CommandKind
	Answer string
	Tool   string
}

// DiffRefreshFunc supplies the freshest diff for a re-review pass, per
// Context refresh: a local commit re-diffs against base, a
// pushed commit re-fetches via the forge CLI. Returning the same string
// each iteration is valid for callers with nothing better to offer.
type DiffRefreshFunc func(ctx context.Context, iteration int) (string, error)

// PromptSet holds the `{{variable}}` template strings used to build each
// role's prompt, loaded from the user config's prompts/ directory or
// falling back to the built-in defaults.
type PromptSet struct {
	Reviewer string
	Reviewee string
}

// Orchestrator drives one rally session through its state machine. Step is
// an explicit stepper — one call advances exactly one transition — so a
// resumed session always re-enters a substate from its beginning rather
// than mid-stream.
type Orchestrator struct {
	Session     *Session
	Adapter     AgentAdapter
	Policy      *PermissionPolicy
	Store       *SessionStore
	Context     RunContext
	DiffRefresh DiffRefreshFunc
	Prompts     PromptSet

	events   chan EventEnvelope
	commands chan Command
}

// NewOrchestrator constructs an Orchestrator for session, wiring its event
// fan-out and reverse command channel.
func NewOrchestrator(session *Session, adapter AgentAdapter, policy *PermissionPolicy, store *SessionStore) *Orchestrator {
	if session.MaxIterations <= 0 {
		session.MaxIterations = 10
	}
	return &Orchestrator{
		Session:  session,
		Adapter:  adapter,
		Policy:   policy,
		Store:    store,
		Prompts:  PromptSet{Reviewer: DefaultReviewerPrompt, Reviewee: DefaultRevieweePrompt},
		events:   make(chan EventEnvelope, eventChanCapacity),
		commands: make(chan Command, 1),
	}
}

// Events returns the channel of streamed and terminal events.
func (o *Orchestrator) Events() <-chan EventEnvelope {
	return o.events
}

// Resolve delivers a clarification answer or permission decision from the
// view into the orchestrator's reverse channel.
func (o *Orchestrator) Resolve(cmd Command) {
	o.commands <- cmd
}

// Run drives Step in a loop until the session reaches Completed or Failed.
func (o *Orchestrator) Run(ctx context.Context) (State, error) {
	for {
		state, err := o.Step(ctx)
		if err != nil {
			return state, err
		}
		if state == Completed || state == Failed {
			return state, nil
		}
	}
}

// Step advances the session exactly one transition.
func (o *Orchestrator) Step(ctx context.Context) (State, error) {
	switch o.Session.State {
	case Initializing:
		return o.stepInitializing(ctx)
	case ReviewerReviewing:
		return o.stepReviewerReviewing(ctx)
	case RevieweeFixing:
		return o.stepRevieweeFixing(ctx)
	case NeedsClarification:
		return o.stepNeedsClarification(ctx)
	case NeedsPermission:
		return o.stepNeedsPermission(ctx)
	case Completed, Failed:
		return o.Session.State, nil
	default:
		return o.Session.State, fmt.Errorf("rally: unknown state %q", o.Session.State)
	}
}

func (o *Orchestrator) stepInitializing(ctx context.Context) (State, error) {
	if o.Session.Iteration == 0 {
		o.Session.Iteration = 1
	}
	return o.transition(ReviewerReviewing)
}

func (o *Orchestrator) stepReviewerReviewing(ctx context.Context) (State, error) {
	rc := o.runContext()
	prompt := RenderTemplate(o.Prompts.Reviewer, map[string]string{
		"number": itoa(rc.Number),
		"owner":  rc.Owner,
		"repo":   rc.Repo,
		"diff":   rc.Diff,
		"title":  "",
	})

	out, err := o.Adapter.RunReviewer(ctx, rc, prompt, o.emitAgentEvent("review"))
	if err != nil {
		return o.fail(fmt.Sprintf("reviewer invocation failed: %v", err))
	}

	o.Session.LastReviewer = &out
	o.appendHistory(IterationRecord{
		Iteration: o.Session.Iteration,
		Phase:     "review",
		Reviewer:  &out,
		Timestamp: time.Now(),
	})

	if out.Action == VerdictApprove {
		return o.complete("approved")
	}
	return o.transition(RevieweeFixing)
}

func (o *Orchestrator) stepRevieweeFixing(ctx context.Context) (State, error) {
	rc := o.runContext()

	summary := ""
	blocking := ""
	if o.Session.LastReviewer != nil {
		summary = o.Session.LastReviewer.Summary
		for _, issue := range o.Session.LastReviewer.BlockingIssues {
			blocking += "- " + issue + "\n"
		}
	}
	if o.Session.Question != "" {
		summary += "\n\nClarification: " + o.Session.Question
	}

	prompt := RenderTemplate(o.Prompts.Reviewee, map[string]string{
		"number":          itoa(rc.Number),
		"owner":           rc.Owner,
		"repo":            rc.Repo,
		"review_summary":  summary,
		"blocking_issues": blocking,
	})

	out, err := o.Adapter.RunReviewee(ctx, rc, prompt, o.allowedRevieweeTools(), o.emitAgentEvent("fix"))
	if err != nil {
		return o.fail(fmt.Sprintf("reviewee invocation failed: %v", err))
	}

	o.Session.LastReviewee = &out
	o.Session.Question = ""
	o.appendHistory(IterationRecord{
		Iteration: o.Session.Iteration,
		Phase:     "fix",
		Reviewee:  &out,
		Timestamp: time.Now(),
	})

	switch out.Status {
	case StatusCompleted:
		if o.Session.Iteration >= o.Session.MaxIterations {
			return o.complete("max iterations reached")
		}
		o.Session.Iteration++
		return o.transition(ReviewerReviewing)
	case StatusNeedsClarification:
		o.Session.Question = out.Question
		o.emitTerminal(TerminalEvent{Kind: TerminalNeedsClarification, Question: out.Question})
		return o.transition(NeedsClarification)
	case StatusNeedsPermission:
		o.Session.PendingAction = out.RequestedAction
		o.emitTerminal(TerminalEvent{Kind: TerminalNeedsPermission, Action: out.RequestedAction})
		return o.transition(NeedsPermission)
	case StatusFailed:
		return o.fail(out.Summary)
	default:
		return o.fail(fmt.Sprintf("reviewee returned unknown status %q", out.Status))
	}
}

func (o *Orchestrator) stepNeedsClarification(ctx context.Context) (State, error) {
	select {
	case cmd := <-o.commands:
		if cmd.Kind != CommandClarificationAnswer {
			return o.Session.State, fmt.Errorf("rally: expected clarification answer, got %q", cmd.Kind)
		}
		o.Session.Question = o.Session.Question + "\n\nAnswer: " + cmd.Answer
		return o.transition(RevieweeFixing)
	case <-ctx.Done():
		return o.fail("cancelled while awaiting clarification")
	}
}

func (o *Orchestrator) stepNeedsPermission(ctx context.Context) (State, error) {
	select {
	case cmd := <-o.commands:
		switch cmd.Kind {
		case CommandPermissionGrant:
			if GlobPermitsDenied(cmd.Tool) {
				return o.fail(fmt.Sprintf("tool %q is never grantable", cmd.Tool))
			}
			o.Session.GrantedTools = append(o.Session.GrantedTools, cmd.Tool)
			o.Session.PendingAction = ""
			return o.transition(RevieweeFixing)
		case CommandPermissionDeny:
			return o.fail(fmt.Sprintf("permission denied: %s", cmd.Tool))
		default:
			return o.Session.State, fmt.Errorf("rally: expected permission decision, got %q", cmd.Kind)
		}
	case <-ctx.Done():
		return o.fail("cancelled while awaiting permission")
	}
}

// allowedRevieweeTools computes the full allowed-tool set for a reviewee
// invocation: the policy table's defaults plus any tools the operator granted
// through a NeedsPermission resolution. Granted tools pass through the same
// deny-list as the table itself — a session file (or a buggy caller) naming
// a denied verb cannot smuggle it into the adapter argv.
func (o *Orchestrator) allowedRevieweeTools() []string {
	policy := o.Policy
	if policy == nil {
		policy = DefaultPermissionPolicy()
	}
	allowed := policy.AllowedTools(RoleReviewee)
	for _, tool := range o.Session.GrantedTools {
		if GlobPermitsDenied(tool) {
			continue
		}
		allowed = append(allowed, tool)
	}
	return allowed
}

func (o *Orchestrator) runContext() RunContext {
	rc := o.Context
	rc.Iteration = o.Session.Iteration
	rc.GrantedTool = o.Session.GrantedTools

	if o.DiffRefresh != nil && o.Session.Iteration > 1 {
		if diff, err := o.DiffRefresh(context.Background(), o.Session.Iteration); err == nil {
			rc.Diff = diff
			o.Context.Diff = diff
		}
	}
	return rc
}

func (o *Orchestrator) transition(next State) (State, error) {
	o.Session.State = next
	o.Session.UpdatedAt = time.Now()
	if o.Store != nil {
		if err := o.Store.SaveSession(o.Session); err != nil {
			return o.Session.State, fmt.Errorf("rally: persist session: %w", err)
		}
	}
	return next, nil
}

func (o *Orchestrator) complete(reason string) (State, error) {
	o.Session.FailureReason = ""
	state, err := o.transition(Completed)
	o.emitTerminal(TerminalEvent{Kind: TerminalCompleted, Reason: reason})
	return state, err
}

func (o *Orchestrator) fail(reason string) (State, error) {
	o.Session.FailureReason = reason
	state, err := o.transition(Failed)
	o.emitTerminal(TerminalEvent{Kind: TerminalFailed, Reason: reason})
	return state, err
}

func (o *Orchestrator) appendHistory(rec IterationRecord) {
	o.Session.History = append(o.Session.History, rec)
	if o.Store != nil {
		_ = o.Store.AppendHistory(o.Session, rec)
	}
}

// emitAgentEvent returns an EventFunc that wraps streamed AgentEvents into
// the envelope and sends them non-blockingly, coalescing ("older
// non-terminal events may be coalesced per phase").
func (o *Orchestrator) emitAgentEvent(phase string) EventFunc {
	return func(ev AgentEvent) {
		env := EventEnvelope{Iteration: o.Session.Iteration, Phase: phase, Agent: &ev}
		select {
		case o.events <- env:
		default:
			select {
			case <-o.events:
			default:
			}
			select {
			case o.events <- env:
			default:
			}
		}
	}
}

// emitTerminal sends a terminal event, waiting for channel space rather
// than dropping it: terminal notifications are never coalesced
// away.
func (o *Orchestrator) emitTerminal(ev TerminalEvent) {
	o.events <- EventEnvelope{Iteration: o.Session.Iteration, Terminal: &ev}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
