// Package rally implements the orchestrator: a state machine
// that alternates two external agent processes (reviewer / reviewee),
// streams their structured events, enforces a tool-permission policy, and
// persists session history so a run can be resumed.
package rally

import (
	"strconv"
	"time"
)

// State is one of the rally's substates in its transition table.
type State string

const (
	Initializing       State = "initializing"
	ReviewerReviewing  State = "reviewer_reviewing"
	RevieweeFixing     State = "reviewee_fixing"
	NeedsClarification State = "needs_clarification"
	NeedsPermission    State = "needs_permission"
	Completed          State = "completed"
	Failed             State = "failed"
)

// Role distinguishes the two agent roles the permission policy and adapters
// key off of.
type Role string

const (
	RoleReviewer Role = "reviewer"
	RoleReviewee Role = "reviewee"
)

// Verdict is the reviewer's decision for one review pass.
type Verdict string

const (
	VerdictApprove        Verdict = "approve"
	VerdictRequestChanges Verdict = "request_changes"
	VerdictComment        Verdict = "comment"
)

// RevieweeStatus is the reviewee's terminal outcome for one fix pass.
type RevieweeStatus string

const (
	StatusCompleted          RevieweeStatus = "completed"
	StatusNeedsClarification RevieweeStatus = "needs_clarification"
	StatusNeedsPermission    RevieweeStatus = "needs_permission"
	StatusFailed             RevieweeStatus = "failed"
)

// ReviewComment is one inline finding from a reviewer pass.
type ReviewComment struct {
	Path     string `json:"path"`
	Line     int    `json:"line"`
	Body     string `json:"body"`
	Severity string `json:"severity"`
}

// ReviewerOutput is the structured result of one reviewer invocation, per
// its output schema.
type ReviewerOutput struct {
	Action         Verdict         `json:"action"`
	Summary        string          `json:"summary"`
	Comments       []ReviewComment `json:"comments"`
	BlockingIssues []string        `json:"blocking_issues"`
}

// RevieweeOutput is the structured result of one reviewee invocation, per
// its output schema.
type RevieweeOutput struct {
	Status          RevieweeStatus `json:"status"`
	Summary         string         `json:"summary"`
	ChangedFiles    []string       `json:"changed_files"`
	CommitSHA       string         `json:"commit_sha,omitempty"`
	Question        string         `json:"question,omitempty"`
	RequestedAction string         `json:"requested_action,omitempty"`
}

// RunContext is the fixed, read-only context passed to every agent
// invocation: the PR identity, the diff to review/fix against, and any
// granted tool overrides from a prior NeedsPermission resolution.
type RunContext struct {
	Forge       string
	Owner       string
	Repo        string
	Number      int
	Diff        string
	WorkingDir  string
	Iteration   int
	GrantedTool []string
}

// IterationRecord is one entry in the session's history log: a completed
// review or fix pass.
type IterationRecord struct {
	Iteration int             `json:"iteration"`
	Phase     string          `json:"phase"` // "review" or "fix"
	Reviewer  *ReviewerOutput `json:"reviewer,omitempty"`
	Reviewee  *RevieweeOutput `json:"reviewee,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Session is the durable, resumable state of one rally run against one PR,
// keyed by (repo, number).
type Session struct {
	ID            string           `json:"id"`
	Forge         string           `json:"forge"`
	Owner         string           `json:"owner"`
	Repo          string           `json:"repo"`
	Number        int              `json:"number"`
	Iteration     int              `json:"iteration"`
	MaxIterations int              `json:"max_iterations"`
	State         State            `json:"state"`
	LastReviewer  *ReviewerOutput  `json:"last_reviewer,omitempty"`
	LastReviewee  *RevieweeOutput  `json:"last_reviewee,omitempty"`
	GrantedTools  []string         `json:"granted_tools,omitempty"`
	Question      string           `json:"question,omitempty"`
	PendingAction string           `json:"pending_action,omitempty"`
	FailureReason string           `json:"failure_reason,omitempty"`
	History       []IterationRecord `json:"history"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// SessionKey builds the `{forge+repo}_{number}` directory key for a session,
// usable before a Session struct exists (e.g. to probe for a resumable one).
func SessionKey(forge, owner, repo string, number int) string {
	return forge + "_" + owner + "_" + repo + "_" + strconv.Itoa(number)
}

// Key returns the `{forge+repo}_{number}` directory key.
func (s *Session) Key() string {
	return SessionKey(s.Forge, s.Owner, s.Repo, s.Number)
}
