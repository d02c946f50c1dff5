// Package forge talks to the remote code-forge through its installed CLI
// client rather than speaking HTTP directly. The core never sees a forge's
// raw wire format: every adapter returns the same Client interface, and the
// concrete variant in use is chosen once at startup from configuration.
package forge

import (
	"context"
	"time"
)

// DefaultTimeout is the default deadline applied to forge CLI commands.
const DefaultTimeout = 30 * time.Second

// CommandRunner executes a CLI command and returns its stdout. Tests inject
// a canned implementation; production wires exec.Command.
type CommandRunner func(ctx context.Context, args ...string) (string, error)

// StdinCommandRunner executes a CLI command with stdin piped and returns stdout.
type StdinCommandRunner func(ctx context.Context, stdin string, args ...string) (string, error)

// Client is the forge capability set the rest of the system depends on. It
// is a closed set of concrete implementations resolved at startup by
// configuration — today only GHClient (the GitHub gh CLI) — rather than an
// open plugin surface.
type Client interface {
	GetUsername() string
	GetPRsForReview(ctx context.Context) ([]PRItem, error)
	GetMyPRs(ctx context.Context) ([]PRItem, error)
	GetPRDetail(ctx context.Context, owner, repo string, number int) (*PRDetail, error)
	GetPRFiles(ctx context.Context, owner, repo string, number int) ([]PRFile, error)
	GetComments(ctx context.Context, owner, repo string, number int) ([]Comment, error)
	GetInlineComments(ctx context.Context, owner, repo string, number int) ([]InlineComment, error)
	GetCIStatus(ctx context.Context, owner, repo string, ref string, number int) (*CIStatus, error)
	GetReviews(ctx context.Context, owner, repo string, number int) (*ReviewSummary, error)
	GetReviewDecisions(ctx context.Context, prs []PRItem) (map[string]string, error)
	ApprovePR(ctx context.Context, owner, repo string, number int, body string) error
	PostComment(ctx context.Context, owner, repo string, number int, body string) error
	ClosePR(ctx context.Context, owner, repo string, number int) error
	RequestChangesPR(ctx context.Context, owner, repo string, number int, body string) error
	CommentReviewPR(ctx context.Context, owner, repo string, number int, body string) error
	SubmitReviewWithComments(ctx context.Context, owner, repo string, number int, event string, body string, comments []ReviewCommentPayload) error
	RerunWorkflow(ctx context.Context, owner, repo string, runID int64, failedOnly bool) error
	ReplyToComment(ctx context.Context, owner, repo string, prNumber int, commentID int64, body string) error
	SetFetchLimit(limit int)
}

// NewClient resolves the configured forge variant and returns it as the
// closed Client interface. Today this always yields a GHClient; a second
// forge CLI would be chosen here by configuration rather than by the caller.
func NewClient() (Client, error) {
	return NewGHClient()
}
