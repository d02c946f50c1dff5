package ui

import (
	"context"

	"github.com/shhac/gh-rally/internal/forge"
	"github.com/shhac/gh-rally/internal/watcher"
)

// LocalClient presents a working tree's uncommitted changes as a single
// synthetic pull request so the existing panel plumbing can drive local-diff
// mode without a forge identity. Every write operation refuses with
// watcher.ErrUnsupportedInLocalMode.
type LocalClient struct {
	root   string
	runner watcher.CommandRunner
}

// NewLocalClient returns a GitHubService backed by `git diff HEAD` in dir.
func NewLocalClient(dir string) *LocalClient {
	return &LocalClient{root: dir, runner: watcher.DefaultRunner}
}

const localPRNumber = 0

func (c *LocalClient) GetUsername() string { return "local" }

func (c *LocalClient) GetPRsForReview(ctx context.Context) ([]forge.PRItem, error) {
	return []forge.PRItem{c.item()}, nil
}

func (c *LocalClient) GetMyPRs(ctx context.Context) ([]forge.PRItem, error) {
	return nil, nil
}

func (c *LocalClient) item() forge.PRItem {
	return forge.PRItem{
		Number: localPRNumber,
		Title:  "Working tree changes",
		Repo:   forge.Repo{Owner: "local", Name: "workdir", FullName: "local/workdir"},
		Author: forge.User{Login: "local"},
	}
}

func (c *LocalClient) GetPRDetail(ctx context.Context, owner, repo string, number int) (*forge.PRDetail, error) {
	if _, err := watcher.Synthesize(ctx, c.root, c.runner); err != nil {
		return nil, err
	}
	return &forge.PRDetail{
		Number: localPRNumber,
		Title:  "Working tree changes",
		Body:   "Uncommitted changes in " + c.root,
		Author: forge.User{Login: "local"},
	}, nil
}

func (c *LocalClient) GetPRFiles(ctx context.Context, owner, repo string, number int) ([]forge.PRFile, error) {
	snap, err := watcher.Synthesize(ctx, c.root, c.runner)
	if err != nil {
		return nil, err
	}
	return snap.Files, nil
}

func (c *LocalClient) GetComments(ctx context.Context, owner, repo string, number int) ([]forge.Comment, error) {
	return nil, nil
}

func (c *LocalClient) GetInlineComments(ctx context.Context, owner, repo string, number int) ([]forge.InlineComment, error) {
	return nil, nil
}

func (c *LocalClient) GetCIStatus(ctx context.Context, owner, repo, ref string, number int) (*forge.CIStatus, error) {
	return nil, nil
}

func (c *LocalClient) GetReviews(ctx context.Context, owner, repo string, number int) (*forge.ReviewSummary, error) {
	return nil, nil
}

func (c *LocalClient) GetReviewDecisions(ctx context.Context, prs []forge.PRItem) (map[string]string, error) {
	return map[string]string{}, nil
}

func (c *LocalClient) ApprovePR(ctx context.Context, owner, repo string, number int, body string) error {
	return watcher.ErrUnsupportedInLocalMode
}

func (c *LocalClient) PostComment(ctx context.Context, owner, repo string, number int, body string) error {
	return watcher.ErrUnsupportedInLocalMode
}

func (c *LocalClient) ClosePR(ctx context.Context, owner, repo string, number int) error {
	return watcher.ErrUnsupportedInLocalMode
}

func (c *LocalClient) RequestChangesPR(ctx context.Context, owner, repo string, number int, body string) error {
	return watcher.ErrUnsupportedInLocalMode
}

func (c *LocalClient) CommentReviewPR(ctx context.Context, owner, repo string, number int, body string) error {
	return watcher.ErrUnsupportedInLocalMode
}

func (c *LocalClient) SubmitReviewWithComments(ctx context.Context, owner, repo string, number int, event, body string, comments []forge.ReviewCommentPayload) error {
	return watcher.ErrUnsupportedInLocalMode
}

func (c *LocalClient) RerunWorkflow(ctx context.Context, owner, repo string, runID int64, failedOnly bool) error {
	return watcher.ErrUnsupportedInLocalMode
}

func (c *LocalClient) ReplyToComment(ctx context.Context, owner, repo string, prNumber int, commentID int64, body string) error {
	return watcher.ErrUnsupportedInLocalMode
}

func (c *LocalClient) SetFetchLimit(limit int) {}
