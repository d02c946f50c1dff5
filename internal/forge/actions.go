package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ApprovePR submits an approval review on a PR.
func (c *GHClient) ApprovePR(ctx context.Context, owner, repo string, number int, body string) error {
	repoFlag := owner + "/" + repo
	args := []string{"pr", "review", fmt.Sprintf("%d", number), "-R", repoFlag, "--approve"}
	if body != "" {
		args = append(args, "-b", body)
	}

	if _, err := c.ghExec(ctx, args...); err != nil {
		return fmt.Errorf("failed to approve PR #%d: %w", number, err)
	}
	return nil
}

// PostComment posts an issue-level comment on a PR.
func (c *GHClient) PostComment(ctx context.Context, owner, repo string, number int, body string) error {
	repoFlag := owner + "/" + repo
	if _, err := c.ghExec(ctx, "pr", "comment", fmt.Sprintf("%d", number), "-R", repoFlag, "--body", body); err != nil {
		return fmt.Errorf("failed to post comment on PR #%d: %w", number, err)
	}
	return nil
}

// ClosePR closes a PR without merging.
func (c *GHClient) ClosePR(ctx context.Context, owner, repo string, number int) error {
	repoFlag := owner + "/" + repo
	if _, err := c.ghExec(ctx, "pr", "close", fmt.Sprintf("%d", number), "-R", repoFlag); err != nil {
		return fmt.Errorf("failed to close PR #%d: %w", number, err)
	}
	return nil
}

// RequestChangesPR submits a "request changes" review on a PR.
// The body is required by the GitHub API for this review type.
func (c *GHClient) RequestChangesPR(ctx context.Context, owner, repo string, number int, body string) error {
	repoFlag := owner + "/" + repo
	args := []string{"pr", "review", fmt.Sprintf("%d", number), "-R", repoFlag, "--request-changes", "-b", body}
	if _, err := c.ghExec(ctx, args...); err != nil {
		return fmt.Errorf("failed to request changes on PR #%d: %w", number, err)
	}
	return nil
}

// CommentReviewPR submits a review-level comment on a PR (not an issue comment).
func (c *GHClient) CommentReviewPR(ctx context.Context, owner, repo string, number int, body string) error {
	repoFlag := owner + "/" + repo
	args := []string{"pr", "review", fmt.Sprintf("%d", number), "-R", repoFlag, "--comment", "-b", body}
	if _, err := c.ghExec(ctx, args...); err != nil {
		return fmt.Errorf("failed to submit review comment on PR #%d: %w", number, err)
	}
	return nil
}

// SubmitReviewWithComments submits a review with inline comments via the GitHub REST API.
// This uses `gh api` directly since `gh pr review` doesn't support inline comments.
func (c *GHClient) SubmitReviewWithComments(ctx context.Context, owner, repo string, number int, event string, body string, comments []ReviewCommentPayload) error {
	// Map event names to GitHub API values
	apiEvent := strings.ToUpper(event)
	switch apiEvent {
	case "APPROVE", "COMMENT", "REQUEST_CHANGES":
		// valid
	default:
		return fmt.Errorf("invalid review event: %s", event)
	}

	// Set default side for comments
	for i := range comments {
		if comments[i].Side == "" {
			comments[i].Side = "RIGHT"
		}
	}

	// Build JSON payload
	payload := struct {
		Event    string                 `json:"event"`
		Body     string                 `json:"body"`
		Comments []ReviewCommentPayload `json:"comments"`
	}{
		Event:    apiEvent,
		Body:     body,
		Comments: comments,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal review payload: %w", err)
	}

	endpoint := fmt.Sprintf("repos/%s/%s/pulls/%d/reviews", owner, repo, number)
	args := []string{"api", endpoint, "--method", "POST",
		"-H", "Accept: application/vnd.github+json",
		"--input", "-",
	}

	if _, err := c.ghExecWithStdin(ctx, string(payloadJSON), args...); err != nil {
		return fmt.Errorf("failed to submit review with comments on PR #%d: %w", number, err)
	}
	return nil
}

// ReplyToComment posts a threaded reply to an existing inline review comment.
func (c *GHClient) ReplyToComment(ctx context.Context, owner, repo string, prNumber int, commentID int64, body string) error {
	payload := struct {
		Body string `json:"body"`
	}{Body: body}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal reply payload: %w", err)
	}

	endpoint := fmt.Sprintf("repos/%s/%s/pulls/%d/comments/%d/replies", owner, repo, prNumber, commentID)
	args := []string{"api", endpoint, "--method", "POST",
		"-H", "Accept: application/vnd.github+json",
		"--input", "-",
	}
	if _, err := c.ghExecWithStdin(ctx, string(payloadJSON), args...); err != nil {
		return fmt.Errorf("failed to reply to comment %d on PR #%d: %w", commentID, prNumber, err)
	}
	return nil
}

// RerunWorkflow re-triggers an Actions workflow run, optionally limited to
// the jobs that previously failed.
func (c *GHClient) RerunWorkflow(ctx context.Context, owner, repo string, runID int64, failedOnly bool) error {
	repoFlag := owner + "/" + repo
	args := []string{"run", "rerun", fmt.Sprintf("%d", runID), "-R", repoFlag}
	if failedOnly {
		args = append(args, "--failed")
	}
	if _, err := c.ghExec(ctx, args...); err != nil {
		return fmt.Errorf("failed to rerun workflow run %d: %w", runID, err)
	}
	return nil
}
