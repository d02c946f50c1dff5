package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shhac/gh-rally/internal/claude"
	"github.com/shhac/gh-rally/internal/forge"
	"github.com/shhac/gh-rally/internal/loader"
)

// -- GitHub client lifecycle --

// GHClientReadyMsg is sent when the GitHub client has been created successfully.
type GHClientReadyMsg struct {
	Client GitHubService
}

// GHClientErrorMsg is sent when the GitHub client fails to initialize.
type GHClientErrorMsg struct {
	Err error
}

// -- PR list data --

// PRsLoadedMsg is sent when PR data has been fetched successfully.
type PRsLoadedMsg struct {
	ToReview []forge.PRItem
	MyPRs    []forge.PRItem
}

// PRsErrorMsg is sent when PR fetching fails.
type PRsErrorMsg struct {
	Err error
}

// -- PR selection --

// PRSelectedMsg is sent when the user selects a PR.
type PRSelectedMsg struct {
	Owner   string
	Repo    string
	Number  int
	HTMLURL string
}

// PRSelectedAndAdvanceMsg is sent when ENTER selects a PR and should advance focus to the diff viewer.
type PRSelectedAndAdvanceMsg struct {
	Owner   string
	Repo    string
	Number  int
	HTMLURL string
}

// SelectedPR tracks the currently selected PR's metadata for global actions.
type SelectedPR struct {
	Owner   string
	Repo    string
	Number  int
	Title   string
	HTMLURL string
}

// -- Diff / PR detail --

// DiffLoadedMsg is sent when PR diff data has been fetched.
type DiffLoadedMsg struct {
	PRNumber int
	Files    []forge.PRFile
	Err      error
}

// PRDetailLoadedMsg is sent when PR detail data has been fetched.
type PRDetailLoadedMsg struct {
	PRNumber int
	Detail   *forge.PRDetail
	Err      error
}

// -- Comments --

// CommentsLoadedMsg is sent when PR comments have been fetched.
type CommentsLoadedMsg struct {
	PRNumber       int
	Comments       []forge.Comment
	InlineComments []forge.InlineComment
	Err            error
}

// -- CI & reviews --

// CIStatusLoadedMsg is sent when CI check status has been fetched.
type CIStatusLoadedMsg struct {
	PRNumber int
	Status   *forge.CIStatus
	Err      error
}

// ReviewsLoadedMsg is sent when review status has been fetched.
type ReviewsLoadedMsg struct {
	PRNumber int
	Summary  *forge.ReviewSummary
	Err      error
}

// -- Claude analysis --

// AnalysisCompleteMsg is sent when Claude analysis finishes successfully.
type AnalysisCompleteMsg struct {
	PRNumber int
	DiffHash string
	Result   *claude.AnalysisResult
}

// AnalysisErrorMsg is sent when Claude analysis fails.
type AnalysisErrorMsg struct {
	Err error
}

// -- PR actions --

// PRApproveDoneMsg is sent when PR approval succeeds.
type PRApproveDoneMsg struct {
	PRNumber int
}

// PRApproveErrMsg is sent when PR approval fails.
type PRApproveErrMsg struct {
	PRNumber int
	Err      error
}

// PRCloseDoneMsg is sent when PR close succeeds.
type PRCloseDoneMsg struct {
	PRNumber int
}

// PRCloseErrMsg is sent when PR close fails.
type PRCloseErrMsg struct {
	PRNumber int
	Err      error
}

// -- Review submission --

// ReviewAction represents the type of PR review to submit.
type ReviewAction int

const (
	ReviewApprove        ReviewAction = iota
	ReviewComment
	ReviewRequestChanges
)

// ReviewSubmitMsg is emitted by the chat panel when the user submits a review.
type ReviewSubmitMsg struct {
	Action ReviewAction
	Body   string
}

// ReviewSubmitDoneMsg is sent when review submission succeeds.
type ReviewSubmitDoneMsg struct {
	PRNumber int
	Action   ReviewAction
}

// ReviewSubmitErrMsg is sent when review submission fails.
type ReviewSubmitErrMsg struct {
	PRNumber int
	Err      error
}

// -- Chat panel --

// ModeChangedMsg is sent when the chat panel changes modes.
type ModeChangedMsg struct {
	Mode ChatMode
}

// ChatClearMsg is emitted when the user wants to start a new chat.
type ChatClearMsg struct{}

// ChatSendMsg is emitted when the user sends a chat message.
type ChatSendMsg struct {
	Message string
}

// ChatResponseMsg is sent when Claude responds to a chat message.
type ChatResponseMsg struct {
	Content string
	Err     error
}

// ChatStreamChunkMsg carries a streaming text chunk from Claude.
type ChatStreamChunkMsg struct {
	Content string
}

// CommentPostMsg is emitted when the user wants to post a PR comment.
type CommentPostMsg struct {
	Body string
}

// CommentPostedMsg is sent after a comment has been posted (or failed).
type CommentPostedMsg struct {
	Err error
}

// -- Inline comment overlay --

// PendingInlineComment is a locally staged review comment that hasn't been
// submitted to GitHub yet. Source is "user" or "ai" depending on whether
// the draft originated from manual entry or an AI review suggestion.
type PendingInlineComment struct {
	Path      string
	Line      int
	StartLine int // non-zero for multi-line range comments
	Body      string
	Source    string
}

// ShowCommentOverlayMsg opens the comment overlay, pre-loaded with the
// existing threads at a file/line target plus surrounding diff context.
type ShowCommentOverlayMsg struct {
	Path            string
	Line            int
	StartLine       int
	DiffLines       []string
	TargetLineInCtx int
	GHThreads       []ghCommentThread
	AIComments      []claude.InlineReviewComment
	PendingComments []PendingInlineComment
}

// CommentOverlayClosedMsg is sent when the comment overlay is dismissed.
type CommentOverlayClosedMsg struct{}

// InlineCommentAddMsg stages a new (or edited) local draft comment.
type InlineCommentAddMsg struct {
	Path      string
	Line      int
	StartLine int
	Body      string
}

// InlineCommentReplyMsg posts an immediate reply to an existing GitHub
// review thread, identified by its root comment ID.
type InlineCommentReplyMsg struct {
	CommentID int64
	Body      string
}

// -- External editor --

// EditorRequestMsg asks the app to suspend the TUI and open the configured
// external editor on initial content, returning the result as EditorDoneMsg.
type EditorRequestMsg struct {
	Initial string
}

// EditorDoneMsg carries the edited content (or the failure) once the
// external editor subprocess exits and the TUI resumes.
type EditorDoneMsg struct {
	Body string
	Err  error
}

// -- Navigation --

// HunkSelectedAndAdvanceMsg is sent when ENTER selects a hunk and should advance focus to the chat panel.
type HunkSelectedAndAdvanceMsg struct{}

// HelpClosedMsg is sent when the help overlay is dismissed.
type HelpClosedMsg struct{}

// -- Background polling --

// pollTickMsg fires on the poll interval to trigger a background PR refresh.
type pollTickMsg struct{}

// pollPRsLoadedMsg carries background-polled PR lists; unlike PRsLoadedMsg it
// never resets the panel to a loading state.
type pollPRsLoadedMsg struct {
	ToReview []forge.PRItem
	MyPRs    []forge.PRItem
}

// -- AI review --

// AIReviewCompleteMsg is sent when Claude finishes generating a review with
// inline comments.
type AIReviewCompleteMsg struct {
	PRNumber int
	Result   *claude.ReviewAnalysis
}

// AIReviewErrorMsg is sent when AI review generation fails.
type AIReviewErrorMsg struct {
	PRNumber int
	Err      error
}

// -- CI re-runs --

// CIRerunRequestMsg asks the app to re-run the selected PR's failed workflows.
type CIRerunRequestMsg struct{}

// CIRerunDoneMsg is sent when the failed workflows have been re-triggered.
type CIRerunDoneMsg struct {
	PRNumber int
	Count    int
}

// CIRerunErrMsg is sent when re-triggering failed workflows errors out.
type CIRerunErrMsg struct {
	PRNumber int
	Err      error
}

// -- Review validation --

// ReviewValidationMsg surfaces a validation problem with a review before
// submission (e.g. a missing body on Request Changes).
type ReviewValidationMsg struct {
	Message string
}

// InlineCommentReplyDoneMsg reports the outcome of posting a thread reply.
type InlineCommentReplyDoneMsg struct {
	Err error
}

// -- Local-diff mode --

// LocalTreeChangedMsg is sent when the working-tree watcher reports changed
// files, carrying the union of paths from one debounce window.
type LocalTreeChangedMsg struct {
	Paths []string
}

// LocalDiffLoadedMsg carries a freshly synthesized working-tree snapshot.
type LocalDiffLoadedMsg struct {
	Files []forge.PRFile
	Paths []string
	Err   error
}

// -- Internal streaming --

// chatStreamChan carries streaming chunks and the final response from Claude chat.
type chatStreamChan chan tea.Msg

// analysisStreamChan carries streaming chunks from a Claude analysis run.
type analysisStreamChan chan tea.Msg

// diffStateChan is a view-side handle on a loader subscription for a single
// PR's file list: cache-hit Loaded arrives immediately, a second Loaded
// follows later only if background revalidation found real changes.
type diffStateChan <-chan loader.DataState[forge.FileSet]

// commentsStateChan is the companion handle for the PR's comment-cache
// subscription.
type commentsStateChan <-chan loader.DataState[forge.CommentSet]
