package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/shhac/gh-rally/internal/claude"
	"github.com/shhac/gh-rally/internal/config"
	"github.com/shhac/gh-rally/internal/forge"
)

// handleAuxMsg handles the message families the main Update switch doesn't:
// background polling, comments/CI/review loads, review submission, comment
// posting, the command palette, settings, and local-diff watcher events.
func (m App) handleAuxMsg(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		return m.routeSpinnerTick(msg)

	case pollTickMsg:
		if m.pollEnabled && m.ghClient != nil {
			return m, tea.Batch(
				pollFetchPRsCmd(m.ghClient),
				pollTickCmd(m.pollInterval),
			)
		}
		if m.pollEnabled && m.pollInterval > 0 {
			return m, pollTickCmd(m.pollInterval)
		}
		return m, nil

	case pollPRsLoadedMsg:
		toReview := convertPRItems(msg.ToReview)
		myPRs := convertPRItems(msg.MyPRs)
		m.prList.SetItems(toReview, myPRs)
		var cmds []tea.Cmd
		if m.notifyEnabled {
			if newPRs := m.detectNewPRs(msg.ToReview); len(newPRs) > 0 {
				cmds = append(cmds, notifyNewPRsCmd(newPRs, m.appConfig.NotificationThreshold))
			}
		}
		m.snapshotKnownPRs(msg.ToReview, msg.MyPRs)
		return m, tea.Batch(cmds...)

	case CommentsLoadedMsg:
		if m.selectedPR == nil || msg.PRNumber != m.selectedPR.Number {
			return m, nil
		}
		if msg.Err != nil {
			m.chatPanel.SetCommentsError(msg.Err.Error())
		} else {
			m.chatPanel.SetComments(msg.Comments, msg.InlineComments)
			m.diffViewer.SetGitHubInlineComments(msg.InlineComments)
		}
		// Keep draining the comment subscription so a background
		// revalidation's fresh Loaded still arrives.
		if m.commentsStreamChan != nil {
			return m, listenCommentsStreamCmd(m.commentsStreamChan, msg.PRNumber)
		}
		return m, nil

	case CIStatusLoadedMsg:
		if m.selectedPR == nil || msg.PRNumber != m.selectedPR.Number {
			return m, nil
		}
		if msg.Err != nil {
			m.diffViewer.SetCIError(msg.Err.Error())
		} else if msg.Status != nil {
			m.diffViewer.SetCIStatus(msg.Status)
			m.prList.SetCIStatus(msg.Status.OverallStatus)
		}
		return m, nil

	case CIRerunRequestMsg:
		if m.selectedPR == nil || m.ghClient == nil {
			return m, nil
		}
		runIDs := m.diffViewer.ciStatus.FailedRunIDs()
		if len(runIDs) == 0 {
			return m, m.statusBar.SetTemporaryMessage("No re-runnable failed checks", 2*time.Second)
		}
		clearCmd := m.statusBar.SetTemporaryMessage(
			fmt.Sprintf("Re-running %d failed workflow(s)...", len(runIDs)), 15*time.Second,
		)
		return m, tea.Batch(clearCmd, rerunFailedCICmd(m.ghClient, m.selectedPR.Owner, m.selectedPR.Repo, m.selectedPR.Number, runIDs))

	case CIRerunDoneMsg:
		clearCmd := m.statusBar.SetTemporaryMessage(
			fmt.Sprintf("Re-ran %d workflow(s) — refreshing CI...", msg.Count), 3*time.Second,
		)
		var fetchCmd tea.Cmd
		if m.selectedPR != nil && msg.PRNumber == m.selectedPR.Number && m.ghClient != nil {
			fetchCmd = fetchCIStatusCmd(m.ghClient, m.selectedPR.Owner, m.selectedPR.Repo, m.selectedPR.Number)
		}
		return m, tea.Batch(clearCmd, fetchCmd)

	case CIRerunErrMsg:
		return m, m.statusBar.SetTemporaryMessage(
			fmt.Sprintf("CI re-run failed: %v", msg.Err), 5*time.Second,
		)

	case ReviewsLoadedMsg:
		if m.selectedPR == nil || msg.PRNumber != m.selectedPR.Number {
			return m, nil
		}
		if msg.Err != nil {
			m.diffViewer.SetReviewError(msg.Err.Error())
		} else if msg.Summary != nil {
			m.diffViewer.SetReviewSummary(msg.Summary)
			m.prList.SetReviewDecision(msg.Summary.ReviewDecision)
		}
		return m, nil

	case ReviewValidationMsg:
		return m, m.statusBar.SetTemporaryMessage(msg.Message, 3*time.Second)

	case ReviewSubmitMsg:
		return m.handleReviewSubmit(msg)

	case ReviewSubmitDoneMsg:
		if m.selectedPR == nil || msg.PRNumber != m.selectedPR.Number {
			return m, nil
		}
		actionLabels := map[ReviewAction]string{
			ReviewApprove:        "Approved",
			ReviewComment:        "Commented on",
			ReviewRequestChanges: "Requested changes on",
		}
		clearCmd := m.statusBar.SetTemporaryMessage(
			fmt.Sprintf("✓ %s PR #%d", actionLabels[msg.Action], msg.PRNumber), 3*time.Second,
		)
		m.chatPanel.SetReviewSubmitted(nil)
		m.pendingComments = nil
		m.diffViewer.SetPendingInlineComments(nil)
		m.chatPanel.SetPendingCommentCount(0)
		return m, tea.Batch(clearCmd, fetchReviewsCmd(m.ghClient, m.selectedPR.Owner, m.selectedPR.Repo, m.selectedPR.Number))

	case ReviewSubmitErrMsg:
		if m.selectedPR != nil && msg.PRNumber == m.selectedPR.Number {
			m.chatPanel.SetReviewSubmitted(msg.Err)
		}
		return m, m.statusBar.SetTemporaryMessage(fmt.Sprintf("✗ Review failed: %v", msg.Err), 5*time.Second)

	case PRApproveDoneMsg:
		if m.selectedPR == nil || msg.PRNumber != m.selectedPR.Number {
			return m, nil
		}
		clearCmd := m.statusBar.SetTemporaryMessage(fmt.Sprintf("✓ Approved PR #%d", msg.PRNumber), 3*time.Second)
		return m, tea.Batch(clearCmd, fetchReviewsCmd(m.ghClient, m.selectedPR.Owner, m.selectedPR.Repo, m.selectedPR.Number))

	case PRApproveErrMsg:
		return m, m.statusBar.SetTemporaryMessage(fmt.Sprintf("✗ Approve failed: %v", msg.Err), 5*time.Second)

	case PRCloseDoneMsg:
		clearCmd := m.statusBar.SetTemporaryMessage(fmt.Sprintf("✓ Closed PR #%d", msg.PRNumber), 3*time.Second)
		if m.ghClient != nil {
			return m, tea.Batch(clearCmd, fetchPRsCmd(m.ghClient))
		}
		return m, clearCmd

	case PRCloseErrMsg:
		return m, m.statusBar.SetTemporaryMessage(fmt.Sprintf("✗ Close failed: %v", msg.Err), 5*time.Second)

	case CommentPostMsg:
		return m.handleCommentPost(msg.Body)

	case CommentPostedMsg:
		m.chatPanel.SetCommentPosted(msg.Err)
		if msg.Err == nil && m.ghClient != nil && m.selectedPR != nil {
			loadCmd, streamCmd := m.startCommentsLoad(m.selectedPR.Owner, m.selectedPR.Repo, m.selectedPR.Number, true)
			return m, tea.Batch(loadCmd, streamCmd)
		}
		return m, nil

	case InlineCommentReplyDoneMsg:
		if msg.Err != nil {
			return m, m.statusBar.SetTemporaryMessage(fmt.Sprintf("Reply failed: %v", msg.Err), 3*time.Second)
		}
		clearCmd := m.statusBar.SetTemporaryMessage("Reply posted", 2*time.Second)
		var refreshCmd tea.Cmd
		if m.selectedPR != nil && m.ghClient != nil {
			loadCmd, streamCmd := m.startCommentsLoad(m.selectedPR.Owner, m.selectedPR.Repo, m.selectedPR.Number, true)
			refreshCmd = tea.Batch(loadCmd, streamCmd)
		}
		return m, tea.Batch(clearCmd, refreshCmd)

	case AIReviewCompleteMsg:
		if m.selectedPR == nil || msg.PRNumber != m.selectedPR.Number {
			return m, nil
		}
		m.chatPanel.SetAIReviewResult(msg.Result)
		m.mergeAIComments(msg.Result.Comments)
		m.diffViewer.ClearAIInlineComments()
		m.diffViewer.SetPendingInlineComments(m.pendingComments)
		m.chatPanel.SetPendingCommentCount(len(m.pendingComments))
		return m, m.statusBar.SetTemporaryMessage(
			fmt.Sprintf("AI review ready: %d inline comments", len(msg.Result.Comments)), 3*time.Second,
		)

	case AIReviewErrorMsg:
		if m.selectedPR == nil || msg.PRNumber != m.selectedPR.Number {
			return m, nil
		}
		m.chatPanel.SetAIReviewError(msg.Err.Error())
		return m, m.statusBar.SetTemporaryMessage(fmt.Sprintf("AI review failed: %v", msg.Err), 5*time.Second)

	case ChatClearMsg:
		m.chatPanel.ClearChat()
		m.streamChan = nil
		if m.chatService != nil && m.selectedPR != nil {
			m.chatService.ClearSession(m.selectedPR.Owner, m.selectedPR.Repo, m.selectedPR.Number)
		}
		return m, m.statusBar.SetTemporaryMessage("Chat cleared", 2*time.Second)

	case HunkSelectedAndAdvanceMsg:
		m.showAndFocusPanel(PanelRight)
		return m, nil

	case PRSelectedAndAdvanceMsg:
		updated, cmd := m.Update(PRSelectedMsg{Owner: msg.Owner, Repo: msg.Repo, Number: msg.Number, HTMLURL: msg.HTMLURL})
		next := updated.(App)
		next.showAndFocusPanel(PanelCenter)
		return next, cmd

	case StatusBarClearMsg:
		m.statusBar.ClearIfSeqMatch(msg.Seq)
		return m, nil

	case CommandExecuteMsg:
		m.mode = ModeNavigation
		m.statusBar.SetState(m.focused, m.mode)
		return m.executeCommand(msg.Name)

	case CommandModeExitMsg:
		m.mode = ModeNavigation
		m.statusBar.SetState(m.focused, m.mode)
		return m, nil

	case SettingsClosedMsg:
		m.mode = ModeNavigation
		m.statusBar.SetState(m.focused, m.mode)
		return m, nil

	case ConfigChangedMsg:
		return m.applyConfigChange()

	case LocalTreeChangedMsg:
		if m.ghClient == nil || m.localWatcher == nil {
			return m, nil
		}
		return m, tea.Batch(
			refreshLocalDiffCmd(m.ghClient, msg.Paths),
			listenWatcherCmd(m.localWatcher.Events()),
		)

	case LocalDiffLoadedMsg:
		if msg.Err != nil {
			m.diffViewer.SetError(msg.Err)
			return m, nil
		}
		m.diffViewer.SetDiff(msg.Files)
		m.diffFiles = msg.Files
		if m.autoFocusPanel {
			m.diffViewer.FocusNearestFile(msg.Paths)
		}
		return m, nil

	case list.FilterMatchesMsg:
		var cmd tea.Cmd
		m.prList, cmd = m.prList.Update(msg)
		return m, cmd
	}

	// Forward remaining non-key messages (cursor blinks etc.) to whichever
	// overlay is capturing input.
	if m.commentOverlay.IsVisible() {
		var cmd tea.Cmd
		m.commentOverlay, cmd = m.commentOverlay.Update(msg)
		return m, cmd
	}
	if m.mode == ModeCommand {
		var cmd tea.Cmd
		m.commandMode, cmd = m.commandMode.Update(msg)
		return m, cmd
	}
	return m, nil
}

// routeSpinnerTick forwards spinner ticks to every panel so whichever is in
// a loading state keeps animating.
func (m App) routeSpinnerTick(msg spinner.TickMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.prList, cmd = m.prList.Update(msg)
	cmds = append(cmds, cmd)
	m.diffViewer, cmd = m.diffViewer.Update(msg)
	cmds = append(cmds, cmd)
	m.chatPanel, cmd = m.chatPanel.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// snapshotKnownPRs records the current PR set so the next poll can detect
// newly arrived ones.
func (m *App) snapshotKnownPRs(toReview, myPRs []forge.PRItem) {
	known := make(map[string]bool, len(toReview)+len(myPRs))
	for _, pr := range toReview {
		known[prKey(pr.Repo.Owner, pr.Repo.Name, pr.Number)] = true
	}
	for _, pr := range myPRs {
		known[prKey(pr.Repo.Owner, pr.Repo.Name, pr.Number)] = true
	}
	m.knownPRs = known
}

// detectNewPRs returns review-requested PRs that weren't in the last snapshot.
func (m App) detectNewPRs(toReview []forge.PRItem) []forge.PRItem {
	if m.knownPRs == nil {
		return nil
	}
	var fresh []forge.PRItem
	for _, pr := range toReview {
		if !m.knownPRs[prKey(pr.Repo.Owner, pr.Repo.Name, pr.Number)] {
			fresh = append(fresh, pr)
		}
	}
	return fresh
}

// upsertPendingComment adds a draft inline comment, replacing an existing
// draft at the same (path, line) from the same source.
func (m *App) upsertPendingComment(path string, line, startLine int, body, source string) {
	for i := range m.pendingComments {
		c := &m.pendingComments[i]
		if c.Path == path && c.Line == line && c.Source == source {
			c.Body = body
			c.StartLine = startLine
			return
		}
	}
	m.pendingComments = append(m.pendingComments, PendingInlineComment{
		Path:      path,
		Line:      line,
		StartLine: startLine,
		Body:      body,
		Source:    source,
	})
}

// mergeAIComments folds AI review comments into the pending pool as drafts.
func (m *App) mergeAIComments(comments []claude.InlineReviewComment) {
	for _, c := range comments {
		m.upsertPendingComment(c.Path, c.Line, c.StartLine, c.Body, "ai")
	}
}

// handleReviewSubmit validates and submits a review with any pending inline
// comments attached.
func (m App) handleReviewSubmit(msg ReviewSubmitMsg) (tea.Model, tea.Cmd) {
	if m.selectedPR == nil || m.ghClient == nil {
		m.chatPanel.SetReviewSubmitted(fmt.Errorf("no PR selected"))
		return m, nil
	}
	inline := make([]claude.InlineReviewComment, 0, len(m.pendingComments))
	for _, c := range m.pendingComments {
		inline = append(inline, claude.InlineReviewComment{
			Path:      c.Path,
			Line:      c.Line,
			StartLine: c.StartLine,
			Body:      c.Body,
		})
	}
	clearCmd := m.statusBar.SetTemporaryMessage("Submitting review...", 10*time.Second)
	return m, tea.Batch(clearCmd, submitReviewCmd(
		m.ghClient,
		m.selectedPR.Owner, m.selectedPR.Repo, m.selectedPR.Number,
		msg.Action, msg.Body, inline,
	))
}

// handleCommentPost posts a top-level PR comment from the comments tab.
func (m App) handleCommentPost(body string) (tea.Model, tea.Cmd) {
	if m.selectedPR == nil || m.ghClient == nil {
		m.chatPanel.SetCommentPosted(fmt.Errorf("no PR selected"))
		return m, nil
	}
	return m, postCommentCmd(m.ghClient, m.selectedPR.Owner, m.selectedPR.Repo, m.selectedPR.Number, body)
}

// refreshPRList forces a reload of both PR lists.
func (m App) refreshPRList() (tea.Model, tea.Cmd) {
	m.prList.SetLoading()
	if m.ghClient != nil {
		return m, fetchPRsCmd(m.ghClient)
	}
	return m, initGHClientCmd
}

// refreshSelectedPR force-refreshes everything loaded for the selected PR:
// the diff (skipping the cache-hit short circuit), detail, comments, CI, and
// review status.
func (m App) refreshSelectedPR() (tea.Model, tea.Cmd) {
	if m.selectedPR == nil || m.ghClient == nil {
		return m, nil
	}
	owner, repo, number := m.selectedPR.Owner, m.selectedPR.Repo, m.selectedPR.Number
	m.diffViewer.SetLoading(number)
	m.chatPanel.SetCommentsLoading()
	loadCmd, streamCmd := m.startDiffLoad(owner, repo, number, true)
	commentsLoadCmd, commentsStreamCmd := m.startCommentsLoad(owner, repo, number, true)
	clearCmd := m.statusBar.SetTemporaryMessage(fmt.Sprintf("Refreshing PR #%d...", number), 3*time.Second)
	return m, tea.Batch(
		clearCmd,
		loadCmd,
		streamCmd,
		commentsLoadCmd,
		commentsStreamCmd,
		fetchPRDetailCmd(m.ghClient, owner, repo, number),
		fetchCIStatusCmd(m.ghClient, owner, repo, number),
		fetchReviewsCmd(m.ghClient, owner, repo, number),
	)
}

// applyConfigChange persists edited settings and re-applies the live knobs.
func (m App) applyConfigChange() (tea.Model, tea.Cmd) {
	if !m.settingsPanel.IsDirty() {
		return m, nil
	}
	cfg := m.settingsPanel.Config()
	m.appConfig = cfg
	_ = config.Save(cfg)

	var cmds []tea.Cmd
	wasPolling := m.pollEnabled
	m.pollEnabled = cfg.PollEnabled
	m.pollInterval = cfg.PollIntervalDuration()
	m.notifyEnabled = cfg.NotificationsEnabled
	if !wasPolling && m.pollEnabled && m.pollInterval > 0 {
		cmds = append(cmds, pollTickCmd(m.pollInterval))
	}
	m.chatPanel.SetStreamCheckpoint(time.Duration(cfg.StreamCheckpointMs) * time.Millisecond)
	m.chatPanel.UpdateDefaultReviewAction(cfg.DefaultReviewAction)
	if m.ghClient != nil {
		m.ghClient.SetFetchLimit(cfg.PRFetchLimit)
	}
	if m.analyzer != nil {
		m.analyzer.SetTimeout(cfg.ClaudeTimeoutDuration())
		m.analyzer.SetAnalysisMaxTurns(cfg.AnalysisMaxTurns)
	}
	if m.chatService != nil {
		m.chatService.SetTimeout(cfg.ClaudeTimeoutDuration())
		m.chatService.SetMaxPromptTokens(cfg.MaxPromptTokens)
		m.chatService.SetMaxHistoryMessages(cfg.MaxChatHistory)
		m.chatService.SetMaxTurns(cfg.ChatMaxTurns)
	}
	return m, tea.Batch(cmds...)
}

// executeCommand runs a resolved command-palette command by name.
func (m App) executeCommand(name string) (tea.Model, tea.Cmd) {
	switch name {
	case "analyze":
		return m.startAnalysis()
	case "open":
		if m.selectedPR != nil && m.selectedPR.HTMLURL != "" {
			return m, openBrowserCmd(m.selectedPR.HTMLURL)
		}
		return m, nil
	case "new":
		return m.handleAuxMsg(ChatClearMsg{})
	case "quit":
		return m, tea.Quit
	case "help":
		m.mode = ModeOverlay
		m.helpOverlay.SetSize(m.width, m.height)
		m.helpOverlay.Show(m.focused)
		m.statusBar.SetState(m.focused, m.mode)
		return m, nil
	case "zoom":
		m.toggleZoom()
		return m, nil
	case "comment":
		m.showAndFocusPanel(PanelCenter)
		return m, m.diffViewer.EnterCommentMode()
	case "toggle left":
		m.togglePanel(PanelLeft)
		return m, nil
	case "toggle center":
		m.togglePanel(PanelCenter)
		return m, nil
	case "toggle right":
		m.togglePanel(PanelRight)
		return m, nil
	case "config":
		m.mode = ModeOverlay
		m.settingsPanel.SetSize(m.width, m.height)
		m.settingsPanel.Show(m.appConfig)
		m.statusBar.SetState(m.focused, m.mode)
		return m, nil
	case "clear selection":
		m.diffViewer.cancelSelection()
		return m, nil
	case "review":
		return m.startAIReview()
	case "rally":
		return m.startRally()
	case "approve":
		if m.selectedPR == nil || m.ghClient == nil {
			return m, nil
		}
		return m, approvePRCmd(m.ghClient, m.selectedPR.Owner, m.selectedPR.Repo, m.selectedPR.Number)
	case "rerun ci":
		return m.handleAuxMsg(CIRerunRequestMsg{})
	case "refresh":
		if m.focused == PanelLeft {
			return m.refreshPRList()
		}
		return m.refreshSelectedPR()
	case "diff":
		m.showAndFocusPanel(PanelCenter)
		return m, nil
	case "chat":
		m.showAndFocusPanel(PanelRight)
		return m, nil
	case "prs":
		m.showAndFocusPanel(PanelLeft)
		return m, nil
	}
	return m, m.statusBar.SetTemporaryMessage(fmt.Sprintf("Unknown command: %s", name), 2*time.Second)
}

// startAIReview kicks off the AI-generated review with inline comments.
func (m App) startAIReview() (tea.Model, tea.Cmd) {
	if m.selectedPR == nil || m.analyzer == nil || len(m.diffFiles) == 0 {
		return m, m.statusBar.SetTemporaryMessage("Nothing to review: select a PR with a loaded diff", 3*time.Second)
	}
	m.chatPanel.SetAIReviewLoading()
	m.chatPanel.activeTab = ChatTabReview
	m.showAndFocusPanel(PanelRight)
	return m, aiReviewCmd(m.analyzer, m.selectedPR, m.diffFiles)
}

// refreshLocalDiffCmd re-synthesizes the local working-tree snapshot after a
// watcher emission, carrying the changed paths through for auto-focus.
func refreshLocalDiffCmd(client GitHubService, paths []string) tea.Cmd {
	return func() tea.Msg {
		files, err := client.GetPRFiles(context.Background(), "local", "workdir", localPRNumber)
		return LocalDiffLoadedMsg{Files: files, Paths: paths, Err: err}
	}
}
