package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shhac/gh-rally/internal/cache"
	"github.com/shhac/gh-rally/internal/claude"
	"github.com/shhac/gh-rally/internal/config"
	"github.com/shhac/gh-rally/internal/demo"
	"github.com/shhac/gh-rally/internal/editor"
	"github.com/shhac/gh-rally/internal/forge"
	"github.com/shhac/gh-rally/internal/git"
	"github.com/shhac/gh-rally/internal/loader"
	"github.com/shhac/gh-rally/internal/rally"
	"github.com/shhac/gh-rally/internal/watcher"
)

// App is the root Bubbletea model for the PR dashboard.
type App struct {
	// Panel models
	prList     PRListModel
	diffViewer DiffViewerModel
	chatPanel  ChatPanelModel
	statusBar  StatusBarModel

	// Overlays
	helpOverlay    HelpOverlayModel
	rallyOverlay   RallyOverlayModel
	commentOverlay CommentOverlayModel
	settingsPanel  SettingsModel
	commandMode    CommandModeModel

	// Pending inline comments staged locally until a review is submitted.
	pendingComments []PendingInlineComment

	// GitHub client (nil until GHClientReadyMsg)
	ghClient GitHubService

	// Currently selected PR (nil until a PR is selected)
	selectedPR *SelectedPR
	diffFiles  []forge.PRFile // stored for analysis context

	// Claude integration
	claudePath    string
	appConfig     *config.Config
	analyzer      *claude.Analyzer
	chatService   *claude.ChatService
	analysisStore *claude.AnalysisStore
	analyzing     bool
	streamChan    chatStreamChan // active chat streaming channel

	// Data layer: cache-hit-then-revalidate subscriptions for the currently
	// selected PR's file list and its companion comment set.
	diffStreamChan     diffStateChan
	diffCancel         func()
	commentsStreamChan commentsStateChan
	commentsCancel     func()

	// Layout state
	focused        Panel
	width          int
	height         int
	panelVisible   [3]bool // which panels are currently visible
	zoomed         bool    // zoom mode: only focused panel shown
	preZoomVisible [3]bool // saved visibility before zoom
	initialized    bool    // whether first WindowSizeMsg has been processed

	// Mode
	mode AppMode

	// Background polling and new-PR notifications
	pollEnabled   bool
	notifyEnabled bool
	pollInterval  time.Duration
	knownPRs      map[string]bool

	// Working directory the rally reviewee edits and commits in.
	workingDir string

	// Local-diff mode: the watched working tree and its fsnotify handle.
	localRoot    string
	localWatcher *watcher.Watcher

	// Startup wiring (set via AppOption, consumed by Init)
	presetClient   forge.Client // non-nil: skip forge.NewClient, use this instead
	initialOwner   string
	initialRepo    string
	initialNumber  int
	autoFocusPanel bool
	aiRallyOnStart bool
	forceRefresh   bool // skip the cache-hit short circuit on the next diff load
}

// AppOption customizes App construction. Applied by NewApp in order.
type AppOption func(*App)

// WithDemo runs the dashboard against in-memory fake data instead of a real
// forge client; every write operation surfaces demo.ErrDemoMode.
func WithDemo() AppOption {
	return func(m *App) { m.presetClient = demo.NewService() }
}

// WithLocalDiff runs the dashboard against the uncommitted changes in dir,
// bypassing the forge entirely; comment/submit/approve all refuse with
// watcher.ErrUnsupportedInLocalMode. A filesystem watcher keeps the diff
// fresh as the tree changes.
func WithLocalDiff(dir string) AppOption {
	return func(m *App) {
		m.presetClient = NewLocalClient(dir)
		m.localRoot = dir
		m.localWatcher = watcher.New(dir, nil)
	}
}

// WithWorkingDir sets the directory rally reviewee agents edit and commit in.
func WithWorkingDir(dir string) AppOption {
	return func(m *App) { m.workingDir = dir }
}

// WithClient injects an already-constructed forge client, built and
// validated by main before the terminal UI starts so setup failures (missing
// CLI, unauthenticated session) terminate the process with a plain message
// instead of surfacing inside the TUI.
func WithClient(c forge.Client) AppOption {
	return func(m *App) { m.presetClient = c }
}

// WithInitialPR preselects owner/repo#number as soon as the client is ready,
// instead of waiting for the user to navigate the PR list.
func WithInitialPR(owner, repo string, number int) AppOption {
	return func(m *App) {
		m.initialOwner = owner
		m.initialRepo = repo
		m.initialNumber = number
	}
}

// WithAutoFocus focuses the diff panel once the initial PR's data has
// loaded, and in local-diff mode jumps to changed files as the watcher
// reports them.
func WithAutoFocus() AppOption {
	return func(m *App) { m.autoFocusPanel = true }
}

// WithAIRally starts a rally against the initial PR as soon as its diff has
// loaded, for `--ai-rally` invocations.
func WithAIRally() AppOption {
	return func(m *App) { m.aiRallyOnStart = true }
}

// WithForceRefresh makes the first diff load bypass the on-disk cache, for
// `--refresh` invocations.
func WithForceRefresh() AppOption {
	return func(m *App) { m.forceRefresh = true }
}

// NewApp creates a new App model with default state.
func NewApp(opts ...AppOption) App {
	cfg, _ := config.Load()
	if cfg == nil {
		cfg = &config.Config{ClaudeTimeout: config.DefaultClaudeTimeoutMs}
	}

	claudePath, _ := claude.FindClaude()

	var analyzer *claude.Analyzer
	var chatSvc *claude.ChatService
	if claudePath != "" {
		analyzer = claude.NewAnalyzer(claudePath, cfg.ClaudeTimeoutDuration(), config.PromptsDir(), cfg.AnalysisMaxTurns)
		chatSvc = claude.NewChatService(claudePath, cfg.ClaudeTimeoutDuration(), claude.NewChatStore(config.ChatCacheDir()),
			cfg.MaxPromptTokens, cfg.MaxChatHistory, cfg.ChatMaxTurns)
	}

	store := claude.NewAnalysisStore(config.AnalysesCacheDir())

	m := App{
		prList:         NewPRListModel(),
		diffViewer:     NewDiffViewerModel(),
		chatPanel:      NewChatPanelModel(),
		statusBar:      NewStatusBarModel(),
		helpOverlay:    NewHelpOverlayModel(),
		rallyOverlay:   NewRallyOverlayModel(),
		commentOverlay: NewCommentOverlayModel(),
		settingsPanel:  NewSettingsModel(),
		commandMode:    NewCommandModeModel(),
		focused:        PanelLeft,
		panelVisible:   [3]bool{true, true, true},
		mode:           ModeNavigation,
		claudePath:     claudePath,
		appConfig:      cfg,
		analyzer:       analyzer,
		chatService:    chatSvc,
		analysisStore:  store,
		pollEnabled:    cfg.PollEnabled,
		notifyEnabled:  cfg.NotificationsEnabled,
		pollInterval:   cfg.PollIntervalDuration(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m App) Init() tea.Cmd {
	cmds := []tea.Cmd{m.prList.spinner.Tick}

	if m.presetClient != nil {
		client := m.presetClient
		cmds = append(cmds, func() tea.Msg { return GHClientReadyMsg{Client: client} })
	} else {
		cmds = append(cmds, initGHClientCmd)
	}

	if m.localWatcher != nil {
		if err := m.localWatcher.Start(); err == nil {
			cmds = append(cmds, listenWatcherCmd(m.localWatcher.Events()))
		}
	}

	return tea.Batch(cmds...)
}

func (m App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.helpOverlay.SetSize(m.width, m.height)
		m.rallyOverlay.SetSize(m.width, m.height)
		m.commentOverlay.SetSize(m.width, m.height)
		m.settingsPanel.SetSize(m.width, m.height)
		m.commandMode.SetSize(m.width, m.height)
		// Auto-collapse right panel on first render if terminal is narrow
		if !m.initialized {
			m.initialized = true
			if m.width < collapseThreshold {
				m.panelVisible[PanelRight] = false
				if m.focused == PanelRight {
					m.focusPanel(nextVisiblePanel(m.focused, m.panelVisible))
				}
			}
		}
		m.recalcLayout()
		return m, nil

	case GHClientReadyMsg:
		m.ghClient = msg.Client
		m.ghClient.SetFetchLimit(m.appConfig.PRFetchLimit)
		return m, fetchPRsCmd(m.ghClient)

	case GHClientErrorMsg:
		m.prList.SetError(msg.Err.Error())
		return m, nil

	case PRsLoadedMsg:
		toReview := convertPRItems(msg.ToReview)
		myPRs := convertPRItems(msg.MyPRs)
		m.prList.SetItems(toReview, myPRs)
		m.snapshotKnownPRs(msg.ToReview, msg.MyPRs)
		var pollCmd tea.Cmd
		if m.pollEnabled && m.pollInterval > 0 {
			pollCmd = pollTickCmd(m.pollInterval)
		}
		if m.initialNumber != 0 || m.initialOwner != "" {
			if pr := findPRItem(msg.ToReview, msg.MyPRs, m.initialOwner, m.initialRepo, m.initialNumber); pr != nil {
				selMsg := PRSelectedMsg{Owner: pr.Repo.Owner, Repo: pr.Repo.Name, Number: pr.Number, HTMLURL: pr.HTMLURL}
				m.initialOwner, m.initialRepo, m.initialNumber = "", "", 0
				updated, cmd := m.Update(selMsg)
				next := updated.(App)
				if m.autoFocusPanel {
					next.showAndFocusPanel(PanelCenter)
				}
				return next, tea.Batch(cmd, pollCmd)
			}
		}
		return m, pollCmd

	case PRsErrorMsg:
		m.prList.SetError(msg.Err.Error())
		return m, nil

	case HelpClosedMsg:
		m.mode = ModeNavigation
		m.statusBar.SetState(m.focused, m.mode)
		return m, nil

	case ModeChangedMsg:
		if msg.Mode == ChatModeInsert {
			m.mode = ModeInsert
		} else {
			m.mode = ModeNavigation
		}
		m.statusBar.SetState(m.focused, m.mode)
		return m, nil

	case PRSelectedMsg:
		title := ""
		if item, ok := m.prList.list.SelectedItem().(PRItem); ok {
			title = item.title
		}
		m.selectedPR = &SelectedPR{
			Owner:   msg.Owner,
			Repo:    msg.Repo,
			Number:  msg.Number,
			Title:   title,
			HTMLURL: msg.HTMLURL,
		}
		m.streamChan = nil                 // stop listening to old stream
		m.diffFiles = nil                  // clear old diff data
		m.chatPanel.SetAnalysisResult(nil) // clear old analysis
		m.chatPanel.ClearChat()            // clear old chat
		if m.chatService != nil {
			m.chatService.ClearSession(msg.Owner, msg.Repo, msg.Number)
		}
		m.statusBar.SetSelectedPR(msg.Number)
		m.prList.SetSelectedPR(msg.Number)
		m.diffViewer.SetLoading(msg.Number)
		m.diffStreamChan = nil
		m.commentsStreamChan = nil
		m.pendingComments = nil
		m.diffViewer.SetPendingInlineComments(nil)
		m.chatPanel.SetPendingCommentCount(0)
		m.chatPanel.SetCommentsLoading()
		if m.ghClient != nil {
			// Local-diff mode always re-synthesizes: a cached snapshot of
			// someone's working tree from a previous run is never right.
			force := m.forceRefresh || m.localRoot != ""
			m.forceRefresh = false
			loadCmd, streamCmd := m.startDiffLoad(msg.Owner, msg.Repo, msg.Number, force)
			commentsLoadCmd, commentsStreamCmd := m.startCommentsLoad(msg.Owner, msg.Repo, msg.Number, force)
			return m, tea.Batch(
				loadCmd,
				streamCmd,
				commentsLoadCmd,
				commentsStreamCmd,
				fetchPRDetailCmd(m.ghClient, msg.Owner, msg.Repo, msg.Number),
				fetchCIStatusCmd(m.ghClient, msg.Owner, msg.Repo, msg.Number),
				fetchReviewsCmd(m.ghClient, msg.Owner, msg.Repo, msg.Number),
			)
		}
		return m, nil

	case DiffLoadedMsg:
		// Race guard: only apply if this is for the currently displayed PR
		if msg.PRNumber != m.diffViewer.prNumber {
			return m, nil
		}
		if msg.Err != nil {
			m.diffViewer.SetError(msg.Err)
		} else {
			m.diffViewer.SetDiff(msg.Files)
			m.diffFiles = msg.Files
		}
		// Keep draining the loader's subscription: a cache-hit Loaded here is
		// followed, some time later, by a second Loaded only if the
		// background revalidation found the file set actually changed.
		var streamCmd tea.Cmd
		if m.diffStreamChan != nil {
			streamCmd = listenDiffStreamCmd(m.diffStreamChan, msg.PRNumber)
		}
		if m.aiRallyOnStart && msg.Err == nil && len(msg.Files) > 0 &&
			m.selectedPR != nil && msg.PRNumber == m.selectedPR.Number {
			m.aiRallyOnStart = false
			updated, rallyCmd := m.startRally()
			return updated, tea.Batch(streamCmd, rallyCmd)
		}
		return m, streamCmd

	case PRDetailLoadedMsg:
		// Race guard: only apply if this is for the currently selected PR
		if m.selectedPR == nil || msg.PRNumber != m.selectedPR.Number {
			return m, nil
		}
		if msg.Err == nil && msg.Detail != nil {
			m.diffViewer.SetPRInfo(
				msg.Detail.Title,
				msg.Detail.Body,
				msg.Detail.Author.Login,
				msg.Detail.HTMLURL,
			)
		}
		return m, nil

	case AnalysisCompleteMsg:
		m.analyzing = false
		if m.selectedPR != nil && msg.PRNumber == m.selectedPR.Number {
			m.chatPanel.SetAnalysisResult(msg.Result)
			// Cache the result
			_ = m.analysisStore.Put(
				m.selectedPR.Owner, m.selectedPR.Repo, m.selectedPR.Number,
				msg.DiffHash, msg.Result,
			)
		}
		return m, nil

	case AnalysisErrorMsg:
		m.analyzing = false
		m.chatPanel.SetAnalysisError(msg.Err.Error())
		return m, nil

	case ChatSendMsg:
		return m.handleChatSend(msg.Message)

	case ChatStreamChunkMsg:
		// Ignore stale chunks from a previous PR's stream
		if m.streamChan == nil {
			return m, nil
		}
		m.chatPanel.AppendStreamChunk(msg.Content)
		return m, listenForChatStream(m.streamChan)

	case ChatResponseMsg:
		// Ignore stale responses from a previous PR's stream
		if m.streamChan == nil {
			return m, nil
		}
		m.streamChan = nil
		if msg.Err != nil {
			m.chatPanel.SetChatError(msg.Err.Error())
		} else {
			m.chatPanel.AddResponse(msg.Content)
		}
		return m, nil

	case RallyStartedMsg, RallyEventMsg, RallyDoneMsg:
		var cmd tea.Cmd
		m.rallyOverlay, cmd = m.rallyOverlay.Update(msg)
		return m, cmd

	case ShowCommentOverlayMsg:
		cmd := m.commentOverlay.Show(msg)
		return m, cmd

	case CommentOverlayClosedMsg:
		return m, nil

	case EditorRequestMsg:
		return m, composeInEditorCmd(editor.Resolve(m.appConfig.Editor), msg.Initial)

	case EditorDoneMsg:
		if msg.Err != nil {
			m.commentOverlay.SetComposeError(msg.Err)
			return m, nil
		}
		m.commentOverlay.SetDraftBody(msg.Body)
		return m, nil

	case InlineCommentAddMsg:
		m.upsertPendingComment(msg.Path, msg.Line, msg.StartLine, msg.Body, "user")
		m.diffViewer.SetPendingInlineComments(m.pendingComments)
		return m, nil

	case InlineCommentReplyMsg:
		if m.ghClient == nil || m.selectedPR == nil {
			return m, nil
		}
		return m, replyToCommentCmd(m.ghClient, m.selectedPR.Owner, m.selectedPR.Repo, m.selectedPR.Number, msg.CommentID, msg.Body)

	case tea.KeyMsg:
		// The rally overlay captures keys whenever it's open, regardless of mode.
		if m.rallyOverlay.IsVisible() {
			var cmd tea.Cmd
			m.rallyOverlay, cmd = m.rallyOverlay.Update(msg)
			return m, cmd
		}

		// The comment overlay captures keys whenever it's open.
		if m.commentOverlay.IsVisible() {
			var cmd tea.Cmd
			m.commentOverlay, cmd = m.commentOverlay.Update(msg)
			return m, cmd
		}

		// Overlay mode captures all keys
		if m.mode == ModeOverlay {
			if m.settingsPanel.IsVisible() {
				var cmd tea.Cmd
				m.settingsPanel, cmd = m.settingsPanel.Update(msg)
				return m, cmd
			}
			var cmd tea.Cmd
			m.helpOverlay, cmd = m.helpOverlay.Update(msg)
			return m, cmd
		}

		// Command mode captures all keys
		if m.mode == ModeCommand {
			var cmd tea.Cmd
			m.commandMode, cmd = m.commandMode.Update(msg)
			return m, cmd
		}

		// In insert mode, only Esc is handled globally (via chat panel)
		if m.mode == ModeInsert {
			return m.updateChatPanel(msg)
		}

		// While filtering, searching, or composing a comment, route all keys
		// to the owning panel.
		if m.focused == PanelLeft && m.prList.IsFiltering() {
			return m.updateFocusedPanel(msg)
		}
		if m.focused == PanelCenter && (m.diffViewer.IsSearching() || m.diffViewer.IsCommenting()) {
			return m.updateFocusedPanel(msg)
		}

		// Global key handling in navigation mode
		switch {
		case key.Matches(msg, GlobalKeys.Help):
			m.mode = ModeOverlay
			m.helpOverlay.SetSize(m.width, m.height)
			m.helpOverlay.Show(m.focused)
			m.statusBar.SetState(m.focused, m.mode)
			return m, nil

		case key.Matches(msg, GlobalKeys.Quit):
			return m, tea.Quit

		case key.Matches(msg, GlobalKeys.Tab):
			if m.zoomed {
				m.exitZoom()
				m.recalcLayout()
			}
			m.focusPanel(nextVisiblePanel(m.focused, m.panelVisible))
			return m, nil

		case key.Matches(msg, GlobalKeys.ShiftTab):
			if m.zoomed {
				m.exitZoom()
				m.recalcLayout()
			}
			m.focusPanel(prevVisiblePanel(m.focused, m.panelVisible))
			return m, nil

		case key.Matches(msg, GlobalKeys.Panel1):
			m.showAndFocusPanel(PanelLeft)
			return m, nil

		case key.Matches(msg, GlobalKeys.Panel2):
			m.showAndFocusPanel(PanelCenter)
			return m, nil

		case key.Matches(msg, GlobalKeys.Panel3):
			m.showAndFocusPanel(PanelRight)
			return m, nil

		case key.Matches(msg, GlobalKeys.ToggleLeft):
			if m.zoomed {
				m.exitZoom()
			}
			m.togglePanel(PanelLeft)
			return m, nil

		case key.Matches(msg, GlobalKeys.ToggleCenter):
			if m.zoomed {
				m.exitZoom()
			}
			m.togglePanel(PanelCenter)
			return m, nil

		case key.Matches(msg, GlobalKeys.ToggleRight):
			if m.zoomed {
				m.exitZoom()
			}
			m.togglePanel(PanelRight)
			return m, nil

		case key.Matches(msg, GlobalKeys.Zoom):
			m.toggleZoom()
			return m, nil

		case key.Matches(msg, GlobalKeys.OpenBrowser):
			if m.selectedPR != nil && m.selectedPR.HTMLURL != "" {
				return m, openBrowserCmd(m.selectedPR.HTMLURL)
			}
			return m, nil

		case key.Matches(msg, GlobalKeys.Analyze):
			return m.startAnalysis()

		case key.Matches(msg, GlobalKeys.Rally):
			return m.startRally()

		case key.Matches(msg, GlobalKeys.Refresh):
			if m.focused == PanelLeft {
				return m.refreshPRList()
			}
			return m.refreshSelectedPR()

		case key.Matches(msg, GlobalKeys.ReviewPanel):
			m.showAndFocusPanel(PanelRight)
			m.chatPanel.activeTab = ChatTabReview
			return m, nil

		case key.Matches(msg, GlobalKeys.CommandMode):
			m.mode = ModeCommand
			m.statusBar.SetState(m.focused, m.mode)
			m.commandMode.SetSize(m.width, m.height)
			return m, m.commandMode.Open(true)

		case key.Matches(msg, GlobalKeys.ExCommand):
			m.mode = ModeCommand
			m.statusBar.SetState(m.focused, m.mode)
			m.commandMode.SetSize(m.width, m.height)
			return m, m.commandMode.Open(false)
		}

		// Delegate to focused panel
		return m.updateFocusedPanel(msg)
	}

	return m.handleAuxMsg(msg)
}

func (m App) View() string {
	sizes := CalculatePanelSizes(m.width, m.height, m.panelVisible)

	if sizes.TooSmall {
		msg := lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true).
			Render("Terminal too small. Please resize to at least 80×6.")
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, msg)
	}

	var panelViews []string
	if sizes.LeftWidth > 0 {
		panelViews = append(panelViews, m.prList.View())
	}
	if sizes.CenterWidth > 0 {
		panelViews = append(panelViews, m.diffViewer.View())
	}
	if sizes.RightWidth > 0 {
		panelViews = append(panelViews, m.chatPanel.View())
	}

	panels := lipgloss.JoinHorizontal(lipgloss.Top, panelViews...)
	bar := m.statusBar.View()

	var base string
	if m.commandMode.IsActive() {
		base = lipgloss.JoinVertical(lipgloss.Left, panels, m.commandMode.View(), bar)
	} else {
		base = lipgloss.JoinVertical(lipgloss.Left, panels, bar)
	}

	// Render overlays on top if active
	if m.helpOverlay.IsVisible() {
		return m.helpOverlay.View()
	}
	if m.settingsPanel.IsVisible() {
		return m.settingsPanel.View()
	}
	if m.rallyOverlay.IsVisible() {
		return m.rallyOverlay.View()
	}
	if m.commentOverlay.IsVisible() {
		return m.commentOverlay.View()
	}

	return base
}

// -- Async commands --
//
// initGHClientCmd, fetchPRsCmd, fetchPRDetailCmd, and the diff/comment
// stream listeners (listenDiffStreamCmd, listenCommentsStreamCmd) live in
// commands.go, generalized over the GitHubService interface.

// findPRItem locates the PR matching owner/repo/number across both lists.
// An empty owner/repo matches any repo, for --pr-only invocations within a
// single-repo working directory.
func findPRItem(toReview, myPRs []forge.PRItem, owner, repo string, number int) *forge.PRItem {
	for _, list := range [][]forge.PRItem{toReview, myPRs} {
		for i := range list {
			pr := list[i]
			if pr.Number != number {
				continue
			}
			if owner != "" && pr.Repo.Owner != owner {
				continue
			}
			if repo != "" && pr.Repo.Name != repo {
				continue
			}
			return &pr
		}
	}
	return nil
}

// -- Layout & panel helpers --

// focusPanel sets focus to the given panel. If the panel is hidden,
// focuses the next visible panel instead.
func (m *App) focusPanel(p Panel) {
	if !m.panelVisible[p] {
		p = nextVisiblePanel(p, m.panelVisible)
	}
	m.focused = p
	m.prList.SetFocused(p == PanelLeft)
	m.diffViewer.SetFocused(p == PanelCenter)
	m.chatPanel.SetFocused(p == PanelRight)
	m.statusBar.SetState(m.focused, m.mode)
}

func (m *App) recalcLayout() {
	sizes := CalculatePanelSizes(m.width, m.height, m.panelVisible)
	if sizes.TooSmall {
		return
	}

	if sizes.LeftWidth > 0 {
		m.prList.SetSize(sizes.LeftWidth, sizes.PanelHeight)
	}
	if sizes.CenterWidth > 0 {
		m.diffViewer.SetSize(sizes.CenterWidth, sizes.PanelHeight)
	}
	if sizes.RightWidth > 0 {
		m.chatPanel.SetSize(sizes.RightWidth, sizes.PanelHeight)
	}
	m.statusBar.SetWidth(m.width)
	m.statusBar.SetState(m.focused, m.mode)
}

// togglePanel shows or hides a panel. Prevents hiding the last visible panel.
func (m *App) togglePanel(p Panel) {
	if m.panelVisible[p] && visibleCount(m.panelVisible) <= 1 {
		return // can't hide the last visible panel
	}
	m.panelVisible[p] = !m.panelVisible[p]
	if !m.panelVisible[m.focused] {
		m.focusPanel(nextVisiblePanel(m.focused, m.panelVisible))
	}
	m.recalcLayout()
}

// toggleZoom enters or exits zoom mode. When zoomed, only the focused panel
// is visible at full width.
func (m *App) toggleZoom() {
	if m.zoomed {
		m.exitZoom()
	} else {
		m.preZoomVisible = m.panelVisible
		m.panelVisible = [3]bool{}
		m.panelVisible[m.focused] = true
		m.zoomed = true
	}
	m.recalcLayout()
}

// exitZoom restores the pre-zoom panel visibility.
func (m *App) exitZoom() {
	if !m.zoomed {
		return
	}
	m.panelVisible = m.preZoomVisible
	m.zoomed = false
}

// showAndFocusPanel ensures a panel is visible, exits zoom if active,
// and focuses the panel.
func (m *App) showAndFocusPanel(p Panel) {
	if m.zoomed {
		m.exitZoom()
	}
	if !m.panelVisible[p] {
		m.panelVisible[p] = true
	}
	m.focusPanel(p)
	m.recalcLayout()
}

func (m App) updateFocusedPanel(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focused {
	case PanelLeft:
		m.prList, cmd = m.prList.Update(msg)
	case PanelCenter:
		m.diffViewer, cmd = m.diffViewer.Update(msg)
	case PanelRight:
		m.chatPanel, cmd = m.chatPanel.Update(msg)
	}
	return m, cmd
}

func (m App) updateChatPanel(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.chatPanel, cmd = m.chatPanel.Update(msg)
	return m, cmd
}

// startDiffLoad builds a fresh per-PR file loader, subscribes to it, stashes
// the subscription on m, and kicks off the cache-hit-then-revalidate fetch.
// force skips the cache-hit short circuit for explicit refreshes. One Loader
// is constructed per selection rather than shared across the app's lifetime
// since FetchFunc closes over owner/repo/number and carries no key parameter
// of its own.
func (m *App) startDiffLoad(owner, repo string, number int, force bool) (tea.Cmd, tea.Cmd) {
	if m.diffCancel != nil {
		m.diffCancel()
		m.diffCancel = nil
	}

	client := m.ghClient
	store := cache.NewStore[forge.FileSet](config.DiffCacheDir())
	fetch := func(ctx context.Context) (forge.FileSet, error) {
		files, err := client.GetPRFiles(ctx, owner, repo, number)
		return forge.FileSet(files), err
	}
	ld := loader.New(store, fetch, m.cacheTTL())

	key := loader.Key(repo, number)
	sub := ld.Subscribe(key)
	m.diffStreamChan = sub.C
	m.diffCancel = sub.Cancel

	loadCmd := func() tea.Msg {
		ld.Load(context.Background(), key, force)
		return nil
	}
	return loadCmd, listenDiffStreamCmd(sub.C, number)
}

// startCommentsLoad mirrors startDiffLoad for the companion comment-cache
// artifact: one loader per selection over the `{repo}_{pr}_comments` key,
// cache-hit first, revalidated in the background.
func (m *App) startCommentsLoad(owner, repo string, number int, force bool) (tea.Cmd, tea.Cmd) {
	if m.commentsCancel != nil {
		m.commentsCancel()
		m.commentsCancel = nil
	}

	client := m.ghClient
	store := cache.NewStore[forge.CommentSet](config.DiffCacheDir())
	fetch := func(ctx context.Context) (forge.CommentSet, error) {
		comments, err := client.GetComments(ctx, owner, repo, number)
		if err != nil {
			return forge.CommentSet{}, err
		}
		inline, err := client.GetInlineComments(ctx, owner, repo, number)
		if err != nil {
			return forge.CommentSet{}, err
		}
		return forge.CommentSet{Comments: comments, Inline: inline}, nil
	}
	ld := loader.New(store, fetch, m.cacheTTL())

	key := loader.CommentsKey(repo, number)
	sub := ld.Subscribe(key)
	m.commentsStreamChan = sub.C
	m.commentsCancel = sub.Cancel

	loadCmd := func() tea.Msg {
		ld.Load(context.Background(), key, force)
		return nil
	}
	return loadCmd, listenCommentsStreamCmd(sub.C, number)
}

// cacheTTL returns the configured artifact staleness window in seconds.
func (m *App) cacheTTL() int64 {
	if m.appConfig != nil {
		return int64(m.appConfig.CacheTTLSecs)
	}
	return int64(config.DefaultCacheTTLSecs)
}

// startRally validates state and opens the rally overlay, launching a new
// orchestrator run (or resuming a persisted one) against the selected PR's
// diff.
func (m App) startRally() (tea.Model, tea.Cmd) {
	if m.selectedPR == nil {
		return m, nil
	}
	if m.localRoot != "" {
		return m, m.statusBar.SetTemporaryMessage("Rally is unsupported in local mode", 3*time.Second)
	}
	if m.claudePath == "" && m.appConfig.RallyAgentAPath == "" && m.appConfig.RallyAgentBPath == "" {
		return m, m.statusBar.SetTemporaryMessage("No rally agent CLI configured", 3*time.Second)
	}
	m.rallyOverlay.Show()
	cmd := m.rallyOverlay.Start(
		m.appConfig, m.claudePath, m.workingDir,
		m.selectedPR.Owner, m.selectedPR.Repo, m.selectedPR.Number,
		buildDiffContent(m.diffFiles),
		m.rallyDiffRefresh(),
	)
	return m, cmd
}

// rallyDiffRefresh builds the context-refresh function re-review passes use:
// when the reviewee committed into a local working tree, diff that tree
// against the PR's base branch; otherwise (or when that yields nothing)
// re-fetch the pushed state through the forge CLI.
func (m App) rallyDiffRefresh() rally.DiffRefreshFunc {
	client := m.ghClient
	owner, repo, number := m.selectedPR.Owner, m.selectedPR.Repo, m.selectedPR.Number
	wd := m.workingDir
	return func(ctx context.Context, iteration int) (string, error) {
		if client == nil {
			return "", errors.New("no forge client")
		}
		if wd != "" && git.RepoExists(wd) {
			if detail, err := client.GetPRDetail(ctx, owner, repo, number); err == nil && detail.BaseBranch != "" {
				if d, err := git.DiffBase(ctx, wd, "origin/"+detail.BaseBranch, nil); err == nil && strings.TrimSpace(d) != "" {
					return d, nil
				}
			}
		}
		files, err := client.GetPRFiles(ctx, owner, repo, number)
		if err != nil {
			return "", err
		}
		return buildDiffContent(files), nil
	}
}

// startAnalysis validates state and kicks off Claude analysis.
func (m App) startAnalysis() (tea.Model, tea.Cmd) {
	if m.selectedPR == nil {
		m.chatPanel.SetAnalysisError("No PR selected. Select a PR first.")
		m.chatPanel.activeTab = ChatTabAnalysis
		m.showAndFocusPanel(PanelRight)
		return m, nil
	}
	if m.claudePath == "" {
		m.chatPanel.SetAnalysisError("Claude CLI not found.\nInstall from https://docs.anthropic.com/en/docs/claude-code")
		m.chatPanel.activeTab = ChatTabAnalysis
		m.showAndFocusPanel(PanelRight)
		return m, nil
	}
	if m.analyzing {
		return m, nil
	}
	if len(m.diffFiles) == 0 {
		m.chatPanel.SetAnalysisError("No diff loaded. Select a PR to load its diff first.")
		m.chatPanel.activeTab = ChatTabAnalysis
		m.showAndFocusPanel(PanelRight)
		return m, nil
	}

	// Check cache
	hash := diffContentHash(m.diffFiles)
	cached, _ := m.analysisStore.Get(m.selectedPR.Owner, m.selectedPR.Repo, m.selectedPR.Number)
	if cached != nil && !m.analysisStore.IsStale(cached, hash) {
		m.chatPanel.SetAnalysisResult(cached.Result)
		m.chatPanel.activeTab = ChatTabAnalysis
		m.showAndFocusPanel(PanelRight)
		return m, nil
	}

	// Start async analysis
	m.analyzing = true
	m.chatPanel.SetAnalysisLoading()
	m.chatPanel.activeTab = ChatTabAnalysis
	m.showAndFocusPanel(PanelRight)

	return m, analyzeDiffCmd(m.analyzer, m.selectedPR, m.diffFiles, hash)
}

// handleChatSend validates state and kicks off streaming Claude chat.
func (m App) handleChatSend(message string) (tea.Model, tea.Cmd) {
	if m.selectedPR == nil {
		m.chatPanel.SetChatError("No PR selected. Select a PR first.")
		return m, nil
	}
	if m.chatService == nil {
		m.chatPanel.SetChatError("Claude CLI not found.\nInstall from https://docs.anthropic.com/en/docs/claude-code")
		return m, nil
	}

	var prContext string
	if selected := m.diffViewer.GetSelectedHunkContent(); selected != "" {
		prContext = buildSelectedHunkContext(m.selectedPR, m.diffFiles, selected)
	} else {
		prContext = buildChatContext(m.selectedPR, m.diffFiles)
	}

	input := claude.ChatInput{
		Owner:     m.selectedPR.Owner,
		Repo:      m.selectedPR.Repo,
		PRNumber:  m.selectedPR.Number,
		PRContext: prContext,
		Message:   message,
	}

	ch := make(chatStreamChan)
	go func() {
		defer close(ch)
		response, err := m.chatService.ChatStream(context.Background(), input, func(text string) {
			ch <- ChatStreamChunkMsg{Content: text}
		})
		if err != nil {
			ch <- ChatResponseMsg{Err: err}
		} else {
			ch <- ChatResponseMsg{Content: response}
		}
	}()

	m.streamChan = ch
	return m, listenForChatStream(ch)
}

// analyzeDiffCmd returns a command that runs Claude analysis with inline diff content.
func analyzeDiffCmd(analyzer *claude.Analyzer, pr *SelectedPR, files []forge.PRFile, diffHash string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		diffContent := buildDiffContent(files)

		input := claude.AnalyzeDiffInput{
			Owner:       pr.Owner,
			Repo:        pr.Repo,
			PRNumber:    pr.Number,
			PRTitle:     pr.Title,
			DiffContent: diffContent,
		}

		result, err := analyzer.AnalyzeDiff(ctx, input, nil)
		if err != nil {
			return AnalysisErrorMsg{Err: err}
		}

		return AnalysisCompleteMsg{
			PRNumber: pr.Number,
			DiffHash: diffHash,
			Result:   result,
		}
	}
}

