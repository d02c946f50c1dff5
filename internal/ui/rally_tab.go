package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shhac/gh-rally/internal/config"
	"github.com/shhac/gh-rally/internal/rally"
)

// RallyStartedMsg carries the orchestrator once a rally session has been
// constructed and its background Run loop launched.
type RallyStartedMsg struct {
	Orchestrator *rally.Orchestrator
	Err          error
}

// RallyEventMsg is one streamed (iteration, phase, event) tuple forwarded
// from the orchestrator's event channel.
type RallyEventMsg struct {
	Envelope rally.EventEnvelope
}

// RallyDoneMsg is sent once the orchestrator's Run loop returns a terminal
// state.
type RallyDoneMsg struct {
	State rally.State
	Err   error
}

// RallyOverlayModel renders a centered overlay that starts and drives one
// rally session against the currently selected PR, mirroring
// HelpOverlayModel's centered-modal shape.
type RallyOverlayModel struct {
	viewport viewport.Model
	input    textinput.Model
	width    int
	height   int
	visible  bool
	ready    bool

	orc     *rally.Orchestrator
	lines   []string
	state   rally.State
	pending *rally.TerminalEvent // non-nil while awaiting a clarification/permission answer
	err     error
	done    bool
}

func NewRallyOverlayModel() RallyOverlayModel {
	ti := textinput.New()
	ti.Placeholder = "answer..."
	ti.CharLimit = 2000
	return RallyOverlayModel{input: ti}
}

// IsVisible reports whether the overlay is currently shown.
func (m RallyOverlayModel) IsVisible() bool { return m.visible }

// Hide dismisses the overlay without affecting a running orchestrator; the
// rally continues in the background and can be reopened.
func (m *RallyOverlayModel) Hide() { m.visible = false }

// Show opens the overlay. Call Start separately to launch a new session.
func (m *RallyOverlayModel) Show() {
	m.visible = true
	m.refreshContent()
}

// Start constructs an Orchestrator for the given PR and launches its Run
// loop in a background goroutine, returning the commands that listen for
// its streamed events and its terminal outcome. A persisted non-terminal
// session for the same PR is resumed instead of starting over; per the
// session-store contract it re-enters its saved substate from the beginning.
func (m *RallyOverlayModel) Start(cfg *config.Config, claudePath, workingDir, owner, repo string, number int, diff string, refresh rally.DiffRefreshFunc) tea.Cmd {
	return func() tea.Msg {
		adapterPath := cfg.RallyAgentAPath
		if adapterPath == "" {
			adapterPath = claudePath
		}
		if adapterPath == "" {
			return RallyStartedMsg{Err: fmt.Errorf("no rally agent CLI configured")}
		}

		var adapter rally.AgentAdapter
		switch cfg.RallyAgent {
		case "file":
			adapter = &rally.FileAgentAdapter{Path: cfg.RallyAgentBPath, Timeout: cfg.RallyTimeoutSecs}
		default:
			adapter = &rally.CLIAgentAdapter{Path: adapterPath, Timeout: cfg.RallyTimeoutSecs}
		}

		store := rally.NewSessionStore(config.RallySessionsDir())

		session, err := store.LoadSession(rally.SessionKey("github", owner, repo, number))
		if session != nil {
			rally.NormalizeForResume(session)
		}
		if err != nil || session == nil || session.State == rally.Completed || session.State == rally.Failed {
			session = &rally.Session{
				ID:            rally.NewSessionID(),
				Forge:         "github",
				Owner:         owner,
				Repo:          repo,
				Number:        number,
				State:         rally.Initializing,
				MaxIterations: cfg.RallyMaxIterations,
			}
		}

		policy := rally.DefaultPermissionPolicy()
		for _, tool := range cfg.RallyAllowedTools {
			policy.Extend(rally.RoleReviewee, tool)
		}

		orc := rally.NewOrchestrator(session, adapter, policy, store)
		orc.Prompts = rally.LoadPromptSet(config.PromptsDir())
		orc.DiffRefresh = refresh
		orc.Context = rally.RunContext{
			Forge:      "github",
			Owner:      owner,
			Repo:       repo,
			Number:     number,
			Diff:       diff,
			WorkingDir: workingDir,
		}
		_ = store.SaveContext(session, orc.Context)

		go func() { _, _ = orc.Run(context.Background()) }()

		return RallyStartedMsg{Orchestrator: orc}
	}
}

// listenRallyEventsCmd blocks on the orchestrator's event channel and
// re-arms itself after each delivered event, the same shape as
// listenForChatStream.
func listenRallyEventsCmd(orc *rally.Orchestrator) tea.Cmd {
	return func() tea.Msg {
		env, ok := <-orc.Events()
		if !ok {
			return nil
		}
		if env.Terminal != nil {
			switch env.Terminal.Kind {
			case rally.TerminalCompleted:
				return RallyDoneMsg{State: rally.Completed}
			case rally.TerminalFailed:
				return RallyDoneMsg{State: rally.Failed, Err: fmt.Errorf("%s", env.Terminal.Reason)}
			}
		}
		return RallyEventMsg{Envelope: env}
	}
}

// Update handles overlay-local key and async-event messages.
func (m RallyOverlayModel) Update(msg tea.Msg) (RallyOverlayModel, tea.Cmd) {
	switch msg := msg.(type) {
	case RallyStartedMsg:
		if msg.Err != nil {
			m.err = msg.Err
			m.refreshContent()
			return m, nil
		}
		m.orc = msg.Orchestrator
		m.lines = nil
		m.done = false
		m.pending = nil
		m.refreshContent()
		return m, listenRallyEventsCmd(m.orc)

	case RallyEventMsg:
		m.appendEvent(msg.Envelope)
		if msg.Envelope.Terminal != nil {
			m.pending = msg.Envelope.Terminal
			m.input.Focus()
		}
		m.refreshContent()
		if m.orc == nil {
			return m, nil
		}
		return m, listenRallyEventsCmd(m.orc)

	case RallyDoneMsg:
		m.done = true
		m.state = msg.State
		if msg.Err != nil {
			m.lines = append(m.lines, fmt.Sprintf("failed: %v", msg.Err))
		} else {
			m.lines = append(m.lines, fmt.Sprintf("completed: %s", msg.State))
		}
		m.refreshContent()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m RallyOverlayModel) handleKey(msg tea.KeyMsg) (RallyOverlayModel, tea.Cmd) {
	if m.pending == nil {
		switch msg.String() {
		case "esc", "g":
			m.Hide()
		case "up", "k":
			m.viewport.LineUp(1)
		case "down", "j":
			m.viewport.LineDown(1)
		}
		return m, nil
	}

	switch m.pending.Kind {
	case rally.TerminalNeedsPermission:
		switch msg.String() {
		case "y":
			m.orc.Resolve(rally.Command{Kind: rally.CommandPermissionGrant, Tool: m.pending.Action})
			m.pending = nil
		case "n":
			m.orc.Resolve(rally.Command{Kind: rally.CommandPermissionDeny, Tool: m.pending.Action})
			m.pending = nil
		}
		return m, nil
	case rally.TerminalNeedsClarification:
		switch msg.Type {
		case tea.KeyEnter:
			m.orc.Resolve(rally.Command{Kind: rally.CommandClarificationAnswer, Answer: m.input.Value()})
			m.input.SetValue("")
			m.pending = nil
			return m, nil
		case tea.KeyEsc:
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *RallyOverlayModel) appendEvent(env rally.EventEnvelope) {
	if env.Agent != nil {
		m.lines = append(m.lines, fmt.Sprintf("[%d/%s] %s %s", env.Iteration, env.Phase, env.Agent.Kind, env.Agent.Message))
	}
	if env.Terminal != nil {
		switch env.Terminal.Kind {
		case rally.TerminalNeedsClarification:
			m.lines = append(m.lines, "needs clarification: "+env.Terminal.Question)
		case rally.TerminalNeedsPermission:
			m.lines = append(m.lines, "needs permission for tool: "+env.Terminal.Action)
		}
	}
}

// SetSize updates the overlay dimensions.
func (m *RallyOverlayModel) SetSize(termWidth, termHeight int) {
	m.width = termWidth
	m.height = termHeight
	innerW, innerH := m.width-8, m.height-8
	if innerW < 10 {
		innerW = 10
	}
	if innerH < 4 {
		innerH = 4
	}
	if !m.ready {
		m.viewport = viewport.New(innerW, innerH)
		m.ready = true
	} else {
		m.viewport.Width = innerW
		m.viewport.Height = innerH
	}
	m.input.Width = innerW
	m.refreshContent()
}

func (m *RallyOverlayModel) refreshContent() {
	if !m.ready {
		return
	}
	var b strings.Builder
	if m.err != nil {
		fmt.Fprintf(&b, "error: %v\n", m.err)
	}
	for _, l := range m.lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if m.pending != nil {
		switch m.pending.Kind {
		case rally.TerminalNeedsPermission:
			fmt.Fprintf(&b, "\ngrant %q? (y/n)", m.pending.Action)
		case rally.TerminalNeedsClarification:
			b.WriteString("\n" + m.input.View())
		}
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// View renders the overlay centered over the full terminal.
func (m RallyOverlayModel) View() string {
	title := "Rally"
	if m.done {
		title = fmt.Sprintf("Rally (%s)", m.state)
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render(title),
			m.viewport.View(),
		))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
