package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shhac/gh-rally/internal/claude"
	"github.com/shhac/gh-rally/internal/diff"
	"github.com/shhac/gh-rally/internal/forge"
)

// DiffViewerTab identifies which sub-tab is active in the diff viewer.
type DiffViewerTab int

const (
	TabDiff   DiffViewerTab = iota
	TabPRInfo
	TabCI
)

// DiffHunk represents a single hunk within a file's patch.
type DiffHunk struct {
	FileIndex int
	Filename  string
	Header    string   // the @@ line
	Lines     []string // all lines including the @@ header
	StartRow  int      // index of Header within the file's full patch, split on "\n" — aligns with diff.RenderCache row indices
}

// ghCommentThread groups a root GitHub inline comment with its replies.
type ghCommentThread struct {
	Root    forge.InlineComment
	Replies []forge.InlineComment
}

// parsePatchHunks splits a file's patch string into individual hunks.
func parsePatchHunks(fileIndex int, filename string, patch string) []DiffHunk {
	lines := strings.Split(patch, "\n")
	var hunks []DiffHunk
	var current *DiffHunk

	for row, line := range lines {
		if strings.HasPrefix(line, "@@") {
			if current != nil {
				hunks = append(hunks, *current)
			}
			current = &DiffHunk{
				FileIndex: fileIndex,
				Filename:  filename,
				Header:    line,
				Lines:     []string{line},
				StartRow:  row,
			}
		} else if current != nil {
			current.Lines = append(current.Lines, line)
		}
	}
	if current != nil {
		hunks = append(hunks, *current)
	}

	return hunks
}

// matchPos represents a single search match position within a line.
type matchPos struct {
	startCol int
	endCol   int
}

// searchMatch identifies a single search match globally across all hunks.
type searchMatch struct {
	hunkIdx    int
	lineInHunk int
	startCol   int
	endCol     int
}

// commentKind identifies the type of inline comment a cached line represents.
type commentKind byte

const (
	commentNone    commentKind = iota
	commentAI                  // AI-generated inline comment
	commentGitHub              // GitHub review comment
	commentPending             // Pending user/AI draft
)

// lineInfo describes what a cached viewport line represents in the source diff.
type lineInfo struct {
	hunkIdx       int         // which hunk this line belongs to (-1 for file headers etc.)
	filename      string      // file path for this line
	newLineNum    int         // new-side file line number (0 = not a file line)
	isCommentable bool        // true for + and context lines (commentable on RIGHT side)
	isDiffLine    bool        // true for actual diff content lines (cursor can land here)
	comment       commentKind // non-zero for inline comment lines
}

// parseAllHunks parses hunks from all files once and populates m.hunks.
func (m *DiffViewerModel) parseAllHunks() {
	m.hunks = nil
	for i, f := range m.files {
		if f.Patch == "" {
			continue
		}
		fileHunks := parsePatchHunks(i, f.Filename, f.Patch)
		m.hunks = append(m.hunks, fileHunks...)
	}
}

// DiffViewerModel manages the diff viewer panel.
type DiffViewerModel struct {
	viewport  viewport.Model
	spinner   spinner.Model
	activeTab DiffViewerTab
	width     int
	height    int
	focused   bool
	ready     bool

	// Diff data
	files          []forge.PRFile
	fileOffsets    []int // viewport line index where each file header starts
	currentFileIdx int
	loading        bool
	prNumber       int
	err            error

	// Hunk navigation and selection
	hunks          []DiffHunk   // all parsed hunks across all files
	hunkOffsets    []int        // viewport line offset where each hunk starts
	focusedHunkIdx int          // explicitly tracked focused hunk
	selectedHunks  map[int]bool // hunk index → selected

	// Cached rendering — avoids re-parsing and re-styling on every scroll.
	// On scroll, only the old and new focused hunks are re-rendered (O(hunk_size)
	// lipgloss calls instead of O(total_lines)).
	cachedLines       []string     // per-line styled output (nil = needs full rebuild)
	cachedLineInfo    []lineInfo   // parallel to cachedLines — what each viewport line represents
	hunkLineRanges    [][2]int     // [start, end) line indices in cachedLines per hunk
	lastRenderedFocus int          // focusedHunkIdx at last cache update
	dirtyHunks        map[int]bool // hunk indices needing re-render in cache

	// Line-level cursor for precise inline comment targeting.
	// cursorLine indexes into cachedLines and cachedLineInfo.
	cursorLine int

	// Multi-line selection (visual mode) for range comments.
	// selectionAnchor is the cachedLineInfo index where selection started.
	// -1 means no active selection.
	selectionAnchor int

	// AI inline comment state
	aiInlineComments     []claude.InlineReviewComment
	aiCommentsByFileLine map[string][]claude.InlineReviewComment // "path:line" → comments

	// GitHub inline comment state
	ghCommentThreads map[string][]ghCommentThread // "path:line" → threaded comments

	// Pending inline comment state (user + AI drafts)
	pendingCommentsByFileLine map[string][]PendingInlineComment // "path:line" → comments

	// Comment input mode
	commentMode            bool
	commentInput           textinput.Model
	commentTargetFile      string
	commentTargetLine      int
	commentTargetStartLine int // non-zero for multi-line range comments

	// Search state
	searchMode          bool
	searchInput         textinput.Model
	searchTerm          string
	searchMatches       []searchMatch
	searchMatchIdx      int
	searchMatchesByHunk map[int]map[int][]matchPos // hunkIdx → lineInHunk → match positions

	// PR info data (for PR Info tab)
	prTitle   string
	prBody    string
	prAuthor  string
	prURL     string
	prInfoErr string

	// Cached markdown renderer (recreated when width changes)
	md MarkdownRenderer

	// CI status data
	ciStatus *forge.CIStatus
	ciError  string

	// Review status data
	reviewSummary *forge.ReviewSummary
	reviewError   string

	// Per-file syntax-highlighted render cache. Rebuilt lazily, keyed on patch
	// text and comment state so adding a comment doesn't discard highlighting.
	renderCaches map[int]*diff.RenderCache
	highlighter  diff.Highlighter
	themeID      string
}

func NewDiffViewerModel() DiffViewerModel {
	si := textinput.New()
	si.Prompt = ""
	si.CharLimit = 100

	ci := textinput.New()
	ci.Prompt = ""
	ci.CharLimit = 500

	return DiffViewerModel{
		spinner:         newLoadingSpinner(),
		searchInput:     si,
		commentInput:    ci,
		selectionAnchor: -1,
		renderCaches:    make(map[int]*diff.RenderCache),
		highlighter:     diff.ChromaHighlighter{},
		themeID:         "default",
	}
}

// ensureRenderCache returns the up-to-date RenderCache for a file, building
// or rebuilding it if the patch text or comment set has changed since the
// last render. Comments don't cause the cache to be thrown away: a changed
// comment set marks every hunk of the file dirty and Rebuild refreshes those
// rows in place.
func (m *DiffViewerModel) ensureRenderCache(fileIdx int) *diff.RenderCache {
	if fileIdx < 0 || fileIdx >= len(m.files) {
		return nil
	}
	f := m.files[fileIdx]
	if f.Patch == "" {
		return nil
	}

	newLines, oldLines := m.commentedLinesForFile(f.Filename)
	commentFP := diff.CommentFingerprint(newLines, oldLines)

	if c, ok := m.renderCaches[fileIdx]; ok {
		want := diff.Key{
			FileIndex:          fileIdx,
			PatchFingerprint:   c.Key().PatchFingerprint,
			CommentFingerprint: commentFP,
			ThemeID:            m.themeID,
			HighlighterID:      c.Key().HighlighterID,
		}
		if c.Key() == want {
			return c
		}
		if c.Key().PatchFingerprint == want.PatchFingerprint && c.Key().ThemeID == want.ThemeID && c.Key().HighlighterID == want.HighlighterID {
			// Only the comment set changed: mark every hunk dirty and rebuild in place.
			for h := range m.hunks {
				if m.hunks[h].FileIndex == fileIdx {
					c.InvalidateHunk(h)
				}
			}
			c.MarkCommentRows(toLineSet(newLines), toLineSet(oldLines))
			c.Rebuild(m.highlighter)
			return c
		}
	}

	c := diff.Build(fileIdx, f.Filename, f.Patch, commentFP, m.themeID, m.highlighter)
	c.MarkCommentRows(toLineSet(newLines), toLineSet(oldLines))
	m.renderCaches[fileIdx] = c
	return c
}

func toLineSet(lines []int) map[int]bool {
	set := make(map[int]bool, len(lines))
	for _, n := range lines {
		set[n] = true
	}
	return set
}

// commentedLinesForFile collects the line numbers that carry any AI, GitHub,
// or pending comment on the given file, so the render cache can fingerprint
// comment state without storing the comments itself. All three kinds are
// keyed by new-side line, so oldLines is always empty.
func (m *DiffViewerModel) commentedLinesForFile(filename string) (newLines, oldLines []int) {
	for _, c := range m.aiInlineComments {
		if c.Path == filename {
			newLines = append(newLines, c.Line)
		}
	}
	for key := range m.ghCommentThreads {
		path, line := splitCommentKey(key)
		if path == filename {
			newLines = append(newLines, line)
		}
	}
	for key := range m.pendingCommentsByFileLine {
		path, line := splitCommentKey(key)
		if path == filename {
			newLines = append(newLines, line)
		}
	}
	return newLines, oldLines
}

// splitCommentKey reverses commentKey's "path:line" encoding.
func splitCommentKey(key string) (path string, line int) {
	idx := strings.LastIndex(key, ":")
	if idx < 0 {
		return key, 0
	}
	path = key[:idx]
	fmt.Sscanf(key[idx+1:], "%d", &line)
	return path, line
}

func (m DiffViewerModel) Update(msg tea.Msg) (DiffViewerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	case tea.KeyMsg:
		if !m.focused {
			return m, nil
		}

		// Comment mode: capture all keys for the comment input
		if m.commentMode {
			switch msg.String() {
			case "esc":
				m.commentMode = false
				m.commentInput.SetValue("")
				m.commentInput.Blur()
				m.cancelSelection()
				m.refreshContent()
				return m, nil
			case "enter":
				body := strings.TrimSpace(m.commentInput.Value())
				path := m.commentTargetFile
				line := m.commentTargetLine
				startLine := m.commentTargetStartLine
				m.commentMode = false
				m.commentInput.Blur()
				m.cancelSelection()
				m.refreshContent()
				return m, func() tea.Msg {
					return InlineCommentAddMsg{Path: path, Line: line, Body: body, StartLine: startLine}
				}
			default:
				var cmd tea.Cmd
				m.commentInput, cmd = m.commentInput.Update(msg)
				return m, cmd
			}
		}

		// Search mode: capture all keys for the search input
		if m.searchMode {
			switch msg.String() {
			case "esc":
				m.searchMode = false
				m.searchInput.Blur()
				if m.searchInput.Value() == "" {
					m.clearSearch()
				}
				m.cachedLines = nil
				m.refreshContent()
				return m, nil
			case "enter":
				m.searchMode = false
				m.searchInput.Blur()
				m.refreshContent()
				return m, nil
			default:
				var cmd tea.Cmd
				m.searchInput, cmd = m.searchInput.Update(msg)
				newTerm := m.searchInput.Value()
				if newTerm != m.searchTerm {
					m.searchTerm = newTerm
					m.computeSearchMatches()
					m.cachedLines = nil
					m.refreshContent()
				}
				return m, cmd
			}
		}

		// Active search (not typing): n/N navigate matches, Esc clears
		if m.activeTab == TabDiff && m.searchTerm != "" {
			switch {
			case key.Matches(msg, DiffViewerKeys.NextHunk):
				if len(m.searchMatches) > 0 {
					m.searchMatchIdx = (m.searchMatchIdx + 1) % len(m.searchMatches)
					m.scrollToCurrentMatch()
					m.cachedLines = nil
					m.refreshContent()
				}
				return m, nil
			case key.Matches(msg, DiffViewerKeys.PrevHunk):
				if len(m.searchMatches) > 0 {
					m.searchMatchIdx = (m.searchMatchIdx - 1 + len(m.searchMatches)) % len(m.searchMatches)
					m.scrollToCurrentMatch()
					m.cachedLines = nil
					m.refreshContent()
				}
				return m, nil
			}
			if msg.String() == "esc" {
				m.clearSearch()
				m.cachedLines = nil
				m.refreshContent()
				return m, nil
			}
		}

		// "x" re-runs failed CI on CI tab
		if m.activeTab == TabCI && key.Matches(msg, DiffViewerKeys.RerunCI) {
			if m.ciStatus != nil && len(m.ciStatus.FailedRunIDs()) > 0 {
				return m, func() tea.Msg { return CIRerunRequestMsg{} }
			}
			return m, nil
		}

		// "/" enters search mode on diff tab
		if m.activeTab == TabDiff && key.Matches(msg, DiffViewerKeys.Search) {
			m.searchMode = true
			m.searchInput.SetValue(m.searchTerm)
			m.searchInput.CursorEnd()
			cmd := m.searchInput.Focus()
			m.refreshContent()
			return m, cmd
		}

		switch {
		case key.Matches(msg, DiffViewerKeys.PrevTab):
			if m.activeTab > TabDiff {
				m.activeTab--
				m.refreshContent()
			}
			return m, nil
		case key.Matches(msg, DiffViewerKeys.NextTab):
			if m.activeTab < TabCI {
				m.activeTab++
				m.refreshContent()
			}
			return m, nil
		case key.Matches(msg, DiffViewerKeys.NextHunk):
			if m.activeTab == TabDiff && len(m.hunks) > 0 {
				m.cancelSelection()
				if m.focusedHunkIdx < len(m.hunks)-1 {
					m.focusedHunkIdx++
				}
				m.scrollToFocusedHunk()
				m.syncCursorToFocusedHunk()
				m.refreshContent()
			}
			return m, nil
		case key.Matches(msg, DiffViewerKeys.PrevHunk):
			if m.activeTab == TabDiff && len(m.hunks) > 0 {
				m.cancelSelection()
				if m.focusedHunkIdx > 0 {
					m.focusedHunkIdx--
				}
				m.scrollToFocusedHunk()
				m.syncCursorToFocusedHunk()
				m.refreshContent()
			}
			return m, nil
		case key.Matches(msg, DiffViewerKeys.HalfDown):
			m.cancelSelection()
			m.viewport.HalfViewDown()
			m.syncFocusToScroll()
			m.syncCursorToScroll()
			m.refreshContent()
			return m, nil
		case key.Matches(msg, DiffViewerKeys.HalfUp):
			m.cancelSelection()
			m.viewport.HalfViewUp()
			m.syncFocusToScroll()
			m.syncCursorToScroll()
			m.refreshContent()
			return m, nil
		case key.Matches(msg, DiffViewerKeys.Top):
			m.cancelSelection()
			m.viewport.GotoTop()
			m.syncFocusToScroll()
			m.syncCursorToScroll()
			m.refreshContent()
			return m, nil
		case key.Matches(msg, DiffViewerKeys.Bottom):
			m.cancelSelection()
			m.viewport.GotoBottom()
			m.syncFocusToScroll()
			m.syncCursorToScroll()
			m.refreshContent()
			return m, nil
		case key.Matches(msg, DiffViewerKeys.SelectDown):
			if m.activeTab == TabDiff && len(m.cachedLineInfo) > 0 {
				m.extendSelection(1)
				m.refreshContent()
				return m, nil
			}
			return m, nil
		case key.Matches(msg, DiffViewerKeys.SelectUp):
			if m.activeTab == TabDiff && len(m.cachedLineInfo) > 0 {
				m.extendSelection(-1)
				m.refreshContent()
				return m, nil
			}
			return m, nil
		case key.Matches(msg, DiffViewerKeys.Down):
			if m.activeTab == TabDiff && len(m.cachedLineInfo) > 0 {
				m.cancelSelection()
				m.moveCursor(1)
				m.refreshContent()
				return m, nil
			}
			// Non-diff tabs: scroll viewport
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			m.refreshContent()
			return m, cmd
		case key.Matches(msg, DiffViewerKeys.Up):
			if m.activeTab == TabDiff && len(m.cachedLineInfo) > 0 {
				m.cancelSelection()
				m.moveCursor(-1)
				m.refreshContent()
				return m, nil
			}
			// Non-diff tabs: scroll viewport
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			m.refreshContent()
			return m, cmd
		case key.Matches(msg, DiffViewerKeys.SelectHunkAndAdvance):
			if m.activeTab == TabDiff && len(m.hunks) > 0 {
				idx := m.focusedHunkIdx
				if idx >= 0 && idx < len(m.hunks) {
					if m.selectedHunks == nil {
						m.selectedHunks = make(map[int]bool)
					}
					if m.selectedHunks[idx] {
						delete(m.selectedHunks, idx)
					} else {
						m.selectedHunks[idx] = true
					}
					m.markHunkDirty(idx)
					m.refreshContent()
				}
				return m, func() tea.Msg { return HunkSelectedAndAdvanceMsg{} }
			}
		case key.Matches(msg, DiffViewerKeys.SelectHunk):
			if m.activeTab == TabDiff && len(m.hunks) > 0 {
				idx := m.focusedHunkIdx
				if idx >= 0 && idx < len(m.hunks) {
					if m.selectedHunks == nil {
						m.selectedHunks = make(map[int]bool)
					}
					if m.selectedHunks[idx] {
						delete(m.selectedHunks, idx)
					} else {
						m.selectedHunks[idx] = true
					}
					m.markHunkDirty(idx)
					m.refreshContent()
				}
				return m, nil
			}
			// Non-diff tabs: fall through to viewport (Space → page down)
		case key.Matches(msg, DiffViewerKeys.SelectFileHunks):
			if m.activeTab == TabDiff && len(m.hunks) > 0 {
				idx := m.focusedHunkIdx
				if idx >= 0 && idx < len(m.hunks) {
					if m.selectedHunks == nil {
						m.selectedHunks = make(map[int]bool)
					}
					fileIdx := m.hunks[idx].FileIndex
					allSelected := true
					for j, h := range m.hunks {
						if h.FileIndex == fileIdx && !m.selectedHunks[j] {
							allSelected = false
							break
						}
					}
					for j, h := range m.hunks {
						if h.FileIndex == fileIdx {
							if allSelected {
								delete(m.selectedHunks, j)
							} else {
								m.selectedHunks[j] = true
							}
							m.markHunkDirty(j)
						}
					}
					m.refreshContent()
				}
			}
			return m, nil
		case key.Matches(msg, DiffViewerKeys.ClearSelection):
			if m.activeTab == TabDiff && len(m.selectedHunks) > 0 {
				for idx := range m.selectedHunks {
					m.markHunkDirty(idx)
				}
				m.selectedHunks = nil
				m.refreshContent()
			}
			return m, nil
		}

		// "c" opens comment overlay on Diff tab
		if m.activeTab == TabDiff && len(m.hunks) > 0 && msg.String() == "c" {
			overlayMsg := m.buildCommentOverlayMsg()
			if overlayMsg != nil {
				return m, func() tea.Msg { return *overlayMsg }
			}
		}
	}

	var cmd tea.Cmd
	oldFocus := m.focusedHunkIdx
	m.viewport, cmd = m.viewport.Update(msg)
	m.syncFocusToScroll()
	if m.focusedHunkIdx != oldFocus {
		if m.activeTab == TabDiff {
			m.syncCursorToScroll()
		}
		m.refreshContent()
	}
	return m, cmd
}

func (m *DiffViewerModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	// Account for borders (2), padding (2), and scrollbar gutter (1)
	innerWidth := width - 5
	innerHeight := height - 5
	if innerWidth < 1 {
		innerWidth = 1
	}
	if innerHeight < 1 {
		innerHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(innerWidth, innerHeight)
		m.ready = true
	} else {
		m.viewport.Width = innerWidth
		m.viewport.Height = innerHeight
	}
	m.cachedLines = nil // width change invalidates styled cache
	m.cachedLineInfo = nil
	m.refreshContent()
}

func (m *DiffViewerModel) SetFocused(focused bool) {
	m.focused = focused
}

// SetLoading puts the viewer into loading state for a given PR.
func (m *DiffViewerModel) SetLoading(prNumber int) {
	m.prNumber = prNumber
	m.loading = true
	m.files = nil
	m.fileOffsets = nil
	m.hunks = nil
	m.hunkOffsets = nil
	m.focusedHunkIdx = 0
	m.cursorLine = 0
	m.selectionAnchor = -1
	m.selectedHunks = nil
	m.cachedLines = nil
	m.cachedLineInfo = nil
	m.hunkLineRanges = nil
	m.lastRenderedFocus = 0
	m.dirtyHunks = nil
	m.clearSearch()
	m.commentMode = false
	m.commentInput.SetValue("")
	m.commentInput.Blur()
	m.aiInlineComments = nil
	m.aiCommentsByFileLine = nil
	m.ghCommentThreads = nil
	m.pendingCommentsByFileLine = nil
	m.currentFileIdx = 0
	m.err = nil
	m.prTitle = ""
	m.prBody = ""
	m.prAuthor = ""
	m.prURL = ""
	m.prInfoErr = ""
	m.ciStatus = nil
	m.ciError = ""
	m.reviewSummary = nil
	m.reviewError = ""
	m.refreshContent()
}

// SetDiff displays the fetched diff files.
func (m *DiffViewerModel) SetDiff(files []forge.PRFile) {
	m.loading = false
	m.files = files
	m.err = nil
	m.currentFileIdx = 0
	m.focusedHunkIdx = 0
	m.cursorLine = 0
	m.selectionAnchor = -1
	m.selectedHunks = nil
	m.clearSearch()
	m.parseAllHunks()
	m.cachedLines = nil
	m.cachedLineInfo = nil
	m.renderCaches = make(map[int]*diff.RenderCache)
	m.refreshContent()
	m.viewport.GotoTop()
}

// SetError displays an error message.
func (m *DiffViewerModel) SetError(err error) {
	m.loading = false
	m.err = err
	m.files = nil
	m.fileOffsets = nil
	m.cachedLines = nil
	m.cachedLineInfo = nil
	m.renderCaches = make(map[int]*diff.RenderCache)
	m.refreshContent()
}

func (m *DiffViewerModel) refreshContent() {
	if !m.ready {
		return
	}

	// Adjust viewport height for search bar / comment bar
	innerHeight := m.height - 5
	if m.searchBarVisible() {
		innerHeight--
	}
	if m.commentMode {
		innerHeight--
	}
	if innerHeight < 1 {
		innerHeight = 1
	}
	m.viewport.Height = innerHeight

	// PR Info tab has its own content path
	if m.activeTab == TabPRInfo {
		m.viewport.SetContent(m.renderPRInfo())
		return
	}

	// CI tab has its own content path
	if m.activeTab == TabCI {
		m.viewport.SetContent(m.renderCITab())
		return
	}

	// Diff tab
	if m.loading {
		m.viewport.SetContent(
			lipgloss.NewStyle().
				Foreground(lipgloss.Color("244")).
				Padding(1, 2).
				Render(m.spinner.View() + fmt.Sprintf(" Loading diff for PR #%d...", m.prNumber)),
		)
		return
	}
	if m.err != nil {
		m.viewport.SetContent(renderErrorWithHint(
			formatUserError(fmt.Sprintf("%v", m.err)),
			"Press r to refresh",
		))
		return
	}
	if m.files != nil {
		if m.cachedLines == nil {
			// Full rebuild needed (new diff, resize, etc.)
			m.buildCachedLines()
		} else {
			// Incremental update: only re-render hunks whose visual state changed
			if m.focusedHunkIdx != m.lastRenderedFocus {
				m.markHunkDirty(m.lastRenderedFocus)
				m.markHunkDirty(m.focusedHunkIdx)
				m.lastRenderedFocus = m.focusedHunkIdx
			}
			for idx := range m.dirtyHunks {
				m.rerenderHunkInCache(idx)
			}
			m.dirtyHunks = nil
			// If a rerender invalidated the cache (e.g. inline comments changed
			// line counts), do the full rebuild now.
			if m.cachedLines == nil {
				m.buildCachedLines()
			}
		}
		m.viewport.SetContent(strings.Join(m.cachedLines, "\n"))
		return
	}
	// No PR selected yet
	m.viewport.SetContent(renderEmptyState("Select a PR to view its diff", "Use j/k to navigate, Enter to select"))
}

func (m DiffViewerModel) View() string {
	header := m.renderTabs()

	var content string
	if m.ready {
		content = m.viewport.View()
		// Attach vertical scrollbar column to the right edge of viewport content
		if m.viewport.TotalLineCount() > m.viewport.Height {
			content = lipgloss.JoinHorizontal(lipgloss.Top, content, m.renderScrollbar())
		} else {
			// Reserve the scrollbar column space even when not scrollable
			content = lipgloss.JoinHorizontal(lipgloss.Top, content, strings.Repeat(" \n", m.viewport.Height-1)+" ")
		}
	} else {
		content = "Loading..."
	}

	innerWidth := m.width - 4 // viewport + scrollbar column
	parts := []string{header, content}
	if indicator := scrollIndicator(m.viewport, innerWidth); indicator != "" {
		parts = append(parts, indicator)
	}

	if m.searchMode {
		parts = append(parts, m.renderSearchBar())
	} else if m.searchTerm != "" {
		parts = append(parts, m.renderSearchInfo())
	}

	if m.commentMode {
		parts = append(parts, m.renderCommentBar())
	}

	inner := lipgloss.JoinVertical(lipgloss.Left, parts...)
	style := panelStyle(m.focused, false, m.width-2, m.height-2)
	return style.Render(inner)
}

func (m DiffViewerModel) renderTabs() string {
	var tabs []string

	diffLabel := "Diff"
	if m.prNumber > 0 && m.files != nil {
		diffLabel = fmt.Sprintf("Diff (%d files)", len(m.files))
	}
	if len(m.selectedHunks) > 0 {
		diffLabel += fmt.Sprintf(" [%d/%d hunks]", len(m.selectedHunks), len(m.hunks))
	}
	prInfoLabel := "PR Info"
	ciLabel := m.ciTabLabel()

	tabNames := []struct {
		tab   DiffViewerTab
		label string
	}{
		{TabDiff, diffLabel},
		{TabPRInfo, prInfoLabel},
		{TabCI, ciLabel},
	}

	for _, t := range tabNames {
		if m.activeTab == t.tab {
			tabs = append(tabs, activeTabStyle().Render(t.label))
		} else {
			tabs = append(tabs, inactiveTabStyle().Render(t.label))
		}
	}

	return strings.Join(tabs, " ")
}

// renderMarkdown renders markdown text with glamour for terminal display,
// through the shared width-cached MarkdownRenderer.
func (m *DiffViewerModel) renderMarkdown(markdown string, width int) string {
	return m.md.RenderMarkdown(markdown, width)
}

// parseHunkNewStart parses the new-side start line number from a @@ header.
// For "@@ -7,6 +12,8 @@" it returns 12.
func parseHunkNewStart(header string) int {
	// Find the "+N" part in the @@ header
	idx := strings.Index(header, "+")
	if idx == -1 {
		return 0
	}
	rest := header[idx+1:]
	var n int
	fmt.Sscanf(rest, "%d", &n)
	return n
}

func fileStatusLabel(f forge.PRFile) string {
	switch f.Status {
	case "added":
		return fmt.Sprintf("%s (new file, +%d)", f.Filename, f.Additions)
	case "removed":
		return fmt.Sprintf("%s (deleted, -%d)", f.Filename, f.Deletions)
	case "renamed":
		return fmt.Sprintf("%s (renamed)", f.Filename)
	default:
		return fmt.Sprintf("%s (+%d/-%d)", f.Filename, f.Additions, f.Deletions)
	}
}

// GetSelectedHunkContent returns formatted diff content for only the selected hunks.
// Returns empty string if no hunks are selected.
func (m DiffViewerModel) GetSelectedHunkContent() string {
	if len(m.selectedHunks) == 0 {
		return ""
	}

	var b strings.Builder
	lastFileIdx := -1

	for i, hunk := range m.hunks {
		if !m.selectedHunks[i] {
			continue
		}

		if hunk.FileIndex != lastFileIdx {
			if lastFileIdx >= 0 {
				b.WriteString("\n")
			}
			b.WriteString(fmt.Sprintf("--- a/%s\n", hunk.Filename))
			b.WriteString(fmt.Sprintf("+++ b/%s\n", hunk.Filename))
			lastFileIdx = hunk.FileIndex
		}

		for _, line := range hunk.Lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return b.String()
}

// -- Search methods --

