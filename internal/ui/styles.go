package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// Panel border colors
var (
	focusedBorderColor   = lipgloss.Color("62")  // bright purple/blue
	unfocusedBorderColor = lipgloss.Color("240") // dim gray
	insertModeBorderColor = lipgloss.Color("42") // green
)

// Diff colors
var (
	diffAddedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	diffRemovedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	diffHunkHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true)
	diffFileHeaderStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("220")).
		Bold(true)
)

// Status bar
var (
	statusBarStyle = lipgloss.NewStyle().
		Background(lipgloss.Color("236")).
		Foreground(lipgloss.Color("252"))
	statusBarAccentStyle = lipgloss.NewStyle().
		Background(lipgloss.Color("236")).
		Foreground(lipgloss.Color("62")).
		Bold(true)
)

// Chat styles
var (
	chatUserStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("33")).
		Bold(true)
	chatAssistantStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)
)

// Selected hunk highlight
var diffSelectedBg = lipgloss.Color("236")

// Cursor row highlight
var diffCursorBg = lipgloss.Color("238")

// Focused hunk indicator
var diffFocusedHunkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)

// Diff gutter markers and inline hints
var (
	diffCursorGutterStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true)
	diffFocusGutterStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
	diffSelectionGutterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	diffSearchInfoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62"))
	dimItalicStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
)

// Inline comment boxes in the diff viewer
var (
	commentBoxHintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	commentBoxHintHiStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	commentBoxTrimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
)

// Review tab radio group and submit button
var (
	reviewLabelStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	reviewApproveStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	reviewCommentStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	reviewRequestChangesStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	reviewOptionDimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	reviewSubmitDimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	reviewSubmitFocusedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
)

// Command palette styles
var (
	cmdPaletteTitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("252")).
		Background(lipgloss.Color("62")).
		Padding(0, 1)
	cmdPaletteDividerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	cmdPalettePromptStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	cmdPaletteInputTextStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	cmdPaletteHintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	cmdPaletteKeyStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	cmdPaletteDescStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	cmdPaletteMarkerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cmdPaletteSelectedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	cmdPaletteAliasStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	cmdPaletteErrorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Comment overlay styles
var (
	commentOverlayTitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("252")).
		Background(lipgloss.Color("62")).
		Padding(0, 1)
	commentOverlaySepStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	commentOverlayHintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	commentOverlayActiveToggle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	commentOverlayInactiveToggle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	commentBoxHeaderStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true)
	commentBoxMetaStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	commentBoxReplyStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// scrollIndicator renders a small "X%  N more" hint below a viewport when its
// content overflows the visible area, or "" when everything is visible.
func scrollIndicator(vp viewport.Model, width int) string {
	if vp.TotalLineCount() <= vp.Height {
		return ""
	}
	pct := int(vp.ScrollPercent() * 100)
	below := vp.TotalLineCount() - (vp.YOffset + vp.Height)
	label := fmt.Sprintf("── %d%% ", pct)
	if below > 0 {
		label += fmt.Sprintf("(%d more below) ", below)
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	return style.Render(padRight(label, width))
}

// PR list styles
var (
	prTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	prMetaStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// Panel style builders
func panelStyle(focused bool, insertMode bool, width, height int) lipgloss.Style {
	borderColor := unfocusedBorderColor
	if focused {
		borderColor = focusedBorderColor
		if insertMode {
			borderColor = insertModeBorderColor
		}
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Width(width).
		Height(height)
}

func panelHeaderStyle(focused bool) lipgloss.Style {
	if focused {
		return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
}

// Tab styles
func activeTabStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("252")).
		Background(lipgloss.Color("62")).
		Padding(0, 1)
}

func inactiveTabStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("244")).
		Padding(0, 1)
}

// Mode badge styles
func normalModeBadge() string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("244")).
		Background(lipgloss.Color("238")).
		Padding(0, 1).
		Render("NORMAL")
}

func insertModeBadge() string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color("42")).
		Padding(0, 1).
		Render("INSERT")
}

// Scrollbar styles
var (
	scrollbarThumbStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	scrollbarTrackStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// scrollbarCommentStyle picks the scrollbar marker color for a comment kind,
// highest-priority kind (pending) brightest.
func scrollbarCommentStyle(kind commentKind) lipgloss.Style {
	switch kind {
	case commentPending:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	case commentGitHub:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	case commentAI:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	default:
		return scrollbarTrackStyle
	}
}

// renderEmptyState renders a centered placeholder message with an optional hint line.
func renderEmptyState(message, hint string) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	if hint == "" {
		return style.Render(message)
	}
	hintStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	return style.Render(message) + "\n" + hintStyle.Render(hint)
}

// renderErrorWithHint renders an error message styled in red with a dim hint line below it.
func renderErrorWithHint(message, hint string) string {
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	hintStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	if hint == "" {
		return errStyle.Render(message)
	}
	return errStyle.Render(message) + "\n" + hintStyle.Render(hint)
}

// chromaTokenColor maps a chroma token type name (e.g. "Keyword",
// "LiteralString", "CommentSingle") to a terminal color for diff syntax
// highlighting. Matched by prefix since chroma token types form a hierarchy
// ("LiteralStringDouble" is still a string).
func chromaTokenColor(style string) lipgloss.Color {
	switch {
	case strings.HasPrefix(style, "Keyword"):
		return lipgloss.Color("170")
	case strings.HasPrefix(style, "Comment"):
		return lipgloss.Color("244")
	case strings.HasPrefix(style, "LiteralString"):
		return lipgloss.Color("114")
	case strings.HasPrefix(style, "LiteralNumber"):
		return lipgloss.Color("216")
	case strings.HasPrefix(style, "NameFunction"):
		return lipgloss.Color("75")
	case strings.HasPrefix(style, "NameClass"):
		return lipgloss.Color("221")
	case strings.HasPrefix(style, "NameBuiltin"), strings.HasPrefix(style, "NameTag"):
		return lipgloss.Color("81")
	case strings.HasPrefix(style, "Operator"), strings.HasPrefix(style, "Punctuation"):
		return lipgloss.Color("252")
	case strings.HasPrefix(style, "Error"):
		return lipgloss.Color("196")
	default:
		return lipgloss.Color("")
	}
}

// newLoadingSpinner returns the dot spinner every panel uses while waiting
// on GitHub or Claude, styled to match the focused-border accent color.
func newLoadingSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(focusedBorderColor)
	return s
}

// formatUserError turns an error string into what the status bar and panels
// show: known failures (missing gh CLI, missing auth, rate limiting, timeouts,
// network errors) map to a short actionable message; anything else passes
// through with a leading "failed to "/"error: " prefix stripped.
func formatUserError(msg string) string {
	msg = strings.TrimSpace(msg)
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "gh cli not found"):
		return "GitHub CLI (gh) not found. Install it from https://cli.github.com"
	case strings.Contains(lower, "not authenticated"), strings.Contains(lower, "auth login"):
		return "Not authenticated. Run: gh auth login"
	case strings.Contains(lower, "rate limit"):
		return "GitHub API rate limit reached. Try again later"
	case strings.Contains(lower, "deadline exceeded"), strings.Contains(lower, "timeout"):
		return "Request timed out"
	case strings.Contains(lower, "no such host"), strings.Contains(lower, "connection refused"):
		return "Network error: check your connection"
	}
	for _, prefix := range []string{"failed to ", "error: ", "Error: "} {
		if strings.HasPrefix(msg, prefix) {
			msg = msg[len(prefix):]
		}
	}
	if msg == "" {
		return "unknown error"
	}
	return msg
}
