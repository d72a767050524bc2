package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/sunsunmonkey/code-sidercar-sub001/internal/ui"
)

func (m Model) mainContentHeight() int {
	if m.height == 0 {
		return 20
	}
	// Reserve: header(1) + status(1) + divider(2) + input(1) + error(1) + footer(1)
	reserved := 7
	return max(5, m.height-reserved)
}

func (m Model) listPanelWidth() int {
	if m.width == 0 {
		return 28
	}
	return max(20, m.width*25/100)
}

func (m Model) transcriptPanelWidth() int {
	if m.width == 0 {
		return 60
	}
	return max(30, m.width-m.listPanelWidth()-1)
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	sections := []string{
		m.renderHeader(),
		m.renderStatusBar(),
		ui.DividerStyle.Render(strings.Repeat("─", m.width)),
		m.renderMainContent(),
		ui.DividerStyle.Render(strings.Repeat("─", m.width)),
		m.renderInput(),
	}
	if m.errorMessage != "" {
		sections = append(sections, m.renderErrorBar())
	}
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("SIDECAR")

	var current string
	if id := m.store.CurrentID(); id != "" {
		label := id
		for _, s := range m.store.Summaries() {
			if s.ID == id && s.Preview != "" {
				label = s.Preview
			}
		}
		current = ui.DimStyle.Render(" — " + ui.Truncate(label, max(10, m.width/2)))
	}

	var mode string
	if m.status.Mode != "" {
		mode = "  " + ui.ModeBadgeStyle.Render("["+m.status.Mode+"]")
	}
	return title + current + mode
}

func (m Model) renderStatusBar() string {
	var dot string
	if m.connected {
		dot = ui.ConnectedDotStyle.Render("●")
	} else {
		dot = ui.DisconnectedDotStyle.Render("○")
	}
	parts := []string{dot + " " + ui.StatusStyle.Render(m.statusText)}

	if id, ok := m.store.Switching(); ok {
		parts = append(parts, ui.DimStyle.Render("loading "+ui.Truncate(id, 12)+"…"))
	} else if m.store.Processing() {
		parts = append(parts, m.spinner.View()+ui.SpinnerStyle.Render(" working"))
	}

	if n := len(m.store.Pending()); n > 0 {
		parts = append(parts, ui.PendingStyle.Render(fmt.Sprintf("%d awaiting approval", n)))
	}

	if usage, ok := m.status.Usage(); ok {
		tokens := fmt.Sprintf("%s tokens", formatCount(usage.Total()))
		if usage.Cost > 0 {
			tokens += fmt.Sprintf(" · $%.4f", usage.Cost)
		}
		parts = append(parts, ui.DimStyle.Render(tokens))
	}

	if m.status.Route != "" {
		parts = append(parts, ui.DimStyle.Render(m.status.Route))
	}

	return strings.Join(parts, "  ")
}

func formatCount(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

func (m Model) renderMainContent() string {
	listW := m.listPanelWidth()
	contentH := m.mainContentHeight()

	listLines := strings.Split(m.renderListPanel(listW, contentH), "\n")
	transcriptLines := strings.Split(m.renderTranscriptPanel(contentH), "\n")

	divider := ui.DividerStyle.Render("│")

	var rows []string
	for i := 0; i < contentH; i++ {
		left := strings.Repeat(" ", listW)
		if i < len(listLines) {
			left = listLines[i]
		}
		right := ""
		if i < len(transcriptLines) {
			right = transcriptLines[i]
		}
		rows = append(rows, left+divider+right)
	}

	return strings.Join(rows, "\n")
}

func (m Model) renderListPanel(width, height int) string {
	summaries := m.store.Summaries()

	title := fmt.Sprintf("CONVERSATIONS (%d)", len(summaries))
	var header string
	if m.focusedPanel == FocusConversations {
		header = ui.PanelTitleActiveStyle.Render(title)
	} else {
		header = ui.PanelTitleStyle.Render(title)
	}

	lines := []string{header}

	if len(summaries) == 0 {
		lines = append(lines, ui.DimStyle.Render("  No conversations yet"))
	} else {
		current := m.store.CurrentID()
		for i, s := range summaries {
			marker := "  "
			if s.ID == current {
				marker = ui.CurrentMarkerStyle.Render("● ")
			}
			label := s.Preview
			if label == "" {
				label = s.ID
			}
			label = ui.Truncate(label, max(5, width-4))

			if i == m.selected && m.focusedPanel == FocusConversations {
				lines = append(lines, ui.SelectedStyle.Render(">")+marker+ui.SelectedStyle.Render(label))
			} else {
				lines = append(lines, " "+marker+label)
			}
		}
	}

	if len(lines) > height {
		// Keep the selection visible.
		start := min(max(0, m.selected+2-height), len(lines)-height)
		lines = append([]string{lines[0]}, lines[start+1:start+height]...)
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	for i, l := range lines {
		lines[i] = padRight(l, width)
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderTranscriptPanel(height int) string {
	var badge string
	if m.transcriptLive {
		badge = ui.LiveBadgeStyle.Render(" LIVE")
	} else {
		badge = ui.ScrollBadgeStyle.Render(" SCROLL")
	}
	header := ui.PanelTitleStyle.Render("TRANSCRIPT") + badge

	lines := []string{header}

	switch {
	case !m.connected && m.store.Len() == 0:
		lines = append(lines, "")
		if m.reconnecting {
			lines = append(lines, ui.ErrorTextStyle.Render("  Host disconnected. Reconnecting..."))
			if m.connError != "" {
				lines = append(lines, ui.DimStyle.Render("  "+ui.Truncate(m.connError, m.transcriptPanelWidth()-4)))
			}
		} else {
			lines = append(lines, ui.DimStyle.Render("  Connecting to host..."))
		}
	case m.store.Len() == 0:
		lines = append(lines, "")
		lines = append(lines, ui.DimStyle.Render("  Type a message and press Enter"))
	default:
		lines = append(lines, strings.Split(m.viewport.View(), "\n")...)
	}

	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderInput() string {
	if len(m.store.Pending()) > 0 && m.input.Value() == "" {
		return ui.PendingStyle.Render("Permission requested: y to allow, n to deny")
	}
	return m.input.View()
}

func (m Model) renderErrorBar() string {
	return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.errorMessage)
}

func (m Model) renderFooter() string {
	var bindings []key.Binding

	if m.connected {
		if len(m.store.Pending()) > 0 {
			bindings = append(bindings, m.keys.Approve, m.keys.Deny)
		}
		if m.store.Processing() {
			bindings = append(bindings, m.keys.Cancel)
		}
		if m.focusedPanel == FocusConversations {
			bindings = append(bindings, m.keys.Up, m.keys.Switch, m.keys.Delete, m.keys.Refresh)
		} else {
			bindings = append(bindings, m.keys.Submit, m.keys.PrevLine)
		}
		bindings = append(bindings, m.keys.New, m.keys.Mode, m.keys.Copy)
	}
	bindings = append(bindings, m.keys.Focus, m.keys.PageUp, m.keys.Quit)

	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, ui.FooterKeyStyle.Render(h.Key)+ui.FooterDescStyle.Render(" "+h.Desc))
	}
	return strings.Join(parts, "  ")
}

// Helpers

func padRight(s string, width int) string {
	// Get visible length (ignoring ANSI codes)
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}
