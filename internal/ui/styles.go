package ui

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the TUI.
var (
	ColorRed     = lipgloss.Color("#FF5F5F")
	ColorGreen   = lipgloss.Color("#5FD787")
	ColorYellow  = lipgloss.Color("#FFD75F")
	ColorCyan    = lipgloss.Color("#5FD7FF")
	ColorBlue    = lipgloss.Color("#5F87FF")
	ColorGray    = lipgloss.Color("#808080")
	ColorDimGray = lipgloss.Color("#444444")
	ColorWhite   = lipgloss.Color("#FFFFFF")
	ColorMagenta = lipgloss.Color("#D787FF")
)

// Base styles reused by UI components.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	StatusStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	ConnectedDotStyle = lipgloss.NewStyle().
				Foreground(ColorGreen).
				Bold(true)

	DisconnectedDotStyle = lipgloss.NewStyle().
				Foreground(ColorRed).
				Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	TimestampStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	PanelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite)

	PanelTitleActiveStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorCyan)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorCyan).
			Bold(true)

	CurrentMarkerStyle = lipgloss.NewStyle().
				Foreground(ColorGreen)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	FooterKeyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	FooterDescStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	DividerStyle = lipgloss.NewStyle().
			Foreground(ColorDimGray)

	ModeBadgeStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta).
			Bold(true)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta)

	LiveBadgeStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	ScrollBadgeStyle = lipgloss.NewStyle().
				Foreground(ColorYellow).
				Bold(true)
)

// Transcript entry styles.
var (
	UserLabelStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	UserTextStyle = lipgloss.NewStyle().
			Foreground(ColorWhite)

	AssistantLabelStyle = lipgloss.NewStyle().
				Foreground(ColorCyan).
				Bold(true)

	StreamingStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true)

	ToolNameStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta).
			Bold(true)

	ToolOutputStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	PendingStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	ApprovedStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	DeniedStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	AnswerLabelStyle = lipgloss.NewStyle().
				Foreground(ColorGreen).
				Bold(true)
)
