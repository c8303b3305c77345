package monitor

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.Color("#00BFFF")
	colorSuccess = lipgloss.Color("#00E676")
	colorWarn    = lipgloss.Color("#FFD700")
	colorDanger  = lipgloss.Color("#FF5252")
	colorMuted   = lipgloss.Color("#636363")
	colorWhite   = lipgloss.Color("#EEEEEE")
)

// Status icons per token outcome.
const (
	iconSuccess = "✓"
	iconPartial = "◐"
	iconFailed  = "✗"
	iconSkipped = "–"
)

var (
	styleTitle   = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	styleCounter = lipgloss.NewStyle().Foreground(colorWhite)
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess)
	styleWarn    = lipgloss.NewStyle().Foreground(colorWarn)
	styleDanger  = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
	styleBox     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)
)
