// Package styles holds the shared color palette and lipgloss styles
// for the qcman session dashboard.
package styles

import "github.com/charmbracelet/lipgloss"

// Palette. Chosen to read well on both dark and light terminals.
var (
	Primary     = lipgloss.Color("#2563EB") // blue
	Secondary   = lipgloss.Color("#0D9488") // teal
	Success     = lipgloss.Color("#16A34A") // green
	Warning     = lipgloss.Color("#D97706") // amber
	Error       = lipgloss.Color("#DC2626") // red
	Muted       = lipgloss.Color("#64748B") // slate
	MutedLight  = lipgloss.Color("#94A3B8") // light slate
	Background  = lipgloss.Color("#0F172A") // near black
	Foreground  = lipgloss.Color("#F8FAFC") // near white
	BorderColor = lipgloss.Color("#334155") // border slate
)

// Header.
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(Foreground).
			Background(Primary).
			Bold(true).
			Padding(0, 1)

	HeaderLabelStyle = lipgloss.NewStyle().Foreground(MutedLight)

	HeaderValueStyle = lipgloss.NewStyle().Foreground(Foreground).Bold(true)
)

// Progress bars.
var (
	ProgressFilledStyle = lipgloss.NewStyle().Foreground(Success).Bold(true)
	ProgressEmptyStyle  = lipgloss.NewStyle().Foreground(Muted)
	ProgressCountStyle  = lipgloss.NewStyle().Foreground(Secondary)
	ProgressLabelStyle  = lipgloss.NewStyle().Foreground(MutedLight)
)

// Procedure status glyphs, pre-rendered with their colors.
var (
	StatusPending    = lipgloss.NewStyle().Foreground(Muted).Render("○")
	StatusInProgress = lipgloss.NewStyle().Foreground(Secondary).Render("→")
	StatusCompleted  = lipgloss.NewStyle().Foreground(Success).Render("✓")
	StatusFailed     = lipgloss.NewStyle().Foreground(Error).Render("✗")
	StatusSkipped    = lipgloss.NewStyle().Foreground(Warning).Render("⊘")
)

// Text and status bar.
var (
	ErrorTextStyle = lipgloss.NewStyle().Foreground(Error)

	KeyStyle = lipgloss.NewStyle().Foreground(Secondary).Bold(true)

	HelpStyle = lipgloss.NewStyle().Foreground(Muted)
)
