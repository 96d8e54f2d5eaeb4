package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/umdcms/qcmanager/internal/tui/styles"
)

// ShortcutDef is one key hint shown on the right side of the status bar.
type ShortcutDef struct {
	Key  string
	Desc string
}

// The hint set follows the run phase: abort only makes sense while
// procedures are still executing, the log can be opened once they stop.
var (
	runShortcuts = []ShortcutDef{
		{"a", "abort"},
		{"f", "follow"},
		{"j/k", "scroll"},
		{"q", "quit"},
	}
	finishedShortcuts = []ShortcutDef{
		{"j/k", "scroll"},
		{"e", "open log"},
		{"q", "quit"},
	}
)

// StatusBarData is everything the bar displays.
type StatusBarData struct {
	ElapsedTime   time.Duration
	Completed     int
	Failed        int
	Skipped       int
	Hardware      string // "connected", "connecting", "offline"
	RunState      string // "running", "completed", "failed", "aborted"
	Message       string
	ShowShortcuts bool
	Shortcuts     []ShortcutDef // overrides the phase-based hint set
}

// StatusBar is the bottom line of the dashboard: elapsed time,
// procedure counts, hardware state, run state, and key hints.
type StatusBar struct {
	data  StatusBarData
	width int
}

func NewStatusBar() *StatusBar {
	return &StatusBar{
		data: StatusBarData{
			Hardware:      "offline",
			RunState:      "running",
			ShowShortcuts: true,
		},
	}
}

func (s *StatusBar) SetData(data StatusBarData) {
	s.data = data
}

func (s *StatusBar) SetElapsedTime(d time.Duration) {
	s.data.ElapsedTime = d
}

func (s *StatusBar) SetCounts(completed, failed, skipped int) {
	s.data.Completed = completed
	s.data.Failed = failed
	s.data.Skipped = skipped
}

func (s *StatusBar) SetHardware(status string) {
	s.data.Hardware = status
}

func (s *StatusBar) SetRunState(state string) {
	s.data.RunState = state
}

func (s *StatusBar) SetMessage(message string) {
	s.data.Message = message
}

func (s *StatusBar) SetShowShortcuts(show bool) {
	s.data.ShowShortcuts = show
}

func (s *StatusBar) SetWidth(width int) {
	s.width = width
}

var (
	statusLabelStyle = lipgloss.NewStyle().Foreground(styles.MutedLight)
	statusValueStyle = lipgloss.NewStyle().Foreground(styles.Foreground)
	statusSeparator  = lipgloss.NewStyle().Foreground(styles.Muted).Render(" │ ")
)

// View renders counts and state on the left, key hints on the right,
// padded apart when a width is known.
func (s *StatusBar) View() string {
	segments := []string{
		statusLabelStyle.Render("Time: ") + statusValueStyle.Render(formatClock(s.data.ElapsedTime)),
		statusLabelStyle.Render("Done: ") + lipgloss.NewStyle().Foreground(styles.Secondary).
			Render(fmt.Sprintf("%d✓ %d✗ %d⊘", s.data.Completed, s.data.Failed, s.data.Skipped)),
		statusLabelStyle.Render("HW: ") + hardwareGlyph(s.data.Hardware),
		runStateBadge(s.data.RunState),
	}
	if s.data.Message != "" {
		segments = append(segments,
			statusLabelStyle.Italic(true).Render(s.data.Message))
	}
	left := strings.Join(segments, statusSeparator)

	right := ""
	if s.data.ShowShortcuts {
		right = s.shortcutHints()
	}

	container := lipgloss.NewStyle().Background(styles.Background).Padding(0, 1)
	if s.width > 0 {
		container = container.Width(s.width)
		gap := s.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
		if gap > 0 {
			return container.Render(left + strings.Repeat(" ", gap) + right)
		}
	}
	return container.Render(left + "  " + right)
}

func (s *StatusBar) shortcutHints() string {
	defs := s.data.Shortcuts
	if len(defs) == 0 {
		switch s.data.RunState {
		case "completed", "failed", "aborted":
			defs = finishedShortcuts
		default:
			defs = runShortcuts
		}
	}

	parts := make([]string, len(defs))
	for i, d := range defs {
		parts[i] = styles.KeyStyle.Render(d.Key) + styles.HelpStyle.Render(":"+d.Desc)
	}
	return strings.Join(parts, statusSeparator)
}

func hardwareGlyph(status string) string {
	switch status {
	case "connected":
		return lipgloss.NewStyle().Foreground(styles.Success).Render("✓")
	case "connecting":
		return lipgloss.NewStyle().Foreground(styles.Secondary).Render("◐")
	default:
		return lipgloss.NewStyle().Foreground(styles.Muted).Render("○")
	}
}

func runStateBadge(state string) string {
	switch state {
	case "running":
		return lipgloss.NewStyle().Foreground(styles.Success).Render("● Running")
	case "completed":
		return lipgloss.NewStyle().Foreground(styles.Success).Render("✓ Complete")
	case "failed":
		return lipgloss.NewStyle().Foreground(styles.Error).Render("✗ Failed")
	case "aborted":
		return lipgloss.NewStyle().Foreground(styles.Warning).Render("⊘ Aborted")
	default:
		return lipgloss.NewStyle().Foreground(styles.Muted).Render("○ Idle")
	}
}

// formatClock renders MM:SS, growing to HH:MM:SS past an hour.
func formatClock(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	sec := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%02d:%02d", m, sec)
}
