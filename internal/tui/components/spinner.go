package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/umdcms/qcmanager/internal/tui/styles"
)

// Spinner animates while a procedure runs, showing its name and how
// long it has been going.
type Spinner struct {
	spinner    spinner.Model
	statusText string
	startedAt  time.Time
}

func NewSpinner() *Spinner {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Secondary)
	return &Spinner{spinner: s}
}

// SetStatusText sets the label shown next to the spinner.
func (s *Spinner) SetStatusText(text string) {
	s.statusText = text
}

// Start resets the elapsed-time clock.
func (s *Spinner) Start() {
	s.startedAt = time.Now()
}

// Elapsed reports time since Start, or zero before the first Start.
func (s *Spinner) Elapsed() time.Duration {
	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt)
}

func (s *Spinner) Init() tea.Cmd {
	return s.spinner.Tick
}

func (s *Spinner) Update(msg tea.Msg) (*Spinner, tea.Cmd) {
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// View renders "<spinner> <status> (<elapsed>)".
func (s *Spinner) View() string {
	line := s.spinner.View() + " " +
		lipgloss.NewStyle().Foreground(styles.Foreground).Render(s.statusText)

	if elapsed := s.Elapsed(); elapsed > 0 {
		line += " " + lipgloss.NewStyle().
			Foreground(styles.MutedLight).
			Render("("+shortDuration(elapsed)+")")
	}
	return line
}

// shortDuration renders trimmed units: 42s, 3m10s, 1h4m.
func shortDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
