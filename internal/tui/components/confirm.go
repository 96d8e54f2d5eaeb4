package components

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/umdcms/qcmanager/internal/tui/styles"
)

// ConfirmAction identifies what a confirmation dialog is asking about.
type ConfirmAction string

const (
	ConfirmActionAbort ConfirmAction = "abort"
	ConfirmActionQuit  ConfirmAction = "quit"
)

// ConfirmYesMsg is emitted when the user confirms the dialog.
type ConfirmYesMsg struct {
	Action ConfirmAction
}

// ConfirmNoMsg is emitted when the user dismisses the dialog.
type ConfirmNoMsg struct{}

// ConfirmDialog asks the user to confirm aborting a run or quitting.
// While visible it swallows all key input.
type ConfirmDialog struct {
	visible     bool
	action      ConfirmAction
	title       string
	message     string
	width       int
	destructive bool
}

func NewConfirmDialog() *ConfirmDialog {
	return &ConfirmDialog{width: 50}
}

// Show displays the dialog. Destructive prompts get the error accent.
func (c *ConfirmDialog) Show(action ConfirmAction, title, message string, destructive bool) {
	c.visible = true
	c.action = action
	c.title = title
	c.message = message
	c.destructive = destructive
}

// ShowAbort asks whether to stop the run after the current procedure.
func (c *ConfirmDialog) ShowAbort() {
	c.Show(ConfirmActionAbort, "Abort Run?",
		"This will stop the run after the current procedure. "+
			"The session file keeps everything recorded so far.",
		true)
}

// ShowQuit asks whether to leave the UI while the run finishes.
func (c *ConfirmDialog) ShowQuit() {
	c.Show(ConfirmActionQuit, "Quit qcman?",
		"The run keeps going in the background until the current procedure ends.",
		false)
}

func (c *ConfirmDialog) Hide() {
	c.visible = false
}

func (c *ConfirmDialog) IsVisible() bool {
	return c.visible
}

// Action returns what the dialog is currently asking about.
func (c *ConfirmDialog) Action() ConfirmAction {
	return c.action
}

func (c *ConfirmDialog) SetSize(width int) {
	c.width = width
}

// Update resolves the dialog on y/enter or n/esc. Other keys are ignored
// but still consumed while the dialog is up.
func (c *ConfirmDialog) Update(msg tea.Msg) tea.Cmd {
	if !c.visible {
		return nil
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	switch strings.ToLower(key.String()) {
	case "y", "enter":
		action := c.action
		c.Hide()
		return func() tea.Msg { return ConfirmYesMsg{Action: action} }
	case "n", "esc":
		c.Hide()
		return func() tea.Msg { return ConfirmNoMsg{} }
	}
	return nil
}

// accent picks the dialog's highlight color from its severity.
func (c *ConfirmDialog) accent() lipgloss.TerminalColor {
	if c.destructive {
		return styles.Error
	}
	return styles.Warning
}

// View renders the dialog in a double border with [Y]es / [N]o buttons.
func (c *ConfirmDialog) View() string {
	if !c.visible {
		return ""
	}

	title := lipgloss.NewStyle().
		Foreground(styles.Foreground).
		Background(c.accent()).
		Bold(true).
		Padding(0, 1).
		Width(c.width - 4).
		Render("  " + c.title)

	body := lipgloss.NewStyle().
		Foreground(styles.Foreground).
		Width(c.width - 8).
		Render(c.message)

	yesColor := styles.Primary
	if c.destructive {
		yesColor = styles.Error
	}
	yes := lipgloss.NewStyle().
		Foreground(styles.Foreground).
		Background(yesColor).
		Bold(true).
		Padding(0, 2).
		Render("[Y]es")
	no := lipgloss.NewStyle().
		Foreground(styles.MutedLight).
		Border(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		Padding(0, 1).
		Render("[N]o")

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		body,
		"",
		yes+"  "+no,
	)

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(c.accent()).
		Padding(1, 2).
		Render(content)
}
