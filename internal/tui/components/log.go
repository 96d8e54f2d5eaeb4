package components

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/umdcms/qcmanager/internal/tui/styles"
)

// LogViewport shows streamed procedure and hook output in a scrollable
// pane. Lines are buffered outside the viewport and joined lazily so
// that high-rate appends stay cheap; with auto-follow on, the pane
// tracks the newest line.
type LogViewport struct {
	viewport   viewport.Model
	lines      []string
	partial    string // text after the last newline, grown by AppendText
	dirty      bool
	autoFollow bool
	focused    bool
	title      string
	width      int
	height     int
}

// NewLogViewport returns a log pane with auto-follow enabled.
func NewLogViewport() *LogViewport {
	vp := viewport.New(80, 20)
	vp.Style = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.BorderColor)

	return &LogViewport{
		viewport:   vp,
		lines:      make([]string, 0, 1024),
		autoFollow: true,
		title:      "Run Log",
		width:      80,
		height:     20,
	}
}

func (l *LogViewport) SetTitle(title string) {
	l.title = title
}

// SetSize reserves two rows and columns for the border and title line.
func (l *LogViewport) SetSize(width, height int) {
	l.width = width
	l.height = height
	l.viewport.Width = width - 2
	l.viewport.Height = height - 2
}

func (l *LogViewport) SetFocused(focused bool) {
	l.focused = focused
}

func (l *LogViewport) SetAutoFollow(enabled bool) {
	l.autoFollow = enabled
}

func (l *LogViewport) AutoFollow() bool {
	return l.autoFollow
}

// Clear drops all buffered content.
func (l *LogViewport) Clear() {
	l.lines = l.lines[:0]
	l.partial = ""
	l.dirty = false
	l.viewport.SetContent("")
}

// Write implements io.Writer so procedure output can stream in directly.
func (l *LogViewport) Write(p []byte) (int, error) {
	l.AppendText(string(p))
	return len(p), nil
}

// AppendText adds text that may contain any number of newlines. Text
// after the final newline is held back and completed by the next append.
func (l *LogViewport) AppendText(text string) {
	if text == "" {
		return
	}

	for {
		idx := strings.IndexByte(text, '\n')
		if idx < 0 {
			l.partial += text
			break
		}
		l.lines = append(l.lines, l.partial+text[:idx])
		l.partial = ""
		text = text[idx+1:]
		if text == "" {
			break
		}
	}
	l.dirty = true
}

// AppendLine adds one complete line.
func (l *LogViewport) AppendLine(line string) {
	l.lines = append(l.lines, line)
	l.dirty = true
}

// SetContent replaces the buffer wholesale.
func (l *LogViewport) SetContent(content string) {
	l.lines = l.lines[:0]
	l.partial = ""
	if content != "" {
		l.lines = strings.Split(content, "\n")
		if last := len(l.lines) - 1; l.lines[last] == "" {
			l.lines = l.lines[:last]
		} else {
			l.partial = l.lines[last]
			l.lines = l.lines[:last]
		}
	}
	l.dirty = true
	l.rebuild()
}

// Content returns everything buffered, including any unfinished line.
func (l *LogViewport) Content() string {
	joined := strings.Join(l.lines, "\n")
	if l.partial == "" {
		return joined
	}
	if joined == "" {
		return l.partial
	}
	return joined + "\n" + l.partial
}

// LineCount counts complete lines plus any unfinished one.
func (l *LogViewport) LineCount() int {
	n := len(l.lines)
	if l.partial != "" {
		n++
	}
	return n
}

// rebuild pushes the buffer into the viewport when it changed.
func (l *LogViewport) rebuild() {
	if !l.dirty {
		return
	}
	l.viewport.SetContent(l.Content())
	l.dirty = false
	if l.autoFollow {
		l.viewport.GotoBottom()
	}
}

func (l *LogViewport) ScrollPercent() float64 {
	return l.viewport.ScrollPercent()
}

// GotoTop jumps to the oldest line and stops following.
func (l *LogViewport) GotoTop() {
	l.viewport.GotoTop()
	l.autoFollow = false
}

// GotoBottom jumps to the newest line and resumes following.
func (l *LogViewport) GotoBottom() {
	l.viewport.GotoBottom()
	l.autoFollow = true
}

// ScrollUp moves one line toward the top and stops following.
func (l *LogViewport) ScrollUp() {
	l.viewport.LineUp(1)
	l.autoFollow = false
}

// ScrollDown moves one line toward the bottom.
func (l *LogViewport) ScrollDown() {
	l.viewport.LineDown(1)
}

// ToggleAutoFollow flips follow mode, snapping to the bottom when
// turning it on.
func (l *LogViewport) ToggleAutoFollow() {
	l.autoFollow = !l.autoFollow
	if l.autoFollow {
		l.viewport.GotoBottom()
	}
}

// Update handles scroll keys; anything else passes through to the
// underlying viewport.
func (l *LogViewport) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		l.viewport, cmd = l.viewport.Update(msg)
		return cmd
	}

	switch key.String() {
	case "up", "k":
		l.ScrollUp()
	case "down", "j":
		l.viewport.LineDown(1)
		if l.viewport.AtBottom() {
			l.autoFollow = true
		}
	case "pgup", "ctrl+u":
		l.autoFollow = false
		l.viewport.HalfViewUp()
	case "pgdown", "ctrl+d":
		l.viewport.HalfViewDown()
		if l.viewport.AtBottom() {
			l.autoFollow = true
		}
	case "home", "g":
		l.GotoTop()
	case "end", "G":
		l.GotoBottom()
	case "f":
		l.ToggleAutoFollow()
	default:
		var cmd tea.Cmd
		l.viewport, cmd = l.viewport.Update(msg)
		return cmd
	}
	return nil
}

// View renders the title line, the bordered viewport, and a key hint.
func (l *LogViewport) View() string {
	l.rebuild()

	title := l.title
	if l.autoFollow {
		title += " [auto-follow]"
	}
	titleLine := lipgloss.NewStyle().
		Foreground(styles.Foreground).
		Background(styles.Primary).
		Bold(true).
		Padding(0, 1).
		Width(l.width).
		Render(title) +
		lipgloss.NewStyle().
			Foreground(styles.MutedLight).
			Render(fmt.Sprintf(" %.0f%%", l.viewport.ScrollPercent()*100))

	borderColor := styles.BorderColor
	if l.focused {
		borderColor = styles.Primary
	}
	pane := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Render(l.viewport.View())

	help := lipgloss.NewStyle().
		Foreground(styles.Muted).
		Italic(true).
		Render("j/k: scroll  f: toggle follow  e: open in $EDITOR")

	return titleLine + "\n" + pane + "\n" + help
}

// EditorErrorMsg reports a failure to open the log in an editor.
type EditorErrorMsg struct {
	Error error
}

// EditorClosedMsg reports that the editor exited.
type EditorClosedMsg struct{}

// OpenInEditor writes the buffer to a temp file and opens it in
// $EDITOR (vi when unset).
func (l *LogViewport) OpenInEditor() tea.Cmd {
	content := l.Content()
	return func() tea.Msg {
		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}

		tmp, err := os.CreateTemp("", "qcman-log-*.txt")
		if err != nil {
			return EditorErrorMsg{Error: err}
		}
		defer os.Remove(tmp.Name())

		if _, err := tmp.WriteString(content); err != nil {
			tmp.Close()
			return EditorErrorMsg{Error: err}
		}
		tmp.Close()

		cmd := exec.Command(editor, tmp.Name())
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return EditorErrorMsg{Error: err}
		}
		return EditorClosedMsg{}
	}
}
