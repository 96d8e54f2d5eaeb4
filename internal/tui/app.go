// Package tui provides the terminal user interface for qcman.
package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/umdcms/qcmanager/internal/tui/components"
	"github.com/umdcms/qcmanager/internal/tui/styles"
)

// FocusedPane indicates which pane has focus.
type FocusedPane int

const (
	FocusProcs FocusedPane = iota
	FocusLogs
)

// RunController aborts the running procedure queue.
type RunController interface {
	Abort() error
}

// Model is the Bubble Tea model for the qcman run view.
type Model struct {
	header     *components.Header
	progress   *components.Progress
	pool       *components.ProgressPool
	procList   *components.ProcList
	spinner    *components.Spinner
	statusBar  *components.StatusBar
	logView    *components.LogViewport
	confirmDlg *components.ConfirmDialog

	info SessionInfo

	runState  string
	current   string
	startTime time.Time
	lastError string

	width  int
	height int

	quitting    bool
	focusedPane FocusedPane

	runController RunController
}

// New creates a new TUI model.
func New() *Model {
	m := &Model{
		header:     components.NewHeader(),
		progress:   components.NewProgress(),
		pool:       components.NewProgressPool(),
		procList:   components.NewProcList(),
		spinner:    components.NewSpinner(),
		statusBar:  components.NewStatusBar(),
		logView:    components.NewLogViewport(),
		confirmDlg: components.NewConfirmDialog(),
		runState:   "idle",
		startTime:  time.Now(),
	}
	m.procList.SetFocused(true)
	return m
}

// SetRunController sets the controller used to abort the run.
func (m *Model) SetRunController(controller RunController) {
	m.runController = controller
}

// SetSessionInfo updates the header with session information.
func (m *Model) SetSessionInfo(info SessionInfo) {
	m.info = info
	m.header.SetData(components.HeaderData{
		BoardType:   info.BoardType,
		BoardID:     info.BoardID,
		StoreDir:    info.StoreDir,
		Fingerprint: info.Fingerprint,
	})
}

// SetQueue sets the pending procedure queue.
func (m *Model) SetQueue(names []string) {
	m.procList.SetQueue(names)
	m.progress.SetProgress(0, len(names))
}

// Init is the Bubble Tea initialization function.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.spinner.Init())
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// A visible confirm dialog swallows all keyboard input.
	if m.confirmDlg.IsVisible() {
		if cmd := m.confirmDlg.Update(msg); cmd != nil {
			return m, cmd
		}
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, nil
		}
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case TickMsg:
		m.statusBar.SetElapsedTime(time.Since(m.startTime))
		return m, tickCmd()
	case components.ConfirmYesMsg:
		return m, m.confirmed(msg.Action)
	case components.ConfirmNoMsg:
		return m, nil
	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	if m.handleRunEvent(msg) {
		return m, nil
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// handleRunEvent applies run progress messages emitted by the event
// bridge. It reports false for messages it does not recognize.
func (m *Model) handleRunEvent(msg tea.Msg) bool {
	switch msg := msg.(type) {
	case RunStateMsg:
		m.runState = msg.State
		m.statusBar.SetRunState(msg.State)
		if msg.CurrentMsg != "" {
			m.statusBar.SetMessage(msg.CurrentMsg)
		}
	case ProcedureStartedMsg:
		m.current = msg.Name
		m.pool.Clear()
		m.procList.SetStatus(msg.Name, components.QueueRunning, "")
		m.spinner.SetStatusText("Running " + msg.Name)
		m.spinner.Start()
	case ProcedureFinishedMsg:
		m.current = ""
		m.pool.Clear()
		m.procList.SetStatus(msg.Name, queueStatusFor(msg.Status), msg.Message)
	case ProgressMsg:
		m.pool.SetProgress(msg.Label, msg.Current, msg.Total)
	case CountsMsg:
		m.progress.SetProgress(msg.Completed, msg.Total)
		m.statusBar.SetCounts(msg.Completed, msg.Failed, msg.Skipped)
	case LogLineMsg:
		m.logView.AppendLine(msg.Line)
	case HardwareStatusMsg:
		m.statusBar.SetHardware(msg.Status)
	case ErrorMsg:
		m.lastError = msg.Error
		m.statusBar.SetMessage(msg.Error)
	default:
		return false
	}
	return true
}

// resize distributes the terminal area between the queue pane on top
// and the log pane below, with fixed rows for header and status bar.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.header.SetWidth(width)
	m.progress.SetWidth(width)
	m.pool.SetWidth(width)
	m.statusBar.SetWidth(width)

	panes := height - 10
	listHeight := panes / 2
	m.procList.SetSize(width, listHeight)
	m.logView.SetSize(width, panes-listHeight)
	m.confirmDlg.SetSize(50)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return tea.Quit
	case "q":
		// Quitting mid-run needs a confirmation.
		if m.runState == "running" {
			m.confirmDlg.ShowQuit()
			return nil
		}
		m.quitting = true
		return tea.Quit
	case "a":
		if m.runState == "running" {
			m.confirmDlg.ShowAbort()
		}
	case "tab":
		m.toggleFocus()
	case "j", "down":
		if m.focusedPane == FocusProcs {
			m.procList.MoveDown()
		} else {
			m.logView.ScrollDown()
		}
	case "k", "up":
		if m.focusedPane == FocusProcs {
			m.procList.MoveUp()
		} else {
			m.logView.ScrollUp()
		}
	case "g":
		if m.focusedPane == FocusLogs {
			m.logView.GotoTop()
		}
	case "G":
		if m.focusedPane == FocusLogs {
			m.logView.GotoBottom()
		}
	case "f":
		m.logView.ToggleAutoFollow()
	case "e":
		if m.runState != "running" {
			return m.logView.OpenInEditor()
		}
	}
	return nil
}

func (m *Model) toggleFocus() {
	if m.focusedPane == FocusProcs {
		m.focusedPane = FocusLogs
	} else {
		m.focusedPane = FocusProcs
	}
	m.procList.SetFocused(m.focusedPane == FocusProcs)
	m.logView.SetFocused(m.focusedPane == FocusLogs)
}

// confirmed resolves a confirm dialog answered with yes.
func (m *Model) confirmed(action components.ConfirmAction) tea.Cmd {
	switch action {
	case components.ConfirmActionAbort:
		if m.runController != nil {
			if err := m.runController.Abort(); err != nil {
				m.lastError = err.Error()
			}
		}
	case components.ConfirmActionQuit:
		m.quitting = true
		return tea.Quit
	}
	return nil
}

func queueStatusFor(status string) components.QueueStatus {
	switch status {
	case "completed":
		return components.QueueCompleted
	case "skipped":
		return components.QueueSkipped
	default:
		return components.QueueFailed
	}
}

// View renders the TUI.
func (m *Model) View() string {
	if m.quitting {
		return "Session saved.\n"
	}

	var b strings.Builder
	b.WriteString(m.header.View())
	b.WriteByte('\n')
	b.WriteString(m.progress.View())
	b.WriteByte('\n')
	b.WriteString(m.rule())

	b.WriteString(m.procList.View())
	b.WriteByte('\n')
	if m.current != "" {
		b.WriteString(m.spinner.View())
		b.WriteByte('\n')
	}
	if m.pool.Len() > 0 {
		b.WriteString(m.pool.View())
		b.WriteByte('\n')
	}

	b.WriteString(m.rule())
	b.WriteString(m.logView.View())
	b.WriteByte('\n')

	if m.lastError != "" {
		b.WriteString(styles.ErrorTextStyle.Render("Error: " + m.lastError))
		b.WriteByte('\n')
	}
	b.WriteString(m.statusBar.View())

	view := b.String()
	if m.confirmDlg.IsVisible() {
		centered := lipgloss.NewStyle().Width(m.width).Align(lipgloss.Center)
		view += "\n" + centered.Render(m.confirmDlg.View())
	}
	return view
}

// rule renders a full-width horizontal divider, or nothing before the
// first WindowSizeMsg arrives.
func (m *Model) rule() string {
	if m.width <= 0 {
		return ""
	}
	line := lipgloss.NewStyle().
		Foreground(styles.BorderColor).
		Render(strings.Repeat("─", m.width))
	return line + "\n"
}
