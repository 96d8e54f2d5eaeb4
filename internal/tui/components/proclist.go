package components

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/umdcms/qcmanager/internal/tui/styles"
)

// QueueStatus is the display state of a queued procedure.
type QueueStatus string

const (
	QueuePending   QueueStatus = "pending"
	QueueRunning   QueueStatus = "running"
	QueueCompleted QueueStatus = "completed"
	QueueFailed    QueueStatus = "failed"
	QueueSkipped   QueueStatus = "skipped"
)

// ProcListItem represents a procedure in the queue list.
type ProcListItem struct {
	Name    string
	Detail  string
	Status  QueueStatus
	Message string
}

// ProcList is a scrollable list of queued procedures with status icons.
type ProcList struct {
	items       []ProcListItem
	selected    int
	height      int
	width       int
	scrollStart int
	focused     bool
}

// NewProcList creates a new ProcList component.
func NewProcList() *ProcList {
	return &ProcList{
		height:  10,
		focused: true,
	}
}

// SetItems replaces the list items.
func (p *ProcList) SetItems(items []ProcListItem) {
	p.items = items
	if p.selected >= len(items) {
		p.selected = len(items) - 1
	}
	if p.selected < 0 {
		p.selected = 0
	}
	p.updateScroll()
}

// SetQueue resets the list to a pending queue of procedure names.
func (p *ProcList) SetQueue(names []string) {
	items := make([]ProcListItem, len(names))
	for i, name := range names {
		items[i] = ProcListItem{Name: name, Status: QueuePending}
	}
	p.SetItems(items)
}

// SetStatus updates the status of the first entry with the given name
// that is not already in a terminal state.
func (p *ProcList) SetStatus(name string, status QueueStatus, message string) {
	for i := range p.items {
		if p.items[i].Name != name {
			continue
		}
		switch p.items[i].Status {
		case QueueCompleted, QueueFailed, QueueSkipped:
			continue
		}
		p.items[i].Status = status
		p.items[i].Message = message
		return
	}
}

// Items returns the current list items.
func (p *ProcList) Items() []ProcListItem {
	return p.items
}

// SetSize sets both width and height.
func (p *ProcList) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.updateScroll()
}

// SetFocused sets whether the list is focused.
func (p *ProcList) SetFocused(focused bool) {
	p.focused = focused
}

// Selected returns the currently selected item index.
func (p *ProcList) Selected() int {
	return p.selected
}

// SelectedItem returns the currently selected item, or nil if empty.
func (p *ProcList) SelectedItem() *ProcListItem {
	if len(p.items) == 0 || p.selected < 0 || p.selected >= len(p.items) {
		return nil
	}
	return &p.items[p.selected]
}

// MoveUp moves selection up.
func (p *ProcList) MoveUp() {
	if p.selected > 0 {
		p.selected--
		p.updateScroll()
	}
}

// MoveDown moves selection down.
func (p *ProcList) MoveDown() {
	if p.selected < len(p.items)-1 {
		p.selected++
		p.updateScroll()
	}
}

// updateScroll ensures the selected item is visible.
func (p *ProcList) updateScroll() {
	if p.selected < p.scrollStart {
		p.scrollStart = p.selected
	}
	if p.selected >= p.scrollStart+p.height {
		p.scrollStart = p.selected - p.height + 1
	}
	if p.scrollStart < 0 {
		p.scrollStart = 0
	}
}

// Update handles keyboard events for navigation.
func (p *ProcList) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			p.MoveUp()
		case "down", "j":
			p.MoveDown()
		case "home", "g":
			p.selected = 0
			p.updateScroll()
		case "end", "G":
			p.selected = len(p.items) - 1
			p.updateScroll()
		}
	}
	return nil
}

// View renders the procedure list.
func (p *ProcList) View() string {
	if len(p.items) == 0 {
		emptyStyle := lipgloss.NewStyle().
			Foreground(styles.Muted).
			Italic(true).
			Padding(1, 2)
		return emptyStyle.Render("No procedures queued")
	}

	var lines []string
	endIndex := p.scrollStart + p.height
	if endIndex > len(p.items) {
		endIndex = len(p.items)
	}

	for i := p.scrollStart; i < endIndex; i++ {
		lines = append(lines, p.renderItem(p.items[i], i == p.selected))
	}

	content := strings.Join(lines, "\n")

	if p.scrollStart > 0 {
		content = "  ↑ more above\n" + content
	}
	if endIndex < len(p.items) {
		content = content + "\n  ↓ more below"
	}

	return content
}

// renderItem renders a single procedure entry.
func (p *ProcList) renderItem(item ProcListItem, isSelected bool) string {
	icon := p.statusIcon(item.Status)

	nameStyle := lipgloss.NewStyle().
		Foreground(styles.Foreground)

	runningIndicator := " "
	if item.Status == QueueRunning {
		runningIndicator = lipgloss.NewStyle().
			Foreground(styles.Secondary).
			Bold(true).
			Render("▶")
	}

	lineStyle := lipgloss.NewStyle()
	if isSelected && p.focused {
		lineStyle = lineStyle.
			Background(styles.Background).
			Bold(true)
	}

	line := fmt.Sprintf("%s %s %s", runningIndicator, icon, nameStyle.Render(item.Name))

	if item.Detail != "" {
		detailStyle := lipgloss.NewStyle().
			Foreground(styles.MutedLight)
		line += detailStyle.Render(" " + item.Detail)
	}
	if item.Message != "" {
		msgStyle := lipgloss.NewStyle().
			Foreground(styles.Muted).
			Italic(true)
		line += msgStyle.Render(" " + truncateString(item.Message, 40))
	}

	if p.width > 0 {
		lineStyle = lineStyle.Width(p.width)
	}

	return lineStyle.Render(line)
}

// statusIcon returns the icon for a queue status.
func (p *ProcList) statusIcon(status QueueStatus) string {
	switch status {
	case QueueCompleted:
		return styles.StatusCompleted
	case QueueRunning:
		return styles.StatusInProgress
	case QueueSkipped:
		return styles.StatusSkipped
	case QueueFailed:
		return styles.StatusFailed
	default:
		return styles.StatusPending
	}
}

// truncateString truncates a string to the specified length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-1] + "…"
}
