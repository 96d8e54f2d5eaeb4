package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/umdcms/qcmanager/internal/tui/styles"
)

// ProgressData contains the data to display in the queue progress bar.
type ProgressData struct {
	Completed  int
	Total      int
	StatusText string // Optional additional status text
}

// Progress is a component that displays procedure queue progress as a bar.
type Progress struct {
	data  ProgressData
	width int
}

// NewProgress creates a new Progress component.
func NewProgress() *Progress {
	return &Progress{}
}

// SetData updates the progress data.
func (p *Progress) SetData(data ProgressData) {
	p.data = data
}

// SetProgress sets completed and total counts.
func (p *Progress) SetProgress(completed, total int) {
	p.data.Completed = completed
	p.data.Total = total
}

// SetStatusText sets optional status text.
func (p *Progress) SetStatusText(text string) {
	p.data.StatusText = text
}

// SetWidth sets the width for the progress bar.
func (p *Progress) SetWidth(width int) {
	p.width = width
}

// View renders the progress bar.
func (p *Progress) View() string {
	bar := renderBar(p.data.Completed, p.data.Total, barWidthFor(p.width))

	count := styles.ProgressCountStyle.Render(
		fmt.Sprintf("%d/%d procedures", p.data.Completed, p.data.Total))

	sep := lipgloss.NewStyle().
		Foreground(styles.Muted).
		Render(" │ ")

	content := fmt.Sprintf("Progress: %s%s%s", bar, sep, count)

	if p.data.StatusText != "" {
		statusStyle := lipgloss.NewStyle().
			Foreground(styles.MutedLight).
			Italic(true)
		content = fmt.Sprintf("%s%s%s", content, sep, statusStyle.Render(p.data.StatusText))
	}

	containerStyle := lipgloss.NewStyle().
		Padding(0, 1)
	if p.width > 0 {
		containerStyle = containerStyle.Width(p.width)
	}

	return containerStyle.Render(content)
}

// PercentComplete returns the completion percentage (0.0 - 1.0).
func (p *Progress) PercentComplete() float64 {
	if p.data.Total == 0 {
		return 0
	}
	return float64(p.data.Completed) / float64(p.data.Total)
}

// IsComplete returns true if all procedures are completed.
func (p *Progress) IsComplete() bool {
	return p.data.Total > 0 && p.data.Completed >= p.data.Total
}

// poolBar is one labeled bar in a ProgressPool.
type poolBar struct {
	label   string
	current int
	total   int
}

// ProgressPool renders one bar per in-flight progress label. Procedures
// report batched work under a description; each distinct description
// gets its own bar, in first-seen order.
type ProgressPool struct {
	bars  []*poolBar
	index map[string]*poolBar
	width int
}

// NewProgressPool creates an empty ProgressPool.
func NewProgressPool() *ProgressPool {
	return &ProgressPool{
		index: make(map[string]*poolBar),
	}
}

// SetProgress updates the bar for label, creating it on first use.
func (p *ProgressPool) SetProgress(label string, current, total int) {
	bar, ok := p.index[label]
	if !ok {
		bar = &poolBar{label: label}
		p.index[label] = bar
		p.bars = append(p.bars, bar)
	}
	bar.current = current
	bar.total = total
}

// Clear removes all bars, typically between procedures.
func (p *ProgressPool) Clear() {
	p.bars = nil
	p.index = make(map[string]*poolBar)
}

// Len returns the number of active bars.
func (p *ProgressPool) Len() int {
	return len(p.bars)
}

// SetWidth sets the pool width.
func (p *ProgressPool) SetWidth(width int) {
	p.width = width
}

// View renders one line per bar.
func (p *ProgressPool) View() string {
	if len(p.bars) == 0 {
		return ""
	}

	labelWidth := 0
	for _, bar := range p.bars {
		if len(bar.label) > labelWidth {
			labelWidth = len(bar.label)
		}
	}

	var lines []string
	for _, bar := range p.bars {
		label := styles.ProgressLabelStyle.Render(
			fmt.Sprintf("%-*s", labelWidth, bar.label))
		rendered := renderBar(bar.current, bar.total, barWidthFor(p.width))
		count := styles.ProgressCountStyle.Render(
			fmt.Sprintf("%d/%d", bar.current, bar.total))
		lines = append(lines, fmt.Sprintf(" %s %s %s", label, rendered, count))
	}

	return strings.Join(lines, "\n")
}

// renderBar draws a filled/empty bar for current out of total.
func renderBar(current, total, width int) string {
	var percent float64
	if total > 0 {
		percent = float64(current) / float64(total)
	}
	if percent > 1 {
		percent = 1
	}

	filled := int(percent * float64(width))
	empty := width - filled

	return styles.ProgressFilledStyle.Render(strings.Repeat("█", filled)) +
		styles.ProgressEmptyStyle.Render(strings.Repeat("░", empty))
}

// barWidthFor picks a bar width for the available component width.
func barWidthFor(width int) int {
	switch {
	case width > 80:
		return 40
	case width > 60:
		return 30
	default:
		return 20
	}
}
