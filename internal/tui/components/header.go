// Package components provides reusable TUI components for qcman.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/umdcms/qcmanager/internal/tui/styles"
)

// HeaderData identifies the session shown in the header bar.
type HeaderData struct {
	BoardType   string
	BoardID     string
	StoreDir    string
	Fingerprint string
}

// Header is the top bar naming the board under test, where its results
// go, and which software environment is loaded.
type Header struct {
	data  HeaderData
	width int
}

func NewHeader() *Header {
	return &Header{
		data: HeaderData{BoardType: "-", BoardID: "-"},
	}
}

// SetData replaces all header fields at once.
func (h *Header) SetData(data HeaderData) {
	h.data = data
}

// SetBoard sets the board type and serial.
func (h *Header) SetBoard(boardType, boardID string) {
	h.data.BoardType = boardType
	h.data.BoardID = boardID
}

// SetFingerprint sets the environment manifest fingerprint.
func (h *Header) SetFingerprint(fp string) {
	h.data.Fingerprint = fp
}

func (h *Header) SetWidth(width int) {
	h.width = width
}

// View renders the header.
func (h *Header) View() string {
	segments := []string{
		styles.TitleStyle.Render("QC MANAGER"),
		headerField("Board: ", h.data.BoardType+"."+h.data.BoardID),
	}
	if h.data.StoreDir != "" {
		segments = append(segments, headerField("Store: ", h.data.StoreDir))
	}
	if fp := h.data.Fingerprint; fp != "" {
		// The full sha256 would swallow the bar; eight hex chars is
		// plenty to eyeball against the manifest.
		if len(fp) > 8 {
			fp = fp[:8]
		}
		segments = append(segments, headerField("Env: ", fp))
	}

	sep := lipgloss.NewStyle().Foreground(styles.MutedLight).Render(" │ ")
	bar := lipgloss.NewStyle().
		Background(styles.Primary).
		Foreground(styles.Foreground).
		Padding(0, 1)
	if h.width > 0 {
		bar = bar.Width(h.width)
	}
	return bar.Render(strings.Join(segments, sep))
}

func headerField(label, value string) string {
	return styles.HeaderLabelStyle.Render(label) + styles.HeaderValueStyle.Render(value)
}
