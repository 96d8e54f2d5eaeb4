package components

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}

func TestConfirmDialog_Prompts(t *testing.T) {
	tests := []struct {
		name        string
		show        func(c *ConfirmDialog)
		action      ConfirmAction
		destructive bool
	}{
		{"abort", (*ConfirmDialog).ShowAbort, ConfirmActionAbort, true},
		{"quit", (*ConfirmDialog).ShowQuit, ConfirmActionQuit, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConfirmDialog()
			if c.IsVisible() {
				t.Fatal("dialog should start hidden")
			}

			tt.show(c)

			if !c.IsVisible() {
				t.Error("dialog should be visible after Show")
			}
			if c.Action() != tt.action {
				t.Errorf("Action() = %q, want %q", c.Action(), tt.action)
			}
			if c.destructive != tt.destructive {
				t.Errorf("destructive = %v, want %v", c.destructive, tt.destructive)
			}

			c.Hide()
			if c.IsVisible() {
				t.Error("dialog should be hidden after Hide")
			}
		})
	}
}

func TestConfirmDialog_Show(t *testing.T) {
	c := NewConfirmDialog()
	c.Show(ConfirmActionQuit, "Leave?", "Run continues in the background.", false)

	if c.title != "Leave?" {
		t.Errorf("title = %q", c.title)
	}
	if c.message != "Run continues in the background." {
		t.Errorf("message = %q", c.message)
	}
}

func TestConfirmDialog_Resolve(t *testing.T) {
	tests := []struct {
		key     string
		wantYes bool
	}{
		{"y", true},
		{"Y", true},
		{"enter", true},
		{"n", false},
		{"N", false},
		{"esc", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			c := NewConfirmDialog()
			c.ShowAbort()

			cmd := c.Update(keyMsg(tt.key))

			if c.IsVisible() {
				t.Errorf("key %q should dismiss the dialog", tt.key)
			}
			if cmd == nil {
				t.Fatalf("key %q should produce a command", tt.key)
			}

			switch msg := cmd().(type) {
			case ConfirmYesMsg:
				if !tt.wantYes {
					t.Errorf("key %q produced ConfirmYesMsg", tt.key)
				}
				if msg.Action != ConfirmActionAbort {
					t.Errorf("ConfirmYesMsg.Action = %q, want abort", msg.Action)
				}
			case ConfirmNoMsg:
				if tt.wantYes {
					t.Errorf("key %q produced ConfirmNoMsg", tt.key)
				}
			default:
				t.Errorf("key %q produced unexpected message %T", tt.key, msg)
			}
		})
	}
}

func TestConfirmDialog_IgnoresOtherKeys(t *testing.T) {
	c := NewConfirmDialog()
	c.ShowAbort()

	if cmd := c.Update(keyMsg("x")); cmd != nil {
		t.Error("unrelated keys should not resolve the dialog")
	}
	if !c.IsVisible() {
		t.Error("unrelated keys should not dismiss the dialog")
	}
}

func TestConfirmDialog_HiddenIsInert(t *testing.T) {
	c := NewConfirmDialog()

	if cmd := c.Update(keyMsg("y")); cmd != nil {
		t.Error("hidden dialog should ignore input")
	}
	if view := c.View(); view != "" {
		t.Errorf("hidden dialog should render nothing, got %q", view)
	}
}

func TestConfirmDialog_View(t *testing.T) {
	c := NewConfirmDialog()
	c.SetSize(80)
	if c.width != 80 {
		t.Errorf("width = %d, want 80", c.width)
	}

	c.ShowAbort()
	view := c.View()

	for _, want := range []string{"Abort", "stop", "procedure", "[Y]es", "[N]o"} {
		if !strings.Contains(view, want) {
			t.Errorf("view should contain %q", want)
		}
	}
}
