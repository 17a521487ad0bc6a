package tui

import (
	"io"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func press(m tea.Model, keys ...string) ConfirmModel {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, _ = m.Update(msg)
	}
	return m.(ConfirmModel)
}

func TestConfirmModel(t *testing.T) {
	InitCommonStyles(io.Discard)

	tests := []struct {
		name string
		keys []string
		want bool
	}{
		{name: "enter accepts default", keys: []string{"enter"}, want: true},
		{name: "move to no", keys: []string{"down", "enter"}, want: false},
		{name: "move back to yes", keys: []string{"down", "up", "enter"}, want: true},
		{name: "y shortcut", keys: []string{"down", "y"}, want: true},
		{name: "n shortcut", keys: []string{"n"}, want: false},
		{name: "escape declines", keys: []string{"esc"}, want: false},
		{name: "cursor stays in range", keys: []string{"down", "down", "down", "enter"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := press(NewConfirmModel(ConfirmOptions{Title: "Update available"}), tt.keys...)
			assert.True(t, m.done)
			assert.Equal(t, tt.want, m.Confirmed())
			assert.Empty(t, m.View())
		})
	}
}

func TestConfirmModelView(t *testing.T) {
	InitCommonStyles(io.Discard)

	m := NewConfirmModel(ConfirmOptions{
		Title:   "Update ready",
		Message: "Version 1.0.2 has been downloaded.",
		Yes:     "Restart",
	})
	view := m.View()

	assert.Contains(t, view, "Update ready")
	assert.Contains(t, view, "Version 1.0.2 has been downloaded.")
	assert.Contains(t, view, "Restart")
	assert.Contains(t, view, "No")
}
