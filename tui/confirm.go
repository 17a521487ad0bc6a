package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// ConfirmOptions describes a yes/no dialog.
type ConfirmOptions struct {
	Title   string
	Message string
	Yes     string
	No      string
}

// ConfirmModel is a two-option dialog. The first option is preselected.
type ConfirmModel struct {
	opts      ConfirmOptions
	cursor    int
	confirmed bool
	done      bool
}

func NewConfirmModel(opts ConfirmOptions) ConfirmModel {
	if opts.Yes == "" {
		opts.Yes = "Yes"
	}
	if opts.No == "" {
		opts.No = "No"
	}
	return ConfirmModel{opts: opts}
}

func (m ConfirmModel) Init() tea.Cmd {
	return nil
}

func (m ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "q", "esc", "ctrl+c", "n":
		m.confirmed = false
		m.done = true
		return m, tea.Quit
	case "y":
		m.confirmed = true
		m.done = true
		return m, tea.Quit
	case "enter":
		m.confirmed = m.cursor == 0
		m.done = true
		return m, tea.Quit
	case "up", "k", "left", "h":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j", "right", "l", "tab":
		if m.cursor < 1 {
			m.cursor++
		}
	}
	return m, nil
}

func (m ConfirmModel) View() string {
	if m.done {
		return ""
	}

	var s strings.Builder
	s.WriteString(PrimaryTitleStyle().Render(m.opts.Title))
	s.WriteString("\n\n")
	if m.opts.Message != "" {
		s.WriteString(m.opts.Message)
		s.WriteString("\n\n")
	}

	for i, option := range []string{m.opts.Yes, m.opts.No} {
		cursor := "  "
		if m.cursor == i {
			cursor = cursorStyle.Render("▶ ")
			option = primaryTitleStyle.Render(option)
		}
		s.WriteString(fmt.Sprintf("%s%s\n", cursor, option))
	}

	s.WriteString("\n")
	s.WriteString(HelpStyle().Render("↑/↓: Navigate  Enter: Confirm  Y/N: Answer  Esc: Cancel"))
	s.WriteString("\n")
	return s.String()
}

// Confirmed reports whether the first option was chosen.
func (m ConfirmModel) Confirmed() bool {
	return m.confirmed
}

// RunConfirm shows the dialog on in/out and returns the answer. Cancelling
// ctx dismisses it as declined.
func RunConfirm(ctx context.Context, in io.Reader, out io.Writer, opts ConfirmOptions) (bool, error) {
	InitCommonStyles(out)

	p := tea.NewProgram(NewConfirmModel(opts),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return false, nil
		}
		return false, fmt.Errorf("error running prompt: %w", err)
	}
	return final.(ConfirmModel).Confirmed(), nil
}
