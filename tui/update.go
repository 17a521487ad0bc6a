package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type updateStyles struct {
	version    lipgloss.Style
	arrow      lipgloss.Style
	command    lipgloss.Style
	spinnerMsg lipgloss.Style
}

func newUpdateStyles() updateStyles {
	return updateStyles{
		version:    PrimaryStyle().Bold(true),
		arrow:      SubtleTextStyle(),
		command:    PrimaryStyle().Bold(true),
		spinnerMsg: LabelStyle().Bold(false),
	}
}

func RenderUpToDate(version string) string {
	InitCommonStyles(os.Stdout)
	return SuccessStyle().Render(fmt.Sprintf("✓ signmeup is already up-to-date (%s)", version))
}

func RenderUpdateAvailable(currentVer, latestVer string) string {
	InitCommonStyles(os.Stdout)
	styles := newUpdateStyles()
	return fmt.Sprintf("%s %s %s %s",
		WarningStyle().Render("⚠ Update available:"),
		styles.version.Render(currentVer),
		styles.arrow.Render("→"),
		styles.version.Render(latestVer))
}

func RenderUpdating(currentVer, latestVer string) string {
	InitCommonStyles(os.Stdout)
	styles := newUpdateStyles()
	return fmt.Sprintf("%s %s %s %s%s",
		PrimaryStyle().Render("Updating signmeup from"),
		styles.version.Render(currentVer),
		styles.arrow.Render("to"),
		styles.version.Render(latestVer),
		PrimaryStyle().Render("..."))
}

// RenderPMInstructions explains how to update an install owned by a package
// manager.
func RenderPMInstructions(pm, currentVer, latestVer string) string {
	InitCommonStyles(os.Stdout)
	styles := newUpdateStyles()

	var content strings.Builder
	content.WriteString(fmt.Sprintf("Update available: %s → %s\n\n",
		styles.version.Render(currentVer),
		styles.version.Render(latestVer)))

	var pmName, command string
	switch pm {
	case "homebrew":
		pmName, command = "Homebrew", "brew upgrade signmeup"
	case "scoop":
		pmName, command = "Scoop", "scoop update signmeup"
	case "winget":
		pmName, command = "Windows Package Manager", "winget upgrade Smeup.signmeup"
	default:
		pmName, command = "a package manager", "your package manager's upgrade command"
	}

	content.WriteString(fmt.Sprintf("This installation is managed by %s.\n", pmName))
	content.WriteString(fmt.Sprintf("Run: %s", styles.command.Render(command)))

	return WarningBoxStyle().Render(content.String())
}

func RenderUpdateSuccess(version string) string {
	InitCommonStyles(os.Stdout)
	return SuccessStyle().Render(fmt.Sprintf("✓ Updated to %s. Please re-run your command.", version))
}

func RenderUpdateFailed(err error, releaseURL string) string {
	InitCommonStyles(os.Stdout)
	var content strings.Builder
	content.WriteString(ErrorStyle().Render(fmt.Sprintf("✗ Update failed: %v", err)))
	if releaseURL != "" {
		content.WriteString("\n")
		content.WriteString(HelpStyle().Render(fmt.Sprintf("You can download the latest version from: %s", releaseURL)))
	}
	return content.String()
}

// ProgressModel shows a spinner while action runs.
type ProgressModel struct {
	spinner  spinner.Model
	message  string
	quitting bool
	done     bool
	err      error
	action   func() error
	styles   updateStyles
}

type actionDoneMsg struct {
	err error
}

func runAction(action func() error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{err: action()}
	}
}

func NewProgressModel(message string, action func() error) ProgressModel {
	InitCommonStyles(os.Stdout)
	return ProgressModel{
		spinner: NewPrimarySpinner(),
		message: message,
		action:  action,
		styles:  newUpdateStyles(),
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, runAction(m.action))
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case actionDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m ProgressModel) View() string {
	if m.quitting || m.done {
		return ""
	}
	return fmt.Sprintf("%s %s\n", m.spinner.View(), m.styles.spinnerMsg.Render(m.message))
}

// ErrInterrupted is returned by RunProgress when the user pressed ctrl+c
// before the action finished.
var ErrInterrupted = errors.New("interrupted")

// RunProgress runs action behind a spinner and returns its error.
func RunProgress(message string, action func() error) error {
	p := tea.NewProgram(NewProgressModel(message, action))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("error running progress: %w", err)
	}

	result := final.(ProgressModel)
	if result.quitting && !result.done {
		return ErrInterrupted
	}
	return result.err
}
