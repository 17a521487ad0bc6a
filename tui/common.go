// Package tui renders the terminal side of signmeup: styled messages, the
// update prompts and progress spinners.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"github.com/smeup/signmeup-client/tui/theme"
)

var (
	helpStyle    lipgloss.Style
	errorStyle   lipgloss.Style
	warningStyle lipgloss.Style
	successStyle lipgloss.Style

	primaryStyle      lipgloss.Style
	primaryTitleStyle lipgloss.Style
	cursorStyle       lipgloss.Style
	labelStyle        lipgloss.Style
	subtleTextStyle   lipgloss.Style
	warningBoxStyle   lipgloss.Style
	errorBoxStyle     lipgloss.Style
	infoBoxStyle      lipgloss.Style
)

func InitCommonStyles(out io.Writer) {
	theme.Init(out)

	helpStyle = theme.Text(theme.Muted).Italic(true)
	errorStyle = theme.Text(theme.Failure)
	warningStyle = theme.Text(theme.Caution)
	successStyle = theme.Text(theme.Ok)

	primaryStyle = theme.Text(theme.Brand)
	primaryTitleStyle = primaryStyle.Bold(true)
	cursorStyle = primaryStyle
	labelStyle = theme.Text(theme.Heading)
	subtleTextStyle = theme.Text(theme.Muted)
	warningBoxStyle = theme.Panel(theme.Caution).Foreground(theme.Color(theme.Caution))
	errorBoxStyle = theme.Panel(theme.Failure)
	infoBoxStyle = theme.Panel(theme.Brand)
}

func RenderWarning(message string) string {
	if message == "" {
		return ""
	}
	return warningStyle.Render("⚠ Warning: " + message)
}

func RenderError(err error) string {
	if err == nil {
		return ""
	}
	return errorStyle.Render("✗ Error: " + err.Error())
}

// RenderAlert draws a boxed error dialog.
func RenderAlert(title, message string) string {
	var b strings.Builder
	b.WriteString(errorStyle.Render("✗ " + title))
	if message != "" {
		b.WriteString("\n\n")
		b.WriteString(message)
	}
	return errorBoxStyle.Render(b.String())
}

// RenderKeyValues renders aligned label/value rows inside an info box.
func RenderKeyValues(title string, rows [][2]string) string {
	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r[0]))
	}

	var b strings.Builder
	b.WriteString(primaryTitleStyle.Render(title))
	for _, r := range rows {
		b.WriteString("\n")
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-*s", width, r[0])))
		b.WriteString("  ")
		b.WriteString(r[1])
	}
	return infoBoxStyle.Render(b.String())
}

func PrimaryStyle() lipgloss.Style {
	return primaryStyle
}

func PrimaryTitleStyle() lipgloss.Style {
	return primaryTitleStyle
}

func LabelStyle() lipgloss.Style {
	return labelStyle
}

func SubtleTextStyle() lipgloss.Style {
	return subtleTextStyle
}

func WarningBoxStyle() lipgloss.Style {
	return warningBoxStyle
}

func HelpStyle() lipgloss.Style {
	return helpStyle
}

func WarningStyle() lipgloss.Style {
	return warningStyle
}

func SuccessStyle() lipgloss.Style {
	return successStyle
}

func ErrorStyle() lipgloss.Style {
	return errorStyle
}

func ResetLine(out io.Writer) {
	if out == nil {
		return
	}
	_, _ = io.WriteString(out, "\r\x1b[2K")
}

func ShowCursor(out io.Writer) {
	if out == nil {
		return
	}
	_, _ = io.WriteString(out, "\x1b[?25h")
}

func NewPrimarySpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = primaryStyle
	return s
}
