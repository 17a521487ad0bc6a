package helpmenus

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/smeup/signmeup-client/tui/theme"
)

var (
	initOnce         sync.Once
	HeaderStyle      lipgloss.Style
	SectionStyle     lipgloss.Style
	CommandStyle     lipgloss.Style
	CommandTextStyle lipgloss.Style
	DescStyle        lipgloss.Style
	LinkStyle        lipgloss.Style
	FlagStyle        lipgloss.Style
	ExampleStyle     lipgloss.Style
)

const (
	flagColorHex    = "#ff6b35"
	descColorHex    = "#f2f2f2"
	exampleColorHex = "#bcbcbc"

	boxWidth = 77
)

func InitHelpStyles(out io.Writer) {
	theme.Init(out)

	initOnce.Do(func() {
		r := theme.Renderer()

		HeaderStyle = theme.Text(theme.Brand).Bold(true).Padding(1, 0)
		SectionStyle = theme.Text(theme.Heading).MarginTop(1)
		CommandStyle = theme.Text(theme.Brand).Bold(true).Width(20)
		CommandTextStyle = theme.Text(theme.Brand).Bold(true)
		DescStyle = r.NewStyle().Foreground(lipgloss.Color(descColorHex))
		LinkStyle = theme.Text(theme.Heading).Underline(true)
		FlagStyle = r.NewStyle().Foreground(lipgloss.Color(flagColorHex)).Bold(true).Width(24)
		ExampleStyle = r.NewStyle().Foreground(lipgloss.Color(exampleColorHex)).Italic(true)
	})
}

// helpPage accumulates one help screen.
type helpPage struct {
	b strings.Builder
}

// header draws the boxed title with a subtitle centered under it.
func (p *helpPage) header(title, subtitle string) {
	line := func(s string) string {
		pad := boxWidth - lipgloss.Width(s)
		left := pad / 2
		return "│" + strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left) + "│\n"
	}
	var box strings.Builder
	box.WriteString("╭" + strings.Repeat("─", boxWidth) + "╮\n")
	box.WriteString(line(""))
	box.WriteString(line(title))
	if subtitle != "" {
		box.WriteString(line(subtitle))
	}
	box.WriteString(line(""))
	box.WriteString("╰" + strings.Repeat("─", boxWidth) + "╯")

	p.b.WriteString(HeaderStyle.Render(box.String()))
	p.b.WriteString("\n\n")
}

func (p *helpPage) text(s string) {
	if s == "" {
		return
	}
	p.b.WriteString(DescStyle.Render(s))
	p.b.WriteString("\n\n")
}

func (p *helpPage) section(name string) {
	p.b.WriteString(SectionStyle.Render("● " + name))
	p.b.WriteString("\n\n")
}

func (p *helpPage) command(name, desc string) {
	p.b.WriteString("  ")
	p.b.WriteString(CommandStyle.Render(name))
	p.b.WriteString(DescStyle.Render(desc))
	p.b.WriteString("\n")
}

func (p *helpPage) flag(name, desc string) {
	p.b.WriteString("  ")
	p.b.WriteString(FlagStyle.Render(name))
	p.b.WriteString(DescStyle.Render(desc))
	p.b.WriteString("\n")
}

func (p *helpPage) example(comment, command string) {
	p.b.WriteString("  ")
	p.b.WriteString(ExampleStyle.Render("# " + comment))
	p.b.WriteString("\n  ")
	p.b.WriteString(CommandTextStyle.Render(command))
	p.b.WriteString("\n\n")
}

func (p *helpPage) gap() {
	p.b.WriteString("\n")
}

func (p *helpPage) writeTo(out io.Writer) {
	fmt.Fprint(out, p.b.String())
}
