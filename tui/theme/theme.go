// Package theme holds the signmeup terminal palette. Styles are bound to a
// single lipgloss renderer so color detection follows the output stream.
package theme

import (
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Tone names a role in the palette.
type Tone int

const (
	Brand Tone = iota
	Muted
	Heading
	Ok
	Failure
	Caution
)

// Cash-desk palette: SmeUP blue on neutral greys, status tones kept apart
// from the brand color.
var palette = map[Tone]string{
	Brand:   "#3aa7e0",
	Muted:   "#8a94a0",
	Heading: "#eef3f7",
	Ok:      "#2fbf71",
	Failure: "#e5484d",
	Caution: "#f2a93b",
}

var (
	once     sync.Once
	renderer *lipgloss.Renderer
	styles   map[Tone]lipgloss.Style
)

// Init binds the palette to out. Only the first call has an effect.
func Init(out io.Writer) {
	once.Do(func() {
		renderer = lipgloss.NewRenderer(out)
		styles = make(map[Tone]lipgloss.Style, len(palette))
		for tone, hex := range palette {
			s := renderer.NewStyle().Foreground(lipgloss.Color(hex))
			if tone != Brand && tone != Muted {
				s = s.Bold(true)
			}
			styles[tone] = s
		}
	})
}

func Renderer() *lipgloss.Renderer {
	return renderer
}

// Color returns the hex value of tone.
func Color(tone Tone) lipgloss.Color {
	return lipgloss.Color(palette[tone])
}

// Text returns the foreground style of tone.
func Text(tone Tone) lipgloss.Style {
	return styles[tone]
}

// Panel is a rounded, padded box bordered in tone.
func Panel(tone Tone) lipgloss.Style {
	return renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Color(tone)).
		Padding(1, 2)
}
