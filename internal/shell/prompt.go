package shell

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/term"

	"github.com/smeup/signmeup-client/tui"
)

// Prompt is a yes/no question shown to the user.
type Prompt struct {
	Title   string
	Message string
	Yes     string
	No      string
}

// Prompter asks the user before the shell downloads or installs an update.
type Prompter interface {
	Confirm(ctx context.Context, p Prompt) (bool, error)
	Alert(ctx context.Context, title, message string)
}

// NewPrompter returns a terminal prompter when in is a TTY and a headless one
// that always declines otherwise.
func NewPrompter(in *os.File, out io.Writer, logger *log.Logger) Prompter {
	if in != nil && term.IsTerminal(int(in.Fd())) {
		return &terminalPrompter{in: in, out: out}
	}
	return &headlessPrompter{logger: logger}
}

type terminalPrompter struct {
	in  io.Reader
	out io.Writer
}

func (p *terminalPrompter) Confirm(ctx context.Context, pr Prompt) (bool, error) {
	return tui.RunConfirm(ctx, p.in, p.out, tui.ConfirmOptions{
		Title:   pr.Title,
		Message: pr.Message,
		Yes:     pr.Yes,
		No:      pr.No,
	})
}

func (p *terminalPrompter) Alert(_ context.Context, title, message string) {
	fmt.Fprintln(p.out, tui.RenderAlert(title, message))
}

type headlessPrompter struct {
	logger *log.Logger
}

func (p *headlessPrompter) Confirm(_ context.Context, pr Prompt) (bool, error) {
	p.logger.Info("no terminal attached, declining prompt", "prompt", pr.Title)
	return false, nil
}

func (p *headlessPrompter) Alert(_ context.Context, title, message string) {
	p.logger.Error(title, "message", message)
}
