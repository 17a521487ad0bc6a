package cmd

import (
	"fmt"
	"os"

	"github.com/smeup/signmeup-client/tui"
)

func PrintError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, tui.RenderError(err))
	}
}

func PrintWarning(message string) {
	if message != "" {
		fmt.Fprintln(os.Stderr, tui.RenderWarning(message))
	}
}
