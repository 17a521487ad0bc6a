package helpmenus

import (
	"os"

	"github.com/spf13/cobra"
)

func RenderCompletionHelp(cmd *cobra.Command) {
	InitHelpStyles(os.Stdout)

	var p helpPage
	p.header("COMPLETION COMMAND", "Generate shell autocompletion scripts")
	p.text(cmd.Long)

	p.section("USAGE")
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		p.command(shell, "signmeup completion "+shell)
	}
	p.gap()

	p.section("SETUP")
	p.command("1. Generate", "Run: signmeup completion <shell>")
	p.command("2. Save", "Save the output to your shell configuration")
	p.command("3. Reload", "Restart the terminal or source the file")
	p.gap()

	p.section("EXAMPLES")
	p.example("Load completions for the current zsh session", "source <(signmeup completion zsh)")

	p.writeTo(os.Stdout)
}
