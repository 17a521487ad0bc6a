package helpmenus

import (
	"os"

	"github.com/spf13/cobra"
)

func RenderSelfUpdateHelp(cmd *cobra.Command) {
	InitHelpStyles(os.Stdout)

	var p helpPage
	p.header("SELF-UPDATE COMMAND", "Update signmeup to the latest version")

	p.section("USAGE")
	p.command("signmeup self-update", "Download, verify and replace the running binary")
	p.gap()

	p.section("NOTES")
	p.text("Installs managed by Homebrew, Scoop or winget print the package manager command\n" +
		"instead. Set SIGNMEUP_NO_SELFUPDATE=1 to disable this command.")

	p.writeTo(os.Stdout)
}
