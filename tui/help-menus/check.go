package helpmenus

import (
	"os"

	"github.com/spf13/cobra"
)

func RenderCheckHelp(cmd *cobra.Command) {
	InitHelpStyles(os.Stdout)

	var p helpPage
	p.header("CHECK COMMAND", "Look for a new version of the desktop client")

	p.section("USAGE")
	p.command("signmeup check", "Print whether an update is available")
	p.gap()

	p.section("FLAGS")
	p.flag("--json", "Print the raw status object")
	p.gap()

	p.section("STATUS")
	p.command("available", "A newer release was found")
	p.command("not-available", "This is the latest release")
	p.command("timeout", "No answer within the check timeout")
	p.command("error", "The check failed; the exit code is 1")
	p.gap()

	p.section("EXAMPLES")
	p.example("Check from a script", "signmeup check --json")

	p.writeTo(os.Stdout)
}
