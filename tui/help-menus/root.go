package helpmenus

import (
	"os"

	"github.com/spf13/cobra"
)

func RenderRootHelp(cmd *cobra.Command) {
	InitHelpStyles(os.Stdout)

	var p helpPage
	p.header("SIGNMEUP", "Desktop client and release tooling")
	p.text(cmd.Long)

	p.section("DESKTOP")
	p.command("run", "Open the desktop client and keep it up to date")
	p.command("check", "Check once for a new version of the desktop client")
	p.gap()

	p.section("RELEASES")
	p.command("release", "Publish build artifacts to a GitHub release")
	p.gap()

	p.section("CLI")
	p.command("self-update", "Update signmeup to the latest version")
	p.command("completion", "Generate shell autocompletion scripts")
	p.gap()

	p.section("GLOBAL FLAGS")
	p.flag("--config <file>", "Config file (default <user config dir>/signmeup/config.yaml)")
	p.flag("--log-level <level>", "debug, info, warn or error")
	p.flag("-v, --version", "Print the version")
	p.gap()

	p.section("EXAMPLES")
	p.example("Start the client against the dev server", "signmeup run --dev")
	p.example("Publish the current build", "signmeup release --owner smeup --repo signmeup-client")

	p.b.WriteString("  ")
	p.b.WriteString(DescStyle.Render("Run "))
	p.b.WriteString(CommandTextStyle.Render("signmeup <command> --help"))
	p.b.WriteString(DescStyle.Render(" for details on a command."))
	p.b.WriteString("\n\n")

	p.writeTo(os.Stdout)
}
