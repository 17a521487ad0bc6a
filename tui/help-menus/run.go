package helpmenus

import (
	"os"

	"github.com/spf13/cobra"
)

func RenderRunHelp(cmd *cobra.Command) {
	InitHelpStyles(os.Stdout)

	var p helpPage
	p.header("RUN COMMAND", "Open the desktop client")
	p.text(cmd.Long)

	p.section("USAGE")
	p.command("signmeup run", "Serve the packaged front-end and open it")
	p.gap()

	p.section("FLAGS")
	p.flag("--dev", "Load the front-end from the development server")
	p.flag("--no-browser", "Print the address instead of opening a browser")
	p.flag("--addr <host:port>", "Listen address (default 127.0.0.1:0)")
	p.gap()

	p.section("UPDATES")
	p.text("Packaged builds check for a new version on start. When one is found you are\n" +
		"asked before it is downloaded, and again before the client restarts to install it.")

	p.section("EXAMPLES")
	p.example("Run the installed client", "signmeup run")
	p.example("Develop against a local front-end", "SIGNMEUP_DEV_SERVER_URL=http://localhost:5173 signmeup run --dev")

	p.writeTo(os.Stdout)
}
