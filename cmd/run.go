package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/smeup/signmeup-client/internal/shell"
	"github.com/smeup/signmeup-client/internal/version"
	helpmenus "github.com/smeup/signmeup-client/tui/help-menus"
)

var (
	runDev       bool
	runNoBrowser bool
	runAddr      string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open the desktop client",
	Long:  "Serve the front-end on a loopback address, open it in the browser and keep it connected to the update service.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShell(cmd.Context())
	},
}

func init() {
	runCmd.Flags().BoolVar(&runDev, "dev", false, "load the front-end from the development server")
	runCmd.Flags().BoolVar(&runNoBrowser, "no-browser", false, "do not open the browser")
	runCmd.Flags().StringVar(&runAddr, "addr", "", "listen address (overrides listen_addr)")

	runCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helpmenus.RenderRunHelp(cmd)
	})

	rootCmd.AddCommand(runCmd)
}

func runShell(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := loadEnv("shell")
	if err != nil {
		return err
	}
	defer env.Close()

	packaged := !runDev && !version.IsDev()
	content, err := shell.ResolveContent(packaged, env.resourcesDir(), env.cfg.DevServerURL)
	if err != nil {
		return err
	}

	updates, err := env.newUpdater(ctx)
	if err != nil {
		return err
	}

	var open func(string) error
	if env.cfg.OpenBrowser && !runNoBrowser {
		open = openBrowser
	}

	app, err := shell.New(shell.Options{
		Packaged:     packaged,
		Version:      version.BuildVersion,
		Content:      content,
		Updates:      updates,
		CheckTimeout: env.cfg.Update.CheckTimeout,
		WindowGrace:  env.cfg.WindowGrace,
		Prompter:     shell.NewPrompter(os.Stdin, os.Stdout, env.logger),
		Open:         open,
		Logger:       env.logger,
	})
	if err != nil {
		return err
	}

	addr := env.cfg.ListenAddr
	if runAddr != "" {
		addr = runAddr
	}
	return app.Run(ctx, addr)
}

func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}

	return cmd.Start()
}
