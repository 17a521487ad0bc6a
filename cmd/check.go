package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/smeup/signmeup-client/internal/bridge"
	"github.com/smeup/signmeup-client/internal/version"
	"github.com/smeup/signmeup-client/tui"
	helpmenus "github.com/smeup/signmeup-client/tui/help-menus"
)

var checkJSON bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check once for a new version of the desktop client",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return runCheck(ctx, os.Stdout)
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the status as JSON")

	checkCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helpmenus.RenderCheckHelp(cmd)
	})

	rootCmd.AddCommand(checkCmd)
}

func runCheck(ctx context.Context, out io.Writer) error {
	env, err := loadEnv("check")
	if err != nil {
		return err
	}
	defer env.Close()

	updates, err := env.newUpdater(ctx)
	if err != nil {
		return err
	}
	b := bridge.New(updates, bridge.WithTimeout(env.cfg.Update.CheckTimeout))

	var status bridge.Status
	check := func() error {
		status = b.CheckForUpdates(ctx)
		return nil
	}
	if !checkJSON && isTerminal(out) {
		if err := tui.RunProgress("Checking for updates...", check); err != nil {
			return err
		}
	} else {
		_ = check()
	}

	return reportStatus(out, status, checkJSON)
}

// errCheckFailed is returned so the process exits non-zero after the status
// has been printed.
var errCheckFailed = errors.New("update check failed")

func reportStatus(out io.Writer, s bridge.Status, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(s); err != nil {
			return err
		}
		if s.State == bridge.StateError {
			return errCheckFailed
		}
		return nil
	}

	current := displayVersion(version.BuildVersion)
	switch s.State {
	case bridge.StateAvailable:
		latest := "unknown"
		if s.Info != nil {
			latest = displayVersion(s.Info.Version)
		}
		fmt.Fprintln(out, tui.RenderUpdateAvailable(current, latest))
		if s.Info != nil && s.Info.ReleaseName != "" {
			fmt.Fprintln(out, tui.RenderKeyValues("Release", [][2]string{
				{"Name", s.Info.ReleaseName},
				{"Date", s.Info.ReleaseDate},
			}))
		}
	case bridge.StateNotAvailable:
		fmt.Fprintln(out, tui.RenderUpToDate(current))
	case bridge.StateTimeout:
		PrintWarning("the update service did not answer in time")
	default:
		return fmt.Errorf("%w: %s", errCheckFailed, s.Error)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
