package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"github.com/smeup/signmeup-client/internal/config"
	"github.com/smeup/signmeup-client/internal/version"
	"github.com/smeup/signmeup-client/tui"
	helpmenus "github.com/smeup/signmeup-client/tui/help-menus"
)

// checksumsFile is published next to the CLI archives.
const checksumsFile = "checksums.txt"

var selfUpdateCmd = &cobra.Command{
	Use:   "self-update",
	Short: "Update signmeup to the latest version",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		return runSelfUpdate(ctx)
	},
}

func init() {
	selfUpdateCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helpmenus.RenderSelfUpdateHelp(cmd)
	})

	rootCmd.AddCommand(selfUpdateCmd)
}

func runSelfUpdate(ctx context.Context) error {
	if os.Getenv(config.EnvPrefix+"_NO_SELFUPDATE") == "1" {
		return fmt.Errorf("self-update is disabled (%s_NO_SELFUPDATE=1)", config.EnvPrefix)
	}

	currentVersion := version.BuildVersion
	if version.IsDev() {
		return errors.New("development build detected; download the latest release manually")
	}

	env, err := loadEnv("self-update")
	if err != nil {
		return err
	}
	defer env.Close()

	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{
		APIToken:          env.cfg.Update.Token,
		EnterpriseBaseURL: env.cfg.Update.APIURL,
	})
	if err != nil {
		return fmt.Errorf("failed to create release source: %w", err)
	}
	updater, err := selfupdate.NewUpdater(selfupdate.Config{
		Source:     source,
		Validator:  &selfupdate.ChecksumValidator{UniqueFilename: checksumsFile},
		Prerelease: env.cfg.Update.AllowPrerelease,
	})
	if err != nil {
		return err
	}

	slug := selfupdate.NewRepositorySlug(env.cfg.Update.Owner, env.cfg.Update.Repo)
	latest, found, err := updater.DetectLatest(ctx, slug)
	if err != nil {
		return fmt.Errorf("error occurred while detecting version: %w", err)
	}
	if !found {
		return fmt.Errorf("no release found for %s/%s", runtime.GOOS, runtime.GOARCH)
	}

	if latest.LessOrEqual(currentVersion) {
		fmt.Println(tui.RenderUpToDate(displayVersion(currentVersion)))
		return nil
	}

	binPath, _ := getCurrentBinaryPath()
	if binPath != "" && isPMManaged(binPath) {
		fmt.Println(tui.RenderPMInstructions(detectPackageManager(binPath), displayVersion(currentVersion), displayVersion(latest.Version())))
		return errors.New("cannot self-update: installation is managed by a package manager")
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}

	fmt.Println(tui.RenderUpdating(displayVersion(currentVersion), displayVersion(latest.Version())))
	err = tui.RunProgress("Downloading and verifying...", func() error {
		return updater.UpdateTo(ctx, latest, exe)
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, tui.RenderUpdateFailed(err, latest.URL))
		return fmt.Errorf("error occurred while updating binary: %w", err)
	}

	fmt.Println(tui.RenderUpdateSuccess(displayVersion(latest.Version())))
	return nil
}

func displayVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	if strings.HasPrefix(v, "v") || strings.HasPrefix(v, "V") {
		return v
	}
	return "v" + v
}

func isPMManaged(binPath string) bool {
	return detectPackageManager(binPath) != ""
}

func detectPackageManager(binPath string) string {
	p := strings.ToLower(binPath)
	switch {
	case strings.Contains(p, "/opt/homebrew/") || strings.Contains(p, "/usr/local/cellar/"):
		return "homebrew"
	case strings.Contains(p, "\\scoop\\apps\\"):
		return "scoop"
	case strings.Contains(p, "windowsapps"):
		return "winget"
	}
	return ""
}
