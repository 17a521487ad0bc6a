package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/smeup/signmeup-client/internal/config"
	"github.com/smeup/signmeup-client/internal/logging"
	"github.com/smeup/signmeup-client/internal/publish"
	"github.com/smeup/signmeup-client/tui"
)

var releaseCmd = &cobra.Command{
	Use:   "release [--owner o] [--repo r] [--title t] [--notes n] [--assets path...]",
	Short: "Publish build artifacts to a GitHub release",
	Long: "Ensure the GitHub release v<version> exists for the version in package.json and upload\n" +
		"the given assets, or the matching files in dist/, replacing assets with the same name.",
	// Arguments are parsed by the publisher so --assets can take many values
	// and unknown flags are ignored.
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		return runRelease(ctx, args, wd, os.Stderr, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(releaseCmd)
}

func runRelease(ctx context.Context, args []string, workDir string, logOut, out io.Writer) error {
	// A missing .env is fine; the token may come from the environment.
	_ = godotenv.Load(filepath.Join(workDir, ".env"))

	logger, closer, err := logging.New(logging.Options{Level: "info", Out: logOut})
	if err != nil {
		return err
	}
	defer closer.Close()

	res, err := publish.Run(ctx, publish.RunOptions{
		Args:    args,
		WorkDir: workDir,
		Token:   config.TokenFromEnv(),
		NewAPI: func(token string) (publish.ReleasesAPI, error) {
			client, err := publish.NewClient(ctx, token, os.Getenv("GITHUB_API_URL"))
			if err != nil {
				return nil, err
			}
			return client.Repositories, nil
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	if res.Release != nil && len(res.Uploaded) > 0 {
		rows := [][2]string{
			{"Tag", res.Release.GetTagName()},
			{"Uploaded", strings.Join(res.Uploaded, ", ")},
		}
		if len(res.Skipped) > 0 {
			rows = append(rows, [2]string{"Skipped", fmt.Sprint(len(res.Skipped))})
		}
		if url := res.Release.GetHTMLURL(); url != "" {
			rows = append(rows, [2]string{"URL", url})
		}
		fmt.Fprintln(out, tui.RenderKeyValues("Release published", rows))
	}
	return nil
}
