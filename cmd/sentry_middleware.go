package cmd

import (
	"errors"
	"strings"
	"time"

	sentrygo "github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"

	"github.com/smeup/signmeup-client/internal/version"
	"github.com/smeup/signmeup-client/sentry"
	"github.com/smeup/signmeup-client/tui"
)

// WrapCommandWithSentry wraps a cobra.Command's RunE function
// to automatically capture panics to Sentry
func WrapCommandWithSentry(cmd *cobra.Command) {
	if cmd.RunE == nil {
		return
	}

	originalRunE := cmd.RunE
	cmd.RunE = func(c *cobra.Command, args []string) error {
		defer sentry.CapturePanic(&sentry.EventOptions{
			Tags: sentry.NewTags().
				Set("command", cmd.Name()).
				Set("version", version.BuildVersion),
		})

		return originalRunE(c, args)
	}
}

// CaptureCommandError reports a failed command. Interrupted progress
// spinners are user cancellations and are not reported.
func CaptureCommandError(cmd *cobra.Command, err error) {
	if err == nil || cmd == nil {
		return
	}
	if errors.Is(err, tui.ErrInterrupted) {
		return
	}

	eventID := sentry.CaptureError(err, &sentry.EventOptions{
		Tags: sentry.NewTags().
			Set("command", cmd.Name()).
			Set("version", version.BuildVersion).
			Set("error_type", getErrorType(err)),
		Extra: sentry.NewExtra().
			Set("args", cmd.Flags().Args()),
		Level: ptr(getLogLevelForError(err)),
	})

	if eventID != nil {
		// os.Exit skips deferred flushes.
		sentry.Flush(2 * time.Second)
	}
}

// ptr is a helper to create a pointer to a value
func ptr[T any](v T) *T {
	return &v
}

// getLogLevelForError determines the appropriate Sentry level for an error
func getLogLevelForError(err error) sentrygo.Level {
	switch getErrorType(err) {
	case "credential_error", "manifest_error", "dev_build", "not_found":
		return sentrygo.LevelWarning
	case "network_error":
		if strings.Contains(strings.ToLower(err.Error()), "timeout") {
			return sentrygo.LevelWarning
		}
	}
	return sentrygo.LevelError
}

func init() {
	for _, c := range []*cobra.Command{runCmd, checkCmd, releaseCmd, selfUpdateCmd} {
		WrapCommandWithSentry(c)
	}
}
