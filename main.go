package main

import (
	"time"

	"github.com/smeup/signmeup-client/cmd"
	"github.com/smeup/signmeup-client/internal/version"
	"github.com/smeup/signmeup-client/sentry"
)

func main() {
	// DSN is injected at build time - if empty, Sentry is disabled
	_ = sentry.Init(sentry.BuildConfig(version.SentryDSN, "signmeup", version.BuildVersion, version.BuildCommit))
	defer sentry.Flush(5 * time.Second)

	defer sentry.CapturePanic(&sentry.EventOptions{
		Tags: sentry.NewTags().Set("build_date", version.BuildDate),
	})

	cmd.Execute()
}
