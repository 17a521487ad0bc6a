// Package version holds build metadata injected with -ldflags -X.
package version

var (
	// BuildVersion is the semantic version of this build, or "dev".
	BuildVersion = "dev"
	BuildCommit  = "none"
	BuildDate    = "unknown"

	// SentryDSN is empty unless set at build time; an empty DSN disables reporting.
	SentryDSN = ""
)

// IsDev reports whether this is an unversioned development build.
func IsDev() bool {
	return BuildVersion == "" || BuildVersion == "dev"
}
