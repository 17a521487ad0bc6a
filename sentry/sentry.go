// Package sentry wraps sentry-go for the CLI and the desktop shell. Every
// function is a no-op until Init succeeds with a non-empty DSN.
package sentry

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
)

// Config holds Sentry configuration options
type Config struct {
	DSN              string
	Environment      string // "dev" or "production"
	Release          string // e.g. "signmeup@1.0.2"
	Debug            bool
	SampleRate       float64
	TracesSampleRate float64
	// FilteredErrors drops events whose message contains any entry.
	FilteredErrors []string

	ServiceName string
	Commit      string
}

// BuildConfig returns the configuration for a build of serviceName.
func BuildConfig(dsn, serviceName, buildVersion, commit string) Config {
	env := "production"
	if buildVersion == "" || buildVersion == "dev" {
		env = "dev"
	}
	return Config{
		DSN:              dsn,
		Environment:      env,
		Release:          fmt.Sprintf("%s@%s", serviceName, buildVersion),
		SampleRate:       1.0,
		TracesSampleRate: 0.1,
		ServiceName:      serviceName,
		Commit:           commit,
		FilteredErrors:   []string{"context canceled"},
	}
}

// Init initializes Sentry. An empty DSN disables reporting.
func Init(cfg Config) error {
	if cfg.DSN == "" {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
		SampleRate:       cfg.SampleRate,
		TracesSampleRate: cfg.TracesSampleRate,
		EnableTracing:    cfg.TracesSampleRate > 0,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if filtered(event, cfg.FilteredErrors) {
				return nil
			}
			return event
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Sentry: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("service", cfg.ServiceName)
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetTag("go_version", runtime.Version())
		scope.SetTag("instance_id", InstanceID())
		if cfg.Commit != "" {
			scope.SetTag("build_commit", cfg.Commit)
		}
	})
	return nil
}

func filtered(event *sentry.Event, patterns []string) bool {
	for _, p := range patterns {
		if event.Message != "" && strings.Contains(event.Message, p) {
			return true
		}
		for _, exception := range event.Exception {
			if strings.Contains(exception.Value, p) {
				return true
			}
		}
	}
	return false
}

// Flush flushes buffered events with timeout
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// CaptureError captures an error with typed options
func CaptureError(err error, opts *EventOptions) *sentry.EventID {
	if err == nil {
		return nil
	}

	var eventID *sentry.EventID
	sentry.WithScope(func(scope *sentry.Scope) {
		opts.apply(scope)
		eventID = sentry.CaptureException(err)
	})
	return eventID
}

// AddBreadcrumb records context that is attached to later events.
func AddBreadcrumb(category string, message string, data map[string]interface{}, level Level) {
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Type:      "default",
		Category:  category,
		Message:   message,
		Data:      data,
		Level:     level,
		Timestamp: time.Now(),
	})
}

// Level is a Sentry severity level (re-exported for convenience)
type Level = sentry.Level

const (
	LevelDebug   = sentry.LevelDebug
	LevelInfo    = sentry.LevelInfo
	LevelWarning = sentry.LevelWarning
	LevelError   = sentry.LevelError
	LevelFatal   = sentry.LevelFatal
)

// CapturePanic should be used in a defer statement to capture and report panics.
// It recovers from panic, reports to Sentry, flushes, and re-panics.
func CapturePanic(opts *EventOptions) {
	if r := recover(); r != nil {
		sentry.WithScope(func(scope *sentry.Scope) {
			opts.apply(scope)
			scope.SetLevel(sentry.LevelFatal)
			sentry.CurrentHub().Recover(r)
		})
		sentry.Flush(5 * time.Second)
		panic(r)
	}
}

// InstanceID identifies the reporting machine without user data.
func InstanceID() string {
	for _, key := range []string{"HOSTNAME", "COMPUTERNAME"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "unknown"
}
