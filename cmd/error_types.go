package cmd

import (
	"errors"
	"strings"

	"github.com/smeup/signmeup-client/internal/publish"
	"github.com/smeup/signmeup-client/internal/updater"
)

// getErrorType categorizes errors for better Sentry grouping
func getErrorType(err error) string {
	switch {
	case errors.Is(err, publish.ErrMissingToken):
		return "credential_error"
	case errors.Is(err, publish.ErrManifest):
		return "manifest_error"
	case errors.Is(err, updater.ErrChecksumMismatch):
		return "checksum_error"
	case errors.Is(err, updater.ErrDevBuild):
		return "dev_build"
	case errors.Is(err, errCheckFailed):
		return "update_check_error"
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "bad credentials") ||
		strings.Contains(errStr, "unauthorized"):
		return "auth_error"

	case strings.Contains(errStr, "403") ||
		strings.Contains(errStr, "forbidden") ||
		strings.Contains(errStr, "permission denied"):
		return "permission_error"

	case strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "dial") ||
		strings.Contains(errStr, "no route to host"):
		return "network_error"

	case strings.Contains(errStr, "not found") ||
		strings.Contains(errStr, "404"):
		return "not_found"

	case strings.Contains(errStr, "upload") ||
		strings.Contains(errStr, "release"):
		return "release_error"

	case strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504"):
		return "api_error"

	case strings.Contains(errStr, "config"):
		return "config_error"

	case strings.Contains(errStr, "yaml") ||
		strings.Contains(errStr, "json") ||
		strings.Contains(errStr, "unmarshal") ||
		strings.Contains(errStr, "parse"):
		return "parsing_error"

	default:
		return "unknown_error"
	}
}
