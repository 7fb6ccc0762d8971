// pkg/charm_err/classification.go
//
// Exit code classification for hook and action processes.

package charm_err

import (
	cerr "github.com/cockroachdb/errors"
)

const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitInternal = 3
)

// GetExitCode maps an error to the process exit code. Expected user errors
// exit cleanly; panics recovered by the CLI wrapper are internal errors.
func GetExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case IsExpectedUserError(err):
		return ExitOK
	case cerr.IsAssertionFailure(err):
		return ExitInternal
	default:
		return ExitFailure
	}
}

// Category returns a short label used for telemetry attributes.
func Category(err error) string {
	if err == nil {
		return ""
	}
	var (
		pe *PackageOperationError
		ne *NotInstalledError
		ce *ConfigurationError
		te *TemplateError
		ke *CertificateError
	)
	switch {
	case IsExpectedUserError(err):
		return "user"
	case cerr.As(err, &pe):
		return "package"
	case cerr.As(err, &ne):
		return "not_installed"
	case cerr.As(err, &ce):
		return "configuration"
	case cerr.As(err, &te):
		return "template"
	case cerr.As(err, &ke):
		return "certificate"
	default:
		return "system"
	}
}
