// pkg/charm_err/errors.go
//
// Error taxonomy for the GLAuth operator. Only PackageOperationError is
// translated into an operator-visible status; everything else is returned
// out of the hook so the runtime redelivers it.

package charm_err

import (
	"fmt"

	cerr "github.com/cockroachdb/errors"
)

// PackageOperationError is returned when snapd rejects an install, refresh
// or remove.
type PackageOperationError struct {
	Op      string
	Package string
	Message string
	Cause   error
}

func (e *PackageOperationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("snap %s %s failed", e.Op, e.Package)
	}
	return e.Message
}

func (e *PackageOperationError) Unwrap() error { return e.Cause }

// NewPackageOperationError builds a PackageOperationError whose message is
// the package manager's own diagnostic.
func NewPackageOperationError(op, pkg, message string, cause error) error {
	return cerr.WithStack(&PackageOperationError{
		Op:      op,
		Package: pkg,
		Message: message,
		Cause:   cause,
	})
}

// AsPackageOperationError unwraps err into a PackageOperationError.
func AsPackageOperationError(err error) (*PackageOperationError, bool) {
	var pe *PackageOperationError
	if cerr.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// NotInstalledError signals a status or version query before install.
type NotInstalledError struct {
	Package string
}

func (e *NotInstalledError) Error() string {
	return fmt.Sprintf("%s snap not installed, cannot fetch version", e.Package)
}

func NewNotInstalledError(pkg string) error {
	return cerr.WithStack(&NotInstalledError{Package: pkg})
}

// IsNotInstalled reports whether err is a NotInstalledError.
func IsNotInstalled(err error) bool {
	var ne *NotInstalledError
	return cerr.As(err, &ne)
}

// ConfigurationError covers a malformed archive or a configuration directory
// that could not be written. No cleanup of partial state is attempted.
type ConfigurationError struct {
	Path  string
	Cause error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error at %s: %v", e.Path, e.Cause)
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }

func NewConfigurationError(path string, cause error) error {
	return cerr.WithStack(&ConfigurationError{Path: path, Cause: cause})
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return cerr.As(err, &ce)
}

// TemplateError means the bundled template is missing, malformed, or
// renders to something that is not valid configuration.
type TemplateError struct {
	Template string
	Cause    error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %s: %v", e.Template, e.Cause)
}

func (e *TemplateError) Unwrap() error { return e.Cause }

func NewTemplateError(name string, cause error) error {
	return cerr.WithStack(&TemplateError{Template: name, Cause: cause})
}

// IsTemplateError reports whether err is a TemplateError.
func IsTemplateError(err error) bool {
	var te *TemplateError
	return cerr.As(err, &te)
}

// CertificateError wraps a failed key/certificate generation. It is never
// converted into a status message.
type CertificateError struct {
	CommonName string
	Cause      error
}

func (e *CertificateError) Error() string {
	return fmt.Sprintf("certificate generation for CN=%s failed: %v", e.CommonName, e.Cause)
}

func (e *CertificateError) Unwrap() error { return e.Cause }

func NewCertificateError(cn string, cause error) error {
	return cerr.WithStack(&CertificateError{CommonName: cn, Cause: cause})
}
