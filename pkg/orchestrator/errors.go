// pkg/orchestrator/errors.go
package orchestrator

import (
	"fmt"
	"strings"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_err"
)

// Step is the part of a handler where an error occurred.
type Step string

const (
	StepPackage     Step = "package"
	StepProvision   Step = "provision"
	StepCertificate Step = "certificate"
	StepPublish     Step = "publish"
)

// HandlerError records which signal and step failed, with a suggested fix
// for the operator reading the unit log.
type HandlerError struct {
	Signal      Signal
	Step        Step
	Original    error
	Remediation string
}

func (e *HandlerError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s failed during %s", e.Signal, e.Step))
	if e.Original != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Original))
	}
	if e.Remediation != "" {
		sb.WriteString(fmt.Sprintf("\nSuggested fix: %s", e.Remediation))
	}
	return sb.String()
}

func (e *HandlerError) Unwrap() error { return e.Original }

// wrapStep returns nil for a nil err.
func wrapStep(sig Signal, step Step, err error) error {
	if err == nil {
		return nil
	}
	return &HandlerError{
		Signal:      sig,
		Step:        step,
		Original:    err,
		Remediation: remediationFor(step, err),
	}
}

func remediationFor(step Step, err error) string {
	switch {
	case charm_err.IsTemplateError(err):
		return "the bundled template produced invalid configuration; check ldap-port, api-port and base-dn"
	case charm_err.IsConfigurationError(err):
		return "re-upload the config resource as a zip of plain files, or detach it to use the default configuration"
	}
	switch step {
	case StepPackage:
		return "check that snapd is running: snap changes"
	case StepCertificate:
		return "remove the partial key or certificate file and let the next hook regenerate both"
	case StepPublish:
		return "check the secret backend; for vault, verify VAULT_ADDR, VAULT_TOKEN and vault-mount"
	}
	return ""
}
