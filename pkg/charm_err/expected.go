// pkg/charm_err/expected.go

package charm_err

import (
	"context"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// ExpectedUserError marks an error the operator can fix (bad action
// parameters, missing relation). The CLI exits 0 for these so the
// runtime does not retry the hook.
type ExpectedUserError struct {
	cause error
}

func (e *ExpectedUserError) Error() string { return e.cause.Error() }

func (e *ExpectedUserError) Unwrap() error { return e.cause }

// NewExpectedError wraps err as user-fixable and logs it at warn level.
func NewExpectedError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	otelzap.Ctx(ctx).Warn("Expected user error", zap.Error(err))
	return &ExpectedUserError{cause: err}
}

// IsExpectedUserError reports whether err was created with NewExpectedError.
func IsExpectedUserError(err error) bool {
	var ue *ExpectedUserError
	return cerr.As(err, &ue)
}

// ExtractSummary returns the last maxLines non-empty lines of command
// output, used to keep subprocess diagnostics short in logs and statuses.
func ExtractSummary(output string, maxLines int) string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			lines = append(lines, s)
		}
	}
	if len(lines) == 0 {
		return ""
	}
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return strings.Join(lines, " ")
}
