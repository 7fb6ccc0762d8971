package testutil

import (
	"context"
	"testing"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/execute"
	cerr "github.com/cockroachdb/errors"
	"go.uber.org/zap/zaptest"
)

// TestRuntimeContext returns a RuntimeContext whose logger writes to t.Log.
func TestRuntimeContext(t *testing.T) *charm_io.RuntimeContext {
	t.Helper()
	return &charm_io.RuntimeContext{
		Ctx:        context.Background(),
		Log:        zaptest.NewLogger(t),
		Command:    t.Name(),
		Attributes: map[string]string{},
	}
}

// CommandFailure builds the error a real runner returns for a failed command.
func CommandFailure(command, output string, code int) error {
	return cerr.WithStack(&execute.ExitError{
		Command:  command,
		ExitCode: code,
		Output:   output,
		Err:      cerr.Newf("exit status %d", code),
	})
}
