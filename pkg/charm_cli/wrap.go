// pkg/charm_cli/wrap.go

package charm_cli

import (
	"context"
	"os"
	"sync"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_err"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/logger"
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var initOnce sync.Once

// InitLogging sets up the process logger once. Commands that run outside
// Wrap (tests, completion) never touch the log file.
func InitLogging() {
	initOnce.Do(logger.InitializeWithFallback)
}

// Wrap ensures panic recovery, telemetry and logging around a command body.
func Wrap(fn func(rc *charm_io.RuntimeContext, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		InitLogging()

		rc := charm_io.NewContext(context.Background(), cmd.CommandPath())
		defer rc.End(&err)
		defer rc.HandlePanic(&err)

		logRuntimeExecutionContext(rc)

		err = fn(rc, cmd, args)
		if err != nil && !charm_err.IsExpectedUserError(err) {
			err = cerr.WithStack(err)
		}
		return err
	}
}

func logRuntimeExecutionContext(rc *charm_io.RuntimeContext) {
	fields := []zap.Field{
		zap.Int("pid", os.Getpid()),
		zap.Int("uid", os.Getuid()),
	}
	for _, key := range []string{"JUJU_UNIT_NAME", "JUJU_DISPATCH_PATH", "JUJU_MODEL_NAME"} {
		if v := os.Getenv(key); v != "" {
			fields = append(fields, zap.String(key, v))
			rc.Attributes[key] = v
		}
	}
	if wd, err := os.Getwd(); err == nil {
		fields = append(fields, zap.String("cwd", wd))
	}
	rc.Log.Debug("Runtime execution context", fields...)
}
