// cmd/dispatch/dispatch.go

package dispatch

import (
	"os"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_cli"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_err"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/cmd_helpers"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/juju"
	"github.com/spf13/cobra"
)

// DispatchCmd handles whatever hook or action Juju is running, as named by
// JUJU_DISPATCH_PATH. The charm's dispatch script execs this command.
var DispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Handle the Juju event named by JUJU_DISPATCH_PATH",
	Args:  cobra.NoArgs,
	RunE: charm_cli.Wrap(func(rc *charm_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		d, err := juju.DispatchFromEnv(os.Getenv)
		if err != nil {
			return charm_err.NewExpectedError(rc.Ctx, err)
		}
		return cmd_helpers.RunDispatch(rc, cmd, d, cmd_helpers.Options{})
	}),
}
