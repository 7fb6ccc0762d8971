// cmd/action/action.go

package action

import (
	"os"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_cli"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/cmd_helpers"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/juju"
	"github.com/spf13/cobra"
)

// ActionCmd runs a named action.
var ActionCmd = &cobra.Command{
	Use:     "action <name>",
	Short:   "Run a Juju action handler",
	Example: "  glauth-operator action set-confidential",
	Args:    cobra.ExactArgs(1),
	RunE: charm_cli.Wrap(func(rc *charm_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		d, _ := juju.DispatchFromEnv(os.Getenv)
		d.Kind = juju.KindAction
		d.Name = args[0]
		return cmd_helpers.RunDispatch(rc, cmd, d, cmd_helpers.Options{})
	}),
}
