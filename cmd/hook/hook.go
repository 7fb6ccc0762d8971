// cmd/hook/hook.go

package hook

import (
	"os"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_cli"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/cmd_helpers"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/juju"
	"github.com/spf13/cobra"
)

// HookCmd runs a named hook, for charms that ship one script per hook.
var HookCmd = &cobra.Command{
	Use:   "hook <name>",
	Short: "Run a Juju hook handler",
	Long: `Run the handler for a Juju hook such as install, upgrade-charm, remove,
update-status, config-changed or ldap-client-relation-changed. Relation
context is read from the JUJU_* environment.`,
	Example: "  glauth-operator hook install",
	Args:    cobra.ExactArgs(1),
	RunE: charm_cli.Wrap(func(rc *charm_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		d, _ := juju.DispatchFromEnv(os.Getenv)
		d.Kind = juju.KindHook
		d.Name = args[0]
		return cmd_helpers.RunDispatch(rc, cmd, d, cmd_helpers.Options{})
	}),
}
