/* cmd/root.go */

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_cli"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_err"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/cmd_helpers"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/config"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/logger"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/shared"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	// Subcommands
	"github.com/CodeMonkeyCybersecurity/glauth-operator/cmd/action"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/cmd/dispatch"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/cmd/hook"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/cmd/provision"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/cmd/read"
)

// RootCmd is the base command for glauth-operator.
var RootCmd = &cobra.Command{
	Use:     shared.OperatorID,
	Short:   "Install, configure and integrate the GLAuth LDAP snap",
	Version: shared.Version,
	Long: `glauth-operator manages the GLAuth snap on a host. Inside a Juju unit it
is invoked by the charm's dispatch script for every hook and action; outside
Juju it can provision configuration and report status directly.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: charm_cli.Wrap(func(rc *charm_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		rc.Log.Info("No subcommand provided")
		return cmd.Help()
	}),
}

// HelpCmd wraps help so that it can be invoked like a normal command.
var HelpCmd = &cobra.Command{
	Use:   "help",
	Short: "Help about any command",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return RootCmd.Help()
		}
		c, _, err := RootCmd.Find(args)
		if err != nil || c == nil {
			return fmt.Errorf("command not found: %s", strings.Join(args, " "))
		}
		return c.Help()
	},
}

// RegisterCommands adds all subcommands and persistent flags to the root.
func RegisterCommands() {
	RootCmd.SetHelpCommand(HelpCmd)

	config.AddFlags(RootCmd.PersistentFlags())
	RootCmd.PersistentFlags().String(cmd_helpers.FlagEnvFile, shared.DefaultEnvFile, "KEY=value file exported before configuration is read")

	for _, subCmd := range []*cobra.Command{
		dispatch.DispatchCmd,
		hook.HookCmd,
		action.ActionCmd,
		read.ReadCmd,
		provision.ProvisionCmd,
	} {
		RootCmd.AddCommand(subCmd)
	}
}

// Execute initializes telemetry and runs the root command, exiting with the
// code the error classification assigns.
func Execute() {
	if err := telemetry.Init(shared.OperatorID); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry disabled: %v\n", err)
	}

	RegisterCommands()

	err := RootCmd.Execute()

	if shutdownErr := telemetry.Shutdown(context.Background()); shutdownErr != nil {
		logger.L().Warn("Failed to flush telemetry", zap.Error(shutdownErr))
	}

	code := charm_err.GetExitCode(err)
	switch {
	case err == nil:
	case code == charm_err.ExitOK:
		logger.L().Warn("Command completed with user error", zap.Error(err))
	default:
		logger.L().Error("Command failed",
			zap.Error(err),
			zap.String("category", charm_err.Category(err)),
			zap.String("stack", fmt.Sprintf("%+v", err)))
	}
	shared.SafeSync()
	os.Exit(code)
}
