// Package cmd_helpers builds the operator's runtime dependencies for
// commands so every entry point resolves configuration the same way.
package cmd_helpers

import (
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/config"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/juju"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/orchestrator"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// FlagEnvFile names the persistent flag holding the env file path.
const FlagEnvFile = "env-file"

// Options controls how configuration is resolved.
type Options struct {
	// UseJujuConfig merges `config-get` output. Only valid inside a hook
	// or action context.
	UseJujuConfig bool
	// Runner overrides execute.DefaultRunner.
	Runner execute.Runner
}

// OperatorContainer holds the resolved configuration and the operator
// built from it.
type OperatorContainer struct {
	Config   *config.Config
	Runner   execute.Runner
	Tools    *juju.Client
	Operator *orchestrator.Operator
}

// LoadConfig resolves configuration for cmd: defaults, the env file named
// by --env-file, Juju config when requested, GLAUTH_* variables, then flags
// set explicitly on the command line.
func LoadConfig(rc *charm_io.RuntimeContext, cmd *cobra.Command, opts Options) (*config.Config, error) {
	log := otelzap.Ctx(rc.Ctx)

	envFile, _ := cmd.Flags().GetString(FlagEnvFile)
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}

	v := config.New()
	if opts.UseJujuConfig {
		values, err := juju.New(runnerOrDefault(opts.Runner)).ConfigGet(rc)
		if err != nil {
			return nil, err
		}
		log.Debug("Merging Juju application config", zap.Int("keys", len(values)))
		if err := config.MergeJuju(v, values); err != nil {
			return nil, err
		}
	}
	if err := config.BindFlagsToViper(cmd, v); err != nil {
		return nil, err
	}
	return config.Load(rc, v)
}

// NewOperatorContainer loads configuration and wires the operator.
func NewOperatorContainer(rc *charm_io.RuntimeContext, cmd *cobra.Command, opts Options) (*OperatorContainer, error) {
	runner := runnerOrDefault(opts.Runner)
	opts.Runner = runner

	cfg, err := LoadConfig(rc, cmd, opts)
	if err != nil {
		return nil, err
	}
	op, err := orchestrator.Build(cfg, runner)
	if err != nil {
		return nil, err
	}
	return &OperatorContainer{
		Config:   cfg,
		Runner:   runner,
		Tools:    juju.New(runner),
		Operator: op,
	}, nil
}

// RunDispatch handles d with a freshly built operator. Dispatches the
// operator has no handler for succeed without loading configuration.
func RunDispatch(rc *charm_io.RuntimeContext, cmd *cobra.Command, d juju.Dispatch, opts Options) error {
	log := otelzap.Ctx(rc.Ctx)

	ev, ok := orchestrator.EventFor(d)
	if !ok {
		log.Info("No handler for event", zap.String("kind", string(d.Kind)), zap.String("name", d.Name))
		return nil
	}
	rc.Attributes["signal"] = string(ev.Signal)

	opts.UseJujuConfig = true
	container, err := NewOperatorContainer(rc, cmd, opts)
	if err != nil {
		return err
	}
	return container.Operator.Handle(rc, ev)
}

func runnerOrDefault(r execute.Runner) execute.Runner {
	if r == nil {
		return execute.DefaultRunner
	}
	return r
}
