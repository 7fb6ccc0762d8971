// pkg/orchestrator/operator.go
//
// Package orchestrator turns Juju lifecycle and integration events into
// calls on the package controller, the configuration provisioner and the
// certificate bootstrapper, and publishes the outcome as unit status,
// workload version, relation data and secrets.

package orchestrator

import (
	"os"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/certs"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/config"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/glauth"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/juju"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/ldap"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/secrets"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/snap"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/state"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// PackageController is the snap surface the lifecycle needs. Ensure installs
// or refreshes and reports the record snapd holds afterwards.
type PackageController interface {
	Ensure(rc *charm_io.RuntimeContext) snap.Result
	Remove(rc *charm_io.RuntimeContext) error
	Hold(rc *charm_io.RuntimeContext) error
	Status(rc *charm_io.RuntimeContext) (snap.Record, error)
	Version(rc *charm_io.RuntimeContext) (string, error)
}

// CertificateEnsurer makes TLS material available and starts the service.
type CertificateEnsurer interface {
	EnsureCertificate(rc *charm_io.RuntimeContext, commonName string) (string, error)
}

// EndpointProber checks the advertised URI.
type EndpointProber interface {
	Probe(rc *charm_io.RuntimeContext, uri string) (ldap.ProbeResult, error)
}

// HookTools is the Juju surface the orchestrator drives.
type HookTools interface {
	StatusSet(rc *charm_io.RuntimeContext, status juju.Status, message string) error
	ApplicationVersionSet(rc *charm_io.RuntimeContext, version string) error
	IsLeader(rc *charm_io.RuntimeContext) (bool, error)
	RelationIDs(rc *charm_io.RuntimeContext, endpoint string) ([]string, error)
	RelationGet(rc *charm_io.RuntimeContext, relID, member string, app bool) (map[string]string, error)
	RelationSet(rc *charm_io.RuntimeContext, relID string, app bool, data map[string]string) error
	ActionGet(rc *charm_io.RuntimeContext) (map[string]string, error)
	ActionSet(rc *charm_io.RuntimeContext, results map[string]string) error
	ActionFail(rc *charm_io.RuntimeContext, message string) error
	ResourceGet(rc *charm_io.RuntimeContext, name string) (string, error)
	Log(rc *charm_io.RuntimeContext, level, message string) error
}

// Operator handles one event per process. App names the local application,
// whose peer databag holds the secret ids shared between leaders.
type Operator struct {
	App         string
	Config      *config.Config
	Snap        PackageController
	Provisioner *glauth.Provisioner
	Certs       CertificateEnsurer
	Tools       HookTools
	Secrets     secrets.Publisher
	Prober      EndpointProber
}

// Build wires the production components for cfg.
func Build(cfg *config.Config, runner execute.Runner) (*Operator, error) {
	if runner == nil {
		runner = execute.DefaultRunner
	}
	tools := juju.New(runner)
	snapCtl := snap.New(runner, cfg.Channel, cfg.HoldDays)

	publisher, err := NewPublisher(cfg, tools)
	if err != nil {
		return nil, err
	}

	return &Operator{
		App:         juju.Dispatch{Unit: os.Getenv("JUJU_UNIT_NAME")}.Application(),
		Config:      cfg,
		Snap:        snapCtl,
		Provisioner: glauth.NewProvisioner(cfg.ConfigDir, cfg.HostnameFile, cfg.BaseDN),
		Certs:       certs.NewBootstrapper(cfg.CertPath, cfg.KeyPath, runner, snapCtl),
		Tools:       tools,
		Secrets:     publisher,
		Prober:      ldap.Prober{CACert: readOptional(cfg.CertPath)},
	}, nil
}

// NewPublisher selects the secret backend named in cfg.
func NewPublisher(cfg *config.Config, tools secrets.SecretTools) (secrets.Publisher, error) {
	switch cfg.SecretBackend {
	case secrets.BackendVault:
		client, err := secrets.NewVaultClient(cfg.VaultAddr, "")
		if err != nil {
			return nil, err
		}
		return secrets.NewVaultPublisher(secrets.NewVaultStore(client, cfg.VaultMount), cfg.VaultMount, cfg.VaultPath), nil
	case secrets.BackendJuju, "":
		return secrets.NewJujuPublisher(tools), nil
	default:
		return nil, cerr.Newf("unknown secret backend %q", cfg.SecretBackend)
	}
}

func (o *Operator) loadState(rc *charm_io.RuntimeContext) (*state.State, error) {
	return state.Load(rc, o.Config.StateFile)
}

// enter moves st to phase, persists it and publishes the matching status.
func (o *Operator) enter(rc *charm_io.RuntimeContext, st *state.State, phase state.Phase, reason string) error {
	if err := st.Transition(phase, reason); err != nil {
		return err
	}
	if err := st.Save(rc, o.Config.StateFile); err != nil {
		return err
	}
	status, message := StatusFor(st)
	return o.Tools.StatusSet(rc, status, message)
}

// loadPeerSecrets merges the secret ids recorded in the peer application
// databag into st. Ids there outlive any single unit's state file.
func (o *Operator) loadPeerSecrets(rc *charm_io.RuntimeContext, st *state.State) {
	if o.App == "" {
		return
	}
	log := otelzap.Ctx(rc.Ctx)
	peers, err := o.Tools.RelationIDs(rc, EndpointPeer)
	if err != nil {
		log.Warn("Could not list peer relations", zap.Error(err))
		return
	}
	for _, id := range peers {
		data, err := o.Tools.RelationGet(rc, id, o.App, true)
		if err != nil {
			log.Warn("Could not read peer databag", zap.String("relation_id", id), zap.Error(err))
			continue
		}
		for _, label := range []string{LabelCert, LabelBindDN, LabelPassword} {
			if v := data[label]; v != "" {
				st.SetSecret(label, v)
			}
		}
	}
}

// sharePeerSecrets writes ids to the peer application databag and returns
// how many peer relations received them.
func (o *Operator) sharePeerSecrets(rc *charm_io.RuntimeContext, ids map[string]string) (int, error) {
	peers, err := o.Tools.RelationIDs(rc, EndpointPeer)
	if err != nil {
		return 0, err
	}
	for _, id := range peers {
		if err := o.Tools.RelationSet(rc, id, true, ids); err != nil {
			return 0, cerr.Wrapf(err, "share secret ids on %s", id)
		}
	}
	return len(peers), nil
}

func readOptional(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(raw)
}
