// Package state persists what the operator knows between hook invocations.
// Every hook runs in a fresh process, so the lifecycle phase, the TLS mode
// chosen at provisioning time and the ids of published secrets live in a
// small YAML file.
package state

import (
	"os"
	"time"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/shared"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Phase is the operator's lifecycle state.
type Phase string

const (
	PhaseUninstalled Phase = "uninstalled"
	PhaseInstalling  Phase = "installing"
	PhaseActive      Phase = "active"
	PhaseRefreshing  Phase = "refreshing"
	PhaseRemoving    Phase = "removing"
	PhaseBlocked     Phase = "blocked"
)

// TLSMode records where the server's TLS material came from.
type TLSMode string

const (
	TLSModeUnset            TLSMode = ""
	TLSModeSelfSigned       TLSMode = "self-signed"
	TLSModeOperatorSupplied TLSMode = "operator-supplied"
)

var transitions = map[Phase][]Phase{
	PhaseUninstalled: {PhaseInstalling, PhaseRemoving},
	PhaseInstalling:  {PhaseInstalling, PhaseActive, PhaseBlocked, PhaseRefreshing, PhaseRemoving},
	PhaseActive:      {PhaseActive, PhaseInstalling, PhaseRefreshing, PhaseRemoving},
	PhaseRefreshing:  {PhaseRefreshing, PhaseActive, PhaseBlocked, PhaseInstalling, PhaseRemoving},
	PhaseRemoving:    {PhaseRemoving, PhaseUninstalled},
	PhaseBlocked:     {PhaseBlocked, PhaseActive, PhaseInstalling, PhaseRefreshing, PhaseRemoving},
}

// ErrInvalidTransition is returned by Transition for moves the lifecycle
// does not allow.
var ErrInvalidTransition = cerr.New("invalid lifecycle transition")

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// State is the persisted operator state.
type State struct {
	Phase     Phase             `yaml:"phase"`
	Reason    string            `yaml:"reason,omitempty"`
	TLSMode   TLSMode           `yaml:"tls_mode,omitempty"`
	LastURI   string            `yaml:"last_uri,omitempty"`
	Version   string            `yaml:"version,omitempty"`
	Secrets   map[string]string `yaml:"secrets,omitempty"`
	UpdatedAt time.Time         `yaml:"updated_at"`
}

// New returns the state of a host the operator has never touched.
func New() *State {
	return &State{
		Phase:     PhaseUninstalled,
		Secrets:   map[string]string{},
		UpdatedAt: time.Now().UTC(),
	}
}

// Transition moves to phase `to`, recording reason for blocked phases.
func (s *State) Transition(to Phase, reason string) error {
	if !CanTransition(s.Phase, to) {
		return cerr.Wrapf(ErrInvalidTransition, "%s -> %s", s.Phase, to)
	}
	s.Phase = to
	s.Reason = reason
	return nil
}

// SetSecret records the id published under label.
func (s *State) SetSecret(label, id string) {
	if s.Secrets == nil {
		s.Secrets = map[string]string{}
	}
	s.Secrets[label] = id
}

// Load reads the state file at path. A missing file yields New().
func Load(rc *charm_io.RuntimeContext, path string) (*State, error) {
	log := otelzap.Ctx(rc.Ctx)
	if path == "" {
		path = shared.DefaultStateFile
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Debug("State file does not exist, starting fresh", zap.String("path", path))
		return New(), nil
	}

	var s State
	if err := charm_io.ReadYAML(rc.Ctx, path, &s); err != nil {
		return nil, cerr.Wrap(err, "load operator state")
	}
	if s.Phase == "" {
		s.Phase = PhaseUninstalled
	}
	if s.Secrets == nil {
		s.Secrets = map[string]string{}
	}

	log.Debug("Loaded operator state",
		zap.String("phase", string(s.Phase)),
		zap.String("tls_mode", string(s.TLSMode)),
		zap.Time("updated_at", s.UpdatedAt))
	return &s, nil
}

// Save writes the state atomically.
func (s *State) Save(rc *charm_io.RuntimeContext, path string) error {
	if path == "" {
		path = shared.DefaultStateFile
	}
	s.UpdatedAt = time.Now().UTC()
	if err := charm_io.WriteYAML(rc.Ctx, path, s, shared.FilePermOwnerReadWrite); err != nil {
		return cerr.Wrap(err, "save operator state")
	}
	otelzap.Ctx(rc.Ctx).Debug("Saved operator state",
		zap.String("path", path),
		zap.String("phase", string(s.Phase)))
	return nil
}
