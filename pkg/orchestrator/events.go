package orchestrator

import (
	"strings"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/juju"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Signal is a lifecycle or integration event the operator reacts to.
type Signal string

const (
	SignalInstall          Signal = "install"
	SignalUpgrade          Signal = "upgrade"
	SignalRemove           Signal = "remove"
	SignalUpdateStatus     Signal = "update-status"
	SignalIntegrationReady Signal = "integration-ready"
	SignalReconfigure      Signal = "reconfigure"
	SignalSetConfidential  Signal = "set-confidential"
)

// Event is one signal with the relation it concerns, if any.
type Event struct {
	Signal     Signal
	RelationID string
	RemoteApp  string
}

var hookSignals = map[string]Signal{
	"install":        SignalInstall,
	"upgrade-charm":  SignalUpgrade,
	"remove":         SignalRemove,
	"update-status":  SignalUpdateStatus,
	"config-changed": SignalReconfigure,
}

// EventFor maps a dispatch to an Event. ok is false for hooks the operator
// does not handle.
func EventFor(d juju.Dispatch) (Event, bool) {
	if d.Kind == juju.KindAction {
		if d.Name == string(SignalSetConfidential) {
			return Event{Signal: SignalSetConfidential}, true
		}
		return Event{}, false
	}
	if sig, ok := hookSignals[d.Name]; ok {
		return Event{Signal: sig}, true
	}
	prefix := EndpointLDAPClient + "-relation-"
	if strings.HasPrefix(d.Name, prefix) {
		switch strings.TrimPrefix(d.Name, prefix) {
		case "joined", "changed":
			return Event{
				Signal:     SignalIntegrationReady,
				RelationID: d.RelationID,
				RemoteApp:  remoteApp(d),
			}, true
		}
	}
	return Event{}, false
}

// Handle runs the handler for ev to completion.
func (o *Operator) Handle(rc *charm_io.RuntimeContext, ev Event) error {
	otelzap.Ctx(rc.Ctx).Info("Handling event",
		zap.String("signal", string(ev.Signal)),
		zap.String("relation_id", ev.RelationID),
		zap.String("remote_app", ev.RemoteApp))

	switch ev.Signal {
	case SignalInstall:
		return o.Install(rc)
	case SignalUpgrade:
		return o.Upgrade(rc)
	case SignalRemove:
		return o.Remove(rc)
	case SignalUpdateStatus:
		return o.UpdateStatus(rc)
	case SignalIntegrationReady:
		if ev.RelationID == "" {
			return cerr.New("integration-ready requires a relation id")
		}
		return o.IntegrationReady(rc, ev.RelationID, ev.RemoteApp)
	case SignalReconfigure:
		return o.Reconfigure(rc)
	case SignalSetConfidential:
		return o.SetConfidential(rc)
	default:
		return cerr.Newf("unknown signal %q", ev.Signal)
	}
}

func remoteApp(d juju.Dispatch) string {
	if d.RemoteApp != "" {
		return d.RemoteApp
	}
	app, _, _ := strings.Cut(d.RemoteUnit, "/")
	return app
}
