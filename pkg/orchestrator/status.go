package orchestrator

import (
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/juju"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/state"
)

const (
	MsgInstalling = "installing glauth"
	MsgRefreshing = "refreshing glauth"
	MsgRemoving   = "removing glauth"
	MsgRemoved    = "glauth removed"
	MsgReady      = "glauth ready"
	MsgServing    = "glauth active"
)

// StatusFor maps the persisted phase to the unit status shown to operators.
func StatusFor(st *state.State) (juju.Status, string) {
	switch st.Phase {
	case state.PhaseInstalling:
		return juju.StatusMaintenance, MsgInstalling
	case state.PhaseRefreshing:
		return juju.StatusMaintenance, MsgRefreshing
	case state.PhaseRemoving:
		return juju.StatusMaintenance, MsgRemoving
	case state.PhaseBlocked:
		return juju.StatusBlocked, st.Reason
	case state.PhaseActive:
		if st.LastURI != "" {
			return juju.StatusActive, MsgServing
		}
		return juju.StatusActive, MsgReady
	default:
		return juju.StatusMaintenance, MsgRemoved
	}
}
