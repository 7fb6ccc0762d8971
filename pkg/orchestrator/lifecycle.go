package orchestrator

import (
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_err"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/snap"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/state"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Install installs the snap and reports readiness.
func (o *Operator) Install(rc *charm_io.RuntimeContext) error {
	return o.runPackageOp(rc, SignalInstall, state.PhaseInstalling)
}

// Upgrade refreshes the snap with the same transitions as Install.
func (o *Operator) Upgrade(rc *charm_io.RuntimeContext) error {
	return o.runPackageOp(rc, SignalUpgrade, state.PhaseRefreshing)
}

func (o *Operator) runPackageOp(rc *charm_io.RuntimeContext, sig Signal, phase state.Phase) error {
	log := otelzap.Ctx(rc.Ctx)

	// ASSESS
	st, err := o.loadState(rc)
	if err != nil {
		return err
	}
	previous := st.Version
	log.Info("Package operation starting",
		zap.String("phase", string(phase)),
		zap.String("from", string(st.Phase)),
		zap.String("channel", o.Config.Channel))

	if err := o.enter(rc, st, phase, ""); err != nil {
		return err
	}

	// INTERVENE
	res := o.Snap.Ensure(rc)
	if res.Err != nil {
		pe, ok := charm_err.AsPackageOperationError(res.Err)
		if !ok {
			return wrapStep(sig, StepPackage, res.Err)
		}
		log.Warn("Package manager rejected operation",
			zap.String("op", pe.Op),
			zap.String("message", pe.Message))
		if err := o.Tools.Log(rc, "WARNING", pe.Error()); err != nil {
			log.Warn("Failed to write juju log", zap.Error(err))
		}
		return o.enter(rc, st, state.PhaseBlocked, pe.Error())
	}

	// EVALUATE
	if err := o.recordVersion(rc, st, res.Record); err != nil {
		return err
	}
	logVersionChange(rc, previous, st.Version)
	return o.enter(rc, st, state.PhaseActive, "")
}

// Remove uninstalls the snap. Configuration and certificates stay on disk.
func (o *Operator) Remove(rc *charm_io.RuntimeContext) error {
	st, err := o.loadState(rc)
	if err != nil {
		return err
	}
	if err := o.enter(rc, st, state.PhaseRemoving, ""); err != nil {
		return err
	}
	if err := o.Snap.Remove(rc); err != nil {
		return wrapStep(SignalRemove, StepPackage, err)
	}
	st.Version = ""
	otelzap.Ctx(rc.Ctx).Info("Snap removed", zap.String("config_dir", o.Config.ConfigDir))
	return o.enter(rc, st, state.PhaseUninstalled, "")
}

// UpdateStatus re-asserts the refresh hold, re-publishes the workload
// version and probes the advertised endpoint. It never changes phase.
func (o *Operator) UpdateStatus(rc *charm_io.RuntimeContext) error {
	log := otelzap.Ctx(rc.Ctx)

	st, err := o.loadState(rc)
	if err != nil {
		return err
	}
	switch st.Phase {
	case state.PhaseUninstalled, state.PhaseRemoving:
		log.Debug("Skipping update-status", zap.String("phase", string(st.Phase)))
		return nil
	}

	if err := o.Snap.Hold(rc); err != nil {
		log.Warn("Failed to re-assert refresh hold", zap.Error(err))
	}

	if err := o.publishVersion(rc, st); err != nil {
		if !charm_err.IsNotInstalled(err) {
			return err
		}
		log.Warn("Snap not installed during update-status", zap.Error(err))
	}
	if err := st.Save(rc, o.Config.StateFile); err != nil {
		return err
	}

	if st.LastURI != "" && o.Prober != nil {
		res, err := o.Prober.Probe(rc, st.LastURI)
		if err != nil {
			log.Warn("LDAP endpoint probe failed", zap.String("uri", st.LastURI), zap.Error(err))
		} else {
			log.Info("LDAP endpoint reachable",
				zap.String("uri", res.URI),
				zap.Duration("latency", res.Latency),
				zap.Strings("naming_contexts", res.NamingContexts))
		}
	}

	status, message := StatusFor(st)
	return o.Tools.StatusSet(rc, status, message)
}

// recordVersion publishes the version snapd reported after Ensure, falling
// back to a fresh lookup when the record came back empty.
func (o *Operator) recordVersion(rc *charm_io.RuntimeContext, st *state.State, rec snap.Record) error {
	if !rec.Installed() || rec.Version() == "" {
		return o.publishVersion(rc, st)
	}
	st.Version = rec.Version()
	return o.Tools.ApplicationVersionSet(rc, st.Version)
}

func (o *Operator) publishVersion(rc *charm_io.RuntimeContext, st *state.State) error {
	v, err := o.Snap.Version(rc)
	if err != nil {
		return err
	}
	st.Version = v
	return o.Tools.ApplicationVersionSet(rc, v)
}

func logVersionChange(rc *charm_io.RuntimeContext, from, to string) {
	if from == "" || from == to {
		return
	}
	log := otelzap.Ctx(rc.Ctx)
	switch {
	case snap.Newer(from, to):
		log.Info("Workload version upgraded", zap.String("from", from), zap.String("to", to))
	case snap.Newer(to, from):
		log.Warn("Workload version went backwards", zap.String("from", from), zap.String("to", to))
	default:
		log.Info("Workload version changed", zap.String("from", from), zap.String("to", to))
	}
}
