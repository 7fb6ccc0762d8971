package orchestrator

import (
	"os"
	"strconv"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/juju"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/state"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// IntegrationReady provisions the server for the requirer on relID and
// publishes the connection facts and secret references to it.
func (o *Operator) IntegrationReady(rc *charm_io.RuntimeContext, relID, remoteApp string) error {
	log := otelzap.Ctx(rc.Ctx).WithOptions(zap.Fields(zap.String("relation_id", relID), zap.String("remote_app", remoteApp)))

	// ASSESS
	st, err := o.loadState(rc)
	if err != nil {
		return err
	}
	switch st.Phase {
	case state.PhaseUninstalled, state.PhaseRemoving:
		log.Warn("Ignoring integration while glauth is not installed", zap.String("phase", string(st.Phase)))
		return nil
	}

	ldapPort, apiPort := o.requestedPorts(rc, relID, remoteApp)
	archive, err := o.configArchive(rc)
	if err != nil {
		return err
	}

	// INTERVENE
	prov := *o.Provisioner
	prov.PreviousMode = st.TLSMode
	res, err := prov.Provision(rc, archive, ldapPort, apiPort)
	if err != nil {
		return wrapStep(SignalIntegrationReady, StepProvision, err)
	}

	cert, err := o.Certs.EnsureCertificate(rc, res.URI)
	if err != nil {
		return wrapStep(SignalIntegrationReady, StepCertificate, err)
	}

	st.TLSMode = res.Mode
	st.LastURI = res.URI

	leader, err := o.Tools.IsLeader(rc)
	if err != nil {
		return err
	}
	if leader {
		o.loadPeerSecrets(rc, st)
		payload, err := o.publishSecrets(rc, st, cert)
		if err != nil {
			return wrapStep(SignalIntegrationReady, StepPublish, err)
		}
		payload.URI = res.URI
		if err := o.publishTo(rc, relID, payload); err != nil {
			return wrapStep(SignalIntegrationReady, StepPublish, err)
		}
	} else {
		log.Info("Not leader; relation data left to the leader")
	}

	// EVALUATE
	log.Info("Integration published",
		zap.String("uri", res.URI),
		zap.String("tls_mode", string(res.Mode)),
		zap.Strings("files", res.Files))
	return o.enter(rc, st, state.PhaseActive, "")
}

// Reconfigure re-runs integration for every existing ldap-client relation.
func (o *Operator) Reconfigure(rc *charm_io.RuntimeContext) error {
	ids, err := o.Tools.RelationIDs(rc, EndpointLDAPClient)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		otelzap.Ctx(rc.Ctx).Debug("No ldap-client relations to reconfigure")
		return nil
	}
	for _, id := range ids {
		if err := o.IntegrationReady(rc, id, ""); err != nil {
			return cerr.Wrapf(err, "reconfigure relation %s", id)
		}
	}
	return nil
}

// publishSecrets stores the certificate and returns a payload referencing
// it together with any confidential secrets already recorded in st.
func (o *Operator) publishSecrets(rc *charm_io.RuntimeContext, st *state.State, cert string) (Payload, error) {
	certID, err := o.Secrets.Publish(rc, LabelCert, map[string]string{LabelCert: cert}, st.Secrets[LabelCert])
	if err != nil {
		return Payload{}, cerr.Wrap(err, "publish certificate secret")
	}
	if st.Secrets[LabelCert] != certID {
		if _, err := o.sharePeerSecrets(rc, map[string]string{LabelCert: certID}); err != nil {
			return Payload{}, err
		}
	}
	st.SetSecret(LabelCert, certID)

	return Payload{
		Domain:         o.Config.Domain,
		BaseDN:         o.Config.BaseDN,
		CertSecret:     certID,
		BindDNSecret:   st.Secrets[LabelBindDN],
		PasswordSecret: st.Secrets[LabelPassword],
	}, nil
}

func (o *Operator) publishTo(rc *charm_io.RuntimeContext, relID string, payload Payload) error {
	for _, id := range payload.SecretIDs() {
		if err := o.Secrets.Grant(rc, id, relID); err != nil {
			return cerr.Wrapf(err, "grant secret %s", id)
		}
	}
	return o.Tools.RelationSet(rc, relID, true, payload.RelationData())
}

// requestedPorts reads the ports the requirer asked for, falling back to
// configuration for absent or malformed values.
func (o *Operator) requestedPorts(rc *charm_io.RuntimeContext, relID, remoteApp string) (int, int) {
	ldapPort, apiPort := o.Config.LDAPPort, o.Config.APIPort
	if remoteApp == "" {
		return ldapPort, apiPort
	}
	log := otelzap.Ctx(rc.Ctx)
	data, err := o.Tools.RelationGet(rc, relID, remoteApp, true)
	if err != nil {
		log.Warn("Could not read requirer databag", zap.Error(err))
		return ldapPort, apiPort
	}
	if v, ok := parsePort(data[KeyRequestedLDAPPort]); ok {
		ldapPort = v
	} else if data[KeyRequestedLDAPPort] != "" {
		log.Warn("Ignoring malformed ldap-port", zap.String("value", data[KeyRequestedLDAPPort]))
	}
	if v, ok := parsePort(data[KeyRequestedAPIPort]); ok {
		apiPort = v
	} else if data[KeyRequestedAPIPort] != "" {
		log.Warn("Ignoring malformed api-port", zap.String("value", data[KeyRequestedAPIPort]))
	}
	return ldapPort, apiPort
}

// configArchive returns the path of the attached configuration archive,
// or "" when none was uploaded. Juju serves an empty placeholder file for
// resources declared but never attached.
func (o *Operator) configArchive(rc *charm_io.RuntimeContext) (string, error) {
	path, err := o.Tools.ResourceGet(rc, ResourceConfig)
	if err != nil {
		if cerr.Is(err, juju.ErrResourceUnavailable) {
			return "", nil
		}
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return "", nil
	}
	return path, nil
}

func parsePort(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 || v > 65535 {
		return 0, false
	}
	return v, true
}
