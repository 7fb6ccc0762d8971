package orchestrator

import (
	"strings"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// SetConfidential stores the default bind DN and password as labelled
// secrets, records their ids in the peer relation and operator state, and
// grants them to every existing requirer.
func (o *Operator) SetConfidential(rc *charm_io.RuntimeContext) error {
	log := otelzap.Ctx(rc.Ctx)

	params, err := o.Tools.ActionGet(rc)
	if err != nil {
		return err
	}
	bindDN := strings.TrimSpace(params[LabelBindDN])
	password := params[LabelPassword]
	if bindDN == "" || password == "" {
		return o.Tools.ActionFail(rc, "both ldap-default-bind-dn and ldap-password are required")
	}

	leader, err := o.Tools.IsLeader(rc)
	if err != nil {
		return err
	}
	if !leader {
		return o.Tools.ActionFail(rc, "set-confidential must run on the leader unit")
	}

	st, err := o.loadState(rc)
	if err != nil {
		return err
	}
	o.loadPeerSecrets(rc, st)

	ids := map[string]string{}
	for label, value := range map[string]string{LabelBindDN: bindDN, LabelPassword: password} {
		id, err := o.Secrets.Publish(rc, label, map[string]string{label: value}, st.Secrets[label])
		if err != nil {
			return cerr.Wrapf(err, "publish %s", label)
		}
		st.SetSecret(label, id)
		ids[label] = id
	}
	if err := st.Save(rc, o.Config.StateFile); err != nil {
		return err
	}

	peers, err := o.sharePeerSecrets(rc, ids)
	if err != nil {
		return err
	}
	if peers == 0 {
		log.Warn("Peer relation not yet established; ids kept in operator state only")
	}

	requirers, err := o.Tools.RelationIDs(rc, EndpointLDAPClient)
	if err != nil {
		return err
	}
	for _, relID := range requirers {
		for _, id := range ids {
			if err := o.Secrets.Grant(rc, id, relID); err != nil {
				return cerr.Wrapf(err, "grant secret %s", id)
			}
		}
		if err := o.Tools.RelationSet(rc, relID, true, ids); err != nil {
			return err
		}
	}

	log.Info("Confidential settings stored",
		zap.String("backend", o.Secrets.Name()),
		zap.Int("requirers", len(requirers)))
	return o.Tools.ActionSet(rc, ids)
}
