package secrets

import (
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// SecretTools is the part of the hook tool client JujuPublisher needs.
type SecretTools interface {
	SecretAdd(rc *charm_io.RuntimeContext, label string, content map[string]string) (string, error)
	SecretSet(rc *charm_io.RuntimeContext, id string, content map[string]string) error
	SecretGrant(rc *charm_io.RuntimeContext, id, relID string) error
	SecretIDByLabel(rc *charm_io.RuntimeContext, label string) (string, error)
}

// JujuPublisher publishes application-owned Juju secrets.
type JujuPublisher struct {
	Tools SecretTools
}

var _ Publisher = (*JujuPublisher)(nil)

func NewJujuPublisher(tools SecretTools) *JujuPublisher {
	return &JujuPublisher{Tools: tools}
}

// Publish updates the secret with existingID, or the one already carrying
// label, and creates it only when neither exists.
func (p *JujuPublisher) Publish(rc *charm_io.RuntimeContext, label string, content map[string]string, existingID string) (string, error) {
	log := otelzap.Ctx(rc.Ctx)

	if existingID == "" {
		id, err := p.Tools.SecretIDByLabel(rc, label)
		if err != nil {
			return "", cerr.Wrapf(err, "look up secret %s", label)
		}
		existingID = id
	}

	if existingID != "" {
		if err := p.Tools.SecretSet(rc, existingID, content); err != nil {
			return "", cerr.Wrapf(err, "update secret %s", label)
		}
		log.Debug("Updated secret", zap.String("label", label), zap.String("id", existingID))
		return existingID, nil
	}

	id, err := p.Tools.SecretAdd(rc, label, content)
	if err != nil {
		return "", cerr.Wrapf(err, "create secret %s", label)
	}
	log.Debug("Created secret", zap.String("label", label), zap.String("id", id))
	return id, nil
}

func (p *JujuPublisher) Grant(rc *charm_io.RuntimeContext, id, relationID string) error {
	if err := p.Tools.SecretGrant(rc, id, relationID); err != nil {
		return cerr.Wrapf(err, "grant %s to %s", id, relationID)
	}
	return nil
}

func (p *JujuPublisher) Name() string { return BackendJuju }
