package secrets

import (
	"path"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// VaultPublisher writes each label to <prefix>/<label> in a KV v2 mount.
// Access is governed by Vault policy, so Grant only records intent.
type VaultPublisher struct {
	Store  *VaultStore
	Mount  string
	Prefix string
}

var _ Publisher = (*VaultPublisher)(nil)

func NewVaultPublisher(store *VaultStore, mount, prefix string) *VaultPublisher {
	return &VaultPublisher{Store: store, Mount: mount, Prefix: prefix}
}

func (p *VaultPublisher) Publish(rc *charm_io.RuntimeContext, label string, content map[string]string, _ string) (string, error) {
	key := path.Join(p.Prefix, label)
	data := make(map[string]interface{}, len(content))
	for k, v := range content {
		data[k] = v
	}
	if err := p.Store.Put(rc.Ctx, key, data); err != nil {
		return "", cerr.Wrapf(err, "publish %s", label)
	}
	id := "vault:" + path.Join(p.Mount, key)
	otelzap.Ctx(rc.Ctx).Info("Secret written to vault", zap.String("label", label), zap.String("id", id))
	return id, nil
}

func (p *VaultPublisher) Grant(rc *charm_io.RuntimeContext, id, relationID string) error {
	otelzap.Ctx(rc.Ctx).Debug("Vault access is policy controlled, nothing to grant",
		zap.String("id", id),
		zap.String("relation_id", relationID))
	return nil
}

func (p *VaultPublisher) Name() string { return BackendVault }
