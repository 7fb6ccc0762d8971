// Package secrets publishes confidential values (bind DN, password, CA
// certificate) to consumers. Under Juju they become application-owned Juju
// secrets granted per relation; on hosts managed without Juju they are
// written to Vault KV v2.
package secrets

import (
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	cerr "github.com/cockroachdb/errors"
)

var (
	ErrSecretNotFound     = cerr.New("secret not found")
	ErrPermissionDenied   = cerr.New("permission denied")
	ErrInvalidPath        = cerr.New("invalid secret path")
	ErrBackendUnavailable = cerr.New("secret storage backend unavailable")
)

const (
	BackendJuju  = "juju"
	BackendVault = "vault"
)

// Publisher stores labelled secret content and makes it readable by the
// other side of a relation.
type Publisher interface {
	// Publish creates the secret, or replaces the content of existingID when
	// one was published before, and returns the secret id.
	Publish(rc *charm_io.RuntimeContext, label string, content map[string]string, existingID string) (string, error)
	// Grant lets relationID's remote application read id.
	Grant(rc *charm_io.RuntimeContext, id, relationID string) error
	Name() string
}
