package secrets

import (
	"context"
	"strings"

	cerr "github.com/cockroachdb/errors"
	vaultapi "github.com/hashicorp/vault/api"
)

// VaultStore reads and writes Vault KV v2 secrets under one mount. Paths are
// relative to the mount, without the "data/" segment.
type VaultStore struct {
	client *vaultapi.Client
	mount  string
}

// NewVaultStore wraps an authenticated client.
func NewVaultStore(client *vaultapi.Client, mount string) *VaultStore {
	return &VaultStore{client: client, mount: mount}
}

// NewVaultClient builds a client from VAULT_ADDR/VAULT_TOKEN, with addr and
// token overriding the environment when set.
func NewVaultClient(addr, token string) (*vaultapi.Client, error) {
	cfg := vaultapi.DefaultConfig()
	if cfg.Error != nil {
		return nil, cerr.Wrap(cfg.Error, "vault config")
	}
	if addr != "" {
		cfg.Address = addr
	}
	client, err := vaultapi.NewClient(cfg)
	if err != nil {
		return nil, cerr.Wrap(err, "create vault client")
	}
	if token != "" {
		client.SetToken(token)
	}
	return client, nil
}

func (vs *VaultStore) Get(ctx context.Context, path string) (map[string]interface{}, error) {
	kv, err := vs.client.KVv2(vs.mount).Get(ctx, path)
	if err != nil {
		return nil, classifyVaultError(err, path)
	}
	if kv == nil || kv.Data == nil {
		return nil, cerr.Wrapf(ErrSecretNotFound, "at path %s", path)
	}
	return kv.Data, nil
}

func (vs *VaultStore) Put(ctx context.Context, path string, data map[string]interface{}) error {
	if path == "" {
		return cerr.Wrap(ErrInvalidPath, "path cannot be empty")
	}
	if strings.HasPrefix(path, vs.mount+"/") {
		return cerr.Wrapf(ErrInvalidPath, "path should not include the %s/ mount prefix (got: %s)", vs.mount, path)
	}
	if _, err := vs.client.KVv2(vs.mount).Put(ctx, path, data); err != nil {
		return classifyVaultError(err, path)
	}
	return nil
}

func (vs *VaultStore) Delete(ctx context.Context, path string) error {
	err := vs.client.KVv2(vs.mount).Delete(ctx, path)
	if err != nil && !isVaultNotFoundError(err) {
		return classifyVaultError(err, path)
	}
	return nil
}

func (vs *VaultStore) Exists(ctx context.Context, path string) (bool, error) {
	_, err := vs.Get(ctx, path)
	if err == nil {
		return true, nil
	}
	if cerr.Is(err, ErrSecretNotFound) {
		return false, nil
	}
	return false, err
}

func classifyVaultError(err error, path string) error {
	switch {
	case isVaultNotFoundError(err):
		return cerr.Wrapf(ErrSecretNotFound, "at path %s", path)
	case isVaultPermissionError(err):
		return cerr.Wrapf(ErrPermissionDenied, "%s: %v", path, err)
	default:
		return cerr.Wrapf(ErrBackendUnavailable, "%s: %v", path, err)
	}
}

func isVaultNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if cerr.Is(err, vaultapi.ErrSecretNotFound) {
		return true
	}
	var respErr *vaultapi.ResponseError
	if cerr.As(err, &respErr) {
		return respErr.StatusCode == 404
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}

func isVaultPermissionError(err error) bool {
	if err == nil {
		return false
	}
	var respErr *vaultapi.ResponseError
	if cerr.As(err, &respErr) {
		return respErr.StatusCode == 403
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission denied") || strings.Contains(msg, "forbidden")
}
