// pkg/config/config.go
//
// Package config resolves the operator's settings. Sources, lowest first:
// built-in defaults, the env file, Juju application config, GLAUTH_*
// environment variables, command-line flags.

package config

import (
	"os"
	"strings"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/shared"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/secrets"
	cerr "github.com/cockroachdb/errors"
	"github.com/go-ldap/ldap/v3"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// EnvPrefix namespaces environment overrides, e.g. GLAUTH_LDAP_PORT.
const EnvPrefix = "GLAUTH"

const (
	KeyChannel       = "channel"
	KeyLDAPPort      = "ldap-port"
	KeyAPIPort       = "api-port"
	KeyBaseDN        = "base-dn"
	KeyDomain        = "domain"
	KeyHoldDays      = "hold-days"
	KeyStateFile     = "state-file"
	KeyConfigDir     = "config-dir"
	KeyCertPath      = "cert-path"
	KeyKeyPath       = "key-path"
	KeyHostnameFile  = "hostname-file"
	KeySecretBackend = "secret-backend"
	KeyVaultAddr     = "vault-addr"
	KeyVaultMount    = "vault-mount"
	KeyVaultPath     = "vault-path"
)

// Config is the resolved operator configuration.
type Config struct {
	Channel       string `mapstructure:"channel" validate:"required"`
	LDAPPort      int    `mapstructure:"ldap-port" validate:"min=1,max=65535"`
	APIPort       int    `mapstructure:"api-port" validate:"min=1,max=65535,nefield=LDAPPort"`
	BaseDN        string `mapstructure:"base-dn" validate:"required,dn"`
	Domain        string `mapstructure:"domain" validate:"required,fqdn"`
	HoldDays      int    `mapstructure:"hold-days" validate:"min=0"`
	StateFile     string `mapstructure:"state-file" validate:"required"`
	ConfigDir     string `mapstructure:"config-dir" validate:"required"`
	CertPath      string `mapstructure:"cert-path" validate:"required"`
	KeyPath       string `mapstructure:"key-path" validate:"required"`
	HostnameFile  string `mapstructure:"hostname-file" validate:"required"`
	SecretBackend string `mapstructure:"secret-backend" validate:"oneof=juju vault"`
	VaultAddr     string `mapstructure:"vault-addr" validate:"omitempty,url"`
	VaultMount    string `mapstructure:"vault-mount" validate:"required_if=SecretBackend vault"`
	VaultPath     string `mapstructure:"vault-path" validate:"required_if=SecretBackend vault"`
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyChannel, shared.DefaultChannel)
	v.SetDefault(KeyLDAPPort, shared.DefaultLDAPPort)
	v.SetDefault(KeyAPIPort, shared.DefaultAPIPort)
	v.SetDefault(KeyBaseDN, shared.DefaultBaseDN)
	v.SetDefault(KeyDomain, shared.DefaultDomain)
	v.SetDefault(KeyHoldDays, shared.DefaultHoldDays)
	v.SetDefault(KeyStateFile, shared.DefaultStateFile)
	v.SetDefault(KeyConfigDir, shared.GlauthConfigDir)
	v.SetDefault(KeyCertPath, shared.GlauthCertPath)
	v.SetDefault(KeyKeyPath, shared.GlauthKeyPath)
	v.SetDefault(KeyHostnameFile, shared.HostnameFile)
	v.SetDefault(KeySecretBackend, secrets.BackendJuju)
	v.SetDefault(KeyVaultAddr, "")
	v.SetDefault(KeyVaultMount, "secret")
	v.SetDefault(KeyVaultPath, "glauth")

	SetViperEnvPrefix(v, EnvPrefix)
	return v
}

// SetViperEnvPrefix lets v read PREFIX_KEY_NAME for key-name.
func SetViperEnvPrefix(v *viper.Viper, prefix string) {
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

// LoadEnvFile exports the KEY=value pairs of path into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return cerr.Wrapf(err, "load env file %s", path)
	}
	return nil
}

// MergeJuju layers Juju application config under the environment and flags.
func MergeJuju(v *viper.Viper, jujuConfig map[string]interface{}) error {
	if len(jujuConfig) == 0 {
		return nil
	}
	if err := v.MergeConfigMap(jujuConfig); err != nil {
		return cerr.Wrap(err, "merge juju config")
	}
	return nil
}

// Load decodes and validates v.
func Load(rc *charm_io.RuntimeContext, v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, cerr.Wrap(err, "decode operator config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	otelzap.Ctx(rc.Ctx).Debug("Operator config resolved",
		zap.String("channel", cfg.Channel),
		zap.Int("ldap_port", cfg.LDAPPort),
		zap.Int("api_port", cfg.APIPort),
		zap.String("secret_backend", cfg.SecretBackend))
	return &cfg, nil
}

// Validate checks cfg's struct constraints.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.RegisterValidation("dn", validDN); err != nil {
		return cerr.Wrap(err, "register dn validator")
	}
	if err := validate.Struct(cfg); err != nil {
		return cerr.WithHint(cerr.Wrap(err, "invalid operator config"),
			"check juju config, "+EnvPrefix+"_* variables and flags")
	}
	return nil
}

func validDN(fl validator.FieldLevel) bool {
	dn, err := ldap.ParseDN(fl.Field().String())
	return err == nil && len(dn.RDNs) > 0
}
