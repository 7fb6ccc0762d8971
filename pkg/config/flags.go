package config

import (
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AddFlags registers overrides for every config key. Defaults live in
// viper, so flags only win when set explicitly.
func AddFlags(fs *pflag.FlagSet) {
	fs.String(KeyChannel, "", "snap channel to track")
	fs.Int(KeyLDAPPort, 0, "LDAP listen port")
	fs.Int(KeyAPIPort, 0, "API listen port")
	fs.String(KeyBaseDN, "", "base DN published to clients")
	fs.String(KeyDomain, "", "domain published to clients")
	fs.Int(KeyHoldDays, 0, "days to hold automatic snap refreshes")
	fs.String(KeyStateFile, "", "operator state file")
	fs.String(KeyConfigDir, "", "GLAuth configuration directory")
	fs.String(KeyCertPath, "", "TLS certificate path")
	fs.String(KeyKeyPath, "", "TLS key path")
	fs.String(KeyHostnameFile, "", "file holding the advertised host name")
	fs.String(KeySecretBackend, "", "secret backend: juju or vault")
	fs.String(KeyVaultAddr, "", "Vault address (defaults to VAULT_ADDR)")
	fs.String(KeyVaultMount, "", "Vault KV v2 mount")
	fs.String(KeyVaultPath, "", "path under the Vault mount")
}

// BindFlagsToViper binds the flags that were set on cmd to v.
func BindFlagsToViper(cmd *cobra.Command, v *viper.Viper) error {
	var result error
	visit := func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if err := v.BindPFlag(f.Name, f); err != nil {
			result = multierror.Append(result, err)
		}
	}
	cmd.Flags().VisitAll(visit)
	cmd.InheritedFlags().VisitAll(visit)
	return result
}
