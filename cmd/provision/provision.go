// cmd/provision/provision.go

package provision

import (
	"os"
	"strings"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/certs"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_cli"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_err"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/cmd_helpers"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/glauth"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/orchestrator"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/output"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/secrets"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/snap"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/state"
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// ProvisionCmd writes GLAuth configuration and TLS material on a host that
// is not managed by Juju.
var ProvisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Write GLAuth configuration and certificates outside Juju",
	Long: `Render the default GLAuth configuration (or extract an operator-supplied
zip archive), ensure the TLS key pair exists and start the snap service.
With --publish the certificate is stored in Vault under vault-path.`,
	Example: `  glauth-operator provision --ldap-port 3893
  glauth-operator provision --archive ./glauth-config.zip
  VAULT_TOKEN=... glauth-operator provision --publish --secret-backend vault`,
	Args: cobra.NoArgs,
	RunE: charm_cli.Wrap(runProvision),
}

func init() {
	ProvisionCmd.Flags().String("archive", "", "zip archive of GLAuth configuration fragments")
	ProvisionCmd.Flags().Bool("publish", false, "store the certificate in the configured secret backend")
}

func runProvision(rc *charm_io.RuntimeContext, cmd *cobra.Command, args []string) error {
	log := otelzap.Ctx(rc.Ctx)
	archive, _ := cmd.Flags().GetString("archive")
	publish, _ := cmd.Flags().GetBool("publish")

	cfg, err := cmd_helpers.LoadConfig(rc, cmd, cmd_helpers.Options{})
	if err != nil {
		return err
	}
	if publish && cfg.SecretBackend != secrets.BackendVault {
		return charm_err.NewExpectedError(rc.Ctx,
			cerr.WithHint(cerr.New("--publish outside Juju requires the vault secret backend"),
				"pass --secret-backend vault or set GLAUTH_SECRET_BACKEND=vault"))
	}

	// ASSESS
	st, err := state.Load(rc, cfg.StateFile)
	if err != nil {
		return err
	}

	// INTERVENE
	prov := glauth.NewProvisioner(cfg.ConfigDir, cfg.HostnameFile, cfg.BaseDN)
	prov.PreviousMode = st.TLSMode
	res, err := prov.Provision(rc, archive, cfg.LDAPPort, cfg.APIPort)
	if err != nil {
		return err
	}

	snapCtl := snap.New(nil, cfg.Channel, cfg.HoldDays)
	cert, err := certs.NewBootstrapper(cfg.CertPath, cfg.KeyPath, nil, snapCtl).EnsureCertificate(rc, res.URI)
	if err != nil {
		return err
	}
	st.TLSMode = res.Mode
	st.LastURI = res.URI

	if publish {
		publisher, err := orchestrator.NewPublisher(cfg, nil)
		if err != nil {
			return err
		}
		id, err := publisher.Publish(rc, orchestrator.LabelCert,
			map[string]string{orchestrator.LabelCert: cert}, st.Secrets[orchestrator.LabelCert])
		if err != nil {
			return err
		}
		st.SetSecret(orchestrator.LabelCert, id)
	}

	if err := st.Save(rc, cfg.StateFile); err != nil {
		return err
	}

	// EVALUATE
	log.Info("Provisioning complete", zap.String("uri", res.URI), zap.String("tls_mode", string(res.Mode)))
	return output.KeyValueTable(os.Stdout, map[string]string{
		"uri":      res.URI,
		"tls-mode": string(res.Mode),
		"files":    strings.Join(res.Files, ","),
		"secret":   st.Secrets[orchestrator.LabelCert],
	})
}
