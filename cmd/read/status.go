// cmd/read/status.go

package read

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_cli"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/cmd_helpers"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/output"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/snap"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/state"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

var readStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the snap record and the persisted operator state",
	Args:  cobra.NoArgs,
	RunE: charm_cli.Wrap(func(rc *charm_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		cfg, err := cmd_helpers.LoadConfig(rc, cmd, cmd_helpers.Options{})
		if err != nil {
			return err
		}

		rec, err := snap.New(nil, cfg.Channel, cfg.HoldDays).Status(rc)
		if err != nil {
			otelzap.Ctx(rc.Ctx).Warn("Snap status incomplete", zap.Error(err))
		}
		st, err := state.Load(rc, cfg.StateFile)
		if err != nil {
			return err
		}
		return writeStatus(os.Stdout, NewStatusReport(rec, st), asJSON)
	}),
}

func init() {
	readStatusCmd.Flags().Bool("json", false, "print JSON instead of a table")
}

// StatusReport is the combined view printed by `read status`.
type StatusReport struct {
	Installed bool              `json:"installed"`
	Active    bool              `json:"active"`
	Version   string            `json:"version,omitempty"`
	Revision  string            `json:"revision,omitempty"`
	Channel   string            `json:"channel,omitempty"`
	Phase     string            `json:"phase"`
	Reason    string            `json:"reason,omitempty"`
	TLSMode   string            `json:"tls_mode,omitempty"`
	URI       string            `json:"uri,omitempty"`
	Secrets   map[string]string `json:"secrets,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewStatusReport merges what snapd reports with what the operator stored.
func NewStatusReport(pkg snap.Inspector, st *state.State) StatusReport {
	r := StatusReport{
		Installed: pkg.Installed(),
		Active:    pkg.Active(),
		Version:   pkg.Version(),
		Phase:     string(st.Phase),
		Reason:    st.Reason,
		TLSMode:   string(st.TLSMode),
		URI:       st.LastURI,
		Secrets:   st.Secrets,
		UpdatedAt: st.UpdatedAt,
	}
	if rec, ok := pkg.(snap.Record); ok {
		r.Revision = rec.Revision
		r.Channel = rec.Channel
	}
	return r
}

func writeStatus(w io.Writer, r StatusReport, asJSON bool) error {
	if asJSON {
		return output.JSONTo(w, r)
	}
	rows := map[string]string{
		"installed": strconv.FormatBool(r.Installed),
		"active":    strconv.FormatBool(r.Active),
		"version":   r.Version,
		"revision":  r.Revision,
		"channel":   r.Channel,
		"phase":     r.Phase,
		"reason":    r.Reason,
		"tls-mode":  r.TLSMode,
		"uri":       r.URI,
	}
	for label, id := range r.Secrets {
		rows["secret "+label] = id
	}
	return output.KeyValueTable(w, rows)
}
