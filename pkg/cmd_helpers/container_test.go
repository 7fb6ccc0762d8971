package cmd_helpers

import (
	"path/filepath"
	"testing"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/config"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/juju"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/state"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/testutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listInstalled = `Name    Version  Rev  Tracking     Publisher  Notes
glauth  v2.3.0   51   latest/edge  canonical  -
`

func newCommand(t *testing.T) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	config.AddFlags(cmd.Flags())
	cmd.Flags().String(FlagEnvFile, "", "")
	require.NoError(t, cmd.Flags().Set(config.KeyStateFile, filepath.Join(t.TempDir(), "state.yaml")))
	return cmd
}

func TestLoadConfig_MergesJujuAndFlags(t *testing.T) {
	for _, key := range []string{"GLAUTH_LDAP_PORT", "GLAUTH_CHANNEL", "GLAUTH_BASE_DN"} {
		t.Setenv(key, "")
	}
	runner := testutil.NewFakeRunner().
		On("config-get", testutil.Response{Output: `{"ldap-port": 1389, "base-dn": "dc=example,dc=org", "channel": "latest/beta"}`})
	cmd := newCommand(t)
	require.NoError(t, cmd.Flags().Set(config.KeyChannel, "latest/stable"))

	cfg, err := LoadConfig(testutil.TestRuntimeContext(t), cmd, Options{UseJujuConfig: true, Runner: runner})
	require.NoError(t, err)

	assert.Equal(t, 1389, cfg.LDAPPort)
	assert.Equal(t, "dc=example,dc=org", cfg.BaseDN)
	assert.Equal(t, "latest/stable", cfg.Channel)
	assert.Equal(t, 1, runner.Count("config-get"))
}

func TestLoadConfig_WithoutJuju(t *testing.T) {
	runner := testutil.NewFakeRunner()
	cfg, err := LoadConfig(testutil.TestRuntimeContext(t), newCommand(t), Options{Runner: runner})
	require.NoError(t, err)
	assert.Equal(t, 3893, cfg.LDAPPort)
	assert.Empty(t, runner.Calls)
}

func TestRunDispatch_Unhandled(t *testing.T) {
	runner := testutil.NewFakeRunner()
	d := juju.Dispatch{Kind: juju.KindHook, Name: "leader-elected"}

	require.NoError(t, RunDispatch(testutil.TestRuntimeContext(t), newCommand(t), d, Options{Runner: runner}))
	assert.Empty(t, runner.Calls)
}

func TestRunDispatch_Install(t *testing.T) {
	runner := testutil.NewFakeRunner().
		On("config-get", testutil.Response{Output: `{}`}).
		On("snap list glauth", testutil.Response{Output: listInstalled})
	cmd := newCommand(t)
	rc := testutil.TestRuntimeContext(t)

	require.NoError(t, RunDispatch(rc, cmd, juju.Dispatch{Kind: juju.KindHook, Name: "install"}, Options{Runner: runner}))

	assert.Equal(t, 1, runner.Count("snap refresh glauth --channel=edge"))
	assert.Equal(t, 1, runner.Count("application-version-set v2.3.0"))
	assert.Equal(t, 1, runner.Count("status-set maintenance installing glauth"))
	assert.Equal(t, 1, runner.Count("status-set active glauth ready"))

	path, err := cmd.Flags().GetString(config.KeyStateFile)
	require.NoError(t, err)
	st, err := state.Load(rc, path)
	require.NoError(t, err)
	assert.Equal(t, state.PhaseActive, st.Phase)
	assert.Equal(t, "install", rc.Attributes["signal"])
}
