package snap

import (
	"testing"
	"time"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_err"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listInstalled = `Name    Version  Rev  Tracking     Publisher  Notes
glauth  v2.3.0   51   latest/edge  canonical  -
`

const servicesActive = `Service        Startup  Current  Notes
glauth.daemon  enabled  active   -
`

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newController(runner *testutil.FakeRunner) *Controller {
	c := New(runner, "edge", 90)
	c.Now = func() time.Time { return fixedNow }
	return c
}

func notInstalled() testutil.Response {
	return testutil.Response{Err: testutil.CommandFailure("snap list glauth", "error: no matching snaps installed", 1)}
}

func TestInstall_FreshHost(t *testing.T) {
	runner := testutil.NewFakeRunner().On("snap list glauth", notInstalled())
	rc := testutil.TestRuntimeContext(t)

	require.NoError(t, newController(runner).Install(rc))

	assert.Equal(t, []string{
		"snap list glauth",
		"snap install glauth --channel=edge",
		"snap set system refresh.hold=2026-04-02T03:04:05Z",
	}, runner.Commands())
}

func TestInstall_PresentRefreshes(t *testing.T) {
	runner := testutil.NewFakeRunner().On("snap list glauth", testutil.Response{Output: listInstalled})
	rc := testutil.TestRuntimeContext(t)

	require.NoError(t, newController(runner).Refresh(rc))
	assert.Equal(t, 1, runner.Count("snap refresh glauth --channel=edge"))
	assert.Equal(t, 0, runner.Count("snap install"))
	assert.Equal(t, 1, runner.Count("snap set system refresh.hold="))
}

func TestInstall_RejectedBecomesPackageOperationError(t *testing.T) {
	runner := testutil.NewFakeRunner().
		On("snap list glauth", notInstalled()).
		On("snap install", testutil.Response{Err: testutil.CommandFailure("snap install", `error: snap "glauth" not found`, 1)})
	rc := testutil.TestRuntimeContext(t)

	err := newController(runner).Install(rc)
	require.Error(t, err)

	pe, ok := charm_err.AsPackageOperationError(err)
	require.True(t, ok)
	assert.Equal(t, "install", pe.Op)
	assert.Equal(t, `error: snap "glauth" not found`, pe.Message)
	assert.Equal(t, 0, runner.Count("snap set"), "no hold after a failed install")
}

func TestInstall_SnapdUnreachableBecomesPackageOperationError(t *testing.T) {
	runner := testutil.NewFakeRunner().
		On("snap list glauth", testutil.Response{Err: testutil.CommandFailure("snap list glauth", "error: cannot communicate with server: timeout exceeded", 1)})
	rc := testutil.TestRuntimeContext(t)

	err := newController(runner).Install(rc)
	require.Error(t, err)

	pe, ok := charm_err.AsPackageOperationError(err)
	require.True(t, ok, "snapd failures must surface as package operation errors")
	assert.Equal(t, "list", pe.Op)
	assert.Contains(t, pe.Message, "cannot communicate with server")
	assert.Equal(t, 0, runner.Count("snap install"))
	assert.Equal(t, 0, runner.Count("snap refresh"))
}

func TestHold_DisabledWithZeroDays(t *testing.T) {
	runner := testutil.NewFakeRunner()
	c := New(runner, "", 0)
	require.NoError(t, c.Hold(testutil.TestRuntimeContext(t)))
	assert.Empty(t, runner.Commands())
	assert.Equal(t, "edge", c.Channel)
}

func TestRemove(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		runner := testutil.NewFakeRunner().On("snap list glauth", testutil.Response{Output: listInstalled})
		require.NoError(t, newController(runner).Remove(testutil.TestRuntimeContext(t)))
		assert.Equal(t, 1, runner.Count("snap remove glauth"))
		for _, cmd := range runner.Commands() {
			assert.NotContains(t, cmd, "--purge")
		}
	})

	t.Run("absent", func(t *testing.T) {
		runner := testutil.NewFakeRunner().On("snap list glauth", notInstalled())
		require.NoError(t, newController(runner).Remove(testutil.TestRuntimeContext(t)))
		assert.Equal(t, 0, runner.Count("snap remove"))
	})
}

func TestStart(t *testing.T) {
	runner := testutil.NewFakeRunner()
	require.NoError(t, newController(runner).Start(testutil.TestRuntimeContext(t)))
	assert.Equal(t, []string{"snap start --enable glauth"}, runner.Commands())
}

func TestStatus(t *testing.T) {
	runner := testutil.NewFakeRunner().
		On("snap list glauth", testutil.Response{Output: listInstalled}).
		On("snap services glauth.daemon", testutil.Response{Output: servicesActive})

	rec, err := newController(runner).Status(testutil.TestRuntimeContext(t))
	require.NoError(t, err)

	var insp Inspector = rec
	assert.True(t, insp.Installed())
	assert.True(t, insp.Active())
	assert.Equal(t, "v2.3.0", insp.Version())
	assert.Equal(t, "51", rec.Revision)
	assert.Equal(t, "latest/edge", rec.Channel)
}

func TestStatus_ServicesProbeFailsKeepsPartialRecord(t *testing.T) {
	runner := testutil.NewFakeRunner().
		On("snap list glauth", testutil.Response{Output: listInstalled}).
		On("snap services", testutil.Response{Err: testutil.CommandFailure("snap services", "error: cannot connect", 1)})

	rec, err := newController(runner).Status(testutil.TestRuntimeContext(t))
	assert.Error(t, err)
	assert.True(t, rec.Installed())
	assert.False(t, rec.Active())
}

func TestVersion_NotInstalled(t *testing.T) {
	runner := testutil.NewFakeRunner().On("snap list glauth", notInstalled())

	_, err := newController(runner).Version(testutil.TestRuntimeContext(t))
	require.Error(t, err)
	assert.True(t, charm_err.IsNotInstalled(err))
}

func TestEnsure(t *testing.T) {
	runner := testutil.NewFakeRunner().
		On("snap list glauth", testutil.Response{Output: listInstalled}).
		On("snap services glauth.daemon", testutil.Response{Output: servicesActive})

	res := newController(runner).Ensure(testutil.TestRuntimeContext(t))
	require.NoError(t, res.Err)
	assert.Equal(t, "v2.3.0", res.Record.Version())
}

func TestNormaliseVersion(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"v2.3.0", "v2.3.0"},
		{"2.3", "2.3.0"},
		{"2.3.0-rc1", "2.3.0-rc1"},
		{"edge-build", "edge-build"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normaliseVersion(tt.in))
		})
	}
}

func TestNewer(t *testing.T) {
	assert.True(t, Newer("v2.2.0", "v2.3.0"))
	assert.False(t, Newer("v2.3.0", "v2.3.0"))
	assert.False(t, Newer("garbage", "v2.3.0"))
}
