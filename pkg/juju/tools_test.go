package juju

import (
	"testing"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/testutil"
	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestStatusSet(t *testing.T) {
	runner := testutil.NewFakeRunner()
	require.NoError(t, New(runner).StatusSet(testutil.TestRuntimeContext(t), StatusMaintenance, "installing glauth"))
	require.Len(t, runner.Calls, 1)
	assert.Equal(t, "status-set", runner.Calls[0].Command)
	assert.Equal(t, []string{"maintenance", "installing glauth"}, runner.Calls[0].Args)
}

func TestIsLeader(t *testing.T) {
	runner := testutil.NewFakeRunner().On("is-leader", testutil.Response{Output: "true\n"})
	leader, err := New(runner).IsLeader(testutil.TestRuntimeContext(t))
	require.NoError(t, err)
	assert.True(t, leader)
}

func TestRelationIDs(t *testing.T) {
	runner := testutil.NewFakeRunner().On("relation-ids ldap-client", testutil.Response{Output: `["ldap-client:3","ldap-client:7"]`})
	ids, err := New(runner).RelationIDs(testutil.TestRuntimeContext(t), "ldap-client")
	require.NoError(t, err)
	assert.Equal(t, []string{"ldap-client:3", "ldap-client:7"}, ids)
}

func TestRelationGet(t *testing.T) {
	runner := testutil.NewFakeRunner().On("relation-get", testutil.Response{Output: `{"ldap-port":"3893","api-port":"5555"}`})
	data, err := New(runner).RelationGet(testutil.TestRuntimeContext(t), "ldap-client:3", "sssd", true)
	require.NoError(t, err)
	assert.Equal(t, "3893", data["ldap-port"])
	assert.Equal(t, []string{"-r", "ldap-client:3", "--format=json", "--app", "-", "sssd"}, runner.Calls[0].Args)
}

func TestRelationSet_YAMLOnStdin(t *testing.T) {
	runner := testutil.NewFakeRunner()
	data := map[string]string{
		"ldap-uri": "ldap://ldap-0:3893",
		"ldap-cert": "-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----\n",
	}
	require.NoError(t, New(runner).RelationSet(testutil.TestRuntimeContext(t), "ldap-client:3", true, data))

	call := runner.Calls[0]
	assert.Equal(t, []string{"-r", "ldap-client:3", "--app", "--file", "-"}, call.Args)
	decoded := map[string]string{}
	require.NoError(t, yaml.Unmarshal([]byte(call.Stdin), &decoded))
	assert.Equal(t, data, decoded)
}

func TestSecretAdd(t *testing.T) {
	runner := testutil.NewFakeRunner().On("secret-add", testutil.Response{Output: "secret:cn1f0k0e6bnsd5ds7g8g\n"})
	id, err := New(runner).SecretAdd(testutil.TestRuntimeContext(t), "ldap-password", map[string]string{"ldap-password": "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, "secret:cn1f0k0e6bnsd5ds7g8g", id)
	assert.Equal(t, []string{"--label", "ldap-password", "ldap-password=hunter2"}, runner.Calls[0].Args)
}

func TestSecretAdd_NoID(t *testing.T) {
	runner := testutil.NewFakeRunner()
	_, err := New(runner).SecretAdd(testutil.TestRuntimeContext(t), "x", map[string]string{"x": "y"})
	assert.Error(t, err)
}

func TestSecretIDByLabel(t *testing.T) {
	tests := []struct {
		name string
		resp testutil.Response
		want string
	}{
		{"bare id", testutil.Response{Output: `{"cn1f0k0e6bnsd5ds7g8g":{"label":"ldap-cert","owner":"application","revision":2}}`}, "secret:cn1f0k0e6bnsd5ds7g8g"},
		{"uri id", testutil.Response{Output: `{"secret:cn1f0k0e6bnsd5ds7g8g":{"label":"ldap-cert"}}`}, "secret:cn1f0k0e6bnsd5ds7g8g"},
		{"missing", testutil.Response{Err: testutil.CommandFailure("secret-info-get", `ERROR secret "ldap-cert" not found`, 1)}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := testutil.NewFakeRunner().On("secret-info-get", tt.resp)
			id, err := New(runner).SecretIDByLabel(testutil.TestRuntimeContext(t), "ldap-cert")
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
			assert.Equal(t, []string{"--label", "ldap-cert", "--format=json"}, runner.Calls[0].Args)
		})
	}
}

func TestSecretIDByLabel_OtherErrors(t *testing.T) {
	runner := testutil.NewFakeRunner().On("secret-info-get", testutil.Response{Err: testutil.CommandFailure("secret-info-get", "ERROR permission denied", 1)})
	_, err := New(runner).SecretIDByLabel(testutil.TestRuntimeContext(t), "ldap-cert")
	assert.Error(t, err)
}

func TestActionGet(t *testing.T) {
	runner := testutil.NewFakeRunner().On("action-get", testutil.Response{Output: `{"ldap-default-bind-dn":"cn=admin","ldap-password":"pw","n":3}`})
	params, err := New(runner).ActionGet(testutil.TestRuntimeContext(t))
	require.NoError(t, err)
	assert.Equal(t, "cn=admin", params["ldap-default-bind-dn"])
	assert.Equal(t, "3", params["n"])
}

func TestConfigGet(t *testing.T) {
	runner := testutil.NewFakeRunner().On("config-get", testutil.Response{Output: `{"channel":"latest/edge","hold-days":30}`})
	cfg, err := New(runner).ConfigGet(testutil.TestRuntimeContext(t))
	require.NoError(t, err)
	assert.Equal(t, "latest/edge", cfg["channel"])
	assert.Equal(t, float64(30), cfg["hold-days"])
}

func TestResourceGet(t *testing.T) {
	t.Run("attached", func(t *testing.T) {
		runner := testutil.NewFakeRunner().On("resource-get config", testutil.Response{Output: "/var/lib/juju/agents/unit-glauth-0/resources/config/config.zip\n"})
		path, err := New(runner).ResourceGet(testutil.TestRuntimeContext(t), "config")
		require.NoError(t, err)
		assert.Equal(t, "/var/lib/juju/agents/unit-glauth-0/resources/config/config.zip", path)
	})

	t.Run("missing", func(t *testing.T) {
		runner := testutil.NewFakeRunner().On("resource-get config", testutil.Response{
			Err: testutil.CommandFailure("resource-get config", `ERROR could not download resource: HTTP request failed: resource#glauth/config not found`, 1),
		})
		_, err := New(runner).ResourceGet(testutil.TestRuntimeContext(t), "config")
		require.Error(t, err)
		assert.True(t, cerr.Is(err, ErrResourceUnavailable))
	})
}

func TestDispatchFromEnv(t *testing.T) {
	env := func(m map[string]string) func(string) string {
		return func(k string) string { return m[k] }
	}

	d, err := DispatchFromEnv(env(map[string]string{
		"JUJU_DISPATCH_PATH": "hooks/ldap-client-relation-changed",
		"JUJU_UNIT_NAME":     "glauth/0",
		"JUJU_RELATION":      "ldap-client",
		"JUJU_RELATION_ID":   "ldap-client:3",
		"JUJU_REMOTE_APP":    "sssd",
	}))
	require.NoError(t, err)
	assert.Equal(t, KindHook, d.Kind)
	assert.Equal(t, "ldap-client-relation-changed", d.Name)
	assert.True(t, d.IsRelation())
	assert.Equal(t, "glauth", d.Application())

	d, err = DispatchFromEnv(env(map[string]string{"JUJU_DISPATCH_PATH": "actions/set-confidential"}))
	require.NoError(t, err)
	assert.Equal(t, KindAction, d.Kind)
	assert.Equal(t, "set-confidential", d.Name)

	_, err = DispatchFromEnv(env(map[string]string{}))
	assert.Error(t, err)
	_, err = DispatchFromEnv(env(map[string]string{"JUJU_DISPATCH_PATH": "bin/install"}))
	assert.Error(t, err)
}
