package orchestrator

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/config"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/glauth"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/juju"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/ldap"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/snap"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/templates"
	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

type fakeSnap struct {
	installed bool
	version   string
	// ensureErrs are returned by successive Ensure calls; nil entries succeed.
	ensureErrs []error
	calls      []string
}

func (f *fakeSnap) Ensure(*charm_io.RuntimeContext) snap.Result {
	f.calls = append(f.calls, "ensure")
	if len(f.ensureErrs) > 0 {
		err := f.ensureErrs[0]
		f.ensureErrs = f.ensureErrs[1:]
		if err != nil {
			return snap.Result{Err: err}
		}
	}
	f.installed = true
	return snap.Result{Record: snap.Record{IsInstalled: true, IsActive: true, WorkloadVersion: f.version}}
}

func (f *fakeSnap) Remove(*charm_io.RuntimeContext) error {
	f.calls = append(f.calls, "remove")
	f.installed = false
	return nil
}

func (f *fakeSnap) Hold(*charm_io.RuntimeContext) error {
	f.calls = append(f.calls, "hold")
	return nil
}

func (f *fakeSnap) Status(*charm_io.RuntimeContext) (snap.Record, error) {
	return snap.Record{IsInstalled: f.installed, IsActive: f.installed, WorkloadVersion: f.version}, nil
}

func (f *fakeSnap) Version(*charm_io.RuntimeContext) (string, error) {
	if !f.installed {
		return "", cerr.New("not installed")
	}
	return f.version, nil
}

type fakeCerts struct {
	names []string
}

func (f *fakeCerts) EnsureCertificate(_ *charm_io.RuntimeContext, cn string) (string, error) {
	f.names = append(f.names, cn)
	return "-----BEGIN CERTIFICATE-----\nfake\n-----END CERTIFICATE-----\n", nil
}

type statusCall struct {
	Status  juju.Status
	Message string
}

type fakeTools struct {
	statuses  []statusCall
	versions  []string
	leader    bool
	relations map[string][]string
	remote    map[string]map[string]string
	set       map[string]map[string]string
	params    map[string]string
	results   map[string]string
	failed    string
	resource  string
	logs      []string
}

func newFakeTools() *fakeTools {
	return &fakeTools{
		leader:    true,
		relations: map[string][]string{},
		remote:    map[string]map[string]string{},
		set:       map[string]map[string]string{},
	}
}

func (f *fakeTools) StatusSet(_ *charm_io.RuntimeContext, s juju.Status, msg string) error {
	f.statuses = append(f.statuses, statusCall{s, msg})
	return nil
}

func (f *fakeTools) ApplicationVersionSet(_ *charm_io.RuntimeContext, v string) error {
	f.versions = append(f.versions, v)
	return nil
}

func (f *fakeTools) IsLeader(*charm_io.RuntimeContext) (bool, error) { return f.leader, nil }

func (f *fakeTools) RelationIDs(_ *charm_io.RuntimeContext, endpoint string) ([]string, error) {
	return f.relations[endpoint], nil
}

// RelationGet serves remote databags from remote and falls back to what this
// side wrote, which is how a peer application databag reads back.
func (f *fakeTools) RelationGet(_ *charm_io.RuntimeContext, relID, member string, _ bool) (map[string]string, error) {
	if data, ok := f.remote[relID+"/"+member]; ok {
		return data, nil
	}
	return f.set[relID], nil
}

func (f *fakeTools) RelationSet(_ *charm_io.RuntimeContext, relID string, _ bool, data map[string]string) error {
	if f.set[relID] == nil {
		f.set[relID] = map[string]string{}
	}
	for k, v := range data {
		f.set[relID][k] = v
	}
	return nil
}

func (f *fakeTools) ActionGet(*charm_io.RuntimeContext) (map[string]string, error) {
	return f.params, nil
}

func (f *fakeTools) ActionSet(_ *charm_io.RuntimeContext, results map[string]string) error {
	f.results = results
	return nil
}

func (f *fakeTools) ActionFail(_ *charm_io.RuntimeContext, msg string) error {
	f.failed = msg
	return nil
}

func (f *fakeTools) ResourceGet(_ *charm_io.RuntimeContext, _ string) (string, error) {
	if f.resource == "" {
		return "", cerr.Wrap(juju.ErrResourceUnavailable, "config")
	}
	return f.resource, nil
}

func (f *fakeTools) Log(_ *charm_io.RuntimeContext, level, msg string) error {
	f.logs = append(f.logs, level+": "+msg)
	return nil
}

func (f *fakeTools) last() statusCall {
	if len(f.statuses) == 0 {
		return statusCall{}
	}
	return f.statuses[len(f.statuses)-1]
}

type fakePublisher struct {
	published map[string]map[string]string
	existing  map[string]string
	grants    []string
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{published: map[string]map[string]string{}, existing: map[string]string{}}
}

func (f *fakePublisher) Publish(_ *charm_io.RuntimeContext, label string, content map[string]string, existing string) (string, error) {
	f.published[label] = content
	f.existing[label] = existing
	if existing != "" {
		return existing, nil
	}
	return "secret:" + label, nil
}

func (f *fakePublisher) Grant(_ *charm_io.RuntimeContext, id, relID string) error {
	f.grants = append(f.grants, id+"@"+relID)
	sort.Strings(f.grants)
	return nil
}

func (f *fakePublisher) Name() string { return "fake" }

type fakeProber struct {
	uris []string
}

func (f *fakeProber) Probe(_ *charm_io.RuntimeContext, uri string) (ldap.ProbeResult, error) {
	f.uris = append(f.uris, uri)
	return ldap.ProbeResult{URI: uri, Reachable: true}, nil
}

type harness struct {
	op      *Operator
	snap    *fakeSnap
	tools   *fakeTools
	secrets *fakePublisher
	certs   *fakeCerts
	prober  *fakeProber
	root    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	hostname := filepath.Join(root, "hostname")
	require.NoError(t, os.WriteFile(hostname, []byte("ldap.example.internal\n"), 0o644))

	cfg := &config.Config{
		Channel:       "latest/edge",
		LDAPPort:      3893,
		APIPort:       5555,
		BaseDN:        "dc=glauth,dc=com",
		Domain:        "glauth.com",
		HoldDays:      90,
		StateFile:     filepath.Join(root, "state.yaml"),
		ConfigDir:     filepath.Join(root, "glauth.d"),
		CertPath:      filepath.Join(root, "certs.d", "glauth.crt"),
		KeyPath:       filepath.Join(root, "keys.d", "glauth.key"),
		HostnameFile:  hostname,
		SecretBackend: "juju",
	}

	prov := glauth.NewProvisioner(cfg.ConfigDir, cfg.HostnameFile, cfg.BaseDN)
	opts := templates.DefaultRenderOptions()
	opts.DisableRateLimiting = true
	prov.RenderOptions = opts

	h := &harness{
		snap:    &fakeSnap{version: "2.3.2"},
		tools:   newFakeTools(),
		secrets: newFakePublisher(),
		certs:   &fakeCerts{},
		prober:  &fakeProber{},
		root:    root,
	}
	h.op = &Operator{
		App:         "glauth",
		Config:      cfg,
		Snap:        h.snap,
		Provisioner: prov,
		Certs:       h.certs,
		Tools:       h.tools,
		Secrets:     h.secrets,
		Prober:      h.prober,
	}
	return h
}
