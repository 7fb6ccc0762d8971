package certs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_err"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/testutil"
	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingGenerator struct {
	inner Generator
	calls int
	err   error
}

func (g *countingGenerator) Generate(rc *charm_io.RuntimeContext, cn, certPath, keyPath string) error {
	g.calls++
	if g.err != nil {
		return g.err
	}
	return g.inner.Generate(rc, cn, certPath, keyPath)
}

type countingStarter struct{ calls int }

func (s *countingStarter) Start(*charm_io.RuntimeContext) error {
	s.calls++
	return nil
}

func newTestBootstrapper(t *testing.T) (*Bootstrapper, *countingGenerator, *countingStarter) {
	t.Helper()
	root := t.TempDir()
	gen := &countingGenerator{inner: NativeGenerator{KeyBits: 2048, ValidityDays: 365}}
	starter := &countingStarter{}
	return &Bootstrapper{
		CertPath:  filepath.Join(root, "certs.d", "glauth.crt"),
		KeyPath:   filepath.Join(root, "keys.d", "glauth.key"),
		Generator: gen,
		Starter:   starter,
	}, gen, starter
}

func TestEnsureCertificate_EmptyEnvironmentGeneratesOnce(t *testing.T) {
	b, gen, starter := newTestBootstrapper(t)
	rc := testutil.TestRuntimeContext(t)

	content, err := b.EnsureCertificate(rc, "ldap://ldap-0:3893")
	require.NoError(t, err)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, 1, starter.calls)

	cert, err := ParseCertificate(content)
	require.NoError(t, err)
	assert.Equal(t, "ldap://ldap-0:3893", cert.Subject.CommonName)

	info, err := os.Stat(b.KeyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestEnsureCertificate_Idempotent(t *testing.T) {
	b, gen, starter := newTestBootstrapper(t)
	rc := testutil.TestRuntimeContext(t)

	first, err := b.EnsureCertificate(rc, "ldap-0")
	require.NoError(t, err)
	second, err := b.EnsureCertificate(rc, "ldap-0")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, 2, starter.calls, "service is started on every call")
}

func TestEnsureCertificate_ReusesWhenOnlyOneFileExists(t *testing.T) {
	b, gen, _ := newTestBootstrapper(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(b.CertPath), 0o755))
	require.NoError(t, os.WriteFile(b.CertPath, []byte("operator supplied"), 0o644))

	content, err := b.EnsureCertificate(testutil.TestRuntimeContext(t), "ldap-0")
	require.NoError(t, err)
	assert.Equal(t, "operator supplied", content)
	assert.Equal(t, 0, gen.calls)
}

func TestEnsureCertificate_GenerationFailure(t *testing.T) {
	b, gen, starter := newTestBootstrapper(t)
	gen.err = cerr.New("entropy exhausted")

	_, err := b.EnsureCertificate(testutil.TestRuntimeContext(t), "ldap-0")
	require.Error(t, err)
	assert.Equal(t, "certificate", charm_err.Category(err))
	assert.Equal(t, 0, starter.calls)
}

func TestOpenSSLGenerator_Arguments(t *testing.T) {
	root := t.TempDir()
	certPath := filepath.Join(root, "glauth.crt")
	keyPath := filepath.Join(root, "glauth.key")

	runner := testutil.NewFakeRunner()
	runner.Handler = func(c testutil.Call) (testutil.Response, bool) {
		// Simulate openssl writing both files.
		_ = os.WriteFile(certPath, []byte("cert"), 0o644)
		_ = os.WriteFile(keyPath, []byte("key"), 0o644)
		return testutil.Response{}, true
	}

	gen := OpenSSLGenerator{Runner: runner, KeyBits: 4096, ValidityDays: 365}
	require.NoError(t, gen.Generate(testutil.TestRuntimeContext(t), "ldap://ldap-0:3893", certPath, keyPath))

	require.Len(t, runner.Calls, 1)
	assert.Equal(t, "openssl", runner.Calls[0].Command)
	assert.Equal(t, []string{
		"req", "-x509", "-newkey", "rsa:4096",
		"-keyout", keyPath, "-out", certPath,
		"-days", "365", "-nodes",
		"-subj", `/CN=ldap:\/\/ldap-0:3893`,
	}, runner.Calls[0].Args)
}

func TestOpenSSLGenerator_Failure(t *testing.T) {
	runner := testutil.NewFakeRunner().On("openssl", testutil.Response{Err: testutil.CommandFailure("openssl", "unable to write key", 1)})
	gen := OpenSSLGenerator{Runner: runner, KeyBits: 4096, ValidityDays: 365}

	err := gen.Generate(testutil.TestRuntimeContext(t), "cn", "/nonexistent/c", "/nonexistent/k")
	require.Error(t, err)
	assert.Equal(t, "unable to write key", execute.Output(err))
}

func TestParseCertificate_Garbage(t *testing.T) {
	_, err := ParseCertificate("not pem")
	assert.Error(t, err)
}
