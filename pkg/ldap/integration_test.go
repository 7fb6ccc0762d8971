//go:build integration

package ldap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/glauth"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/templates"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/testutil"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	glauthImage          = "glauth/glauth:v2.3.2"
	glauthPort  nat.Port = "3893/tcp"
)

// TestProbe_RenderedConfigAgainstGLAuth renders the default configuration,
// boots GLAuth with it and probes the mapped LDAP port.
func TestProbe_RenderedConfigAgainstGLAuth(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	rc := testutil.TestRuntimeContext(t)
	rc.Ctx = ctx

	root := t.TempDir()
	hostnameFile := filepath.Join(root, "hostname")
	require.NoError(t, os.WriteFile(hostnameFile, []byte("glauth-it\n"), 0o644))

	p := glauth.NewProvisioner(filepath.Join(root, "glauth.d"), hostnameFile, "")
	opts := templates.DefaultRenderOptions()
	opts.DisableRateLimiting = true
	p.RenderOptions = opts

	res, err := p.Provision(rc, "", 3893, 5555)
	require.NoError(t, err)
	require.Len(t, res.Files, 1)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        glauthImage,
			ExposedPorts: []string{string(glauthPort)},
			Files: []testcontainers.ContainerFile{{
				HostFilePath:      res.Files[0],
				ContainerFilePath: "/app/config/config.cfg",
				FileMode:          0o644,
			}},
			WaitingFor: wait.ForListeningPort(glauthPort).WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("cannot start %s: %v", glauthImage, err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, glauthPort)
	require.NoError(t, err)

	probe, err := Prober{Timeout: 10 * time.Second}.Probe(rc, "ldap://"+host+":"+port.Port())
	assert.True(t, probe.Reachable)
	if err != nil {
		t.Logf("root DSE not served anonymously: %v", err)
	}
}
