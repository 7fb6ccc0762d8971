// pkg/glauth/provision.go
//
// Package glauth produces the GLAuth server configuration on disk and the
// connection URI that clients should use to reach it.

package glauth

import (
	"embed"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_err"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/shared"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/state"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/templates"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

//go:embed templates/glauth.cfg.tmpl
var templateFS embed.FS

const defaultTemplate = "templates/glauth.cfg.tmpl"

const (
	SchemeLDAP  = "ldap"
	SchemeLDAPS = "ldaps"
)

// Result describes what a provisioning call produced.
type Result struct {
	URI    string
	Scheme string
	Mode   state.TLSMode
	Files  []string
}

// Provisioner writes configuration into ConfigDir.
type Provisioner struct {
	ConfigDir    string
	HostnameFile string
	BaseDN       string
	// PreviousMode is the TLS mode persisted by an earlier provisioning.
	PreviousMode  state.TLSMode
	Renderer      *templates.Renderer
	RenderOptions *templates.RenderOptions
}

// NewProvisioner returns a Provisioner for the snap's config directory.
func NewProvisioner(configDir, hostnameFile, baseDN string) *Provisioner {
	if configDir == "" {
		configDir = shared.GlauthConfigDir
	}
	if hostnameFile == "" {
		hostnameFile = shared.HostnameFile
	}
	if baseDN == "" {
		baseDN = shared.DefaultBaseDN
	}
	return &Provisioner{
		ConfigDir:    configDir,
		HostnameFile: hostnameFile,
		BaseDN:       baseDN,
	}
}

type templateData struct {
	LDAPPort          int
	APIPort           int
	BaseDN            string
	FailedBinds       int
	FailedBindsPeriod int
	FailedBindsBlock  int
	PruneEvery        int
	PruneOlderThan    int
}

// Provision installs configuration and returns the connection URI.
//
// With an archive every entry is extracted into the config directory and the
// URI uses ldaps. Without one the bundled template is rendered for the given
// ports and the URI uses ldap, unless an operator archive was provisioned
// before and its files are still in place.
func (p *Provisioner) Provision(rc *charm_io.RuntimeContext, archivePath string, ldapPort, apiPort int) (Result, error) {
	log := otelzap.Ctx(rc.Ctx)

	// ASSESS
	for _, port := range []int{ldapPort, apiPort} {
		if port < 1 || port > 65535 {
			return Result{}, charm_err.NewConfigurationError(p.ConfigDir, cerr.Newf("port %d out of range", port))
		}
	}
	host, err := p.Hostname()
	if err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(p.ConfigDir, shared.DirPermStandard); err != nil {
		return Result{}, charm_err.NewConfigurationError(p.ConfigDir, err)
	}

	// INTERVENE
	var res Result
	switch {
	case archivePath != "":
		files, err := ExtractArchive(rc, archivePath, p.ConfigDir)
		if err != nil {
			return Result{}, err
		}
		res = Result{Scheme: SchemeLDAPS, Mode: state.TLSModeOperatorSupplied, Files: files}

	case p.PreviousMode == state.TLSModeOperatorSupplied && hasFragments(p.ConfigDir):
		log.Info("Keeping operator supplied configuration", zap.String("config_dir", p.ConfigDir))
		res = Result{Scheme: SchemeLDAPS, Mode: state.TLSModeOperatorSupplied}

	default:
		path, err := p.writeDefault(rc, ldapPort, apiPort)
		if err != nil {
			return Result{}, err
		}
		res = Result{Scheme: SchemeLDAP, Mode: state.TLSModeSelfSigned, Files: []string{path}}
	}

	// EVALUATE
	res.URI = URI(res.Scheme, host, ldapPort)
	log.Info("Configuration provisioned",
		zap.String("uri", res.URI),
		zap.String("tls_mode", string(res.Mode)),
		zap.Int("files", len(res.Files)))
	return res, nil
}

func (p *Provisioner) writeDefault(rc *charm_io.RuntimeContext, ldapPort, apiPort int) (string, error) {
	renderer := p.Renderer
	if renderer == nil {
		renderer = templates.NewRenderer(rc.Log)
	}
	data := templateData{
		LDAPPort:          ldapPort,
		APIPort:           apiPort,
		BaseDN:            p.BaseDN,
		FailedBinds:       shared.FailedBindsLimit,
		FailedBindsPeriod: shared.FailedBindsPeriodSec,
		FailedBindsBlock:  shared.FailedBindsBlockSec,
		PruneEvery:        shared.PruneSourceTableEvery,
		PruneOlderThan:    shared.PruneSourcesOlderThan,
	}

	rendered, err := renderer.RenderFS(rc.Ctx, templateFS, defaultTemplate, data, p.RenderOptions)
	if err != nil {
		return "", charm_err.NewTemplateError(defaultTemplate, err)
	}
	if err := verify(rendered, ldapPort, apiPort); err != nil {
		return "", charm_err.NewTemplateError(defaultTemplate, err)
	}

	path := filepath.Join(p.ConfigDir, shared.GlauthConfigFile)
	if err := writeFileAtomic(path, []byte(rendered), shared.FilePermStandard); err != nil {
		return "", charm_err.NewConfigurationError(path, err)
	}
	return path, nil
}

// verify decodes rendered output and checks the listeners match the ports
// the URI will advertise.
func verify(rendered string, ldapPort, apiPort int) error {
	doc, err := ParseDocument(rendered)
	if err != nil {
		return err
	}
	if !doc.LDAP.Enabled {
		return cerr.New("rendered config does not enable the ldap listener")
	}
	got, err := doc.LDAPPort()
	if err != nil {
		return err
	}
	if got != ldapPort {
		return cerr.Newf("rendered ldap port %d does not match %d", got, ldapPort)
	}
	got, err = doc.APIPort()
	if err != nil {
		return err
	}
	if got != apiPort {
		return cerr.Newf("rendered api port %d does not match %d", got, apiPort)
	}
	return nil
}

// Hostname reads the host name fresh on every call.
func (p *Provisioner) Hostname() (string, error) {
	raw, err := os.ReadFile(p.HostnameFile)
	if err != nil {
		return "", charm_err.NewConfigurationError(p.HostnameFile, err)
	}
	host := strings.TrimSpace(string(raw))
	if host == "" {
		return "", charm_err.NewConfigurationError(p.HostnameFile, cerr.New("hostname is empty"))
	}
	return host, nil
}

// URI formats scheme://host:port.
func URI(scheme, host string, port int) string {
	return scheme + "://" + host + ":" + strconv.Itoa(port)
}

func hasFragments(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.Type().IsRegular() {
			return true
		}
	}
	return false
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
