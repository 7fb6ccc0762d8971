// pkg/certs/certs.go
//
// Package certs makes sure the LDAP server has a key and certificate before
// its service is started, generating a self-signed pair on first use.

package certs

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_err"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/shared"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Generator writes a new self-signed key and certificate pair.
type Generator interface {
	Generate(rc *charm_io.RuntimeContext, commonName, certPath, keyPath string) error
}

// ServiceStarter starts the service that consumes the certificate.
type ServiceStarter interface {
	Start(rc *charm_io.RuntimeContext) error
}

// Bootstrapper owns the fixed certificate and key paths.
type Bootstrapper struct {
	CertPath  string
	KeyPath   string
	Generator Generator
	Starter   ServiceStarter
}

// NewBootstrapper uses openssl when it is on PATH and the native generator
// otherwise.
func NewBootstrapper(certPath, keyPath string, runner execute.Runner, starter ServiceStarter) *Bootstrapper {
	if certPath == "" {
		certPath = shared.GlauthCertPath
	}
	if keyPath == "" {
		keyPath = shared.GlauthKeyPath
	}
	var gen Generator = NativeGenerator{KeyBits: shared.CertKeySize, ValidityDays: shared.CertValidityDays}
	if _, err := exec.LookPath(opensslBinary); err == nil {
		gen = OpenSSLGenerator{Runner: runner, KeyBits: shared.CertKeySize, ValidityDays: shared.CertValidityDays}
	}
	return &Bootstrapper{
		CertPath:  certPath,
		KeyPath:   keyPath,
		Generator: gen,
		Starter:   starter,
	}
}

// EnsureCertificate generates a pair only when neither file exists, starts
// the service and returns the certificate content. Existing material is
// reused without checking expiry.
func (b *Bootstrapper) EnsureCertificate(rc *charm_io.RuntimeContext, commonName string) (string, error) {
	log := otelzap.Ctx(rc.Ctx)

	// ASSESS
	certExists := exists(b.CertPath)
	keyExists := exists(b.KeyPath)
	log.Debug("Assessing certificate material",
		zap.String("cert_path", b.CertPath),
		zap.Bool("cert_exists", certExists),
		zap.String("key_path", b.KeyPath),
		zap.Bool("key_exists", keyExists))

	// INTERVENE
	if !certExists && !keyExists {
		log.Info("Generating self-signed certificate", zap.String("common_name", commonName))
		for _, dir := range []string{filepath.Dir(b.CertPath), filepath.Dir(b.KeyPath)} {
			if err := os.MkdirAll(dir, shared.DirPermStandard); err != nil {
				return "", charm_err.NewCertificateError(commonName, cerr.Wrapf(err, "create %s", dir))
			}
		}
		if err := b.Generator.Generate(rc, commonName, b.CertPath, b.KeyPath); err != nil {
			return "", charm_err.NewCertificateError(commonName, err)
		}
	}

	if b.Starter != nil {
		if err := b.Starter.Start(rc); err != nil {
			return "", err
		}
	}

	// EVALUATE
	content, err := os.ReadFile(b.CertPath)
	if err != nil {
		return "", charm_err.NewCertificateError(commonName, cerr.Wrapf(err, "read %s", b.CertPath))
	}
	log.Info("Certificate ready", zap.String("cert_path", b.CertPath), zap.Int("bytes", len(content)))
	return string(content), nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
