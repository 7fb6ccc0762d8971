package certs

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/shared"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const opensslBinary = "openssl"

// OpenSSLGenerator shells out to openssl req -x509.
type OpenSSLGenerator struct {
	Runner       execute.Runner
	KeyBits      int
	ValidityDays int
}

func (g OpenSSLGenerator) Generate(rc *charm_io.RuntimeContext, commonName, certPath, keyPath string) error {
	runner := g.Runner
	if runner == nil {
		runner = execute.DefaultRunner
	}
	args := []string{
		"req", "-x509",
		"-newkey", "rsa:" + strconv.Itoa(g.KeyBits),
		"-keyout", keyPath,
		"-out", certPath,
		"-days", strconv.Itoa(g.ValidityDays),
		"-nodes",
		"-subj", "/CN=" + escapeSubject(commonName),
	}
	if _, err := runner.Run(rc.Ctx, execute.Options{Command: opensslBinary, Args: args, Logger: rc.Log}); err != nil {
		return cerr.Wrap(err, "openssl req")
	}
	if !exists(certPath) || !exists(keyPath) {
		return cerr.Newf("openssl did not produce %s and %s", certPath, keyPath)
	}
	if err := os.Chmod(keyPath, shared.FilePermOwnerReadWrite); err != nil {
		otelzap.Ctx(rc.Ctx).Warn("Could not tighten key permissions", zap.String("path", keyPath), zap.Error(err))
	}
	return nil
}

// escapeSubject protects the separators openssl uses in -subj values, so a
// URI can be used as a common name.
func escapeSubject(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "/", `\/`, "+", `\+`, "=", `\=`)
	return r.Replace(s)
}

// NativeGenerator creates the pair with crypto/x509.
type NativeGenerator struct {
	KeyBits      int
	ValidityDays int
	Now          func() time.Time
}

func (g NativeGenerator) Generate(rc *charm_io.RuntimeContext, commonName, certPath, keyPath string) error {
	bits := g.KeyBits
	if bits == 0 {
		bits = shared.CertKeySize
	}
	days := g.ValidityDays
	if days == 0 {
		days = shared.CertValidityDays
	}
	now := time.Now()
	if g.Now != nil {
		now = g.Now()
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return cerr.Wrap(err, "generate private key")
	}

	serialLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serial, err := rand.Int(rand.Reader, serialLimit)
	if err != nil {
		return cerr.Wrap(err, "generate serial number")
	}

	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             now,
		NotAfter:              now.Add(time.Duration(days) * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return cerr.Wrap(err, "create certificate")
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return cerr.Wrap(err, "marshal private key")
	}

	if err := os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}), shared.FilePermOwnerReadWrite); err != nil {
		return cerr.Wrapf(err, "write %s", keyPath)
	}
	if err := os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), shared.FilePermStandard); err != nil {
		return cerr.Wrapf(err, "write %s", certPath)
	}

	otelzap.Ctx(rc.Ctx).Debug("Native certificate written",
		zap.String("common_name", commonName),
		zap.Int("key_bits", bits),
		zap.Time("not_after", template.NotAfter))
	return nil
}

// ParseCertificate decodes the first PEM certificate in content.
func ParseCertificate(content string) (*x509.Certificate, error) {
	block, _ := pem.Decode([]byte(content))
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, cerr.New("no PEM certificate found")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, cerr.Wrap(err, "parse certificate")
	}
	return cert, nil
}
