// Package ldap checks that the advertised LDAP endpoint answers.
package ldap

import (
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/url"
	"time"

	"github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/charm_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/go-ldap/ldap/v3"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// DefaultProbeTimeout bounds dialing and each request.
const DefaultProbeTimeout = 5 * time.Second

// ProbeResult is what a probe learned about the endpoint.
type ProbeResult struct {
	URI            string
	Reachable      bool
	RootDSE        bool
	NamingContexts []string
	Vendor         string
	Latency        time.Duration
}

// Prober connects to an LDAP URI and reads the root DSE.
type Prober struct {
	Timeout time.Duration
	// CACert is a PEM bundle trusted for ldaps endpoints.
	CACert string
	// BindDN and Password, when set, are used for a simple bind first.
	BindDN   string
	Password string
}

// Probe dials uri and searches the root DSE. A reachable server that
// refuses the search is reported with Reachable set and a non-nil error.
func (p Prober) Probe(rc *charm_io.RuntimeContext, uri string) (ProbeResult, error) {
	log := otelzap.Ctx(rc.Ctx)
	res := ProbeResult{URI: uri}

	timeout := p.Timeout
	if timeout == 0 {
		timeout = DefaultProbeTimeout
	}

	opts := []ldap.DialOpt{ldap.DialWithDialer(&net.Dialer{Timeout: timeout})}
	tlsCfg, err := p.tlsConfig(uri)
	if err != nil {
		return res, err
	}
	if tlsCfg != nil {
		opts = append(opts, ldap.DialWithTLSConfig(tlsCfg))
	}

	start := time.Now()
	conn, err := ldap.DialURL(uri, opts...)
	if err != nil {
		log.Warn("LDAP endpoint unreachable", zap.String("uri", uri), zap.Error(err))
		return res, cerr.Wrapf(err, "dial %s", uri)
	}
	defer conn.Close()
	conn.SetTimeout(timeout)
	res.Reachable = true

	if p.BindDN != "" {
		if err := conn.Bind(p.BindDN, p.Password); err != nil {
			return res, cerr.Wrapf(err, "bind as %s", p.BindDN)
		}
	}

	req := ldap.NewSearchRequest(
		"", ldap.ScopeBaseObject, ldap.NeverDerefAliases, 1, int(timeout.Seconds()), false,
		"(objectClass=*)",
		[]string{"namingContexts", "vendorName", "supportedLDAPVersion"},
		nil,
	)
	sr, err := conn.Search(req)
	res.Latency = time.Since(start)
	if err != nil {
		log.Warn("LDAP root DSE search failed", zap.String("uri", uri), zap.Error(err))
		return res, cerr.Wrap(err, "search root DSE")
	}

	res.RootDSE = true
	if len(sr.Entries) > 0 {
		e := sr.Entries[0]
		res.NamingContexts = e.GetAttributeValues("namingContexts")
		res.Vendor = e.GetAttributeValue("vendorName")
	}

	log.Info("LDAP endpoint answered",
		zap.String("uri", uri),
		zap.Strings("naming_contexts", res.NamingContexts),
		zap.Duration("latency", res.Latency))
	return res, nil
}

func (p Prober) tlsConfig(uri string) (*tls.Config, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, cerr.Wrapf(err, "parse %s", uri)
	}
	if u.Scheme != "ldaps" {
		return nil, nil
	}
	cfg := &tls.Config{ServerName: u.Hostname(), MinVersion: tls.VersionTLS12}
	if p.CACert != "" {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(p.CACert)) {
			return nil, cerr.New("no certificates found in CA bundle")
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}
