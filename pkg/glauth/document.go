package glauth

import (
	"net"
	"strconv"

	"github.com/BurntSushi/toml"
	cerr "github.com/cockroachdb/errors"
)

// Document is the subset of the GLAuth configuration the operator writes.
type Document struct {
	Debug     bool      `toml:"debug"`
	LDAP      Listener  `toml:"ldap"`
	Behaviors Behaviors `toml:"behaviors"`
	Backend   Backend   `toml:"backend"`
	API       API       `toml:"api"`
}

// Listener is an [ldap] or [ldaps] section.
type Listener struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// Behaviors controls failed-bind throttling.
type Behaviors struct {
	IgnoreCapabilities    bool `toml:"IgnoreCapabilities"`
	LimitFailedBinds      bool `toml:"LimitFailedBinds"`
	NumberOfFailedBinds   int  `toml:"NumberOfFailedBinds"`
	PeriodOfFailedBinds   int  `toml:"PeriodOfFailedBinds"`
	BlockFailedBindsFor   int  `toml:"BlockFailedBindsFor"`
	PruneSourceTableEvery int  `toml:"PruneSourceTableEvery"`
	PruneSourcesOlderThan int  `toml:"PruneSourcesOlderThan"`
}

// Backend names the datastore and base DN.
type Backend struct {
	Datastore string `toml:"datastore"`
	BaseDN    string `toml:"baseDN"`
}

// API is the [api] section.
type API struct {
	Enabled   bool   `toml:"enabled"`
	Internals bool   `toml:"internals"`
	TLS       bool   `toml:"tls"`
	Listen    string `toml:"listen"`
	Cert      string `toml:"cert"`
	Key       string `toml:"key"`
}

// ParseDocument decodes rendered TOML.
func ParseDocument(raw string) (*Document, error) {
	var doc Document
	if _, err := toml.Decode(raw, &doc); err != nil {
		return nil, cerr.Wrap(err, "decode glauth config")
	}
	return &doc, nil
}

// LDAPPort returns the port of the [ldap] listener.
func (d *Document) LDAPPort() (int, error) {
	return listenPort(d.LDAP.Listen)
}

// APIPort returns the port of the [api] listener.
func (d *Document) APIPort() (int, error) {
	return listenPort(d.API.Listen)
}

func listenPort(listen string) (int, error) {
	_, port, err := net.SplitHostPort(listen)
	if err != nil {
		return 0, cerr.Wrapf(err, "listen address %q", listen)
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return 0, cerr.Wrapf(err, "listen port %q", port)
	}
	return n, nil
}
