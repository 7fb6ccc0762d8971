package orchestrator

import "github.com/CodeMonkeyCybersecurity/glauth-operator/pkg/shared"

const (
	EndpointLDAPClient = shared.LDAPClientRelation
	EndpointPeer       = shared.PeerRelation
	ResourceConfig     = shared.ConfigResource

	KeyDomain = shared.KeyDomain
	KeyURI    = shared.KeyLDAPURI
	KeyBaseDN = shared.KeyBaseDN

	// Secret labels double as the relation keys carrying their ids.
	LabelCert     = shared.KeyCert
	LabelBindDN   = shared.KeyBindDN
	LabelPassword = shared.KeyPassword

	// Keys a requirer may set to ask for non-default ports.
	KeyRequestedLDAPPort = shared.KeyLDAPPort
	KeyRequestedAPIPort  = shared.KeyAPIPort
)

// Payload is what one integration publication hands to a requirer.
type Payload struct {
	Domain string
	URI    string
	BaseDN string

	CertSecret     string
	BindDNSecret   string
	PasswordSecret string
}

// RelationData renders the payload as a complete application databag.
// Missing secret references are written as empty strings, which deletes
// any value left by an earlier publication.
func (p Payload) RelationData() map[string]string {
	return map[string]string{
		KeyDomain:     p.Domain,
		KeyURI:        p.URI,
		KeyBaseDN:     p.BaseDN,
		LabelCert:     p.CertSecret,
		LabelBindDN:   p.BindDNSecret,
		LabelPassword: p.PasswordSecret,
	}
}

// SecretIDs returns the non-empty secret references.
func (p Payload) SecretIDs() []string {
	var ids []string
	for _, id := range []string{p.CertSecret, p.BindDNSecret, p.PasswordSecret} {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
