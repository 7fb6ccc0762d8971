// pkg/shared/constants.go

package shared

const (
	OperatorID   = "glauth-operator"
	OperatorLogs = "/var/log/glauth-operator/operator.log"
	// #nosec G101 - log path, not a credential
	OperatorLogsPWD = "./glauth-operator.log"
)

const (
	// Permission modes (in octal)
	DirPermStandard        = 0755
	FilePermStandard       = 0644
	FilePermOwnerReadWrite = 0600
	FilePermOwnerRWX       = 0700
)

// GLAuth snap layout
const (
	SnapName         = "glauth"
	SnapService      = "daemon"
	DefaultChannel   = "edge"
	SnapCommonDir    = "/var/snap/glauth/common"
	GlauthEtcDir     = SnapCommonDir + "/etc/glauth"
	GlauthConfigDir  = GlauthEtcDir + "/glauth.d"
	GlauthConfigFile = "glauth.cfg"
	GlauthCertPath   = GlauthEtcDir + "/certs.d/glauth.crt"
	GlauthKeyPath    = GlauthEtcDir + "/keys.d/glauth.key"
	HostnameFile     = "/etc/hostname"
)

// Server defaults
const (
	DefaultLDAPPort  = 3893
	DefaultAPIPort   = 5555
	DefaultBaseDN    = "dc=glauth,dc=com"
	DefaultDomain    = "glauth.com"
	DefaultHoldDays  = 90
	DefaultStateFile = "/var/lib/glauth-operator/state.yaml"
	DefaultEnvFile   = "/etc/default/glauth-operator"

	CertValidityDays = 365
	CertKeySize      = 4096
)

// Failed-bind throttling written into the default configuration.
const (
	FailedBindsLimit      = 3
	FailedBindsPeriodSec  = 10
	FailedBindsBlockSec   = 60
	PruneSourceTableEvery = 600
	PruneSourcesOlderThan = 600
)

// Juju integration names
const (
	LDAPClientRelation = "ldap-client"
	PeerRelation       = "glauth"
	ConfigResource     = "config"
)

// Relation data keys
const (
	KeyDomain   = "domain"
	KeyLDAPURI  = "ldap-uri"
	KeyBaseDN   = "basedn"
	KeyLDAPPort = "ldap-port"
	KeyAPIPort  = "api-port"
	KeyCert     = "ldap-cert"
	KeyBindDN   = "ldap-default-bind-dn"
	KeyPassword = "ldap-password"
)
