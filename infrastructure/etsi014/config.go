// Package etsi014 implements application.QkdClient against the ETSI GS
// QKD 014 REST API: GET .../enc_keys for a fresh random key (server role),
// GET .../dec_keys?key_ID=... for a specific key (client role).
package etsi014

// Config describes one QKD device endpoint and its TLS posture.
type Config struct {
	URL         string `toml:"url"`
	RemoteSaeID string `toml:"remote_sae_id"`

	// IntervalSecs overrides the server role's rekey interval; zero means
	// "use the default".
	IntervalSecs int `toml:"interval_secs"`

	// TLSCACert pins a CA certificate file instead of the system root
	// store. Empty uses the system roots.
	TLSCACert string `toml:"tls_cacert"`

	// TLSCert/TLSKey, when both set, present a client certificate for
	// mutual TLS.
	TLSCert string `toml:"tls_cert"`
	TLSKey  string `toml:"tls_key"`

	// DangerAllowInsecureNoServerNameCertificates accepts a server
	// certificate whose ONLY verification failure is a hostname/SAN
	// mismatch; every other failure (expiry, unknown CA, ...) still
	// aborts the connection.
	DangerAllowInsecureNoServerNameCertificates bool `toml:"danger_allow_insecure_no_server_name_certificates"`
}
